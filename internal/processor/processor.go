// Package processor runs a recording through the whole pipeline: frame
// sampling, visual analysis, transcription, classification and assembly.
// The source media is released on every exit path.
package processor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/assembler"
	"screencast-insights-go/internal/classifier"
	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/frames"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/media"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/transcription"
	"screencast-insights-go/internal/types"
	"screencast-insights-go/internal/vision"
)

type Stage string

const (
	StageMedia    Stage = "media"
	StageSampling Stage = "frame_sampling"
)

// StageError is a fatal pipeline failure. Degraded stages never produce one.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DecoderFactory opens a decoder over the materialized recording.
type DecoderFactory func(path string) frames.Decoder

type Option func(*Processor)

func WithDecoder(f DecoderFactory) Option { return func(p *Processor) { p.newDecoder = f } }

func WithStrategy(s vision.Strategy) Option { return func(p *Processor) { p.strategy = s } }

func WithTranscriber(t *transcription.Transcriber) Option {
	return func(p *Processor) { p.transcriber = t }
}

func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

type Processor struct {
	cfg         config.Config
	sampler     *frames.Sampler
	strategy    vision.Strategy
	analyzer    *vision.Analyzer
	transcriber *transcription.Transcriber
	newDecoder  DecoderFactory
	now         func() time.Time
	log         *logger.Logger
}

// New wires the pipeline from cfg. prov may be nil, in which case remote
// vision is unavailable and transcripts are marked not available.
func New(cfg config.Config, prov provider.Provider, opts ...Option) (*Processor, error) {
	p := &Processor{cfg: cfg, log: logger.Component("processor")}
	for _, o := range opts {
		o(p)
	}
	if p.strategy == nil {
		s, err := vision.NewStrategy(cfg, prov)
		if err != nil {
			return nil, err
		}
		p.strategy = s
	}
	if p.transcriber == nil {
		p.transcriber = transcription.New(prov, transcription.NewFFmpegExtractor(cfg.FFmpegPath))
	}
	if p.newDecoder == nil {
		p.newDecoder = func(path string) frames.Decoder {
			return frames.NewFFmpegDecoder(cfg.FFmpegPath, cfg.FFprobePath, path)
		}
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.sampler = frames.NewSampler(cfg)
	p.analyzer = vision.NewAnalyzer(p.strategy, cfg.MaxFrames, cfg.VisionWorkers)
	return p, nil
}

// sampled is what both entry points need from the recording before it is
// released.
type sampled struct {
	frames     []types.Frame
	duration   float64
	transcript transcription.Result
}

// Process turns a raw recording into metadata. onProgress may be nil.
func (p *Processor) Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error) {
	start := p.now()
	prog := newProgress(onProgress)

	var observations []string
	s, err := p.withMedia(ctx, raw, prog, func(fs []types.Frame) {
		observations = p.analyzer.Analyze(ctx, fs, func(done, total int) {
			prog.span(progressSampled, progressAnalyzed, done, total)
		})
		prog.report(progressAnalyzed)
	}, progressTranscribed)
	if err != nil {
		return types.ProcessedMetadata{}, err
	}

	analyzed := s.frames[:len(observations)]
	offsets := make([]float64, len(analyzed))
	for i, f := range analyzed {
		offsets[i] = f.OffsetSeconds
	}
	text := ""
	if s.transcript.Usable() {
		text = s.transcript.Text
	}
	classified := classifier.Classify(text, observations, offsets)
	prog.report(progressClassified)

	md := assembler.Assemble(assembler.Input{
		CaptureEnd:    start,
		Elapsed:       p.now().Sub(start),
		MediaDuration: s.duration,
		Transcript:    s.transcript.Text,
		Observations:  observations,
		Palette:       assembler.Palette(analyzed, assembler.DefaultPaletteSize),
		Classified:    classified,
	})
	prog.report(progressDone)

	p.log.WithFields(logrus.Fields{
		"session_id":   md.SessionID,
		"frames":       md.VisualContext.FramesAnalyzed,
		"request_type": md.UserContext.RequestType,
		"transcript":   s.transcript.Status,
		"duration_ms":  p.now().Sub(start).Milliseconds(),
	}).Info("recording processed")
	return md, nil
}

// ExportForExternalAgent packages frames and transcript for a coding agent
// instead of running visual analysis and full classification.
func (p *Processor) ExportForExternalAgent(ctx context.Context, raw []byte, onProgress func(float64)) (types.AgentExport, error) {
	start := p.now()
	prog := newProgress(onProgress)

	s, err := p.withMedia(ctx, raw, prog, nil, progressClassified)
	if err != nil {
		return types.AgentExport{}, err
	}

	urls := make([]string, len(s.frames))
	offsets := make([]float64, len(s.frames))
	for i, f := range s.frames {
		urls[i] = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Image)
		offsets[i] = f.OffsetSeconds
	}
	out := types.AgentExport{
		Frames:       urls,
		Transcript:   s.transcript.Text,
		Instructions: Instructions(s.transcript, offsets, s.duration),
	}
	prog.report(progressDone)

	p.log.WithFields(logrus.Fields{
		"frames":      len(urls),
		"transcript":  s.transcript.Status,
		"duration_ms": p.now().Sub(start).Milliseconds(),
	}).Info("recording exported")
	return out, nil
}

// withMedia owns the recording for the stages that need it: it samples
// frames, hands them to analyze (when set), transcribes, and releases the
// media before returning, whatever happened.
func (p *Processor) withMedia(ctx context.Context, raw []byte, prog *progress, analyze func([]types.Frame), transcribedAt float64) (sampled, error) {
	m, err := media.New(raw, p.cfg.TempDir)
	if err != nil {
		return sampled{}, &StageError{Stage: StageMedia, Err: err}
	}
	defer func() {
		if err := m.Release(); err != nil {
			p.log.WithError(err).Error("media release failed")
		}
	}()

	path, err := m.Path()
	if err != nil {
		return sampled{}, &StageError{Stage: StageMedia, Err: err}
	}
	prog.report(progressMediaReady)

	dec := p.newDecoder(path)
	fs, err := p.sampler.Sample(ctx, dec)
	if err != nil {
		return sampled{}, &StageError{Stage: StageSampling, Err: err}
	}
	duration, err := dec.Duration(ctx)
	if err != nil {
		return sampled{}, &StageError{Stage: StageSampling, Err: err}
	}
	prog.report(progressSampled)

	if analyze != nil {
		analyze(fs)
	}

	tr := p.transcriber.Transcribe(ctx, m)
	prog.report(transcribedAt)
	return sampled{frames: fs, duration: duration, transcript: tr}, nil
}

// Instructions is the brief handed to an external coding agent along with
// the exported frames.
func Instructions(tr transcription.Result, offsets []float64, duration float64) string {
	var sb strings.Builder
	stamps := make([]string, len(offsets))
	for i, o := range offsets {
		stamps[i] = fmt.Sprintf("%.1fs", o)
	}
	fmt.Fprintf(&sb, "The user recorded their screen while describing a problem or request. "+
		"%d frame(s) are attached in chronological order, taken at %s of a %.1fs recording.\n\n",
		len(offsets), strings.Join(stamps, ", "), duration)

	if tr.Usable() && tr.Text != "" {
		fmt.Fprintf(&sb, "What the user said:\n%q\n\n", tr.Text)
		if c := classifier.RequestTypes.First(tr.Text, ""); c != "" {
			fmt.Fprintf(&sb, "The request looks like: %s.\n\n", strings.ReplaceAll(c, "_", " "))
		}
	} else {
		sb.WriteString("No usable voice transcript is available, so rely on what the frames show.\n\n")
	}

	sb.WriteString("Study the frames for code, error messages, terminal output and UI state. " +
		"Identify what the user is working on and what is going wrong, then respond with a concrete " +
		"fix or implementation. If the frames do not show enough to act, ask one focused clarifying question.")
	return sb.String()
}
