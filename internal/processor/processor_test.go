package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/frames"
	"screencast-insights-go/internal/media"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/transcription"
	"screencast-insights-go/internal/types"
)

type fakeDecoder struct {
	path     string
	duration float64
	failAt   float64
}

func (d *fakeDecoder) Duration(context.Context) (float64, error) { return d.duration, nil }

func (d *fakeDecoder) FrameAt(_ context.Context, offset float64) ([]byte, error) {
	if _, err := os.Stat(d.path); err != nil {
		return nil, fmt.Errorf("recording not on disk: %w", err)
	}
	if d.failAt > 0 && offset >= d.failAt {
		return nil, errors.New("corrupt cluster")
	}
	return []byte(fmt.Sprintf("jpeg@%.1f", offset)), nil
}

type mapStrategy map[string]string

func (mapStrategy) Name() string { return "map" }

func (s mapStrategy) Describe(_ context.Context, f types.Frame) (string, error) {
	if text, ok := s[string(f.Image)]; ok {
		return text, nil
	}
	return "", errors.New("vision backend down")
}

type fakeProvider struct{ transcript string }

func (f *fakeProvider) Name() provider.Name { return provider.OpenAI }
func (f *fakeProvider) DescribeFrame(context.Context, []byte, string) (string, error) {
	return "", nil
}
func (f *fakeProvider) Transcribe(context.Context, []byte) (string, error) {
	return f.transcript, nil
}
func (f *fakeProvider) Complete(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeProvider) TestConnection(context.Context) error                     { return nil }

type fakeExtractor struct{}

func (fakeExtractor) ExtractAudio(context.Context, string) ([]byte, error) { return []byte("RIFF"), nil }

type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) report(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

type ProcessorSuite struct {
	suite.Suite
	cfg      config.Config
	decoders []*fakeDecoder
	failAt   float64
	before   int64
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	s.cfg = config.Default()
	s.cfg.TempDir = s.T().TempDir()
	s.decoders = nil
	s.failAt = 0
	s.before = media.Outstanding()
}

func (s *ProcessorSuite) TearDownTest() {
	s.Equal(s.before, media.Outstanding(), "every captured recording is released")
	entries, err := os.ReadDir(s.cfg.TempDir)
	s.NoError(err)
	s.Empty(entries, "no transient media left on disk")
	for _, d := range s.decoders {
		_, err := os.Stat(d.path)
		s.True(os.IsNotExist(err))
	}
}

func (s *ProcessorSuite) newProcessor(strategy mapStrategy, transcript string, opts ...Option) *Processor {
	var prov provider.Provider
	if transcript != "" {
		prov = &fakeProvider{transcript: transcript}
	}
	opts = append([]Option{
		WithStrategy(strategy),
		WithTranscriber(transcription.New(prov, fakeExtractor{})),
		WithDecoder(func(path string) frames.Decoder {
			d := &fakeDecoder{path: path, duration: 2.0, failAt: s.failAt}
			s.decoders = append(s.decoders, d)
			return d
		}),
	}, opts...)
	p, err := New(s.cfg, prov, opts...)
	s.Require().NoError(err)
	return p
}

func (s *ProcessorSuite) TestProcess() {
	p := s.newProcessor(mapStrategy{
		"jpeg@0.2": "Signup form",
		"jpeg@1.0": "Click the Submit button",
		"jpeg@1.8": "react-dom.development.js",
	}, "there's a bug, the button isn't working")

	rec := &recorder{}
	md, err := p.Process(context.Background(), []byte("webm-bytes"), rec.report)
	s.Require().NoError(err)

	s.Equal(3, md.VisualContext.FramesAnalyzed)
	s.Equal("there's a bug, the button isn't working", md.UserContext.Transcript)
	s.Equal("bug_fix", md.UserContext.RequestType)
	s.Equal("neutral", md.UserContext.UserEmotion)
	s.Equal("react", md.TechnicalContext.DetectedFramework)
	s.Contains(md.TechnicalContext.SuggestedFocus, "event_handling")
	s.Equal(2.0, md.MediaDurationSeconds)
	s.NotEmpty(md.SessionID)

	s.Require().NotEmpty(rec.values)
	for i := 1; i < len(rec.values); i++ {
		s.Greater(rec.values[i], rec.values[i-1])
	}
	s.Equal(1.0, rec.values[len(rec.values)-1])
	s.Require().Len(s.decoders, 1)
}

func (s *ProcessorSuite) TestAllVisionFailuresStillProduceMetadata() {
	p := s.newProcessor(mapStrategy{}, "")

	md, err := p.Process(context.Background(), []byte("webm-bytes"), nil)
	s.Require().NoError(err)

	s.Equal(3, md.VisualContext.FramesAnalyzed)
	s.Equal([]string{}, md.VisualContext.TextContent)
	s.Equal("unknown", md.TechnicalContext.DetectedFramework)
	s.Equal(transcription.NotAvailableText, md.UserContext.Transcript)
	s.Equal("neutral", md.UserContext.UserEmotion)
	s.Equal([]string{}, md.UserContext.IntentKeywords)
}

func (s *ProcessorSuite) TestDecodeFailureIsFatal() {
	s.failAt = 1.0
	p := s.newProcessor(mapStrategy{}, "")

	rec := &recorder{}
	_, err := p.Process(context.Background(), []byte("webm-bytes"), rec.report)

	var se *StageError
	s.Require().ErrorAs(err, &se)
	s.Equal(StageSampling, se.Stage)
	s.Contains(err.Error(), "frame_sampling stage failed")
	s.NotContains(rec.values, 1.0)
}

func (s *ProcessorSuite) TestEmptyRecording() {
	p := s.newProcessor(mapStrategy{}, "")

	_, err := p.Process(context.Background(), nil, nil)

	var se *StageError
	s.Require().ErrorAs(err, &se)
	s.Equal(StageMedia, se.Stage)
	s.ErrorIs(err, media.ErrEmpty)
}

func (s *ProcessorSuite) TestFrameCap() {
	s.cfg.SampleMode = config.SampleCadence
	s.cfg.CadenceSeconds = 0.1
	s.cfg.MaxFrames = 4
	p := s.newProcessor(mapStrategy{"jpeg@0.0": "Login"}, "")

	md, err := p.Process(context.Background(), []byte("webm-bytes"), nil)
	s.Require().NoError(err)
	s.Equal(4, md.VisualContext.FramesAnalyzed)
}

func (s *ProcessorSuite) TestExportRespectsFrameCap() {
	s.cfg.SampleMode = config.SampleCadence
	s.cfg.CadenceSeconds = 0.1
	s.cfg.MaxFrames = 4
	p := s.newProcessor(mapStrategy{}, "")

	out, err := p.ExportForExternalAgent(context.Background(), []byte("webm-bytes"), nil)
	s.Require().NoError(err)
	s.Len(out.Frames, 4)
	s.Contains(out.Instructions, "0.0s, 0.5s, 1.0s, 1.5s")
}

func (s *ProcessorSuite) TestExportForExternalAgent() {
	p := s.newProcessor(mapStrategy{}, "what is 12 * 7?")

	rec := &recorder{}
	out, err := p.ExportForExternalAgent(context.Background(), []byte("webm-bytes"), rec.report)
	s.Require().NoError(err)

	s.Len(out.Frames, 3)
	for _, f := range out.Frames {
		s.True(strings.HasPrefix(f, "data:image/jpeg;base64,"))
	}
	s.Equal("what is 12 * 7?", out.Transcript)
	s.Contains(out.Instructions, `"what is 12 * 7?"`)
	s.Contains(out.Instructions, "calculation")
	s.Contains(out.Instructions, "0.2s, 1.0s, 1.8s")
	s.Equal(1.0, rec.values[len(rec.values)-1])
}

func TestInstructionsWithoutTranscript(t *testing.T) {
	got := Instructions(transcription.Result{Text: transcription.PlaceholderText, Status: transcription.StatusFailed},
		[]float64{0.5}, 5)
	assert.Contains(t, got, "No usable voice transcript")
	assert.NotContains(t, got, transcription.PlaceholderText)
}

func TestProgressClampsAndNeverDecreases(t *testing.T) {
	rec := &recorder{}
	p := newProgress(rec.report)
	for _, v := range []float64{-0.5, 0.1, 0.05, 0.1, 0.4, 2, 0.9} {
		p.report(v)
	}
	assert.Equal(t, []float64{0, 0.1, 0.4, 1}, rec.values)

	newProgress(nil).report(0.5)
}

func TestProgressSpan(t *testing.T) {
	rec := &recorder{}
	p := newProgress(rec.report)
	for i := 1; i <= 4; i++ {
		p.span(0.2, 0.6, i, 4)
	}
	require.Len(t, rec.values, 4)
	assert.InDelta(t, 0.3, rec.values[0], 1e-9)
	assert.InDelta(t, 0.6, rec.values[3], 1e-9)
}

func TestNewRemoteVisionNeedsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.VisionStrategy = config.VisionRemote
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestStageErrorUnwraps(t *testing.T) {
	err := &StageError{Stage: StageSampling, Err: frames.ErrNoFrames}
	assert.ErrorIs(t, err, frames.ErrNoFrames)
	assert.Equal(t, "frame_sampling stage failed: no frames could be sampled from the recording", err.Error())
}
