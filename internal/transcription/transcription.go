// Package transcription turns the recording's audio track into text. It
// never fails the pipeline: problems degrade to a placeholder transcript.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/media"
	"screencast-insights-go/internal/provider"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

const (
	NotAvailableText = "Audio transcription not available"
	PlaceholderText  = "Audio transcription failed; no transcript could be produced"
)

var ErrNoAudio = errors.New("recording has no audio track")

type Result struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
}

// Usable reports whether Text is a real transcript rather than a marker.
func (r Result) Usable() bool { return r.Status == StatusOK }

type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath string) ([]byte, error)
}

// FFmpegExtractor re-encodes the audio track to 16 kHz mono WAV.
type FFmpegExtractor struct {
	Bin string
}

func NewFFmpegExtractor(bin string) *FFmpegExtractor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegExtractor{Bin: bin}
}

func (e *FFmpegExtractor) Args(videoPath string) []string {
	return []string{"-hide_banner", "-loglevel", "error", "-i", videoPath,
		"-vn", "-ac", "1", "-ar", "16000", "-f", "wav", "pipe:1"}
}

func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.Bin, e.Args(videoPath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "does not contain any stream") || strings.Contains(msg, "matches no streams") {
			return nil, ErrNoAudio
		}
		return nil, fmt.Errorf("ffmpeg audio: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

type Transcriber struct {
	provider  provider.Provider
	extractor Extractor
	log       *logger.Logger
}

// New builds a transcriber. p may be nil when no provider is configured.
func New(p provider.Provider, e Extractor) *Transcriber {
	return &Transcriber{provider: p, extractor: e, log: logger.Component("transcription")}
}

// Transcribe extracts the audio of m and sends it to the provider.
func (t *Transcriber) Transcribe(ctx context.Context, m *media.Captured) Result {
	start := time.Now()
	res := t.transcribe(ctx, m)
	t.log.WithFields(logrus.Fields{
		"status":      res.Status,
		"chars":       len(res.Text),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("transcription finished")
	return res
}

func (t *Transcriber) transcribe(ctx context.Context, m *media.Captured) Result {
	if t.provider == nil {
		return Result{Text: NotAvailableText, Status: StatusUnavailable}
	}
	path, err := m.Path()
	if err != nil {
		return t.failed(err)
	}
	audio, err := t.extractor.ExtractAudio(ctx, path)
	if err != nil {
		return t.failed(err)
	}
	if len(audio) == 0 {
		return t.failed(ErrNoAudio)
	}
	text, err := t.provider.Transcribe(ctx, audio)
	if errors.Is(err, provider.ErrUnsupported) {
		return Result{Text: NotAvailableText, Status: StatusUnavailable}
	}
	if err != nil {
		return t.failed(err)
	}
	return Result{Text: strings.TrimSpace(text), Status: StatusOK}
}

func (t *Transcriber) failed(err error) Result {
	t.log.WithError(err).Warn("transcription degraded to placeholder")
	return Result{Text: PlaceholderText, Status: StatusFailed}
}
