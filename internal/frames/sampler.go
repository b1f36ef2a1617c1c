// Package frames samples a handful of representative still frames from a
// recorded video.
package frames

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/types"
)

var (
	ErrNoFrames = errors.New("no frames could be sampled from the recording")
	// ErrPastEnd is returned by a Decoder when the requested offset lies
	// beyond the real end of the stream. The sampler skips such points.
	ErrPastEnd = errors.New("offset is past the end of the media")
)

// Decoder seeks and decodes frames of one recording. A Decoder is stateful
// and must only be used by one goroutine at a time.
type Decoder interface {
	Duration(ctx context.Context) (float64, error)
	FrameAt(ctx context.Context, offset float64) ([]byte, error)
}

type Sampler struct {
	mode      config.SampleMode
	fractions []float64
	cadence   float64
	max       int
	log       *logger.Logger
}

func NewSampler(cfg config.Config) *Sampler {
	return &Sampler{
		mode:      cfg.SampleMode,
		fractions: append([]float64(nil), cfg.SampleFractions...),
		cadence:   cfg.CadenceSeconds,
		max:       cfg.MaxFrames,
		log:       logger.Component("frames"),
	}
}

// Times returns the offsets to sample for a clip of the given duration.
// Points at or past the duration are dropped and duplicates collapse. At
// most MaxFrames points are returned: cadence mode widens its step to
// spread them over the clip, keyframe mode keeps the first ones.
func (s *Sampler) Times(duration float64) []float64 {
	if duration <= 0 {
		return nil
	}
	var raw []float64
	switch s.mode {
	case config.SampleCadence:
		if s.cadence <= 0 {
			return nil
		}
		step := s.cadence
		if s.max > 0 && duration/step > float64(s.max) {
			step = duration / float64(s.max)
		}
		for i := 0; ; i++ {
			t := float64(i) * step
			if t >= duration {
				break
			}
			raw = append(raw, t)
		}
	default:
		for _, f := range s.fractions {
			raw = append(raw, f*duration)
		}
	}

	out := make([]float64, 0, len(raw))
	seen := make(map[float64]bool, len(raw))
	for _, t := range raw {
		t = math.Round(t*1000) / 1000
		if t >= duration || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if s.max > 0 && len(out) == s.max {
			break
		}
	}
	return out
}

// Frames lazily decodes one frame per sample point. Each step waits for the
// decoder before moving on; iteration stops at the first fatal error.
// Ranging over the result again re-runs the sampling from the start.
func (s *Sampler) Frames(ctx context.Context, dec Decoder) iter.Seq2[types.Frame, error] {
	return func(yield func(types.Frame, error) bool) {
		duration, err := dec.Duration(ctx)
		if err != nil {
			yield(types.Frame{}, fmt.Errorf("probe duration: %w", err))
			return
		}
		for _, t := range s.Times(duration) {
			if err := ctx.Err(); err != nil {
				yield(types.Frame{}, err)
				return
			}
			img, err := dec.FrameAt(ctx, t)
			if errors.Is(err, ErrPastEnd) {
				s.log.WithField("offset_sec", t).Debug("sample point past end of media, skipped")
				continue
			}
			if err != nil {
				yield(types.Frame{}, fmt.Errorf("decode frame at %.3fs: %w", t, err))
				return
			}
			if !yield(types.Frame{Image: img, OffsetSeconds: t}, nil) {
				return
			}
		}
	}
}

// Sample collects Frames. Any decode failure, or ending with no frames at
// all, is fatal for the pipeline.
func (s *Sampler) Sample(ctx context.Context, dec Decoder) ([]types.Frame, error) {
	start := time.Now()
	var out []types.Frame
	for f, err := range s.Frames(ctx, dec) {
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, ErrNoFrames
	}
	s.log.WithFields(logrus.Fields{
		"frames":      len(out),
		"mode":        s.mode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("frames sampled")
	return out, nil
}
