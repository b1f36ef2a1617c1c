// Package vision turns sampled frames into text observations, either with a
// local OCR engine or by asking a remote vision model.
package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/types"
)

// Strategy reads the text out of one frame.
type Strategy interface {
	Name() string
	Describe(ctx context.Context, f types.Frame) (string, error)
}

// NewStrategy picks the strategy named in cfg. Remote vision needs a
// provider; OCR runs the tesseract binary from cfg.
func NewStrategy(cfg config.Config, p provider.Provider) (Strategy, error) {
	switch cfg.VisionStrategy {
	case config.VisionRemote:
		if p == nil {
			return nil, fmt.Errorf("remote vision: %w", provider.ErrNotConfigured)
		}
		return NewRemoteStrategy(p), nil
	case config.VisionOCR, "":
		return NewOCRStrategy(NewTesseractEngine(cfg.TesseractPath)), nil
	default:
		return nil, fmt.Errorf("unknown vision strategy %q", cfg.VisionStrategy)
	}
}

type Analyzer struct {
	strategy  Strategy
	maxFrames int
	workers   int
	log       *logger.Logger
}

func NewAnalyzer(s Strategy, maxFrames, workers int) *Analyzer {
	if maxFrames <= 0 {
		maxFrames = config.DefaultMaxFrames
	}
	if workers <= 0 {
		workers = 1
	}
	return &Analyzer{strategy: s, maxFrames: maxFrames, workers: workers, log: logger.Component("vision")}
}

// Analyze returns one observation per analyzed frame, in frame order. Only
// the first maxFrames frames are analyzed. A frame whose strategy call fails
// yields "" and the batch carries on. onFrame, when set, is called after
// each frame completes with the running count.
func (a *Analyzer) Analyze(ctx context.Context, frames []types.Frame, onFrame func(done, total int)) []string {
	start := time.Now()
	if len(frames) > a.maxFrames {
		frames = frames[:a.maxFrames]
	}
	out := make([]string, len(frames))
	total := len(frames)

	progress := make(chan struct{}, total)
	done := make(chan struct{})
	go func() {
		defer close(done)
		n := 0
		for range progress {
			n++
			if onFrame != nil {
				onFrame(n, total)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	failed := 0
	failures := make([]bool, total)
	for i, f := range frames {
		g.Go(func() error {
			defer func() { progress <- struct{}{} }()
			text, err := a.strategy.Describe(gctx, f)
			if err != nil {
				failures[i] = true
				a.log.WithFields(logrus.Fields{
					"frame":      i,
					"offset_sec": f.OffsetSeconds,
					"strategy":   a.strategy.Name(),
				}).WithField("error", err.Error()).Warn("frame analysis failed")
				return nil
			}
			out[i] = text
			return nil
		})
	}
	_ = g.Wait()
	close(progress)
	<-done

	for _, f := range failures {
		if f {
			failed++
		}
	}
	a.log.WithFields(logrus.Fields{
		"frames":      total,
		"failed":      failed,
		"strategy":    a.strategy.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("frames analyzed")
	return out
}
