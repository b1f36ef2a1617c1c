// Package assembler merges stage outputs into the final metadata record.
package assembler

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"screencast-insights-go/internal/classifier"
	"screencast-insights-go/internal/types"
)

type Input struct {
	// CaptureEnd is the wall-clock time the recording stopped.
	CaptureEnd time.Time
	// Elapsed is the wall-clock time of the whole processing run.
	Elapsed       time.Duration
	MediaDuration float64
	Transcript    string
	Observations  []string
	Palette       []string
	Classified    classifier.Result
}

// Assemble builds a fresh ProcessedMetadata. Every slice in the result is
// newly allocated, so callers may hold on to it without sharing state with
// the input.
func Assemble(in Input) types.ProcessedMetadata {
	c := in.Classified
	return types.ProcessedMetadata{
		SessionID:                 uuid.NewString(),
		Timestamp:                 in.CaptureEnd.UTC().Format(time.RFC3339),
		ProcessingDurationSeconds: round3(in.Elapsed.Seconds()),
		MediaDurationSeconds:      round3(in.MediaDuration),
		UserContext: types.UserContext{
			Transcript:     in.Transcript,
			IntentKeywords: clone(c.IntentKeywords),
			UserEmotion:    orDefault(c.UserEmotion, classifier.EmotionNeutral),
			RequestType:    orDefault(c.RequestType, classifier.RequestGeneral),
		},
		VisualContext: types.VisualContext{
			FramesAnalyzed:     len(in.Observations),
			UIElementsDetected: clone(c.UIElements),
			ColorPalette:       clone(in.Palette),
			LayoutAnalysis:     orDefault(c.LayoutAnalysis, classifier.LayoutUnknown),
			TextContent:        clone(c.TextContent),
		},
		TechnicalContext: types.TechnicalContext{
			DetectedFramework: orDefault(c.DetectedFramework, classifier.FrameworkUnknown),
			ErrorPatterns:     clone(c.ErrorPatterns),
			SuggestedFocus:    clone(c.SuggestedFocus),
		},
	}
}

func clone[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
