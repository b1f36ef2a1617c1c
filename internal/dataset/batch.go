package dataset

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/actionable"
	"screencast-insights-go/internal/aggregator"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/types"
)

// Pipeline is satisfied by *processor.Processor.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error)
}

// Result is the outcome for one manifest row. Exactly one of Metadata and
// Error is set.
type Result struct {
	Recording  Recording                `json:"recording"`
	Metadata   *types.ProcessedMetadata `json:"metadata,omitempty"`
	Error      string                   `json:"error,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
}

type Report struct {
	Results []Result              `json:"results"`
	Insight aggregator.Insight    `json:"insight"`
	Card    actionable.ActionCard `json:"action_card"`
}

// Run processes recordings in manifest order, stopping early only when ctx
// is done. limit <= 0 means every row.
func Run(ctx context.Context, recs []Recording, p Pipeline, limit int) Report {
	log := logger.Component("dataset.batch")
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	results := make([]Result, 0, len(recs))
	for _, rec := range recs {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		res := Result{Recording: rec}
		raw, err := os.ReadFile(rec.Path)
		if err == nil {
			var md types.ProcessedMetadata
			md, err = p.Process(ctx, raw, nil)
			if err == nil {
				res.Metadata = &md
			}
		}
		if err != nil {
			res.Error = err.Error()
		}
		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)

		entry := log.WithFields(logrus.Fields{"id": rec.ID, "duration_ms": res.DurationMs})
		if err != nil {
			entry.WithError(err).Warn("recording failed")
		} else {
			entry.WithField("request_type", res.Metadata.UserContext.RequestType).Info("recording processed")
		}
	}
	return Summarize(results)
}

// Summarize aggregates results and derives the action card.
func Summarize(results []Result) Report {
	var mds []types.ProcessedMetadata
	failed := 0
	for _, r := range results {
		if r.Metadata == nil {
			failed++
			continue
		}
		mds = append(mds, *r.Metadata)
	}
	ins := aggregator.Aggregate(mds, failed)
	return Report{Results: results, Insight: ins, Card: actionable.Generate(ins)}
}
