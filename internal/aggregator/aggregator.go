// Package aggregator rolls processed recordings up into batch-level counts.
package aggregator

import (
	"sort"

	"screencast-insights-go/internal/types"
)

type Insight struct {
	Total              int            `json:"total"`
	Failed             int            `json:"failed"`
	RequestTypeCounts  map[string]int `json:"request_type_counts"`
	EmotionCounts      map[string]int `json:"emotion_counts"`
	FrameworkCounts    map[string]int `json:"framework_counts"`
	ErrorPatternCounts map[string]int `json:"error_pattern_counts"`
	FrustrationRate    float64        `json:"frustration_rate"`
	AvgMediaSeconds    float64        `json:"avg_media_seconds"`
}

// Aggregate counts over successfully processed recordings. failed is the
// number of recordings that never produced metadata; it is reported but
// does not skew the rates.
func Aggregate(records []types.ProcessedMetadata, failed int) Insight {
	ins := Insight{
		Total:              len(records) + failed,
		Failed:             failed,
		RequestTypeCounts:  map[string]int{},
		EmotionCounts:      map[string]int{},
		FrameworkCounts:    map[string]int{},
		ErrorPatternCounts: map[string]int{},
	}
	frustrated := 0
	media := 0.0
	for _, r := range records {
		if r.UserContext.RequestType != "" {
			ins.RequestTypeCounts[r.UserContext.RequestType]++
		}
		if r.UserContext.UserEmotion != "" {
			ins.EmotionCounts[r.UserContext.UserEmotion]++
		}
		if r.UserContext.UserEmotion == "frustrated" {
			frustrated++
		}
		if r.TechnicalContext.DetectedFramework != "" {
			ins.FrameworkCounts[r.TechnicalContext.DetectedFramework]++
		}
		for _, p := range r.TechnicalContext.ErrorPatterns {
			ins.ErrorPatternCounts[p]++
		}
		media += r.MediaDurationSeconds
	}
	if n := len(records); n > 0 {
		ins.FrustrationRate = float64(frustrated) / float64(n)
		ins.AvgMediaSeconds = media / float64(n)
	}
	return ins
}

// Top returns the most frequent key and its count. Ties go to the
// lexically smaller key so the result is stable.
func Top(counts map[string]int) (string, int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, n := "", 0
	for _, k := range keys {
		if counts[k] > n {
			best, n = k, counts[k]
		}
	}
	return best, n
}

// Succeeded is the number of recordings the rates are computed over.
func (i Insight) Succeeded() int { return i.Total - i.Failed }
