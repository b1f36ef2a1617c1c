package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"screencast-insights-go/internal/types"
)

func md(request, emotion, framework string, patterns ...string) types.ProcessedMetadata {
	return types.ProcessedMetadata{
		MediaDurationSeconds: 10,
		UserContext:          types.UserContext{RequestType: request, UserEmotion: emotion},
		TechnicalContext:     types.TechnicalContext{DetectedFramework: framework, ErrorPatterns: patterns},
	}
}

func TestAggregate(t *testing.T) {
	ins := Aggregate([]types.ProcessedMetadata{
		md("bug_fix", "frustrated", "react", "network_error"),
		md("bug_fix", "neutral", "unknown", "network_error", "type_error"),
		md("question", "frustrated", "react"),
		md("calculation", "neutral", "unknown"),
	}, 1)

	assert.Equal(t, 5, ins.Total)
	assert.Equal(t, 1, ins.Failed)
	assert.Equal(t, 4, ins.Succeeded())
	assert.Equal(t, map[string]int{"bug_fix": 2, "question": 1, "calculation": 1}, ins.RequestTypeCounts)
	assert.Equal(t, map[string]int{"frustrated": 2, "neutral": 2}, ins.EmotionCounts)
	assert.Equal(t, map[string]int{"react": 2, "unknown": 2}, ins.FrameworkCounts)
	assert.Equal(t, map[string]int{"network_error": 2, "type_error": 1}, ins.ErrorPatternCounts)
	assert.InDelta(t, 0.5, ins.FrustrationRate, 1e-9)
	assert.InDelta(t, 10.0, ins.AvgMediaSeconds, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	ins := Aggregate(nil, 2)
	assert.Equal(t, 2, ins.Total)
	assert.Zero(t, ins.FrustrationRate)
	assert.NotNil(t, ins.RequestTypeCounts)
}

func TestTop(t *testing.T) {
	k, n := Top(map[string]int{"b": 2, "a": 2, "c": 1})
	assert.Equal(t, "a", k)
	assert.Equal(t, 2, n)

	k, n = Top(nil)
	assert.Empty(t, k)
	assert.Zero(t, n)
}
