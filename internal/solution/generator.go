package solution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/types"
)

// Solution is the provider's answer. When the reply is not the requested
// JSON, Markdown holds it verbatim and Solution repeats it.
type Solution struct {
	Analysis          string   `json:"analysis"`
	Solution          string   `json:"solution"`
	CodeExamples      []string `json:"code_examples"`
	Recommendations   []string `json:"recommendations"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Markdown          string   `json:"markdown,omitempty"`
	Provider          string   `json:"provider"`
	DurationMs        int64    `json:"duration_ms"`
}

type Generator struct {
	p   provider.Provider
	log *logger.Logger
}

func NewGenerator(p provider.Provider) *Generator {
	return &Generator{p: p, log: logger.Component("solution")}
}

// Generate sends the contextual prompt and parses the reply.
func (g *Generator) Generate(ctx context.Context, md types.ProcessedMetadata) (Solution, error) {
	start := time.Now()
	prompt := BuildContextualPrompt(md) + "\n\n" + responseFormat

	reply, err := g.p.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return Solution{}, fmt.Errorf("generate solution: %w", err)
	}

	sol := Parse(reply)
	sol.FollowUpQuestions = FollowUpQuestions(md)
	sol.Provider = string(g.p.Name())
	sol.DurationMs = time.Since(start).Milliseconds()

	g.log.WithFields(logrus.Fields{
		"session_id":   md.SessionID,
		"provider":     sol.Provider,
		"structured":   sol.Markdown == "",
		"prompt_chars": len(prompt),
		"duration_ms":  sol.DurationMs,
	}).Info("solution generated")
	return sol, nil
}

// Parse reads the structured reply, falling back to raw markdown when the
// model ignored the requested shape.
func Parse(reply string) Solution {
	if raw := extractJSON(reply); raw != "" {
		var sol Solution
		if err := json.Unmarshal([]byte(raw), &sol); err == nil && (sol.Solution != "" || sol.Analysis != "") {
			if sol.CodeExamples == nil {
				sol.CodeExamples = []string{}
			}
			if sol.Recommendations == nil {
				sol.Recommendations = []string{}
			}
			return sol
		}
	}
	text := strings.TrimSpace(reply)
	return Solution{
		Solution:        text,
		Markdown:        text,
		CodeExamples:    []string{},
		Recommendations: []string{},
	}
}

// extractJSON finds the first balanced JSON object in a string and returns
// it. Braces inside JSON strings are ignored, so code in "solution" is safe.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
