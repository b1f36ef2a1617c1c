// Package classifier infers intent, emotion, request type and technical
// context from a transcript and per-frame text with fixed rule tables.
// It does no I/O and is deterministic.
package classifier

import (
	"strings"
	"unicode/utf8"

	"screencast-insights-go/internal/types"
)

type Result struct {
	IntentKeywords    []string          `json:"intent_keywords"`
	UserEmotion       string            `json:"user_emotion"`
	RequestType       string            `json:"request_type"`
	ErrorPatterns     []string          `json:"error_patterns"`
	SuggestedFocus    []string          `json:"suggested_focus"`
	DetectedFramework string            `json:"detected_framework"`
	LayoutAnalysis    string            `json:"layout_analysis"`
	UIElements        []types.UIElement `json:"ui_elements"`
	TextContent       []string          `json:"text_content"`
}

// Classify runs every axis. offsets[i] is the timestamp of observations[i];
// a missing offset falls back to the index.
func Classify(transcript string, observations []string, offsets []float64) Result {
	visionText := strings.Join(observations, "\n")
	allText := transcript + "\n" + visionText

	elements := DetectUIElements(observations, offsets)
	return Result{
		IntentKeywords:    IntentKeywords(transcript),
		UserEmotion:       Emotions.First(transcript, EmotionNeutral),
		RequestType:       RequestTypes.First(allText, RequestGeneral),
		ErrorPatterns:     ErrorPatterns.All(allText),
		SuggestedFocus:    SuggestedFocus(elements, transcript),
		DetectedFramework: Frameworks.First(visionText, FrameworkUnknown),
		LayoutAnalysis:    Layouts.First(visionText, LayoutUnknown),
		UIElements:        elements,
		TextContent:       TextContent(observations),
	}
}

func IntentKeywords(transcript string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range IntentVocabulary.FindAllString(transcript, -1) {
		k := strings.ToLower(m)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func DetectUIElements(observations []string, offsets []float64) []types.UIElement {
	out := []types.UIElement{}
	for i, text := range observations {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		ts := float64(i)
		if i < len(offsets) {
			ts = offsets[i]
		}
		for _, e := range UIElements {
			if e.Pattern.MatchString(text) {
				out = append(out, types.UIElement{Type: e.Type, Text: text, State: e.State, TimestampSeconds: ts})
			}
		}
	}
	return out
}

// SuggestedFocus derives focus from detected element kinds, then from the
// transcript.
func SuggestedFocus(elements []types.UIElement, transcript string) []string {
	has := map[string]bool{}
	for _, e := range elements {
		has[e.Type] = true
	}
	out := []string{}
	if has[ElementForm] {
		out = append(out, FocusFormHandling)
	}
	if has[ElementButton] {
		out = append(out, FocusEventHandling)
	}
	if has[ElementErrorMessage] {
		out = append(out, FocusErrorHandling)
	}
	return append(out, TranscriptFocus.All(transcript)...)
}

// TextContent is every whitespace-separated token longer than two
// characters, de-duplicated in first-seen order.
func TextContent(observations []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, text := range observations {
		for _, tok := range strings.Fields(text) {
			if utf8.RuneCountInString(tok) <= 2 || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
