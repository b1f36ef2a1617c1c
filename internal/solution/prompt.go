// Package solution turns processed recording metadata into a code-solution
// prompt and asks the configured provider to answer it.
package solution

import (
	"fmt"
	"slices"
	"strings"

	"screencast-insights-go/internal/types"
)

// SystemPrompt frames every solution request.
const SystemPrompt = "You are an expert software developer and code reviewer. Provide practical, " +
	"actionable solutions to development issues. Always include specific code examples and explain " +
	"the reasoning behind your recommendations."

const responseFormat = `Respond with ONLY a JSON object of this shape, no markdown fences:
{
  "analysis": "",
  "solution": "",
  "code_examples": [],
  "recommendations": []
}
"solution" may contain markdown with code blocks.`

// BuildPrompt renders the metadata as a structured brief for a code model.
func BuildPrompt(md types.ProcessedMetadata) string {
	uc, vc, tc := md.UserContext, md.VisualContext, md.TechnicalContext

	elements := make([]string, 0, len(vc.UIElementsDetected))
	for _, el := range vc.UIElementsDetected {
		elements = append(elements, fmt.Sprintf("%s: %q", el.Type, el.Text))
	}
	text := vc.TextContent
	if len(text) > 10 {
		text = text[:10]
	}
	focus := "overall correctness"
	if len(tc.SuggestedFocus) > 0 {
		focus = strings.Join(tc.SuggestedFocus, " and ")
	}

	var sb strings.Builder
	sb.WriteString("You are a senior developer helping to analyze a screen recording and provide code solutions.\n\n")
	sb.WriteString("## Context\n")
	fmt.Fprintf(&sb, "- **Recording Duration**: %.1f seconds\n", md.MediaDurationSeconds)
	fmt.Fprintf(&sb, "- **User Said**: %q\n", uc.Transcript)
	fmt.Fprintf(&sb, "- **Request Type**: %s\n", uc.RequestType)
	fmt.Fprintf(&sb, "- **User Emotion**: %s\n", uc.UserEmotion)
	fmt.Fprintf(&sb, "- **Detected Framework**: %s\n\n", tc.DetectedFramework)

	sb.WriteString("## Visual Analysis\n")
	fmt.Fprintf(&sb, "- **Frames Analyzed**: %d\n", vc.FramesAnalyzed)
	fmt.Fprintf(&sb, "- **UI Elements Detected**: %s\n", orNone(elements))
	fmt.Fprintf(&sb, "- **Text Content**: %s\n", orNone(text))
	fmt.Fprintf(&sb, "- **Layout**: %s\n\n", vc.LayoutAnalysis)

	sb.WriteString("## Technical Context\n")
	fmt.Fprintf(&sb, "- **Error Patterns**: %s\n", orNone(tc.ErrorPatterns))
	fmt.Fprintf(&sb, "- **Suggested Focus**: %s\n", orNone(tc.SuggestedFocus))
	fmt.Fprintf(&sb, "- **Keywords**: %s\n\n", orNone(uc.IntentKeywords))

	sb.WriteString(`## Your Task
Based on this analysis, provide:

1. **Issue Analysis**: What is the likely problem or request?
2. **Root Cause**: What's causing this issue?
3. **Solution**: Step-by-step solution approach
4. **Code Examples**: Specific code fixes or implementations
5. **Prevention**: How to avoid this issue in the future
6. **Testing**: How to test the solution

`)
	fmt.Fprintf(&sb, "Please provide actionable, specific code examples that can be directly implemented. Focus on the %s aspects.", focus)
	return sb.String()
}

var requestContext = map[string]string{
	"bug_fix": `## Bug Fix Context
The user has identified a bug in their application. Focus on:
- Debugging strategies
- Common causes of this type of issue
- Step-by-step troubleshooting
- Code fixes with explanations
- Testing to ensure the fix works`,
	"feature_request": `## Feature Request Context
The user wants to add new functionality. Focus on:
- Implementation approach
- Best practices for this type of feature
- Code structure and organization
- Integration with existing code
- User experience considerations`,
	"refactoring": `## Refactoring Context
The user wants to improve existing code. Focus on:
- Code quality improvements
- Performance optimizations
- Maintainability enhancements
- Modern best practices
- Migration strategies`,
	"question": `## Question Context
The user needs explanation or guidance. Focus on:
- Clear explanations
- Code examples
- Best practices
- Learning resources
- Step-by-step instructions`,
	"calculation": `## Calculation Context
The recording shows or mentions an arithmetic expression. Focus on:
- Reading the exact expression from the screen text
- Computing the result and showing the working
- Any code that produced or should produce this value`,
}

const frustratedTone = `## Tone Adjustment
The user seems frustrated. Please:
- Be extra clear and patient in explanations
- Provide step-by-step guidance
- Offer multiple solution approaches
- Include debugging tips
- Reassure that this is a common issue`

// BuildContextualPrompt extends BuildPrompt with guidance for the request
// type and the user's tone.
func BuildContextualPrompt(md types.ProcessedMetadata) string {
	parts := []string{BuildPrompt(md)}
	if extra, ok := requestContext[md.UserContext.RequestType]; ok {
		parts = append(parts, extra)
	}
	if md.UserContext.UserEmotion == "frustrated" {
		parts = append(parts, frustratedTone)
	}
	return strings.Join(parts, "\n\n")
}

// FollowUpQuestions are the clarifications worth asking the user given
// what the metadata could not establish.
func FollowUpQuestions(md types.ProcessedMetadata) []string {
	out := []string{}
	if md.TechnicalContext.DetectedFramework == "unknown" {
		out = append(out, "What framework or technology stack are you using?")
	}
	if md.UserContext.RequestType == "bug_fix" {
		out = append(out, "What error messages do you see in the console?", "When did this issue first appear?")
	}
	if slices.Contains(md.TechnicalContext.SuggestedFocus, "api_integration") {
		out = append(out, "What API endpoint are you trying to access?",
			"Are you seeing any network errors in the developer tools?")
	}
	return out
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
