package classifier

import "regexp"

// Rule labels text matching Pattern.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// Table is an ordered rule list. First gives the label of the earliest
// matching rule; All gives every matching label in table order.
type Table []Rule

func (t Table) First(text, fallback string) string {
	for _, r := range t {
		if r.Pattern.MatchString(text) {
			return r.Label
		}
	}
	return fallback
}

func (t Table) All(text string) []string {
	out := []string{}
	for _, r := range t {
		if r.Pattern.MatchString(text) {
			out = append(out, r.Label)
		}
	}
	return out
}

func re(expr string) *regexp.Regexp { return regexp.MustCompile(`(?i)` + expr) }

const (
	RequestCalculation  = "calculation"
	RequestBugFix       = "bug_fix"
	RequestFeature      = "feature_request"
	RequestRefactoring  = "refactoring"
	RequestQuestion     = "question"
	RequestGeneral      = "general"
	EmotionFrustrated   = "frustrated"
	EmotionExcited      = "excited"
	EmotionConfused     = "confused"
	EmotionNeutral      = "neutral"
	FrameworkUnknown    = "unknown"
	LayoutUnknown       = "unknown"
	ElementButton       = "button"
	ElementErrorMessage = "error_message"
	ElementForm         = "form"
	FocusFormHandling   = "form_handling"
	FocusEventHandling  = "event_handling"
	FocusErrorHandling  = "error_handling"
)

// CalculationExpr is a number, an arithmetic operator, and a number.
var CalculationExpr = regexp.MustCompile(`\d+\s*[+\-*/=×÷]\s*\d+`)

// RequestTypes is evaluated over the transcript and all frame text together.
var RequestTypes = Table{
	{RequestCalculation, CalculationExpr},
	{RequestCalculation, re(`\b(calculate|calculation|calculator|compute|arithmetic|math|multiply|multiplied|divide|divided|plus|minus|equals|sum of)\b`)},
	{RequestBugFix, re(`\b(bug|bugs|error|errors|issue|problem|fix|broken|crash|crashes|crashing|not working|isn't working|doesn't work)\b`)},
	{RequestFeature, re(`\b(feature|add|create|new|enhancement|improve)\b`)},
	{RequestRefactoring, re(`\b(refactor|refactoring|optimize|clean up|cleanup|better)\b`)},
	{RequestQuestion, re(`\b(question|help|how|what|why)\b|\?`)},
}

// Emotions is evaluated over the transcript only.
var Emotions = Table{
	{EmotionFrustrated, re(`\b(frustrated|frustrating|annoyed|annoying|stuck|broken|not working|failing)\b`)},
	{EmotionExcited, re(`\b(excited|great|awesome|love|amazing)\b`)},
	{EmotionConfused, re(`\b(confused|confusing|unclear|don't understand|not sure)\b`)},
}

// Frameworks is evaluated over frame text only and matches name prefixes,
// so ReactDOM or VueRouter count. A bare "next" is too common on screen to
// count as Next.js.
var Frameworks = Table{
	{"react", re(`\breact|\b(jsx|tsx)\b`)},
	{"vue", re(`\bvue`)},
	{"angular", re(`\b(angular|ng-)`)},
	{"svelte", re(`\bsvelte`)},
	{"nextjs", re(`\b(nextjs|next\.js)\b`)},
}

// ErrorPatterns are independent tags over all text.
var ErrorPatterns = Table{
	{"undefined_null_reference", re(`\b(undefined|null)\b`)},
	{"missing_resource", re(`\b404\b|not found`)},
	{"validation_error", re(`\b(validation|invalid|required)\b`)},
	{"authentication_issue", re(`\b(login|log in|authentication|unauthorized|401|403)\b`)},
	{"cors_issue", re(`\bcors\b|cross-origin`)},
	{"network_error", re(`network error|failed to fetch|econnrefused|timed out|\btimeout\b`)},
	{"syntax_error", re(`syntaxerror|syntax error|unexpected token`)},
	{"type_error", re(`typeerror|type error|is not a function`)},
}

// TranscriptFocus are focus tags driven by what the user says.
var TranscriptFocus = Table{
	{"api_integration", re(`\b(api|endpoint|fetch|request)\b`)},
	{"styling", re(`\b(style|styles|styling|css|layout|color)\b`)},
	{"state_management", re(`\b(state|redux|store|usestate|context)\b`)},
	{"performance", re(`\b(slow|performance|lag|laggy|optimi[sz]e)\b`)},
}

// Layouts is evaluated over frame text only.
var Layouts = Table{
	{"code_editor", re(`\b(function|const|let|import|export|return|def|class|package)\b|=>`)},
	{"terminal", re(`\b(npm|yarn|pnpm|git|bash|zsh|sudo)\b|command not found|(?m:^\s*\$ )`)},
	{"web_application", re(`\b(button|login|submit|click|form|input|http|https|www|menu|search|dashboard)\b`)},
}

// UIElements maps keyword families to the element they indicate.
var UIElements = []struct {
	Type    string
	State   string
	Pattern *regexp.Regexp
}{
	{ElementButton, "clickable", re(`\b(button|click)\b`)},
	{ElementErrorMessage, "visible", re(`\b(error|warning)\b`)},
	{ElementForm, "editable", re(`\b(form|input)\b`)},
}

// IntentVocabulary is the fixed set of intent keywords.
var IntentVocabulary = re(`\b(bug|error|fix|issue|problem|feature|enhancement|add|create|update|delete|improve)\b`)
