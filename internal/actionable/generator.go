// Package actionable turns a batch insight into one recommendation card.
package actionable

import (
	"fmt"
	"strings"

	"screencast-insights-go/internal/aggregator"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

const (
	frustrationThreshold  = 0.35
	errorPatternThreshold = 0.3
	dominantThreshold     = 0.5
	failureThreshold      = 0.25
)

var patternActions = map[string]string{
	"undefined_null_reference": "Add null guards on rendered data and enable strict checks",
	"missing_resource":         "Audit routes and asset paths for broken links",
	"validation_error":         "Show field-level validation messages before submit",
	"authentication_issue":     "Review session expiry and login error messages",
	"cors_issue":               "Align API CORS configuration with the deployed origins",
	"network_error":            "Add retry and offline states around API calls; surface request failures in the UI",
	"syntax_error":             "Run the formatter and parser checks in CI",
	"type_error":               "Enable strict type checking and add tests around the failing calls",
}

var requestActions = map[string]string{
	"bug_fix":         "Prioritise a bug triage pass on the most reported screens",
	"feature_request": "Feed recurring requests into roadmap planning",
	"question":        "Expand in-product help and docs for the screens users ask about",
	"refactoring":     "Schedule refactoring time for the code areas users record",
	"calculation":     "Offer an inline calculator or worked examples",
}

// Generate picks the strongest signal in order: failed processing,
// frustration, a recurring error pattern, then a dominant request type.
func Generate(ins aggregator.Insight) ActionCard {
	if ins.Total > 0 {
		if rate := float64(ins.Failed) / float64(ins.Total); rate >= failureThreshold {
			return ActionCard{
				Insight: fmt.Sprintf("%.0f%% of recordings could not be processed", rate*100),
				Action:  "Check capture settings and ffmpeg availability before the next batch",
				Impact:  "Restore coverage of the batch",
			}
		}
	}
	n := ins.Succeeded()
	if n == 0 {
		return monitor()
	}

	if ins.FrustrationRate >= frustrationThreshold {
		card := ActionCard{
			Insight: fmt.Sprintf("High frustration across recordings (%.0f%%)", ins.FrustrationRate*100),
			Action:  "Follow up with frustrated users first",
			Impact:  "Reduce repeat recordings and churn",
		}
		if p, c := aggregator.Top(ins.ErrorPatternCounts); c > 0 {
			card.Action += "; start with " + humanize(p) + " issues"
		}
		return card
	}

	if p, c := aggregator.Top(ins.ErrorPatternCounts); c > 0 && float64(c)/float64(n) >= errorPatternThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Recurring %s in %d of %d recordings", humanize(p), c, n),
			Action:  patternActions[p],
			Impact:  "Remove the most common visible failure",
		}
	}

	if rt, c := aggregator.Top(ins.RequestTypeCounts); c > 0 && float64(c)/float64(n) > dominantThreshold {
		if action, ok := requestActions[rt]; ok {
			return ActionCard{
				Insight: fmt.Sprintf("Most recordings are %s requests (%d of %d)", humanize(rt), c, n),
				Action:  action,
				Impact:  "Address the dominant reason users record",
			}
		}
	}
	return monitor()
}

func monitor() ActionCard {
	return ActionCard{
		Insight: "No strong pattern detected",
		Action:  "Monitor and collect more data",
		Impact:  "Low immediate intervention",
	}
}

func humanize(s string) string { return strings.ReplaceAll(s, "_", " ") }
