package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/spigell/resume-matcher/internal/schema"
)

const maxRecommendations = 5

// Display is the flat shape consumed by terminals and storage.
type Display struct {
	Score             float64            `json:"score"`
	Matches           string             `json:"matches"`
	Percentage        float64            `json:"percentage"`
	Significance      Significance       `json:"significance"`
	Decision          Decision           `json:"decision"`
	Label             string             `json:"label"`
	CategoryBreakdown map[string]float64 `json:"categoryBreakdown"`
	MissingCritical   []string           `json:"missingCritical"`
	Recommendations   []string           `json:"recommendations"`
	Confidence        float64            `json:"confidence"`
	Reason            string             `json:"reason,omitempty"`
}

// ToDisplay flattens r. Label is a coarse bucket for humans; Decision stays
// the canonical recommendation.
func ToDisplay(r *Result) Display {
	d := Display{
		Score:             r.TotalScore,
		Matches:           fmt.Sprintf("%d/%d", r.TotalMatches, r.TotalVariables),
		Significance:      r.Significance,
		Decision:          r.Decision,
		Label:             Label(r.TotalScore),
		CategoryBreakdown: make(map[string]float64, len(r.CategoryScores)),
		MissingCritical:   append([]string{}, r.MissingCritical...),
		Recommendations:   Recommendations(r),
		Confidence:        r.ConfidenceLevel,
		Reason:            r.Reason,
	}
	if r.TotalVariables > 0 {
		d.Percentage = math.Round(float64(r.TotalMatches)/float64(r.TotalVariables)*1000) / 10
	}
	for c, score := range r.CategoryScores {
		d.CategoryBreakdown[string(c)] = score
	}
	return d
}

// Label buckets a score for display.
func Label(score float64) string {
	switch {
	case score >= 80:
		return "Excellent Match"
	case score >= 70:
		return "Good Match"
	case score >= 50:
		return "Moderate Match"
	case score >= 30:
		return "Weak Match"
	default:
		return "Poor Match"
	}
}

// Recommendations suggests what the candidate should address, most
// important first.
func Recommendations(r *Result) []string {
	if r.Reason == ReasonNoRequirements {
		return []string{"The posting states no requirement that could be scored; review it manually."}
	}

	var out []string
	gates := make(map[string]bool, len(r.FailedGates))
	for _, name := range r.FailedGates {
		gates[name] = true
		out = append(out, fmt.Sprintf("Confirm eligibility for %s before applying.", name))
	}
	for _, name := range r.MissingCritical {
		if gates[name] {
			continue
		}
		out = append(out, fmt.Sprintf("Address the missing critical requirement: %s.", name))
	}

	var unmet []VariableResult
	for _, v := range r.Variables {
		if v.Active && !v.Match && v.Category != schema.Critical {
			unmet = append(unmet, v)
		}
	}
	sort.SliceStable(unmet, func(i, j int) bool {
		return unmet[i].RedistributedWeight > unmet[j].RedistributedWeight
	})
	for _, v := range unmet {
		if len(out) >= maxRecommendations {
			break
		}
		out = append(out, fmt.Sprintf("Show evidence of %s in the resume.", v.Name))
	}

	if len(out) == 0 {
		out = append(out, "No gaps found; tailor the summary to the posting.")
	}
	return out
}
