package filtering

import (
	"github.com/spf13/cobra"

	"github.com/spigell/resume-matcher/internal/matching"
)

// DefaultSteps returns the batch chain: cheap screening first, the model
// backed match last.
func DefaultSteps(cmd *cobra.Command) []Filter {
	return []Filter{
		NewShortDescription(),
		NewDuplicates(cmd),
		NewCompanies(),
		NewExcludeFile(),
		NewMatchScore(),
	}
}

// BelowScore returns the matched items scoring below minScore.
func BelowScore(items []matching.BatchItem, minScore float64) []matching.BatchItem {
	var out []matching.BatchItem
	for _, item := range items {
		if item.Result != nil && item.Result.Score.TotalScore < minScore {
			out = append(out, item)
		}
	}
	return out
}
