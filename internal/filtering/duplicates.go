package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/postings"
)

const keepDuplicatesMsg = "keep-duplicates flag is set"

type duplicatesFilter struct {
	ignore bool
}

// NewDuplicates creates a filter that removes repeated postings: the same
// ID, or the same title at the same company.
func NewDuplicates(cmd *cobra.Command) Filter {
	ignore := false
	if cmd != nil {
		flag := cmd.Flag("keep-duplicates")
		if flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			ignore = true
		}
	}
	return &duplicatesFilter{ignore: ignore}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(string) {}

func (f *duplicatesFilter) IsEnabled() bool { return true }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, p *postings.Postings) (*postings.Postings, Step, error) {
	initial := p.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping duplicate postings", zap.String("reason", keepDuplicatesMsg))
		}
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	seen := make(map[string]bool, p.Len())
	excluded := p.ExcludeFunc(func(posting *postings.Posting) bool {
		keys := []string{"id:" + posting.ID}
		if posting.Title != "" && posting.Company != "" {
			keys = append(keys, "post:"+strings.ToLower(strings.TrimSpace(posting.Company))+"|"+strings.ToLower(strings.TrimSpace(posting.Title)))
		}
		dup := false
		for _, key := range keys {
			if seen[key] {
				dup = true
			}
			seen[key] = true
		}
		return dup
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding duplicate postings",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *duplicatesFilter) Status() Status {
	details := map[string]string{
		"exclude_duplicates": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
