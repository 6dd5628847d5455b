package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/postings"
)

// MatchScoreName names the model backed step.
const MatchScoreName = "match_score"

type matchScoreFilter struct {
	disabled bool
	reason   string
	minScore float64
	results  []matching.BatchItem
}

// NewMatchScore creates the step that runs the full match for every
// posting left and drops those scoring below the configured minimum.
// Postings whose match failed are kept so the failure stays visible.
func NewMatchScore() Filter {
	return &matchScoreFilter{}
}

func (f *matchScoreFilter) Name() string { return MatchScoreName }

func (f *matchScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *matchScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *matchScoreFilter) Validate(cfg *Config) error {
	f.minScore = 0
	if cfg != nil {
		f.minScore = cfg.MinScore
	}
	if f.minScore < 0 || f.minScore > 100 {
		return fmt.Errorf("minimum score must be within 0..100, got %v", f.minScore)
	}
	return nil
}

func (f *matchScoreFilter) Apply(ctx context.Context, deps Deps, p *postings.Postings) (*postings.Postings, Step, error) {
	initial := p.Len()
	f.results = nil
	if deps.Matcher == nil {
		if deps.Logger != nil {
			deps.Logger.Info("matcher is not configured; skipping match_score filter")
		}
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}
	if initial == 0 {
		return p, Step{}, nil
	}

	jobs := make([]matching.Job, 0, initial)
	for _, posting := range p.Items {
		jobs = append(jobs, matching.Job{
			ID:          posting.ID,
			Title:       posting.Title,
			Company:     posting.Company,
			Description: posting.Description,
		})
	}

	items, err := deps.Matcher.RunBatch(ctx, jobs, deps.Resume)
	if err != nil {
		return p, Step{}, fmt.Errorf("match postings: %w", err)
	}
	f.results = items

	kept := make([]*postings.Posting, 0, initial)
	for _, item := range items {
		// Items point back by position; IDs repeat when duplicates are kept.
		if item.Index < 0 || item.Index >= initial {
			continue
		}
		posting := p.Items[item.Index]

		if item.Err != nil {
			if deps.Logger != nil {
				deps.Logger.Warn("match failed",
					zap.String(logger.FieldPostingID, posting.ID),
					zap.String("reason", matching.UserMessage(item.Err)),
					zap.Error(item.Err),
				)
			}
			kept = append(kept, posting)
			continue
		}

		score := item.Result.Score.TotalScore
		if score < f.minScore {
			if deps.Logger != nil {
				deps.Logger.Info("posting below minimum score",
					zap.String(logger.FieldPostingID, posting.ID),
					zap.Float64("score", score),
					zap.String("decision", string(item.Result.Score.Decision)),
				)
			}
			continue
		}
		kept = append(kept, posting)
	}

	// Postings come back in score order.
	p.Items = kept

	left := p.Len()
	return p, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *matchScoreFilter) Results() []matching.BatchItem {
	return f.results
}

func (f *matchScoreFilter) Status() Status {
	details := map[string]string{
		"min_score": strconv.FormatFloat(f.minScore, 'f', -1, 64),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
