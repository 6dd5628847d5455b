package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/postings"
)

type shortDescriptionFilter struct {
	minChars int
}

// NewShortDescription creates a filter that removes postings whose plain
// text description is too short to extract requirements from.
func NewShortDescription() Filter {
	return &shortDescriptionFilter{}
}

func (f *shortDescriptionFilter) Name() string { return "short_description" }

func (f *shortDescriptionFilter) Disable(string) {}

func (f *shortDescriptionFilter) IsEnabled() bool { return true }

func (f *shortDescriptionFilter) Validate(cfg *Config) error {
	f.minChars = extraction.DefaultLimits().MinInputChars
	if cfg != nil && cfg.MinDescriptionChars > 0 {
		f.minChars = cfg.MinDescriptionChars
	}
	return nil
}

func (f *shortDescriptionFilter) Apply(_ context.Context, deps Deps, p *postings.Postings) (*postings.Postings, Step, error) {
	initial := p.Len()
	excluded := p.ExcludeFunc(func(posting *postings.Posting) bool {
		text, err := extraction.PlainText(posting.Description)
		return err != nil || len([]rune(text)) < f.minChars
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings with short descriptions",
			zap.Int("min_chars", f.minChars),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *shortDescriptionFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{"min_chars": strconv.Itoa(f.minChars)}}
}
