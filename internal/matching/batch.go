package matching

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/logger"
)

// BatchItem is the outcome of one posting in a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	// Index is the position of Job in the slice passed to RunBatch.
	Index  int
	Job    Job
	Result *Result
	Err    error
}

// RunBatch matches every job against resume with at most Concurrency
// matches in flight. A failed posting does not stop the others. Items come
// back sorted by score, highest first, failures last.
//
// With a static schema and no tier routing the resume is extracted once
// and shared by every posting.
func (m *Matcher) RunBatch(ctx context.Context, jobs []Job, resume Resume) ([]BatchItem, error) {
	items := make([]BatchItem, len(jobs))
	if len(jobs) == 0 {
		return items, nil
	}

	var candidate *extraction.CandidateSet
	if !m.cfg.Industry && !m.cfg.TierRouting {
		var err error
		candidate, err = m.extractCandidate(ctx, m.logger, m.schema, m.cfg.Extraction, resume)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info("batch started",
		zap.Int("postings", len(jobs)),
		zap.Int("concurrency", m.cfg.Concurrency),
		zap.String(logger.FieldSchema, m.SchemaName()),
	)

	sem := semaphore.NewWeighted(int64(m.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		items[i].Index = i
		items[i].Job = job
		if err := sem.Acquire(gctx, 1); err != nil {
			for j := i; j < len(jobs); j++ {
				items[j] = BatchItem{Index: j, Job: jobs[j], Err: err}
			}
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			res, err := m.runFullMatch(gctx, job, resume, candidate)
			if err != nil {
				m.logger.Warn("posting match failed",
					zap.String(logger.FieldPostingID, job.ID),
					zap.String("title", job.Title),
					zap.Error(err),
				)
				items[i].Err = err
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return items, err
	}

	SortByScore(items)
	return items, nil
}

// SortByScore orders items by total score descending, keeping failures
// last and input order among equals.
func SortByScore(items []BatchItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Result, items[j].Result
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Score.TotalScore > b.Score.TotalScore
		}
	})
}
