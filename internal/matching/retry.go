package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/utils"
)

var waitFor = utils.WaitFor

// retry runs fn up to MaxAttempts times. Only rate limited or timed out
// calls are retried; every other error returns at once. The wait is the
// provider hint when present, 2^attempt * BackoffBase otherwise.
func (m *Matcher) retry(ctx context.Context, log *zap.Logger, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !extraction.IsRetryable(err) || attempt == m.cfg.MaxAttempts {
			return err
		}

		delay := llm.RetryAfter(err)
		if delay <= 0 {
			delay = utils.Backoff(attempt, m.cfg.BackoffBase)
		}

		log.Warn("model call failed, retrying",
			zap.String(logger.FieldOperation, op),
			zap.Int(logger.FieldAttempt, attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if werr := waitFor(ctx, delay); werr != nil {
			return fmt.Errorf("%w (retry aborted: %w)", err, werr)
		}
	}
	return err
}
