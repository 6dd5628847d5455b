// Package matching sequences extraction and scoring for one job and one
// resume, or for many jobs against one resume.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/scoring"
	"github.com/spigell/resume-matcher/internal/usage"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 10 * time.Second
	defaultConcurrency = 2
)

// ErrNoStaticSchema is returned by single-step operations when the matcher
// generates a schema per posting.
var ErrNoStaticSchema = errors.New("matcher generates schemas per posting; use RunFullMatch")

// Config tunes a Matcher.
type Config struct {
	Extraction extraction.Config
	// StrongModel serves complex postings and validation runs. Empty
	// disables the strong tier.
	StrongModel string
	// MaxAttempts bounds retries of rate limited or timed out calls.
	MaxAttempts int
	// BackoffBase is multiplied by 2^attempt between attempts.
	BackoffBase time.Duration
	// Concurrency bounds the number of matches in flight in RunBatch.
	Concurrency int
	// TierRouting picks the model per posting from its complexity.
	TierRouting bool
	// Industry generates the schema per posting from its detected industry.
	Industry bool
}

// DefaultConfig returns the configuration used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		Extraction:  extraction.DefaultConfig(),
		MaxAttempts: defaultMaxAttempts,
		BackoffBase: defaultBackoffBase,
		Concurrency: defaultConcurrency,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Job is one posting to match.
type Job struct {
	ID          string
	Title       string
	Company     string
	Description string
}

// Resume is the candidate side of a match. Structured is optional parsed
// resume data shown to the model alongside Text.
type Resume struct {
	Text       string
	Structured map[string]any
}

// Result is the outcome of one full match.
type Result struct {
	ID        string `json:"id"`
	PostingID string `json:"posting_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Company   string `json:"company,omitempty"`
	Schema    string `json:"schema"`
	Model     string `json:"model"`
	Tier      Tier   `json:"tier,omitempty"`
	// Validated is set when a borderline score was re-run on the strong model.
	Validated  bool                      `json:"validated,omitempty"`
	Complexity *Complexity               `json:"complexity,omitempty"`
	Industry   *schema.IndustryDetection `json:"industry,omitempty"`
	Job        *extraction.JobSet        `json:"job"`
	Candidate  *extraction.CandidateSet  `json:"candidate"`
	Score      *scoring.Result           `json:"score"`
	Display    scoring.Display           `json:"display"`
	Elapsed    time.Duration             `json:"elapsed"`
}

// Matcher is safe for concurrent use.
type Matcher struct {
	client   llm.Client
	schema   *schema.Schema
	cfg      Config
	recorder usage.Recorder
	logger   *zap.Logger
}

// New validates s and builds a Matcher. s may be nil only when cfg.Industry
// is set.
func New(client llm.Client, s *schema.Schema, cfg Config, recorder usage.Recorder, log *zap.Logger) (*Matcher, error) {
	if client == nil {
		return nil, errors.New("model client is required")
	}
	if s == nil && !cfg.Industry {
		return nil, errors.New("schema is required")
	}
	if s != nil {
		if err := schema.Validate(s); err != nil {
			return nil, fmt.Errorf("validate schema: %w", err)
		}
	}

	return &Matcher{
		client:   client,
		schema:   s,
		cfg:      cfg.withDefaults(),
		recorder: recorder,
		logger:   logger.OrNop(log),
	}, nil
}

// SchemaName names the static schema, or "industry" when schemas are
// generated per posting.
func (m *Matcher) SchemaName() string {
	if m.cfg.Industry {
		return schema.IndustryName
	}
	return m.schema.Name()
}

func (m *Matcher) staticSchema() (*schema.Schema, error) {
	if m.cfg.Industry {
		return nil, ErrNoStaticSchema
	}
	return m.schema, nil
}

// ExtractJobRequirements extracts one requirement per schema variable from
// the posting, retrying rate limited calls.
func (m *Matcher) ExtractJobRequirements(ctx context.Context, job Job) (*extraction.JobSet, error) {
	s, err := m.staticSchema()
	if err != nil {
		return nil, err
	}
	return m.extractJob(ctx, m.logger, s, m.cfg.Extraction, job)
}

// ExtractCandidateQualifications extracts one qualification per schema
// variable from the resume, retrying rate limited calls.
func (m *Matcher) ExtractCandidateQualifications(ctx context.Context, resume Resume) (*extraction.CandidateSet, error) {
	s, err := m.staticSchema()
	if err != nil {
		return nil, err
	}
	return m.extractCandidate(ctx, m.logger, s, m.cfg.Extraction, resume)
}

// EvaluateCandidate grades the resume against extracted job requirements.
// Only graded schemas need it.
func (m *Matcher) EvaluateCandidate(ctx context.Context, jobSet *extraction.JobSet, job Job, resume Resume) (*extraction.CandidateSet, error) {
	s, err := m.staticSchema()
	if err != nil {
		return nil, err
	}
	return m.evaluate(ctx, m.logger, s, m.cfg.Extraction, jobSet, job, resume)
}

// CompareAndScore scores extracted sets against the static schema. Graded
// schemas expect candidate carrying evaluator scores.
func (m *Matcher) CompareAndScore(job *extraction.JobSet, candidate *extraction.CandidateSet) (*scoring.Result, error) {
	s, err := m.staticSchema()
	if err != nil {
		return nil, err
	}
	return scoring.Score(job, candidate, s)
}

// RunFullMatch extracts both sides concurrently, grades the candidate when
// the schema asks for it and scores the result. Scoring never starts
// unless both extractions succeeded.
func (m *Matcher) RunFullMatch(ctx context.Context, job Job, resume Resume) (*Result, error) {
	return m.runFullMatch(ctx, job, resume, nil)
}

func (m *Matcher) runFullMatch(ctx context.Context, job Job, resume Resume, candidate *extraction.CandidateSet) (*Result, error) {
	started := time.Now()
	res := &Result{
		ID:        uuid.NewString(),
		PostingID: job.ID,
		Title:     job.Title,
		Company:   job.Company,
		Tier:      TierStandard,
	}
	log := logger.WithFields(m.logger, logger.MatchFields(res.ID, m.SchemaName(), job.ID)...)

	var route Route
	if m.cfg.TierRouting {
		complexity := AnalyzeComplexity(job.Title, job.Description)
		route = complexity.Route()
		res.Complexity = &complexity
		res.Tier = route.Tier
		log.Info("posting complexity analyzed",
			zap.Int("complexity", complexity.Score),
			zap.String("level", string(complexity.Level)),
			zap.Strings("factors", complexity.Factors),
			zap.String("tier", string(route.Tier)),
			zap.Bool("validate", route.Validate),
		)
	}

	model := m.modelFor(res.Tier)
	if model != m.cfg.Extraction.Model {
		candidate = nil
	}

	out, err := m.pipeline(ctx, log, job, resume, model, candidate)
	if err != nil {
		return nil, err
	}

	if route.Validate && needsValidation(out.score.TotalScore) && m.cfg.StrongModel != "" {
		log.Info("borderline score, validating with strong model",
			zap.Float64("score", out.score.TotalScore),
			zap.String("strong_model", m.cfg.StrongModel),
		)
		strong, err := m.pipeline(ctx, log, job, resume, m.cfg.StrongModel, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn("validation run failed, keeping standard result", zap.Error(err))
		} else {
			out = strong
			model = m.cfg.StrongModel
			res.Validated = true
		}
	}

	res.Schema = out.schema.Name()
	res.Model = model
	if res.Model == "" {
		res.Model = m.client.DefaultModel()
	}
	res.Industry = out.industry
	res.Job = out.job
	res.Candidate = out.candidate
	res.Score = out.score
	res.Display = scoring.ToDisplay(out.score)
	res.Elapsed = time.Since(started)

	log.Info("match completed",
		zap.Float64("score", res.Score.TotalScore),
		zap.String("decision", string(res.Score.Decision)),
		zap.String("matches", res.Display.Matches),
		zap.String("reason", res.Score.Reason),
		zap.Bool("validated", res.Validated),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (m *Matcher) modelFor(tier Tier) string {
	if tier == TierStrong && m.cfg.StrongModel != "" {
		return m.cfg.StrongModel
	}
	return m.cfg.Extraction.Model
}

type outcome struct {
	schema    *schema.Schema
	industry  *schema.IndustryDetection
	job       *extraction.JobSet
	candidate *extraction.CandidateSet
	score     *scoring.Result
}

// pipeline runs one match on model. A non-nil candidate is reused instead
// of extracting the resume again.
func (m *Matcher) pipeline(ctx context.Context, log *zap.Logger, job Job, resume Resume, model string, candidate *extraction.CandidateSet) (*outcome, error) {
	cfg := m.cfg.Extraction
	cfg.Model = model
	out := &outcome{schema: m.schema}

	if m.cfg.Industry {
		s, detection, err := m.generate(ctx, log, cfg, job)
		if err != nil {
			return nil, err
		}
		out.schema = s
		out.industry = &detection
		candidate = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := m.extractJob(gctx, log, out.schema, cfg, job)
		out.job = set
		return err
	})
	if candidate == nil {
		g.Go(func() error {
			set, err := m.extractCandidate(gctx, log, out.schema, cfg, resume)
			out.candidate = set
			return err
		})
	} else {
		out.candidate = candidate
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.schema.Signal() == schema.Graded {
		graded, err := m.evaluate(ctx, log, out.schema, cfg, out.job, job, resume)
		if err != nil {
			return nil, err
		}
		out.candidate = out.candidate.WithScores(graded)
	}

	score, err := scoring.Score(out.job, out.candidate, out.schema)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	out.score = score
	return out, nil
}

func (m *Matcher) generate(ctx context.Context, log *zap.Logger, cfg extraction.Config, job Job) (*schema.Schema, schema.IndustryDetection, error) {
	gen := extraction.NewGenerator(m.client, cfg, m.recorder, log)
	var (
		s         *schema.Schema
		detection schema.IndustryDetection
	)
	err := m.retry(ctx, log, "generate schema", func(ctx context.Context) error {
		var err error
		s, detection, err = gen.Generate(ctx, job.Title, job.Description)
		return err
	})
	return s, detection, err
}

func (m *Matcher) extractJob(ctx context.Context, log *zap.Logger, s *schema.Schema, cfg extraction.Config, job Job) (*extraction.JobSet, error) {
	x := extraction.NewJobExtractor(m.client, s, cfg, m.recorder, log)
	var set *extraction.JobSet
	err := m.retry(ctx, log, "extract job requirements", func(ctx context.Context) error {
		var err error
		set, err = x.Extract(ctx, job.Description, extraction.Context{Title: job.Title, Company: job.Company})
		return err
	})
	return set, err
}

func (m *Matcher) extractCandidate(ctx context.Context, log *zap.Logger, s *schema.Schema, cfg extraction.Config, resume Resume) (*extraction.CandidateSet, error) {
	x := extraction.NewCandidateExtractor(m.client, s, cfg, m.recorder, log)
	var set *extraction.CandidateSet
	err := m.retry(ctx, log, "extract candidate qualifications", func(ctx context.Context) error {
		var err error
		set, err = x.Extract(ctx, resume.Text, resume.Structured)
		return err
	})
	return set, err
}

func (m *Matcher) evaluate(ctx context.Context, log *zap.Logger, s *schema.Schema, cfg extraction.Config, jobSet *extraction.JobSet, job Job, resume Resume) (*extraction.CandidateSet, error) {
	x := extraction.NewEvaluator(m.client, s, cfg, m.recorder, log)
	var set *extraction.CandidateSet
	err := m.retry(ctx, log, "evaluate candidate", func(ctx context.Context) error {
		var err error
		set, err = x.Evaluate(ctx, jobSet, job.Description, resume.Text)
		return err
	})
	return set, err
}
