package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/postings"
	"github.com/spigell/resume-matcher/internal/usage"
)

const (
	PromptDetails             = "Show match details"
	PromptAppendToExcludeFile = "Append postings below the minimum score to exclude file"
	PromptReportByCompanies   = "Report by companies"
	PromptPostingsToFile      = "Dump postings to file"
	PromptExit                = "Exit"
	PromptBack                = "back"

	excludeActor  = app
	excludeReason = "below minimum score"

	noMatchMsg = "no-match flag is set"
)

var errExit = errors.New("exit requested")

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a file of job postings against a resume and rank them",
	Run: func(cmd *cobra.Command, _ []string) {
		batch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("postings", "p", "", "JSON file with postings")
	batchCmd.Flags().String("resume", "", "file with the resume text")
	batchCmd.Flags().String("resume-data", "", "optional JSON file with structured resume data")
	batchCmd.Flags().BoolP("yes", "y", false, "do not ask; append postings below the minimum score to the exclude file and exit")
	batchCmd.Flags().Bool("keep-duplicates", false, "do not drop repeated postings")
	batchCmd.Flags().StringP("exclude-file", "e", "", "ledger of postings to skip. Default is unset.")
	batchCmd.Flags().Float64("min-score", 0, "drop postings scoring below this value")
	batchCmd.Flags().Bool("no-match", false, "only screen the postings; do not call the model")

	viper.BindPFlag("batch.exclude-file", batchCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("batch.min-score", batchCmd.Flags().Lookup("min-score"))
}

// session is the state of one batch run shared by the menu actions.
type session struct {
	logger      *zap.Logger
	excludeFile string
	minScore    float64
	// all holds every loaded posting; left holds those that survived filtering.
	all   *postings.Postings
	left  *postings.Postings
	items []matching.BatchItem
}

func batch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-matcher batch", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	postingsPath, _ := cmd.Flags().GetString("postings")
	if strings.TrimSpace(postingsPath) == "" {
		logger.Fatal("postings file is required", zap.String("hint", "pass --postings"))
	}
	loaded, err := postings.Load(postingsPath)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err))
	}
	logger.Info("loaded postings", zap.Int("count", loaded.Len()))

	if loaded.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	resume, err := resumeInput(cmd)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	steps := filtering.DefaultSteps(cmd)

	var (
		matcher *matching.Matcher
		tracker *usage.Tracker
	)
	if noMatch, _ := cmd.Flags().GetBool("no-match"); noMatch {
		filtering.DisableByName(steps, filtering.MatchScoreName, noMatchMsg)
	} else {
		matcher, tracker, err = newMatcher(ctx, config, logger)
		if err != nil {
			logger.Fatal("creating a matcher", zap.Error(err))
		}
	}

	s := &session{
		logger:      logger,
		excludeFile: strings.TrimSpace(config.Batch.ExcludeFile),
		minScore:    config.Batch.MinScore,
		all:         &postings.Postings{Items: append([]*postings.Posting(nil), loaded.Items...)},
	}

	filterConfig := &filtering.Config{
		ExcludeCompanies:    config.Batch.ExcludeCompanies,
		ExcludeFile:         s.excludeFile,
		MinDescriptionChars: config.Matching.MinInputChars,
		MinScore:            s.minScore,
	}
	deps := filtering.Deps{Logger: logger, Resume: resume}
	if matcher != nil {
		deps.Matcher = matcher
	}

	s.left, s.items, err = filtering.Run(ctx, filterConfig, deps, steps, loaded)
	if err != nil {
		logger.Fatal(matching.UserMessage(err), zap.Error(err))
	}
	logSteps(logger, steps)

	if len(s.items) > 0 {
		renderBatch(os.Stdout, s.items)
	}
	renderUsage(os.Stdout, tracker.Snapshot())

	if s.left.Len() == 0 && len(s.items) == 0 {
		logger.Info("exiting", zap.String("reason", "no postings left after filters"))
		return
	}

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		if s.excludeFile != "" {
			if err := s.appendBelowScore(); err != nil {
				logger.Fatal("appending to exclude file", zap.Error(err))
			}
		}
		return
	}

	for {
		prompt := promptui.Select{
			Label: "What next?",
			Items: s.menu(),
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// logSteps reports the settings each filter ran with.
func logSteps(logger *zap.Logger, steps []filtering.Filter) {
	for _, status := range filtering.Describe(steps) {
		fields := []zap.Field{
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
		}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		if len(status.Details) > 0 {
			fields = append(fields, zap.Any("details", status.Details))
		}
		logger.Info("filter", fields...)
	}
}

func (s *session) menu() []string {
	var items []string
	if len(s.items) > 0 {
		items = append(items, PromptDetails)
	}
	items = append(items, PromptReportByCompanies, PromptPostingsToFile)
	if s.excludeFile != "" && len(filtering.BelowScore(s.items, s.minScore)) > 0 {
		items = append(items, PromptAppendToExcludeFile)
	}
	return append(items, PromptExit)
}

func (s *session) handleAction(action string) error {
	switch action {
	case PromptDetails:
		return s.details()
	case PromptAppendToExcludeFile:
		return s.appendBelowScore()
	case PromptReportByCompanies:
		pretty, _ := json.MarshalIndent(s.left.ReportByCompany(), "", "  ")
		s.logger.Info(string(pretty), zap.Int("postings count", s.left.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := s.left.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump postings to file: %w", err)
		}
		s.logger.Info("dumping postings to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) details() error {
	for {
		labels := make([]string, 0, len(s.items)+1)
		for i, item := range s.items {
			labels = append(labels, itemLabel(i, item))
		}

		detailsPrompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(labels, PromptBack),
			Size:  10,
		}
		idx, selected, err := detailsPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		item := s.items[idx]
		if item.Err != nil {
			s.logger.Warn("posting was not scored",
				zap.String(logger.FieldPostingID, item.Job.ID),
				zap.String("reason", matching.UserMessage(item.Err)),
				zap.Error(item.Err),
			)
			continue
		}
		renderResult(os.Stdout, item.Result)
	}
}

// appendBelowScore records every matched posting scoring below the minimum
// in the exclude file.
func (s *session) appendBelowScore() error {
	below := filtering.BelowScore(s.items, s.minScore)
	if len(below) == 0 {
		s.logger.Info("nothing to exclude", zap.Float64("min_score", s.minScore))
		return nil
	}

	selected := &postings.Postings{}
	scores := make(map[string]float64, len(below))
	for _, item := range below {
		p := s.all.FindByID(item.Job.ID)
		if p == nil {
			continue
		}
		selected.Items = append(selected.Items, p)
		scores[p.ID] = item.Result.Score.TotalScore
	}

	excluded, err := postings.LoadExcluded(s.excludeFile)
	if err != nil {
		return err
	}
	excluded.Append(selected.ToExcluded(excludeActor, excludeReason, scores))
	if err := excluded.ToFile(s.excludeFile); err != nil {
		return err
	}

	s.logger.Info("appended to exclude file",
		zap.String("filename", s.excludeFile),
		zap.Int("count", selected.Len()),
	)

	s.items = dropItems(s.items, scores)
	return nil
}

func dropItems(items []matching.BatchItem, ids map[string]float64) []matching.BatchItem {
	kept := items[:0]
	for _, item := range items {
		if _, ok := ids[item.Job.ID]; ok {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func itemLabel(i int, item matching.BatchItem) string {
	score := "-"
	if item.Result != nil {
		score = strconv.FormatFloat(item.Result.Score.TotalScore, 'f', 0, 64)
	}
	return fmt.Sprintf("%d. [%s] %s", i+1, score, joinNonEmpty(" / ", item.Job.Title, item.Job.Company, item.Job.ID))
}
