package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/usage"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score one job description against a resume",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "file with the job description")
	matchCmd.Flags().String("title", "", "job title shown to the model")
	matchCmd.Flags().String("company", "", "company name shown to the model")
	matchCmd.Flags().String("resume", "", "file with the resume text")
	matchCmd.Flags().String("resume-data", "", "optional JSON file with structured resume data")
	matchCmd.Flags().StringP("format", "o", formatText, "output format: text or json")
}

func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")

	newLogger := logger.New
	if format == formatJSON {
		newLogger = logger.NewStderr
	}
	logger, err := newLogger(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	job, resume, err := matchInputs(cmd)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	matcher, tracker, err := newMatcher(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a matcher", zap.Error(err))
	}

	res, err := matcher.RunFullMatch(ctx, job, resume)
	if err != nil {
		logger.Fatal(matching.UserMessage(err), zap.Error(err))
	}

	if format == formatJSON {
		out := struct {
			*matching.Result
			Usage usage.Snapshot `json:"usage"`
		}{Result: res, Usage: tracker.Snapshot()}
		if err := renderJSON(os.Stdout, out); err != nil {
			logger.Fatal("rendering result", zap.Error(err))
		}
		return
	}

	renderResult(os.Stdout, res)
	renderUsage(os.Stdout, tracker.Snapshot())
}

func matchInputs(cmd *cobra.Command) (matching.Job, matching.Resume, error) {
	jobPath, _ := cmd.Flags().GetString("job")
	title, _ := cmd.Flags().GetString("title")
	company, _ := cmd.Flags().GetString("company")

	description, err := readText(jobPath, "job description")
	if err != nil {
		return matching.Job{}, matching.Resume{}, err
	}
	resume, err := resumeInput(cmd)
	if err != nil {
		return matching.Job{}, matching.Resume{}, err
	}
	return matching.Job{Title: title, Company: company, Description: description}, resume, nil
}

// resumeInput reads the --resume text and the optional --resume-data object.
func resumeInput(cmd *cobra.Command) (matching.Resume, error) {
	resumePath, _ := cmd.Flags().GetString("resume")
	dataPath, _ := cmd.Flags().GetString("resume-data")

	text, err := readText(resumePath, "resume")
	if err != nil {
		return matching.Resume{}, err
	}

	resume := matching.Resume{Text: text}
	if dataPath != "" {
		resume.Structured, err = loadResumeData(dataPath)
		if err != nil {
			return matching.Resume{}, err
		}
	}
	return resume, nil
}

// loadResumeData reads a JSON object of structured resume fields.
func loadResumeData(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume data: %w", err)
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("resume data in %s must be a JSON object", path)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode resume data: %w", err)
	}
	return out, nil
}
