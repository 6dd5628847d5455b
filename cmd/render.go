package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/scoring"
	"github.com/spigell/resume-matcher/internal/usage"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func scoreColor(score float64) func(format string, a ...any) string {
	switch {
	case score >= 80:
		return color.GreenString
	case score >= 60:
		return color.YellowString
	default:
		return color.RedString
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResult(w io.Writer, res *matching.Result) {
	d := res.Display

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint("Match Analysis"))
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if res.Title != "" || res.Company != "" {
		fmt.Fprintf(w, "Posting:  %s\n", joinNonEmpty(" / ", res.Title, res.Company))
	}
	fmt.Fprintf(w, "Schema:   %s\n", res.Schema)
	fmt.Fprintf(w, "Model:    %s", res.Model)
	if res.Tier != "" {
		fmt.Fprintf(w, " (%s tier", res.Tier)
		if res.Validated {
			fmt.Fprint(w, ", validated")
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
	if res.Industry != nil {
		fmt.Fprintf(w, "Industry: %s (%.0f%% confidence)\n", res.Industry.Industry, res.Industry.Confidence)
	}

	fmt.Fprintf(w, "\nScore:    %s  %s\n", scoreColor(d.Score)("%.0f/100", d.Score), d.Label)
	fmt.Fprintf(w, "Decision: %s\n", d.Decision)
	fmt.Fprintf(w, "Matches:  %s (%.1f%%), significance %s\n", d.Matches, d.Percentage, d.Significance)
	if d.Reason != "" {
		fmt.Fprintf(w, "Note:     %s\n", d.Reason)
	}

	if len(d.CategoryBreakdown) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint("Categories:"))
		names := make([]string, 0, len(d.CategoryBreakdown))
		for name := range d.CategoryBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-12s %5.1f%%\n", name, d.CategoryBreakdown[name])
		}
	}

	if res.Score != nil {
		var matched, gaps []scoring.VariableResult
		for _, v := range res.Score.Variables {
			switch {
			case v.Excluded:
			case v.Match:
				matched = append(matched, v)
			default:
				gaps = append(gaps, v)
			}
		}
		if len(matched) > 0 {
			fmt.Fprintf(w, "\n%s\n", color.GreenString("Strong Matches:"))
			for _, v := range matched {
				fmt.Fprintf(w, "  %s %s\n", color.GreenString("✓"), v.Name)
			}
		}
		if len(gaps) > 0 {
			fmt.Fprintf(w, "\n%s\n", color.RedString("Gaps:"))
			for _, v := range gaps {
				fmt.Fprintf(w, "  %s %s\n", color.RedString("✗"), v.Name)
			}
		}
	}

	if len(d.Recommendations) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint("Recommendations:"))
		for _, r := range d.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}

func renderBatch(w io.Writer, items []matching.BatchItem) {
	fmt.Fprintf(w, "%-4s %-20s %-30s %-6s %-16s\n", "#", "Company", "Title", "Score", "Decision")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for i, item := range items {
		title := truncate(item.Job.Title, 30)
		company := truncate(item.Job.Company, 20)

		if item.Err != nil {
			fmt.Fprintf(w, "%-4d %-20s %-30s %-6s %-16s\n", i+1, company, title, color.RedString("-"), matching.Classify(item.Err))
			continue
		}

		score := item.Result.Display.Score
		scoreStr := scoreColor(score)("%.0f", score)
		fmt.Fprintf(w, "%-4d %-20s %-30s %-6s %-16s\n", i+1, company, title, scoreStr, item.Result.Display.Decision)
	}
}

func renderUsage(w io.Writer, s usage.Snapshot) {
	if s.TotalCalls == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s %d calls, %d tokens, estimated cost %.4f\n",
		color.New(color.Bold).Sprint("Usage:"), s.TotalCalls, s.TotalTokens, s.TotalCost)
	for _, m := range s.Models {
		fmt.Fprintf(w, "  %-24s %4d calls %8d/%-8d tokens %.4f (%.1f%%)\n",
			m.Model, m.Calls, m.PromptTokens, m.CompletionTokens, m.Cost, m.Percentage)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
