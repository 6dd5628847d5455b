package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Limits bound the text sent to a model.
type Limits struct {
	MaxResumeChars int
	MaxJobChars    int
	// MinInputChars rejects inputs too short to contain any requirement.
	MinInputChars int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxResumeChars: 3000,
		MaxJobChars:    8000,
		MinInputChars:  50,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxResumeChars <= 0 {
		l.MaxResumeChars = def.MaxResumeChars
	}
	if l.MaxJobChars <= 0 {
		l.MaxJobChars = def.MaxJobChars
	}
	if l.MinInputChars <= 0 {
		l.MinInputChars = def.MinInputChars
	}
	return l
}

var htmlTagPattern = regexp.MustCompile(`(?i)<(p|div|br|li|ul|ol|span|h[1-6]|strong|b|em|section|article|body|html|table|tr|td)\b[^>]*>`)

// Headings kept when a long resume has to be cut.
var resumeSections = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(core\s+skills?|skills?|technologies|expertise)`),
	regexp.MustCompile(`(?i)(professional\s+experience|experience|employment|work history)`),
	regexp.MustCompile(`(?i)(education|degree|university)`),
	regexp.MustCompile(`(?i)(licen[cs]es?|admissions?|certifications?)`),
	regexp.MustCompile(`(?i)(tools|platforms|software|technical\s+skills?)`),
}

// Headings kept when a long posting has to be cut.
var jobSections = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(requirements?|qualifications?|must have|essential)`),
	regexp.MustCompile(`(?i)(responsibilities|duties|what you'll do|the role)`),
}

// PlainText returns s with markup removed. Text without HTML tags is only
// normalized.
func PlainText(s string) (string, error) {
	if !htmlTagPattern.MatchString(s) {
		return normalizeLines(s), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	return normalizeLines(doc.Text()), nil
}

func normalizeLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// PrepareResume cleans a resume and shortens it to the configured limit,
// keeping skills, experience, education, licence and tools sections first.
func PrepareResume(text string, limits Limits) (string, error) {
	limits = limits.withDefaults()
	return prepare(opCandidate, "resume", text, limits.MaxResumeChars, limits.MinInputChars, resumeSections)
}

// PrepareJob cleans a posting and shortens it to the configured limit,
// keeping requirement and responsibility sections first.
func PrepareJob(text string, limits Limits) (string, error) {
	limits = limits.withDefaults()
	return prepare(opJob, "job description", text, limits.MaxJobChars, limits.MinInputChars, jobSections)
}

func prepare(op, what, text string, maxChars, minChars int, sections []*regexp.Regexp) (string, error) {
	plain, err := PlainText(text)
	if err != nil {
		return "", insufficient(op, "%s: %v", what, err)
	}
	if n := len([]rune(plain)); n < minChars {
		return "", insufficient(op, "%s has %d characters, need at least %d", what, n, minChars)
	}
	return Truncate(plain, maxChars, sections), nil
}

// Truncate returns text unchanged when it fits in limit runes. Otherwise
// it joins the sections introduced by the given headings and cuts that to limit,
// falling back to the head of text when no heading is present. Cut text
// ends with "...".
func Truncate(text string, limit int, sections []*regexp.Regexp) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}

	parts := make([]string, 0, len(sections))
	seen := make(map[string]bool, len(sections))
	for _, heading := range sections {
		if sec := section(text, heading); sec != "" && !seen[sec] {
			seen[sec] = true
			parts = append(parts, sec)
		}
	}

	kept := strings.Join(parts, "\n\n")
	if kept == "" {
		return string(runes[:limit]) + "..."
	}
	if keptRunes := []rune(kept); len(keptRunes) > limit {
		return string(keptRunes[:limit]) + "..."
	}
	return kept
}

// section returns the text from the first heading match up to the next
// blank line.
func section(text string, heading *regexp.Regexp) string {
	loc := heading.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	end := len(text)
	if i := strings.Index(text[loc[1]:], "\n\n"); i != -1 {
		end = loc[1] + i
	}

	return strings.TrimSpace(text[loc[0]:end])
}
