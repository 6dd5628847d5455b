package extraction

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/resume-matcher/internal/schema"
)

var (
	//go:embed prompts/system.md
	systemTemplate string
	//go:embed prompts/job.md
	jobTemplate string
	//go:embed prompts/candidate.md
	candidateTemplate string
	//go:embed prompts/evaluate.md
	evaluateTemplate string
	//go:embed prompts/industry.md
	industryTemplate string
	//go:embed prompts/strict.md
	strictTemplate string
)

const (
	roleJob       = "an expert job requirements analyst for an applicant tracking system"
	roleCandidate = "an expert resume analyst for an applicant tracking system"
	roleEvaluator = "a strict applicant tracking system that scores candidates against job requirements"
	roleIndustry  = "an expert recruiter who designs screening criteria for specific industries"
)

// render replaces {{KEY}} placeholders in a single pass, so placeholder-like
// text inside values is left alone.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, val := range values {
		pairs = append(pairs, "{{"+key+"}}", val)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func systemPrompt(role string) string {
	return render(systemTemplate, map[string]string{"ROLE": role})
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "not specified"
	}
	return s
}

func variableList(s *schema.Schema) string {
	var b strings.Builder
	for i, v := range s.ListVariables() {
		fmt.Fprintf(&b, "%d. %s [%s]", i+1, v.Name, v.Category)
		if v.Description != "" {
			fmt.Fprintf(&b, " - %s", v.Description)
		}
		if v.BinaryGate {
			b.WriteString(" (hard requirement: clearance, authorization or similar)")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(out)
}

func skeleton(s *schema.Schema, line func(name string) string) string {
	lines := make([]string, 0, s.Len())
	for _, name := range s.Names() {
		lines = append(lines, "    "+line(quote(name)))
	}
	return strings.Join(lines, ",\n")
}

func jobPrompt(s *schema.Schema, text string, jc Context) string {
	return render(jobTemplate, map[string]string{
		"COUNT":     strconv.Itoa(s.Len()),
		"TITLE":     orUnknown(jc.Title),
		"COMPANY":   orUnknown(jc.Company),
		"TEXT":      text,
		"VARIABLES": variableList(s),
		"SKELETON": skeleton(s, func(name string) string {
			return fmt.Sprintf(`{"name": %s, "found": false, "requirement": "", "evidence": %q, "criticality": "nice_to_have"}`, name, NotFound)
		}),
	})
}

func candidatePrompt(s *schema.Schema, text string) string {
	return render(candidateTemplate, map[string]string{
		"COUNT":     strconv.Itoa(s.Len()),
		"TEXT":      text,
		"VARIABLES": variableList(s),
		"SKELETON": skeleton(s, func(name string) string {
			return fmt.Sprintf(`{"name": %s, "present": false, "evidence": %q, "proficiency_level": "", "years_experience": 0}`, name, NotFound)
		}),
	})
}

func evaluatePrompt(s *schema.Schema, job *JobSet, jobText, resumeText string) string {
	var b strings.Builder
	for i, v := range s.ListVariables() {
		fmt.Fprintf(&b, "%d. %s", i+1, v.Name)
		if req, ok := job.Get(v.Name); ok && req.Found && req.Text != "" {
			fmt.Fprintf(&b, ": %s", req.Text)
		} else if v.Description != "" {
			fmt.Fprintf(&b, ": %s", v.Description)
		}
		if v.BinaryGate {
			b.WriteString(" (pass/fail: score 70 or above only when clearly met)")
		}
		b.WriteByte('\n')
	}

	return render(evaluateTemplate, map[string]string{
		"TITLE":     orUnknown(job.Context.Title),
		"COMPANY":   orUnknown(job.Context.Company),
		"JOB":       jobText,
		"RESUME":    resumeText,
		"VARIABLES": strings.TrimRight(b.String(), "\n"),
		"SKELETON": skeleton(s, func(name string) string {
			return fmt.Sprintf(`{"variable": %s, "score": 0, "job_requirements": "", "candidate_evidence": %q, "match_quality": "none"}`, name, NotFound)
		}),
	})
}

func industryPrompt(industry, title, text string, counts map[schema.Category]int) string {
	return render(industryTemplate, map[string]string{
		"INDUSTRY":   industry,
		"TITLE":      orUnknown(title),
		"TEXT":       text,
		"CRITICAL":   strconv.Itoa(counts[schema.Critical]),
		"CORE":       strconv.Itoa(counts[schema.Core]),
		"EXPERIENCE": strconv.Itoa(counts[schema.Experience]),
		"PREFERRED":  strconv.Itoa(counts[schema.Preferred]),
	})
}

func strictSuffix(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, "- "+name)
	}
	return render(strictTemplate, map[string]string{
		"COUNT": strconv.Itoa(len(names)),
		"NAMES": strings.Join(quoted, "\n"),
	})
}
