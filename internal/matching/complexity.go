package matching

import (
	"regexp"
)

// Tier selects the model serving a posting.
type Tier string

const (
	TierStandard Tier = "standard"
	TierStrong   Tier = "strong"
)

// Level buckets a complexity score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

var complexityFactors = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"technical", regexp.MustCompile(`(?i)\b(algorithm|architecture|framework|api|database|cloud|microservices|devops|ml|ai)\b`)},
	{"senior", regexp.MustCompile(`(?i)\b(senior|lead|principal|director|vp|executive|manager|head of)\b`)},
	{"specialized", regexp.MustCompile(`(?i)\b(phd|certification|license|security clearance|specialized|expert)\b`)},
	{"regulated", regexp.MustCompile(`(?i)\b(healthcare|finance|legal|compliance|audit|fda|sec|hipaa)\b`)},
	{"enterprise", regexp.MustCompile(`(?i)\b(fortune 500|enterprise|multinational|startup|scale|growth)\b`)},
}

// Complexity is a keyword density estimate of how demanding a posting is.
type Complexity struct {
	Score   int      `json:"score"`
	Factors []string `json:"factors"`
	Level   Level    `json:"level"`
}

// Route is the model choice for a posting.
type Route struct {
	Tier Tier
	// Validate re-runs borderline scores on the strong tier.
	Validate bool
}

// AnalyzeComplexity counts technical, seniority, specialization, regulated
// industry and enterprise markers in the title and description.
func AnalyzeComplexity(title, description string) Complexity {
	text := description + " " + title
	c := Complexity{Factors: []string{}}
	for _, f := range complexityFactors {
		n := len(f.pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		c.Score += n
		c.Factors = append(c.Factors, f.name)
	}

	switch {
	case c.Score >= 8:
		c.Level = LevelHigh
	case c.Score >= 4:
		c.Level = LevelMedium
	default:
		c.Level = LevelLow
	}
	return c
}

// Route sends complex postings to the strong tier and middling ones to the
// standard tier with validation.
func (c Complexity) Route() Route {
	switch {
	case c.Score >= 6:
		return Route{Tier: TierStrong}
	case c.Score >= 3:
		return Route{Tier: TierStandard, Validate: true}
	default:
		return Route{Tier: TierStandard}
	}
}

// needsValidation reports scores at the decision extremes.
func needsValidation(score float64) bool {
	return score > 80 || score < 30
}
