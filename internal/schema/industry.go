package schema

import (
	"regexp"
	"strings"
)

// GeneralIndustry is reported when no industry indicator matches.
const GeneralIndustry = "general"

// IndustryDetection is the result of keyword based industry classification.
type IndustryDetection struct {
	Industry   string
	Confidence float64
	Indicators int
}

type industryIndicator struct {
	name     string
	keywords *regexp.Regexp
	titles   *regexp.Regexp
}

// Order matters: on equal scores the first industry wins.
var industryIndicators = []industryIndicator{
	{
		name:     "healthcare",
		keywords: regexp.MustCompile(`(?i)\b(medical|nurse|doctor|physician|hospital|clinic|patient|healthcare|clinical|rn|md|therapy|surgical|pharmacy|dental)\b`),
		titles:   regexp.MustCompile(`(?i)\b(nurse|doctor|physician|therapist|medical|healthcare|clinical|pharmacist|dentist)\b`),
	},
	{
		name:     "sales",
		keywords: regexp.MustCompile(`(?i)\b(sales|revenue|quota|customer|client|selling|account|territory|commission|b2b|crm|pipeline|prospect)\b`),
		titles:   regexp.MustCompile(`(?i)\b(sales|account|business development|territory|customer success|representative)\b`),
	},
	{
		name:     "technology",
		keywords: regexp.MustCompile(`(?i)\b(software|programming|developer|engineer|technical|system|application|code|javascript|python|api|database)\b`),
		titles:   regexp.MustCompile(`(?i)\b(developer|engineer|programmer|technical|software|systems|devops|architect)\b`),
	},
	{
		name:     "finance",
		keywords: regexp.MustCompile(`(?i)\b(financial|accounting|investment|banking|audit|tax|cpa|finance|money|portfolio|trading|analyst)\b`),
		titles:   regexp.MustCompile(`(?i)\b(accountant|financial|analyst|banker|auditor|controller|cfo|investment|finance)\b`),
	},
	{
		name:     "legal",
		keywords: regexp.MustCompile(`(?i)\b(legal|attorney|lawyer|law|litigation|contract|compliance|court|bar|paralegal|judicial)\b`),
		titles:   regexp.MustCompile(`(?i)\b(attorney|lawyer|legal|counsel|paralegal|judge|compliance|contract)\b`),
	},
	{
		name:     "marketing",
		keywords: regexp.MustCompile(`(?i)\b(marketing|advertising|brand|campaign|digital|social media|content|seo|sem|growth|creative)\b`),
		titles:   regexp.MustCompile(`(?i)\b(marketing|advertis\w*|brand|campaign|digital|social|content|growth|creative)\b`),
	},
	{
		name:     "education",
		keywords: regexp.MustCompile(`(?i)\b(teacher|education|school|university|curriculum|student|academic|instruction|learning|classroom)\b`),
		titles:   regexp.MustCompile(`(?i)\b(teacher|professor|instructor|educator|academic|principal|tutor|coach)\b`),
	},
	{
		name:     "retail",
		keywords: regexp.MustCompile(`(?i)\b(retail|store|merchandise|inventory|customer service|cashier|sales associate|shopping|commerce)\b`),
		titles:   regexp.MustCompile(`(?i)\b(retail|store|merchandise|cashier|associate|manager|customer service|sales)\b`),
	},
	{
		name:     "manufacturing",
		keywords: regexp.MustCompile(`(?i)\b(manufacturing|production|quality|assembly|factory|industrial|operations|supply chain|logistics)\b`),
		titles:   regexp.MustCompile(`(?i)\b(manufacturing|production|quality|assembly|industrial|operations|supply|logistics)\b`),
	},
	{
		name:     "consulting",
		keywords: regexp.MustCompile(`(?i)\b(consulting|consultant|advisory|strategy|analysis|client|project|implementation|change management)\b`),
		titles:   regexp.MustCompile(`(?i)\b(consultant|advisory|strategy|analyst|project|implementation|change)\b`),
	},
}

// Industries lists the industries DetectIndustry can report, besides GeneralIndustry.
func Industries() []string {
	out := make([]string, 0, len(industryIndicators))
	for _, ind := range industryIndicators {
		out = append(out, ind.name)
	}
	return out
}

// DetectIndustry classifies a posting. Title hits count three times as much
// as hits anywhere in the title and description.
func DetectIndustry(title, description string) IndustryDetection {
	text := description + " " + title
	best := IndustryDetection{Industry: GeneralIndustry}

	for _, ind := range industryIndicators {
		score := len(ind.titles.FindAllStringIndex(title, -1)) * 3
		score += len(ind.keywords.FindAllStringIndex(text, -1))

		if score > best.Indicators {
			best = IndustryDetection{Industry: ind.name, Indicators: score}
		}
	}

	best.Confidence = float64(best.Indicators * 10)
	if best.Confidence > 100 {
		best.Confidence = 100
	}
	return best
}

// IsKnownIndustry reports whether name is a supported industry label.
func IsKnownIndustry(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == GeneralIndustry {
		return true
	}
	for _, ind := range industryIndicators {
		if ind.name == name {
			return true
		}
	}
	return false
}
