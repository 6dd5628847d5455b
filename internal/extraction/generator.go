package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/usage"
)

const generateMaxTokens = 1500

const industryEnvelope = `{
	"type": "object",
	"properties": {
		"critical_requirements": {"type": ["array", "string"]},
		"core_competencies": {"type": ["array", "string"]},
		"experience_factors": {"type": ["array", "string"]},
		"preferred_qualifications": {"type": ["array", "string"]}
	},
	"required": ["critical_requirements", "core_competencies", "experience_factors", "preferred_qualifications"]
}`

var industryKeys = map[schema.Category]string{
	schema.Critical:   "critical_requirements",
	schema.Core:       "core_competencies",
	schema.Experience: "experience_factors",
	schema.Preferred:  "preferred_qualifications",
}

// Generator builds a per-posting schema whose variable names come from the
// model, for the industry the posting belongs to.
type Generator struct {
	caller
}

func NewGenerator(client llm.Client, cfg Config, recorder usage.Recorder, log *zap.Logger) *Generator {
	return &Generator{caller: newCaller(client, cfg, recorder, log)}
}

// Generate detects the industry of a posting and asks the model for
// industry specific variables laid out like the standard categories.
func (g *Generator) Generate(ctx context.Context, title, description string) (*schema.Schema, schema.IndustryDetection, error) {
	prepared, err := PrepareJob(description, g.cfg.Limits)
	if err != nil {
		return nil, schema.IndustryDetection{}, err
	}

	detection := schema.DetectIndustry(title, prepared)
	counts := make(map[schema.Category]int, len(schema.StandardCategories))
	var names []string
	for _, c := range schema.StandardCategories {
		counts[c.Name] = c.Count
		names = append(names, fmt.Sprintf("%s: %d names", industryKeys[c.Name], c.Count))
	}

	var (
		generated *schema.Schema
		industry  string
	)
	err = g.run(ctx, opGenerate,
		systemPrompt(roleIndustry),
		industryPrompt(detection.Industry, title, prepared, counts),
		generateMaxTokens,
		strictSuffix(names),
		func(doc map[string]any, final bool) error {
			var derr error
			industry = g.industry(doc, detection.Industry)
			generated, derr = g.decode(doc, industry, final)
			return derr
		},
	)
	if err != nil {
		return nil, detection, err
	}
	detection.Industry = industry

	g.logger.Info("industry schema generated",
		zap.String("industry", detection.Industry),
		zap.Float64("confidence", detection.Confidence),
		zap.String(logger.FieldSchema, generated.Name()),
	)
	return generated, detection, nil
}

// industry returns the label the schema is named after. Keyword detection
// wins unless it fell back to the general label and the model names a
// known industry.
func (g *Generator) industry(doc map[string]any, detected string) string {
	if detected != schema.GeneralIndustry {
		return detected
	}
	res, err := guard.Lookup(doc, "industry")
	if err != nil || !res.Exists() {
		return detected
	}
	reported := strings.ToLower(strings.TrimSpace(res.String()))
	if reported == "" || reported == detected {
		return detected
	}
	if !schema.IsKnownIndustry(reported) {
		g.logger.Debug("ignoring unknown industry label", zap.String("industry", reported))
		return detected
	}
	return reported
}

func (g *Generator) decode(doc map[string]any, industry string, final bool) (*schema.Schema, error) {
	if err := guard.ValidateEnvelope(doc, industryEnvelope); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: err}
	}

	seen := make(map[string]bool)
	lists := make(map[schema.Category][]string, len(schema.StandardCategories))
	for _, c := range schema.StandardCategories {
		var list []string
		for _, name := range guard.Strings(doc[industryKeys[c.Name]]) {
			key := schema.Key(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			list = append(list, name)
		}

		switch {
		case len(list) < c.Count:
			return nil, &Error{Kind: KindSchemaMismatch, Err: fmt.Errorf("%s has %d distinct names, want %d", industryKeys[c.Name], len(list), c.Count)}
		case len(list) > c.Count && !final:
			return nil, &Error{Kind: KindSchemaMismatch, Err: fmt.Errorf("%s has %d names, want %d", industryKeys[c.Name], len(list), c.Count)}
		case len(list) > c.Count:
			list = list[:c.Count]
		}
		lists[c.Name] = list
	}

	name := schema.IndustryName + "-" + strings.ReplaceAll(industry, " ", "-")
	generated, err := schema.FromCategories(name, lists)
	if err != nil {
		return nil, &Error{Kind: KindSchemaMismatch, Err: err}
	}
	return generated, nil
}
