package schema

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Weighted22Name = "weighted-22"
	Flat8Name      = "flat-8"
	IndustryName   = "industry"
)

// GatePassThreshold is the minimum evaluator score a binary gate needs.
const GatePassThreshold = 70.0

// GateFailureCap is the highest total score allowed after a gate failure.
const GateFailureCap = 39.0

// StandardCategories are the four weighted categories of the 22-variable framework.
var StandardCategories = []CategorySpec{
	{Name: Critical, Weight: 0.40, Count: 5, Description: "Must-have qualifications that disqualify if missing"},
	{Name: Core, Weight: 0.35, Count: 8, Description: "Key skills and abilities for job success"},
	{Name: Experience, Weight: 0.15, Count: 4, Description: "Experience-related requirements"},
	{Name: Preferred, Weight: 0.10, Count: 5, Description: "Nice-to-have qualifications"},
}

var weighted22 = MustNew(Weighted22Name, Presence, StandardCategories, []Variable{
	{Name: "Required Technical Skills", Category: Critical, Weight: 0.10, Description: "Specific technical skills the role cannot do without"},
	{Name: "Education Level", Category: Critical, Weight: 0.08, Description: "Minimum degree or diploma"},
	{Name: "Years of Experience", Category: Critical, Weight: 0.08, Description: "Minimum years of relevant experience"},
	{Name: "Industry Experience", Category: Critical, Weight: 0.08, Description: "Background in a specific industry or domain"},
	{Name: "Certifications/Licenses", Category: Critical, Weight: 0.06, Description: "Required certifications or professional licenses"},

	{Name: "Programming Languages", Category: Core, Weight: 0.06, Description: "Named programming languages"},
	{Name: "Frameworks/Technologies", Category: Core, Weight: 0.06, Description: "Named frameworks, libraries or platforms"},
	{Name: "Database Experience", Category: Core, Weight: 0.05, Description: "Database systems and data modelling"},
	{Name: "Cloud Platforms", Category: Core, Weight: 0.05, Description: "Cloud providers and services"},
	{Name: "Project Management", Category: Core, Weight: 0.04, Description: "Planning, delivery and coordination of projects"},
	{Name: "Team Leadership", Category: Core, Weight: 0.04, Description: "Leading or mentoring people"},
	{Name: "Communication Skills", Category: Core, Weight: 0.03, Description: "Written and verbal communication"},
	{Name: "Problem Solving", Category: Core, Weight: 0.02, Description: "Analytical and troubleshooting ability"},

	{Name: "Seniority Level", Category: Experience, Weight: 0.04, Description: "Expected level such as junior, senior, lead"},
	{Name: "Role Progression", Category: Experience, Weight: 0.04, Description: "Growth in scope and responsibility over time"},
	{Name: "Agile/Scrum Experience", Category: Experience, Weight: 0.04, Description: "Agile delivery practices"},
	{Name: "Cross-functional Collaboration", Category: Experience, Weight: 0.03, Description: "Working across teams and disciplines"},

	{Name: "Advanced Degree", Category: Preferred, Weight: 0.03, Description: "Master's, PhD or equivalent"},
	{Name: "Publications/Open Source", Category: Preferred, Weight: 0.02, Description: "Papers, patents or open source contributions"},
	{Name: "Speaking/Teaching Experience", Category: Preferred, Weight: 0.02, Description: "Talks, training or teaching"},
	{Name: "Language Skills", Category: Preferred, Weight: 0.02, Description: "Spoken or written human languages"},
	{Name: "Geographic Preferences", Category: Preferred, Weight: 0.01, Description: "Location, relocation or time zone"},
})

var flat8 = MustNew(Flat8Name, Graded, []CategorySpec{
	{Name: Core, Weight: 1.0, Count: 8, Description: "Fixed core variables"},
}, []Variable{
	{Name: "Experience Level", Category: Core, Weight: 0.20, Description: "Years and level of relevant work experience"},
	{Name: "Technical Skills", Category: Core, Weight: 0.31, Description: "Tools, technologies and methodologies"},
	{Name: "Job Functions", Category: Core, Weight: 0.13, Description: "Core duties and responsibilities of the role"},
	{Name: "Industry Experience", Category: Core, Weight: 0.11, Description: "Domain or industry background"},
	{Name: "Education Requirements", Category: Core, Weight: 0.09, Description: "Degree level and field requirements"},
	{Name: "Certifications", Category: Core, Weight: 0.09, Description: "Professional certifications and licenses"},
	{Name: "Soft Skills", Category: Core, Weight: 0.07, Description: "Communication, leadership and interpersonal skills"},
	{Name: "Special Requirements", Category: Core, Weight: 0, BinaryGate: true, Description: "Security clearance, travel, work authorization"},
})

// Weighted22 returns the 22-variable, four-category schema.
func Weighted22() *Schema { return weighted22 }

// Flat8 returns the 8-variable schema with a binary gate.
func Flat8() *Schema { return flat8 }

var builtins = map[string]*Schema{
	Weighted22Name: weighted22,
	Flat8Name:      flat8,
}

// Load returns the built-in schema registered under version.
func Load(version string) (*Schema, error) {
	version = strings.ToLower(strings.TrimSpace(version))
	if version == "" {
		version = Weighted22Name
	}
	s, ok := builtins[version]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (known: %s)", version, strings.Join(Versions(), ", "))
	}
	return s, nil
}

// ListVariables returns the variables of a built-in schema version.
func ListVariables(version string) ([]Variable, error) {
	s, err := Load(version)
	if err != nil {
		return nil, err
	}
	return s.ListVariables(), nil
}

// Versions lists the built-in schema names.
func Versions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromCategories builds a presence schema over StandardCategories from
// generated variable names, splitting each category weight evenly.
func FromCategories(name string, names map[Category][]string) (*Schema, error) {
	var vars []Variable
	for _, c := range StandardCategories {
		list := names[c.Name]
		if len(list) != c.Count {
			return nil, &InvariantError{
				Schema: name,
				Reason: fmt.Sprintf("category %q has %d generated variables, want %d", c.Name, len(list), c.Count),
			}
		}
		// The last variable absorbs rounding so the category sums exactly.
		share := c.Weight / float64(c.Count)
		assigned := 0.0
		for i, n := range list {
			w := share
			if i == len(list)-1 {
				w = c.Weight - assigned
			}
			assigned += w
			vars = append(vars, Variable{Name: strings.TrimSpace(n), Category: c.Name, Weight: w})
		}
	}
	return New(name, Presence, StandardCategories, vars)
}
