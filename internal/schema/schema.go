package schema

import (
	"fmt"
	"math"
	"strings"
)

// Tolerance is the allowed floating point drift when comparing weight sums.
const Tolerance = 1e-6

// Category groups requirement variables that share a weight budget.
type Category string

const (
	Critical   Category = "critical"
	Core       Category = "core"
	Experience Category = "experience"
	Preferred  Category = "preferred"
)

// Signal tells the scorer how a candidate record is turned into a per-variable score.
type Signal int

const (
	// Presence scores a variable 100 when the candidate has it and 0 otherwise.
	Presence Signal = iota
	// Graded uses a 0..100 evaluator score produced for every variable.
	Graded
)

func (s Signal) String() string {
	switch s {
	case Presence:
		return "presence"
	case Graded:
		return "graded"
	default:
		return "unknown"
	}
}

// CategorySpec declares the weight budget and expected variable count of a category.
type CategorySpec struct {
	Name        Category
	Weight      float64
	Count       int
	Description string
}

// Variable is one scoring dimension.
type Variable struct {
	Name        string
	Category    Category
	Weight      float64
	Description string
	// BinaryGate variables carry no weight but cap the total when failed.
	BinaryGate bool
}

// Schema is an immutable, validated set of requirement variables.
type Schema struct {
	name       string
	signal     Signal
	categories []CategorySpec
	variables  []Variable
	index      map[string]int
}

// New builds a schema and validates it. Callers receive either a usable
// schema or an *InvariantError describing the first violation.
func New(name string, signal Signal, categories []CategorySpec, variables []Variable) (*Schema, error) {
	s := &Schema{
		name:       strings.TrimSpace(name),
		signal:     signal,
		categories: append([]CategorySpec(nil), categories...),
		variables:  append([]Variable(nil), variables...),
		index:      make(map[string]int, len(variables)),
	}

	for i, v := range s.variables {
		s.index[Key(v.Name)] = i
	}

	if err := Validate(s); err != nil {
		return nil, err
	}

	return s, nil
}

// MustNew is New for package-level built-in schemas.
func MustNew(name string, signal Signal, categories []CategorySpec, variables []Variable) *Schema {
	s, err := New(name, signal, categories, variables)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

func (s *Schema) Signal() Signal { return s.signal }

func (s *Schema) Len() int { return len(s.variables) }

// ListVariables returns a copy of the variables in declaration order.
func (s *Schema) ListVariables() []Variable {
	return append([]Variable(nil), s.variables...)
}

// Categories returns a copy of the category declarations.
func (s *Schema) Categories() []CategorySpec {
	return append([]CategorySpec(nil), s.categories...)
}

// Names returns variable names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.variables))
	for _, v := range s.variables {
		names = append(names, v.Name)
	}
	return names
}

// Variable looks a variable up by name. Lookup ignores case and punctuation.
func (s *Schema) Variable(name string) (Variable, bool) {
	idx, ok := s.index[Key(name)]
	if !ok {
		return Variable{}, false
	}
	return s.variables[idx], true
}

// WeightOf returns the declared weight of the named variable.
func (s *Schema) WeightOf(name string) (float64, bool) {
	v, ok := s.Variable(name)
	if !ok {
		return 0, false
	}
	return v.Weight, true
}

// Category returns the declaration for c.
func (s *Schema) Category(c Category) (CategorySpec, bool) {
	for _, spec := range s.categories {
		if spec.Name == c {
			return spec, true
		}
	}
	return CategorySpec{}, false
}

// VariablesIn returns the variables of category c in declaration order.
func (s *Schema) VariablesIn(c Category) []Variable {
	var out []Variable
	for _, v := range s.variables {
		if v.Category == c {
			out = append(out, v)
		}
	}
	return out
}

// Gates returns the binary gate variables.
func (s *Schema) Gates() []Variable {
	var out []Variable
	for _, v := range s.variables {
		if v.BinaryGate {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks the load-time invariants of a schema.
func Validate(s *Schema) error {
	if s == nil {
		return &InvariantError{Reason: "schema is nil"}
	}

	fail := func(format string, args ...any) error {
		return &InvariantError{Schema: s.name, Reason: fmt.Sprintf(format, args...)}
	}

	if s.name == "" {
		return fail("name is required")
	}
	if len(s.variables) == 0 {
		return fail("no variables declared")
	}
	if len(s.categories) == 0 {
		return fail("no categories declared")
	}

	declared := make(map[Category]CategorySpec, len(s.categories))
	var categoryWeights float64
	for _, c := range s.categories {
		if _, dup := declared[c.Name]; dup {
			return fail("category %q declared twice", c.Name)
		}
		if c.Weight < 0 {
			return fail("category %q has negative weight", c.Name)
		}
		declared[c.Name] = c
		categoryWeights += c.Weight
	}
	if math.Abs(categoryWeights-1) > Tolerance {
		return fail("category weights sum to %.6f, want 1.0", categoryWeights)
	}

	if len(s.index) != len(s.variables) {
		return fail("variable names are not unique")
	}

	counts := make(map[Category]int, len(declared))
	sums := make(map[Category]float64, len(declared))
	var total float64
	for _, v := range s.variables {
		if strings.TrimSpace(v.Name) == "" {
			return fail("variable with empty name")
		}
		if _, ok := declared[v.Category]; !ok {
			return fail("variable %q uses undeclared category %q", v.Name, v.Category)
		}
		if v.Weight < 0 {
			return fail("variable %q has negative weight", v.Name)
		}
		if v.BinaryGate && v.Weight != 0 {
			return fail("binary gate %q must have zero weight", v.Name)
		}
		counts[v.Category]++
		sums[v.Category] += v.Weight
		total += v.Weight
	}

	if math.Abs(total-1) > Tolerance {
		return fail("variable weights sum to %.6f, want 1.0", total)
	}

	for _, c := range s.categories {
		if counts[c.Name] != c.Count {
			return fail("category %q has %d variables, declared %d", c.Name, counts[c.Name], c.Count)
		}
		if math.Abs(sums[c.Name]-c.Weight) > Tolerance {
			return fail("category %q weights sum to %.6f, declared %.6f", c.Name, sums[c.Name], c.Weight)
		}
	}

	return nil
}

// Key normalizes a variable name for joins: lowercase, alphanumerics only.
func Key(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
