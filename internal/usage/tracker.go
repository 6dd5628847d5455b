// Package usage accounts model calls, tokens and estimated cost per model.
package usage

import (
	"sort"
	"sync"
)

// Rate is a price in currency units per 1000 tokens.
type Rate struct {
	InputPer1K  float64 `mapstructure:"input-per-1k"`
	OutputPer1K float64 `mapstructure:"output-per-1k"`
}

// Cost returns the estimated price of a call.
func (r Rate) Cost(promptTokens, completionTokens int) float64 {
	return (float64(promptTokens)*r.InputPer1K + float64(completionTokens)*r.OutputPer1K) / 1000
}

var (
	// CheapRate is the default price of a standard tier model.
	CheapRate = Rate{InputPer1K: 0.0015, OutputPer1K: 0.002}
	// StrongRate is the default price of a strong tier model.
	StrongRate = Rate{InputPer1K: 0.03, OutputPer1K: 0.06}
)

// ModelUsage aggregates the calls made against one model.
type ModelUsage struct {
	Model            string  `json:"model"`
	Calls            int     `json:"calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	// Percentage is this model's share of the total cost.
	Percentage float64 `json:"percentage"`
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	TotalCalls  int          `json:"total_calls"`
	TotalTokens int          `json:"total_tokens"`
	TotalCost   float64      `json:"total_cost"`
	Models      []ModelUsage `json:"models"`
}

// Recorder is the write side of a Tracker.
type Recorder interface {
	Record(model string, promptTokens, completionTokens int) float64
}

// Tracker is safe for concurrent use. The zero value is not usable; build
// one with NewTracker. A nil *Tracker ignores records.
type Tracker struct {
	mu       sync.Mutex
	rates    map[string]Rate
	fallback Rate
	models   map[string]*ModelUsage
}

// NewTracker builds a tracker pricing models by rates, or by fallback when
// a model has no explicit rate.
func NewTracker(rates map[string]Rate, fallback Rate) *Tracker {
	copied := make(map[string]Rate, len(rates))
	for model, rate := range rates {
		copied[model] = rate
	}
	return &Tracker{
		rates:    copied,
		fallback: fallback,
		models:   make(map[string]*ModelUsage),
	}
}

// Record accounts one call and returns its estimated cost.
func (t *Tracker) Record(model string, promptTokens, completionTokens int) float64 {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rate, ok := t.rates[model]
	if !ok {
		rate = t.fallback
	}
	cost := rate.Cost(promptTokens, completionTokens)

	m, ok := t.models[model]
	if !ok {
		m = &ModelUsage{Model: model}
		t.models[model] = m
	}
	m.Calls++
	m.PromptTokens += promptTokens
	m.CompletionTokens += completionTokens
	m.Cost += cost

	return cost
}

// Snapshot returns totals plus per-model usage sorted by model name.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var snap Snapshot
	for _, m := range t.models {
		snap.TotalCalls += m.Calls
		snap.TotalTokens += m.PromptTokens + m.CompletionTokens
		snap.TotalCost += m.Cost
		snap.Models = append(snap.Models, *m)
	}

	for i := range snap.Models {
		if snap.TotalCost > 0 {
			snap.Models[i].Percentage = snap.Models[i].Cost / snap.TotalCost * 100
		}
	}

	sort.Slice(snap.Models, func(i, j int) bool {
		return snap.Models[i].Model < snap.Models[j].Model
	})

	return snap
}
