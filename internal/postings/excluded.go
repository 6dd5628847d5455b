package postings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

var errNoPath = errors.New("path is empty")

type ExcludedPostings struct {
	Items []*ExcludedPosting `json:"items"`
}

// ExcludedPosting records why a posting is skipped by later batches.
type ExcludedPosting struct {
	ID         string    `json:"id"`
	URL        string    `json:"url,omitempty"`
	Company    string    `json:"company,omitempty"`
	Title      string    `json:"title,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Score      float64   `json:"score"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// ToExcluded builds ledger entries for the postings. scores is keyed by
// posting ID and may be nil.
func (p *Postings) ToExcluded(actor, reason string, scores map[string]float64) *ExcludedPostings {
	excluded := &ExcludedPostings{}
	now := time.Now().UTC()
	for _, posting := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			ID:         posting.ID,
			URL:        posting.URL,
			Company:    posting.Company,
			Title:      posting.Title,
			Actor:      actor,
			Reason:     reason,
			Score:      scores[posting.ID],
			ExcludedAt: now,
		})
	}
	return excluded
}

// LoadExcluded reads the ledger at path. A missing or empty file is an
// empty ledger.
func LoadExcluded(path string) (*ExcludedPostings, error) {
	if path == "" {
		return nil, errNoPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedPostings{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedPostings) Append(s *ExcludedPostings) {
	if s == nil {
		return
	}
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedPostings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, posting := range e.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

// ToFile replaces the ledger at path.
func (e *ExcludedPostings) ToFile(path string) error {
	if path == "" {
		return errNoPath
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
