// Package postings holds the job postings matched in batch mode and the
// ledger of postings excluded from later runs.
package postings

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	IDField      = "ID"
	CompanyField = "Company"
	TitleField   = "Title"
)

type Postings struct {
	Items []*Posting `json:"items"`
}

type Posting struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Load reads postings from a JSON file holding either an array of
// postings or an object with an "items" array. Postings without an ID get
// a generated one.
func Load(path string) (*Postings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes postings the way Load does.
func Parse(data []byte) (*Postings, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return &Postings{}, nil
	}

	p := &Postings{}
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &p.Items); err != nil {
			return nil, fmt.Errorf("decode postings: %w", err)
		}
	} else if err := json.Unmarshal([]byte(trimmed), p); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	items := p.Items[:0]
	for _, posting := range p.Items {
		if posting == nil {
			continue
		}
		posting.ID = strings.TrimSpace(posting.ID)
		if posting.ID == "" {
			posting.ID = uuid.NewString()
		}
		items = append(items, posting)
	}
	p.Items = items
	return p, nil
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case IDField:
		return p.ID
	case CompanyField:
		return p.Company
	case TitleField:
		return p.Title
	default:
		return ""
	}
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) FindByID(id string) *Posting {
	for _, posting := range p.Items {
		if posting.ID == id {
			return posting
		}
	}
	return nil
}

// Exclude removes every posting whose field equals one of targets, ignoring
// case and surrounding space, and returns the removed IDs. Order of the
// remaining postings is preserved.
func (p *Postings) Exclude(name string, targets []string) []string {
	wanted := make(map[string]bool, len(targets))
	for _, target := range targets {
		if t := normalize(target); t != "" {
			wanted[t] = true
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	return p.ExcludeFunc(func(posting *Posting) bool {
		return wanted[normalize(posting.GetStringField(name))]
	})
}

// ExcludeFunc removes the postings drop reports and returns their IDs.
func (p *Postings) ExcludeFunc(drop func(*Posting) bool) []string {
	var excluded []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if drop(posting) {
			excluded = append(excluded, posting.ID)
			continue
		}
		kept = append(kept, posting)
	}
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return excluded
}

// ReportByCompany groups postings by company for display.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Company
		if key == "" {
			key = "unknown company"
		}
		report[key] = append(report[key], map[string]string{
			"id":       posting.ID,
			"title":    posting.Title,
			"url":      posting.URL,
			"location": posting.Location,
			"salary":   posting.Salary,
		})
	}
	return report
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DumpToTmpFile writes the postings as indented JSON to a new temporary
// file and returns its name.
func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}
