package postings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePostings() *Postings {
	return &Postings{Items: []*Posting{
		{ID: "1", Title: "Go Developer", Company: "Acme", URL: "https://example.com/1"},
		{ID: "2", Title: "Python Developer", Company: "Globex"},
		{ID: "3", Title: "SRE", Company: " acme "},
		{ID: "4", Title: "Data Engineer", Company: "Initech"},
	}}
}

func ids(p *Postings) []string {
	var out []string
	for _, posting := range p.Items {
		out = append(out, posting.ID)
	}
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("array", func(t *testing.T) {
		t.Parallel()

		p, err := Parse([]byte(`[{"id":"a","title":"Go Developer","company":"Acme"},{"title":"No ID"},null]`))
		require.NoError(t, err)
		require.Equal(t, 2, p.Len())
		assert.Equal(t, "a", p.Items[0].ID)

		_, err = uuid.Parse(p.Items[1].ID)
		assert.NoError(t, err)
	})

	t.Run("items object", func(t *testing.T) {
		t.Parallel()

		p, err := Parse([]byte(`{"items":[{"id":" b ","description":"Build APIs"}]}`))
		require.NoError(t, err)
		require.Equal(t, 1, p.Len())
		assert.Equal(t, "b", p.Items[0].ID)
		assert.Equal(t, "Build APIs", p.Items[0].Description)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		p, err := Parse([]byte("  "))
		require.NoError(t, err)
		assert.Equal(t, 0, p.Len())
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte(`[{"id": 1`))
		assert.Error(t, err)
	})
}

func TestExclude(t *testing.T) {
	t.Parallel()

	p := samplePostings()
	removed := p.Exclude(CompanyField, []string{"ACME", ""})
	assert.Equal(t, []string{"1", "3"}, removed)
	assert.Equal(t, []string{"2", "4"}, ids(p))

	removed = p.Exclude(IDField, []string{"4", "missing"})
	assert.Equal(t, []string{"4"}, removed)
	assert.Equal(t, []string{"2"}, ids(p))

	assert.Nil(t, p.Exclude(IDField, nil))
	assert.NotNil(t, p.FindByID("2"))
	assert.Nil(t, p.FindByID("1"))
}

func TestReportByCompany(t *testing.T) {
	t.Parallel()

	report := samplePostings().ReportByCompany()
	require.Len(t, report["Acme"], 1)
	assert.Equal(t, "Go Developer", report["Acme"][0]["title"])
	assert.Equal(t, "https://example.com/1", report["Acme"][0]["url"])
	assert.Len(t, report["Globex"], 1)
}

func TestExcludedLedger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "excluded.json")

	ledger, err := LoadExcluded(path)
	require.NoError(t, err)
	assert.Empty(t, ledger.Items)

	ledger.Append(samplePostings().ToExcluded("resume-matcher", "score below 40", map[string]float64{"2": 35}))
	require.NoError(t, ledger.ToFile(path))

	loaded, err := LoadExcluded(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 4)
	assert.Equal(t, []string{"1", "2", "3", "4"}, loaded.IDs())
	assert.Equal(t, "resume-matcher", loaded.Items[1].Actor)
	assert.Equal(t, "score below 40", loaded.Items[1].Reason)
	assert.Equal(t, 35.0, loaded.Items[1].Score)
	assert.False(t, loaded.Items[1].ExcludedAt.IsZero())

	shorter := &ExcludedPostings{Items: loaded.Items[:1]}
	require.NoError(t, shorter.ToFile(path))
	loaded, err = LoadExcluded(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, loaded.IDs())

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	loaded, err = LoadExcluded(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)

	_, err = LoadExcluded("")
	assert.Error(t, err)
}
