package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/schema"
)

func TestToDisplay(t *testing.T) {
	t.Parallel()

	s := schema.Weighted22()
	has := namesOutside(s, schema.Critical)
	has = append(has, namesIn(s, schema.Critical)[1:]...)
	job, cand := presenceSets(s, has)

	res, err := Score(job, cand, s)
	require.NoError(t, err)

	d := ToDisplay(res)
	assert.Equal(t, 90.0, d.Score)
	assert.Equal(t, "21/22", d.Matches)
	assert.Equal(t, 95.5, d.Percentage)
	assert.Equal(t, Excellent, d.Significance)
	assert.Equal(t, 99.9, d.Confidence)
	assert.Equal(t, Maybe, d.Decision)
	assert.Equal(t, "Excellent Match", d.Label)
	assert.Equal(t, 80.0, d.CategoryBreakdown["critical"])
	assert.Equal(t, []string{"Required Technical Skills"}, d.MissingCritical)
	require.NotEmpty(t, d.Recommendations)
	assert.Contains(t, d.Recommendations[0], "Required Technical Skills")
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  string
	}{
		{100, "Excellent Match"},
		{80, "Excellent Match"},
		{79, "Good Match"},
		{70, "Good Match"},
		{69, "Moderate Match"},
		{50, "Moderate Match"},
		{49, "Weak Match"},
		{30, "Weak Match"},
		{29, "Poor Match"},
		{0, "Poor Match"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.score), "score %v", tt.score)
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	t.Run("no requirements", func(t *testing.T) {
		t.Parallel()

		s := schema.Weighted22()
		job, cand := presenceSets(s, nil, s.Names()...)
		res, err := Score(job, cand, s)
		require.NoError(t, err)

		recs := Recommendations(res)
		require.Len(t, recs, 1)
		assert.Contains(t, recs[0], "no requirement")
	})

	t.Run("gate first and bounded", func(t *testing.T) {
		t.Parallel()

		s := schema.Flat8()
		gate := s.Gates()[0].Name
		job, cand := gradedSets(s, map[string]float64{gate: 10}, 20)
		res, err := Score(job, cand, s)
		require.NoError(t, err)

		recs := Recommendations(res)
		assert.Len(t, recs, maxRecommendations)
		assert.Contains(t, recs[0], gate)
		assert.Contains(t, recs[1], "Technical Skills")
	})

	t.Run("no gaps", func(t *testing.T) {
		t.Parallel()

		s := schema.Weighted22()
		job, cand := presenceSets(s, s.Names())
		res, err := Score(job, cand, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"No gaps found; tailor the summary to the posting."}, Recommendations(res))
	})
}
