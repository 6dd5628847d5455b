package guard

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain object", raw: `{"score": 80}`},
		{name: "json fence", raw: "```json\n{\"score\": 80}\n```"},
		{name: "upper case fence", raw: "```JSON\n{\"score\": 80}\n```"},
		{name: "bare fence", raw: "```\n{\"score\": 80}\n```"},
		{name: "inline fence", raw: "```json {\"score\": 80} ```"},
		{name: "leading prose with fence", raw: "Sure! Here's the JSON: ```json {\"score\": 80} ```"},
		{name: "leading prose", raw: "Here is the analysis you asked for:\n{\"score\": 80}"},
		{name: "trailing prose", raw: "{\"score\": 80}\nLet me know if you need anything else."},
		{name: "prose on both sides", raw: "Result: {\"score\": 80} -- end of result"},
		{name: "unterminated fence", raw: "```json\n{\"score\": 80}"},
		{name: "braces inside strings", raw: "Note {not json} then {\"score\": 80, \"note\": \"a } brace\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseModelJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, 80.0, doc["score"])
		})
	}
}

func TestParseModelJSONFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "   "},
		{name: "no json", raw: "I could not analyze this posting."},
		{name: "truncated object", raw: `{"variables": [{"name": "A", "found": true}, {"name": "B", "found":`},
		{name: "top level array", raw: `[{"name": "A"}]`},
		{name: "trailing comma", raw: "```json\n{\"score\": 80,}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseModelJSON(tt.raw)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrUnparseable))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.LessOrEqual(t, len([]rune(perr.Excerpt)), ExcerptLength+3)
		})
	}
}

func TestParseErrorExcerptIsBounded(t *testing.T) {
	t.Parallel()

	raw := strings.Repeat("x", 5000)
	_, err := ParseModelJSON(raw)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, strings.Repeat("x", ExcerptLength)+"...", perr.Excerpt)
}

func TestStripCodeFenceWithoutFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1}  "))
}

func TestExtractFirstObjectSkipsInvalidBlocks(t *testing.T) {
	t.Parallel()

	obj, ok := ExtractFirstObject(`see {this} and {"a": {"b": 2}}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 2}}`, obj)

	_, ok = ExtractFirstObject(`{"a": {"b": 2}`)
	assert.False(t, ok)
}

func TestRecordsAcceptsArrayAndKeyedForms(t *testing.T) {
	t.Parallel()

	arrayDoc, err := ParseModelJSON(`{"variables": [{"name": "A", "found": true}, "junk", {"name": "B"}]}`)
	require.NoError(t, err)
	recs := Records(arrayDoc, "variables", "name")
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0]["name"])

	keyedDoc, err := ParseModelJSON(`{"variables": {"Education Level": {"found": true}, "Cloud Platforms": {"found": false}}}`)
	require.NoError(t, err)
	recs = Records(keyedDoc, "variables", "name")
	require.Len(t, recs, 2)
	assert.Equal(t, "Cloud Platforms", recs[0]["name"])
	assert.Equal(t, "Education Level", recs[1]["name"])

	assert.Nil(t, Records(keyedDoc, "missing", "name"))
}

func TestValidateEnvelope(t *testing.T) {
	t.Parallel()

	const envelope = `{
		"type": "object",
		"properties": {"variables": {"type": ["array", "object"]}},
		"required": ["variables"]
	}`

	ok, err := ParseModelJSON(`{"variables": []}`)
	require.NoError(t, err)
	require.NoError(t, ValidateEnvelope(ok, envelope))

	bad, err := ParseModelJSON(`{"variables": "none"}`)
	require.NoError(t, err)

	err = ValidateEnvelope(bad, envelope)
	var envErr *EnvelopeError
	require.ErrorAs(t, err, &envErr)
	assert.NotEmpty(t, envErr.Problems)

	missing, err := ParseModelJSON(`{"other": 1}`)
	require.NoError(t, err)
	assert.Error(t, ValidateEnvelope(missing, envelope))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	doc, err := ParseModelJSON(`{"job_analysis": {"industry": "fintech"}}`)
	require.NoError(t, err)

	res, err := Lookup(doc, "job_analysis.industry")
	require.NoError(t, err)
	assert.Equal(t, "fintech", res.String())
}

func TestCoercion(t *testing.T) {
	t.Parallel()

	assert.True(t, Bool("Yes"))
	assert.True(t, Bool(1.0))
	assert.False(t, Bool("no"))
	assert.False(t, Bool(nil))

	assert.Equal(t, 85.0, Float("85%"))
	assert.Equal(t, 12.5, Float(" 12.5 "))
	assert.True(t, math.IsNaN(Float("N/A")))
	assert.True(t, math.IsNaN(Float(nil)))

	assert.Equal(t, "a; b", String([]any{"a", " b "}))
	assert.Equal(t, "", String(nil))
	assert.Equal(t, `{"k":1}`, String(map[string]any{"k": 1}))

	assert.Equal(t, []string{"x"}, Strings("x"))
	assert.Equal(t, []string{"x", "y"}, Strings([]any{"x", "", "y"}))

	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 100))
	assert.Equal(t, 100.0, Clamp(140, 0, 100))
	assert.Equal(t, 55.0, Clamp(55, 0, 100))
}
