package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextStripsHTML(t *testing.T) {
	t.Parallel()

	html := `<html><head><style>p{color:red}</style></head><body>
<h2>Requirements</h2><ul><li>5+ years of Go</li><li>Kubernetes</li></ul>
<p>Nice to have:<br>Terraform</p><script>track()</script></body></html>`

	text, err := PlainText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "Requirements\n")
	assert.Contains(t, text, "5+ years of Go\n")
	assert.Contains(t, text, "Nice to have:\nTerraform")
	assert.NotContains(t, text, "track()")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<")
}

func TestPlainTextKeepsPlainInput(t *testing.T) {
	t.Parallel()

	text, err := PlainText("Skills:   Go,  Rust\r\n\r\n\r\n\nExperience: 5 years")
	require.NoError(t, err)
	assert.Equal(t, "Skills: Go, Rust\n\nExperience: 5 years", text)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	filler := strings.Repeat("Our company values people and coffee. ", 40)

	t.Run("fits", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "short", Truncate("short", 100, jobSections))
	})

	t.Run("keeps sections", func(t *testing.T) {
		t.Parallel()

		text := "About us\n" + filler + "\n\nRequirements:\nGo and SQL\n\nPerks\n" + filler + "\n\nResponsibilities:\nRun services"
		out := Truncate(text, 200, jobSections)
		assert.Equal(t, "Requirements:\nGo and SQL\n\nResponsibilities:\nRun services", out)
	})

	t.Run("no sections", func(t *testing.T) {
		t.Parallel()

		out := Truncate(filler, 100, jobSections)
		assert.Equal(t, 103, len([]rune(out)))
		assert.True(t, strings.HasSuffix(out, "..."))
	})

	t.Run("sections still too long", func(t *testing.T) {
		t.Parallel()

		text := "Requirements:\n" + filler
		out := Truncate(text, 50, jobSections)
		assert.Equal(t, 53, len([]rune(out)))
		assert.True(t, strings.HasPrefix(out, "Requirements:"))
	})
}

func TestPrepareResumeLimits(t *testing.T) {
	t.Parallel()

	long := "Skills: Go, Python\n\n" + strings.Repeat("Hobbies include hiking and chess. ", 200)
	out, err := PrepareResume(long, Limits{MaxResumeChars: 500})
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out)), 503)
	assert.True(t, strings.HasPrefix(out, "Skills: Go, Python"))

	_, err = PrepareResume("<p>Hi</p>", Limits{})
	assert.Equal(t, KindInsufficientInput, KindOf(err))
}

func TestVerifyEvidence(t *testing.T) {
	t.Parallel()

	source := "Built  services in Go.\nLed a team of 5 engineers."
	assert.True(t, VerifyEvidence(source, "built services in go"))
	assert.True(t, VerifyEvidence(source, `"Led a team of 5 engineers..."`))
	assert.False(t, VerifyEvidence(source, "Led a team of 50 engineers"))
	assert.False(t, VerifyEvidence(source, "Not found"))
	assert.False(t, VerifyEvidence(source, ""))
}
