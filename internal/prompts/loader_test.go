package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("onepager.json", "insights")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.CompanyName}}")
	assert.Contains(t, prompt, "talking_points")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("onepager.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		MustGet("onepager.json", "insights")
	})
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}} from {{.Company}}, {{.Name}}! {{.Unknown}}", map[string]string{
		"Name":    "Jane",
		"Company": "Acme",
	})
	assert.Equal(t, "Hello Jane from Acme, Jane! {{.Unknown}}", out)
}

func TestRender(t *testing.T) {
	out, err := Render("onepager.json", "fallback-summary", map[string]string{
		"CompanyName":     "Acme",
		"Domain":          "acme.com",
		"Industry":        "Healthcare",
		"ProductName":     "CloudSync Pro",
		"ProductFeatures": "Real-time sync",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme (acme.com) is a prospect in Healthcare. CloudSync Pro addresses their needs with Real-time sync.", out)
}

func TestList(t *testing.T) {
	keys, err := List("onepager.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback-summary", "insights"}, keys)
}
