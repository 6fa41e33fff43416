package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insightsPayload mirrors the one-pager insights document the model returns.
type insightsPayload struct {
	Headline            string   `json:"headline"`
	Summary             string   `json:"summary"`
	TalkingPoints       []string `json:"talking_points"`
	RecommendedApproach string   `json:"recommended_approach"`
}

func TestCleanJSONBlock_InsightsResponses(t *testing.T) {
	const insights = `{"headline": "Secure care at scale", "talking_points": ["HIPAA", "Uptime"]}`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare document",
			input: insights,
			want:  insights,
		},
		{
			name:  "json fence",
			input: "```json\n" + insights + "\n```",
			want:  insights,
		},
		{
			name:  "untagged fence with surrounding whitespace",
			input: "\n\n```\n" + insights + "\n```\n",
			want:  insights,
		},
		{
			name:  "prose before and after",
			input: "Here are the insights for Acmehealth:\n\n" + insights + "\n\nLet me know if you need more.",
			want:  insights,
		},
		{
			name:  "fence followed by commentary",
			input: "```json\n" + insights + "\n```\nThese focus on compliance.",
			want:  insights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanJSONBlock(tt.input)
			assert.Equal(t, tt.want, got)

			var p insightsPayload
			require.NoError(t, json.Unmarshal([]byte(got), &p))
			assert.Equal(t, []string{"HIPAA", "Uptime"}, p.TalkingPoints)
		})
	}
}

func TestCleanJSONBlock_TalkingPointsArray(t *testing.T) {
	in := "Based on the website, the strongest angles are:\n" +
		`["Cuts audit prep from weeks to days", "Encrypts records at rest [AES-256]"]` +
		"\nUse the first one to open."

	got := CleanJSONBlock(in)
	var points []string
	require.NoError(t, json.Unmarshal([]byte(got), &points))
	assert.Equal(t, []string{"Cuts audit prep from weeks to days", "Encrypts records at rest [AES-256]"}, points)
}

func TestCleanJSONBlock_BracesInsideStrings(t *testing.T) {
	in := "Sure!\n" + `{"headline": "Ship {faster}", "summary": "Uses \"quoted\" {braces} and a \\ backslash",` +
		` "talking_points": ["Closes } early?", "Opens { late"], "recommended_approach": "Ask about [roadmap]"} trailing }`

	got := CleanJSONBlock(in)
	var p insightsPayload
	require.NoError(t, json.Unmarshal([]byte(got), &p))
	assert.Equal(t, "Ship {faster}", p.Headline)
	assert.Equal(t, `Uses "quoted" {braces} and a \ backslash`, p.Summary)
	assert.Equal(t, []string{"Closes } early?", "Opens { late"}, p.TalkingPoints)
	assert.Equal(t, "Ask about [roadmap]", p.RecommendedApproach)
}

func TestCleanJSONBlock_NestedObject(t *testing.T) {
	in := "```json\n" + `{"talking_points": ["A"], "meta": {"source": "website", "scores": {"fit": 0.8}}}` + "\n```"

	got := CleanJSONBlock(in)
	assert.Equal(t, `{"talking_points": ["A"], "meta": {"source": "website", "scores": {"fit": 0.8}}}`, got)
}

func TestCleanJSONBlock_Unparseable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no document", "I could not find enough information about this company.", "I could not find enough information about this company."},
		{"truncated object", "```json\n{\"talking_points\": [\"HIPAA\"\n```", `{"talking_points": ["HIPAA"`},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opening byte
		closing byte
		want    string
	}{
		{"object", `{"a": 1} rest`, '{', '}', `{"a": 1}`},
		{"array of objects", `[{"a": 1}, {"b": [2]}] rest`, '[', ']', `[{"a": 1}, {"b": [2]}]`},
		{"closing brace in string", `{"a": "}"} x`, '{', '}', `{"a": "}"}`},
		{"escaped quote in string", `{"a": "say \"}\""} x`, '{', '}', `{"a": "say \"}\""}`},
		{"escaped backslash before quote", `{"a": "dir\\"} x`, '{', '}', `{"a": "dir\\"}`},
		{"wrong opening", `["a"]`, '{', '}', ""},
		{"unterminated", `{"a": {"b": 1}`, '{', '}', ""},
		{"empty", "", '{', '}', ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBalanced(tt.input, tt.opening, tt.closing))
		})
	}
}
