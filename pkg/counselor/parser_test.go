package counselor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantTitle    string
		wantResponse string
	}{
		{
			name:         "strict json",
			text:         `{"title": "Switching to Data Science", "response": "Start with **statistics**."}`,
			wantTitle:    "Switching to Data Science",
			wantResponse: "Start with **statistics**.",
		},
		{
			name:         "fenced json block",
			text:         "Here you go:\n```json\n{\"title\": \"Resume Tips\", \"response\": \"Keep it to one page.\"}\n```",
			wantTitle:    "Resume Tips",
			wantResponse: "Keep it to one page.",
		},
		{
			name:         "json wrapped in commentary",
			text:         `Sure! {"title": "Negotiating Salary", "response": "Research market rates."} Hope it helps.`,
			wantTitle:    "Negotiating Salary",
			wantResponse: "Research market rates.",
		},
		{
			name:         "missing title gets default",
			text:         `{"response": "Focus on **networking** and update your CV."}`,
			wantTitle:    DefaultTitle,
			wantResponse: "Focus on **networking** and update your CV.",
		},
		{
			name:         "pretty printed object without title",
			text:         "{\n  \"response\": \"Focus on networking.\"\n}",
			wantTitle:    DefaultTitle,
			wantResponse: "Focus on networking.",
		},
		{
			name:         "numeric title is ignored",
			text:         `{"title": 5, "response": "Tailor your resume."}`,
			wantTitle:    DefaultTitle,
			wantResponse: "Tailor your resume.",
		},
		{
			name:         "missing response taken from surrounding text",
			text:         "{\"title\": \"Only a title\"}\nand some more text",
			wantTitle:    "Only a title",
			wantResponse: "and some more text",
		},
		{
			name:         "fenced object without title",
			text:         "Advice below\n```json\n{\"response\": \"Ask for referrals.\"}\n```",
			wantTitle:    DefaultTitle,
			wantResponse: "Ask for referrals.",
		},
		{
			name:         "markdown heading first line",
			text:         "# Interview Preparation\n\nPractice the STAR method.\nResearch the company.",
			wantTitle:    "Interview Preparation",
			wantResponse: "Practice the STAR method.\nResearch the company.",
		},
		{
			name:         "single line splits first sentence",
			text:         "Networking matters. Reach out to alumni every week.",
			wantTitle:    "Networking matters.",
			wantResponse: "Reach out to alumni every week.",
		},
		{
			name:         "single sentence keeps whole text as response",
			text:         "Keep learning",
			wantTitle:    "Keep learning",
			wantResponse: "Keep learning",
		},
		{
			name:         "empty title gets default",
			text:         `{"title": "  ", "response": "Advice."}`,
			wantTitle:    DefaultTitle,
			wantResponse: "Advice.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, ok := Parse(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.wantTitle, answer.Title)
			assert.Equal(t, tt.wantResponse, answer.Response)
		})
	}
}

func TestParse_BlankIsUnrecoverable(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		answer, ok := Parse(text)
		assert.False(t, ok)
		assert.Nil(t, answer)
	}
}

func TestParse_ObjectWithoutResponseIsUnrecoverable(t *testing.T) {
	for _, text := range []string{
		`{"title": "Only a title"}`,
		"{\n  \"title\": \"Only a title\"\n}",
		`{"title": "Empty", "response": "   "}`,
		`{"answer": "wrong key"}`,
	} {
		answer, ok := Parse(text)
		assert.False(t, ok, text)
		assert.Nil(t, answer)
	}
}

func TestParse_MalformedJSONStillWellFormed(t *testing.T) {
	answer, ok := Parse(`{"title": "Broken", "response": "missing brace"`)
	require.True(t, ok)
	assert.NotEmpty(t, answer.Title)
	assert.NotEmpty(t, answer.Response)
}

func TestNormalizeTitle(t *testing.T) {
	long := strings.Repeat("é", 80)
	title := NormalizeTitle(long)
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(title))

	assert.Equal(t, "Career Change", NormalizeTitle("## **Career Change**"))
	assert.Equal(t, "Two words", NormalizeTitle("Two\n  words"))
	assert.Equal(t, DefaultTitle, NormalizeTitle("###"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 40, "..."))
	assert.Equal(t, "abc...", Truncate("abcdef", 3, "..."))
}
