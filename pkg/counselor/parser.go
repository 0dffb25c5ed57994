package counselor

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxTitleLength is counted in runes.
	MaxTitleLength = 60

	DefaultTitle = "Career Discussion"
)

// Extractor tries to recover an Answer from raw model text. ok is false on no match.
type Extractor func(text string) (answer *Answer, ok bool)

// Extractors is the order Parse tries strategies in. The last one matches any
// non-blank text that is not a bare JSON object.
var Extractors = []Extractor{
	strictJSON,
	fencedJSON,
	embeddedObject,
	partialObject,
	firstLine,
}

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	headingPattern = regexp.MustCompile(`^\s*#+\s*`)
	sentenceEnd    = regexp.MustCompile(`[.!?](\s|$)`)
)

// Parse normalises model output into an Answer. ok is false when text is blank
// or is a JSON object with no usable response.
func Parse(text string) (*Answer, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	for _, extract := range Extractors {
		if answer, ok := extract(text); ok {
			return answer, true
		}
	}
	return nil, false
}

type rawAnswer struct {
	Title    *string `json:"title"`
	Response *string `json:"response"`
}

func decode(candidate string) (*Answer, bool) {
	var raw rawAnswer
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, false
	}
	if raw.Title == nil || raw.Response == nil {
		return nil, false
	}
	response := strings.TrimSpace(*raw.Response)
	if response == "" {
		return nil, false
	}
	return &Answer{Title: NormalizeTitle(*raw.Title), Response: response}, true
}

func strictJSON(text string) (*Answer, bool) {
	return decode(strings.TrimSpace(text))
}

func fencedJSON(text string) (*Answer, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if answer, ok := decode(m[1]); ok {
			return answer, true
		}
	}
	return nil, false
}

// embeddedObject handles JSON wrapped in commentary, using the outermost braces.
func embeddedObject(text string) (*Answer, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decode(text[start : end+1])
}

type objectCandidate struct {
	object string
	rest   string
}

// objectCandidates lists fenced blocks and the outermost braces, each with the
// text around it.
func objectCandidates(text string) []objectCandidate {
	var out []objectCandidate
	for _, loc := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, objectCandidate{
			object: text[loc[2]:loc[3]],
			rest:   text[:loc[0]] + "\n" + text[loc[1]:],
		})
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		out = append(out, objectCandidate{
			object: text[start : end+1],
			rest:   text[:start] + "\n" + text[end+1:],
		})
	}
	return out
}

// partialObject accepts an object carrying only one usable string field. A
// missing title becomes DefaultTitle; a missing response is taken from the text
// around the object.
func partialObject(text string) (*Answer, bool) {
	for _, c := range objectCandidates(text) {
		var fields map[string]any
		if err := json.Unmarshal([]byte(c.object), &fields); err != nil {
			continue
		}
		title, hasTitle := fields["title"].(string)
		response, hasResponse := fields["response"].(string)
		if !hasTitle && !hasResponse {
			continue
		}

		response = strings.TrimSpace(response)
		if response == "" {
			response = strings.TrimSpace(c.rest)
		}
		if response == "" {
			continue
		}
		return &Answer{Title: NormalizeTitle(title), Response: response}, true
	}
	return nil, false
}

func firstLine(text string) (*Answer, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	// An object that reached this point has nothing to show the user.
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return nil, false
	}

	head, rest, found := strings.Cut(trimmed, "\n")
	if !found {
		// Single line: split off the first sentence instead
		if loc := sentenceEnd.FindStringIndex(trimmed); loc != nil && loc[1] < len(trimmed) {
			head, rest = trimmed[:loc[0]+1], trimmed[loc[1]:]
		}
	}

	response := strings.TrimSpace(rest)
	if response == "" {
		response = trimmed
	}
	return &Answer{Title: NormalizeTitle(head), Response: response}, true
}

// NormalizeTitle collapses the title to one plain line of at most MaxTitleLength runes.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(headingPattern.ReplaceAllString(title, "")), " ")
	title = strings.Trim(title, "*_`\"'")
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return Truncate(title, MaxTitleLength, "")
}

// Truncate cuts s to n runes and appends suffix when it had to cut.
func Truncate(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + suffix
}
