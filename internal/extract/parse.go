package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/community-ingest/internal/model"
)

// Outcome classifies an oracle reply.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeParseError
	OutcomeSchemaError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeSchemaError:
		return "schema_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Response is a parsed oracle reply. Candidates is only populated when
// Outcome is OutcomeOK; Err explains the other outcomes.
type Response struct {
	Outcome    Outcome
	Candidates map[model.Kind][]map[string]any
	Skipped    int
	Err        error
}

// ParseResponse cleans and decodes the oracle's text into raw candidate objects
// keyed by kind. Non-object array elements are skipped and counted.
func ParseResponse(text string) Response {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return Response{Outcome: OutcomeParseError, Err: eris.New("extract: empty oracle response")}
	}

	var top any
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		return Response{Outcome: OutcomeParseError, Err: eris.Wrap(err, "extract: decode oracle response")}
	}

	obj, ok := top.(map[string]any)
	if !ok {
		return Response{Outcome: OutcomeSchemaError, Err: eris.Errorf("extract: top-level value is %T, want object", top)}
	}

	resp := Response{Outcome: OutcomeOK, Candidates: make(map[model.Kind][]map[string]any, len(model.Kinds))}
	found := 0
	for _, kind := range model.Kinds {
		v, present := obj[string(kind)]
		if !present || v == nil {
			continue
		}
		found++
		arr, ok := v.([]any)
		if !ok {
			return Response{Outcome: OutcomeSchemaError, Err: eris.Errorf("extract: %q is %T, want array", kind, v)}
		}
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok {
				resp.Skipped++
				continue
			}
			resp.Candidates[kind] = append(resp.Candidates[kind], m)
		}
	}
	if found == 0 && len(obj) > 0 {
		return Response{Outcome: OutcomeSchemaError, Err: eris.New("extract: response has none of events, places, services")}
	}
	return resp
}

// cleanJSON strips markdown fences, extracts the outermost JSON object, drops
// trailing commas, and closes delimiters left open by a truncated reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	text = strings.TrimSpace(text)
	text = stripTrailingCommas(text)
	return repairTruncatedJSON(text)
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket or brace outside of string literals.
func stripTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString, escape := false, false
	pendingComma := -1

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			pendingComma = -1
			inString = true
		case ',':
			pendingComma = b.Len()
		case '}', ']':
			if pendingComma >= 0 {
				s := b.String()
				b.Reset()
				b.WriteString(s[:pendingComma])
				b.WriteString(s[pendingComma+1:])
			}
			pendingComma = -1
		case ' ', '\t', '\n', '\r':
		default:
			pendingComma = -1
		}
		b.WriteByte(c)
	}
	return b.String()
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated JSON.
func repairTruncatedJSON(text string) string {
	if text == "" {
		return text
	}

	var stack []byte
	inString, escape := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}
	return text
}
