package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that may appear at the start of LLM responses.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// listMarkerPattern matches bullet or numbered-list prefixes.
var listMarkerPattern = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// codeFencePattern captures the body of the first ``` fenced block.
var codeFencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*\\n?(.*?)```")

// StripThinking removes a leading <think>...</think> block.
func StripThinking(response string) string {
	return thinkTagPattern.ReplaceAllString(response, "")
}

// ExtractJSON extracts JSON content from an LLM response that may contain
// <think> tags, markdown code blocks, or other formatting.
func ExtractJSON(response string) (string, error) {
	cleaned := StripThinking(response)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	// Try whichever comes first
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok && json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}
	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok && json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalancedJSON finds the first balanced JSON structure starting with openChar.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}

// statementEnvelope is the object form some models wrap the list in.
type statementEnvelope struct {
	SQL        []string `json:"sql"`
	Queries    []string `json:"queries"`
	Statements []string `json:"statements"`
}

// ParseStatements reads the SQL list from a model reply. A JSON array of
// strings (optionally fenced, or wrapped in an object under "sql",
// "queries" or "statements") is preferred; otherwise the reply is treated as
// SQL text and split on semicolons outside string literals.
func ParseStatements(response string) ([]string, error) {
	if list, err := ParseJSONResponse[[]string](response); err == nil {
		return cleanStatements(list), nil
	}
	if env, err := ParseJSONResponse[statementEnvelope](response); err == nil {
		for _, list := range [][]string{env.SQL, env.Queries, env.Statements} {
			if len(list) > 0 {
				return cleanStatements(list), nil
			}
		}
	}

	text := StripThinking(response)
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	statements := cleanStatements(SplitStatements(text))
	if len(statements) == 0 {
		return nil, NewError(ErrorTypeResponse, "no SQL statements in reply", false, nil)
	}
	return statements, nil
}

// ParseStringList reads a JSON array of strings, falling back to one entry
// per non-empty line with list markers removed.
func ParseStringList(response string) []string {
	if list, err := ParseJSONResponse[[]string](response); err == nil {
		return cleanStatements(list)
	}
	var out []string
	for _, line := range strings.Split(StripThinking(response), "\n") {
		line = listMarkerPattern.ReplaceAllString(strings.TrimSpace(line), "")
		if line != "" && !strings.HasPrefix(line, "```") {
			out = append(out, line)
		}
	}
	return out
}

// SplitStatements splits SQL text on semicolons that are not inside quotes
// or comments. Separators are dropped.
func SplitStatements(text string) []string {
	var out []string
	var b strings.Builder
	var quote byte
	lineComment, blockComment := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		var next byte
		if i+1 < len(text) {
			next = text[i+1]
		}

		switch {
		case lineComment:
			if c == '\n' {
				lineComment = false
			}
		case blockComment:
			if c == '*' && next == '/' {
				blockComment = false
				b.WriteByte(c)
				i++
				c = next
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && next == '-':
			lineComment = true
		case c == '/' && next == '*':
			blockComment = true
		case c == ';':
			out = append(out, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(c)
	}
	out = append(out, b.String())
	return out
}

// cleanStatements trims entries and drops empty or comment-only ones.
func cleanStatements(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" || isCommentOnly(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func isCommentOnly(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
