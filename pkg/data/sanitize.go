package data

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoJSON = errors.New("no json object in answer")

	urlPattern = regexp.MustCompile(`https?://[^\s<>"\]\}]+`)
)

// SanitizeAnswer extracts the first balanced JSON object from an LLM answer, skipping any
// prose or code fences around it. Braces inside string literals are ignored.
func SanitizeAnswer(ans string) (string, error) {
	start := strings.IndexByte(ans, '{')
	for start >= 0 {
		if end := matchBrace(ans, start); end > start {
			return ans[start : end+1], nil
		}
		next := strings.IndexByte(ans[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// URLs returns every http(s) URL in text in order of appearance, without duplicates.
// Trailing sentence punctuation and unbalanced closing parentheses are not part of the URL.
func URLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = trimURL(m)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func trimURL(u string) string {
	for {
		trimmed := strings.TrimRight(u, ".,;:!?'")
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed == u {
			return u
		}
		u = trimmed
	}
}
