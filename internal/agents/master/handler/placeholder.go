package handler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go-intentflow/pkg/data"
	"go-intentflow/pkg/models"
)

// placeholder matches $stepN.field (1-based) and $prev.field.
var placeholder = regexp.MustCompile(`\$(?:step(\d+)|prev)\.([A-Za-z_][A-Za-z0-9_]*)`)

var fieldPatterns = map[string]*regexp.Regexp{
	"message_id": regexp.MustCompile(`(?i)\b(?:message[_ ]?id|msg[_ ]?id)\s*[:=]\s*"?([A-Za-z0-9_\-]+)`),
	"file_id":    regexp.MustCompile(`(?i)\b(?:file[_ ]?id|document[_ ]?id|doc[_ ]?id)\s*[:=]\s*"?([A-Za-z0-9_\-]+)`),
	"event_id":   regexp.MustCompile(`(?i)\b(?:event[_ ]?id)\s*[:=]\s*"?([A-Za-z0-9_\-@.]+)`),
}

// resolveParams substitutes placeholders in params with values taken from the results of
// earlier steps. current is the 0-based index of the step being resolved.
func resolveParams(params map[string]any, results []models.ToolResult, current int) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		rv, err := resolveValue(v, results, current)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

func resolveValue(v any, results []models.ToolResult, current int) (any, error) {
	switch t := v.(type) {
	case string:
		return resolveString(t, results, current)
	case map[string]any:
		return resolveParams(t, results, current)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := resolveValue(e, results, current)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveString(s string, results []models.ToolResult, current int) (any, error) {
	matches := placeholder.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// a value that is exactly one placeholder keeps the referenced value's type
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		return lookupPlaceholder(s, matches[0], results, current)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		v, err := lookupPlaceholder(s, m, results, current)
		if err != nil {
			return nil, err
		}
		fmt.Fprint(&b, v)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func lookupPlaceholder(s string, m []int, results []models.ToolResult, current int) (any, error) {
	ref := current - 1
	if m[2] >= 0 {
		n, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil {
			return nil, fmt.Errorf("bad step reference %q", s[m[0]:m[1]])
		}
		ref = n - 1
	}
	field := s[m[4]:m[5]]
	if ref < 0 || ref >= current || ref >= len(results) {
		return nil, fmt.Errorf("%s refers to a step that has not run", s[m[0]:m[1]])
	}
	r := results[ref]
	if !r.Success {
		return nil, fmt.Errorf("%s refers to failed step %d", s[m[0]:m[1]], ref+1)
	}
	v, ok := extractField(r, field)
	if !ok {
		return nil, fmt.Errorf("step %d has no %s", ref+1, field)
	}
	return v, nil
}

// extractField reads field from the structured data first, then from the payload text.
func extractField(r models.ToolResult, field string) (any, bool) {
	if v, ok := r.Data[field]; ok && v != nil {
		return v, true
	}
	// list results: take the field from the first item
	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		items, ok := r.Data[k].([]any)
		if !ok || len(items) == 0 {
			continue
		}
		if first, ok := items[0].(map[string]any); ok {
			if fv, ok := first[field]; ok && fv != nil {
				return fv, true
			}
		}
	}

	text := r.Payload()
	if field == "url" || field == "link" {
		if urls := data.URLs(text); len(urls) > 0 {
			return urls[0], true
		}
		return nil, false
	}
	re, ok := fieldPatterns[field]
	if !ok {
		re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(field) + `\s*[:=]\s*"?([^",\n]+)`)
	}
	if sm := re.FindStringSubmatch(text); sm != nil {
		return strings.TrimSpace(sm[1]), true
	}
	return nil, false
}
