package models

import "fmt"

type Kind string

const (
	GeneralKnowledge Kind = "GENERAL_KNOWLEDGE"
	PersonalData     Kind = "PERSONAL_DATA"
	ContextDependent Kind = "CONTEXT_DEPENDENT"
	CurrentInfo      Kind = "CURRENT_INFO"
	Ambiguous        Kind = "AMBIGUOUS"
)

func AllKinds() []Kind {
	return []Kind{GeneralKnowledge, PersonalData, ContextDependent, CurrentInfo, Ambiguous}
}

func (k Kind) Valid() bool {
	for _, v := range AllKinds() {
		if k == v {
			return true
		}
	}
	return false
}

// ParseKind accepts the canonical names plus lower-case and dashed spellings an LLM tends to emit.
func ParseKind(s string) (Kind, error) {
	k := Kind(normalizeEnum(s))
	if !k.Valid() {
		return "", fmt.Errorf("unknown classification kind %q", s)
	}
	return k, nil
}

// TriState is used for needs_tools, where Unknown means a later tier has to decide.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *TriState) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "null":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value %s", b)
	}
	return nil
}

type Classification struct {
	Kind           Kind     `json:"kind"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	NeedsTools     TriState `json:"needs_tools"`
	SuggestedTools []string `json:"suggested_tools"`
	TierUsed       int      `json:"tier_used"`
}

// WithTools returns a copy that does not share the suggestion slice with c.
func (c Classification) WithTools(tools []string) Classification {
	if len(tools) == 0 {
		c.SuggestedTools = nil
		return c
	}
	c.SuggestedTools = append([]string{}, tools...)
	return c
}

func normalizeEnum(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			out = append(out, ch-'a'+'A')
		case ch == '-' || ch == ' ':
			out = append(out, '_')
		case ch == '"' || ch == '\'' || ch == '.':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
