package models

import "fmt"

type Approach string

const (
	Conservative Approach = "conservative"
	Balanced     Approach = "balanced"
	Aggressive   Approach = "aggressive"
)

func (a Approach) Valid() bool {
	switch a {
	case Conservative, Balanced, Aggressive:
		return true
	default:
		return false
	}
}

type UsagePolicy struct {
	AutoToolUsage     bool       `json:"auto_tool_usage" mapstructure:"auto_tool_usage" yaml:"auto_tool_usage"`
	Approach          Approach   `json:"approach" mapstructure:"approach" yaml:"approach"`
	MaxToolsPerQuery  int        `json:"max_tools_per_query" mapstructure:"max_tools_per_query" yaml:"max_tools_per_query"`
	EnabledCategories []Category `json:"enabled_categories" mapstructure:"enabled_categories" yaml:"enabled_categories"`
}

func DefaultPolicy() UsagePolicy {
	return UsagePolicy{
		AutoToolUsage:     true,
		Approach:          Balanced,
		MaxToolsPerQuery:  3,
		EnabledCategories: AllCategories(),
	}
}

// Allows reports whether tools of category c may be invoked automatically.
func (p UsagePolicy) Allows(c Category) bool {
	if !p.AutoToolUsage {
		return false
	}
	for _, e := range p.EnabledCategories {
		if e == c {
			return true
		}
	}
	return false
}

func (p UsagePolicy) Validate() error {
	if !p.Approach.Valid() {
		return fmt.Errorf("invalid approach %q", p.Approach)
	}
	if p.MaxToolsPerQuery < 0 {
		return fmt.Errorf("max_tools_per_query must not be negative")
	}
	for _, c := range p.EnabledCategories {
		if !c.Valid() {
			return fmt.Errorf("invalid category %q", c)
		}
	}
	return nil
}
