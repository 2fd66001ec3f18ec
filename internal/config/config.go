// Package config loads the service configuration from a YAML file and INTENTFLOW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	evaluator "go-intentflow/internal/agents/evaluator/handler"
	master "go-intentflow/internal/agents/master/handler"
	"go-intentflow/internal/classify"
	"go-intentflow/pkg/models"
)

const envPrefix = "INTENTFLOW"

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Server       ServerConfig     `mapstructure:"server"`
	Log          LogConfig        `mapstructure:"log"`
	LLM          LLMConfig        `mapstructure:"llm"`
	Classifier   ClassifierConfig `mapstructure:"classifier"`
	Orchestrator master.Config    `mapstructure:"orchestrator"`
	Evaluator    evaluator.Config `mapstructure:"evaluator"`
	Analytics    AnalyticsConfig  `mapstructure:"analytics"`
	Policy       PolicyConfig     `mapstructure:"policy"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// RequestTimeout bounds how long /chat waits for the master actor.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LLMConfig is exported to OPENAI_API_KEY and OPENAI_MODEL when set.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ClassifierConfig struct {
	Thresholds      classify.Thresholds `mapstructure:",squash"`
	HistoryWindow   int                 `mapstructure:"history_window"`
	SemanticEnabled bool                `mapstructure:"semantic_enabled"`
	SemanticTimeout time.Duration       `mapstructure:"semantic_timeout"`
}

type AnalyticsConfig struct {
	Store        string        `mapstructure:"store"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	Retention    time.Duration `mapstructure:"retention"`
	TrimSchedule string        `mapstructure:"trim_schedule"`
}

type PolicyConfig struct {
	Default models.UsagePolicy            `mapstructure:"default"`
	Users   map[string]models.UsagePolicy `mapstructure:"users"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   2 * time.Minute,
			RequestTimeout: 90 * time.Second,
		},
		Log: LogConfig{Level: "info", Pretty: true},
		LLM: LLMConfig{},
		Classifier: ClassifierConfig{
			Thresholds:      classify.DefaultThresholds(),
			HistoryWindow:   5,
			SemanticEnabled: true,
			SemanticTimeout: 15 * time.Second,
		},
		Orchestrator: master.DefaultConfig(),
		Evaluator:    evaluator.DefaultConfig(),
		Analytics: AnalyticsConfig{
			Store:        StoreMemory,
			SQLitePath:   "intentflow.db",
			Retention:    720 * time.Hour,
			TrimSchedule: "@hourly",
		},
		Policy: PolicyConfig{Default: models.DefaultPolicy()},
	}
}

// Load reads path (optional) over the defaults and applies environment overrides, e.g.
// INTENTFLOW_SERVER_ADDR or INTENTFLOW_CLASSIFIER_TIER1_ACCEPT.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range Default().settings() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Orchestrator.HistoryWindow = cfg.Classifier.HistoryWindow
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	t := c.Classifier.Thresholds
	for name, v := range map[string]float64{
		"classifier.tier1_accept":        t.Tier1Accept,
		"classifier.tier2_invoke_below":  t.Tier2InvokeBelow,
		"classifier.tier2_accept":        t.Tier2Accept,
		"evaluator.heuristic_confidence": c.Evaluator.HeuristicConfidence,
	} {
		check(v >= 0 && v <= 1, "%s must be within [0, 1], got %v", name, v)
	}
	check(c.Classifier.HistoryWindow > 0, "classifier.history_window must be positive")
	check(!c.Classifier.SemanticEnabled || c.Classifier.SemanticTimeout > 0, "classifier.semantic_timeout must be positive")

	o := c.Orchestrator
	check(o.ClassifyTimeout > 0 && o.ToolTimeout > 0 && o.SynthesisTimeout > 0, "orchestrator timeouts must be positive")
	check(o.MaxParallelTools > 0, "orchestrator.max_parallel_tools must be positive")
	check(c.Evaluator.CacheSize > 0, "evaluator.cache_size must be positive")
	check(c.Server.RequestTimeout > 0, "server.request_timeout must be positive")

	switch c.Analytics.Store {
	case StoreMemory:
	case StoreSQLite:
		check(c.Analytics.SQLitePath != "", "analytics.sqlite_path is required for the sqlite store")
	default:
		check(false, "analytics.store must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Analytics.Store)
	}
	check(c.Analytics.Retention > 0, "analytics.retention must be positive")
	if _, err := cron.ParseStandard(c.Analytics.TrimSchedule); err != nil {
		check(false, "analytics.trim_schedule: %v", err)
	}

	if err := c.Policy.Default.Validate(); err != nil {
		check(false, "policy.default: %v", err)
	}
	for user, p := range c.Policy.Users {
		if err := p.Validate(); err != nil {
			check(false, "policy.users.%s: %v", user, err)
		}
	}
	return errors.Join(errs...)
}

// Write stores c as YAML at path.
func Write(path string, c Config) error {
	b, err := yaml.Marshal(c.settings())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Export sets the environment variables the OpenAI client reads.
func (c LLMConfig) Export() error {
	if c.APIKey != "" {
		if err := os.Setenv("OPENAI_API_KEY", c.APIKey); err != nil {
			return err
		}
	}
	if c.Model != "" {
		return os.Setenv("OPENAI_MODEL", c.Model)
	}
	return nil
}

// settings renders c as the nested key/value tree viper and the YAML file use. Durations
// are written as strings such as "15s".
func (c Config) settings() map[string]any {
	users := map[string]any{}
	for id, p := range c.Policy.Users {
		users[id] = policySettings(p)
	}
	return map[string]any{
		"server": map[string]any{
			"addr":            c.Server.Addr,
			"read_timeout":    c.Server.ReadTimeout.String(),
			"write_timeout":   c.Server.WriteTimeout.String(),
			"request_timeout": c.Server.RequestTimeout.String(),
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"pretty": c.Log.Pretty,
		},
		"llm": map[string]any{
			"api_key": c.LLM.APIKey,
			"model":   c.LLM.Model,
		},
		"classifier": map[string]any{
			"tier1_accept":       c.Classifier.Thresholds.Tier1Accept,
			"tier2_invoke_below": c.Classifier.Thresholds.Tier2InvokeBelow,
			"tier2_accept":       c.Classifier.Thresholds.Tier2Accept,
			"history_window":     c.Classifier.HistoryWindow,
			"semantic_enabled":   c.Classifier.SemanticEnabled,
			"semantic_timeout":   c.Classifier.SemanticTimeout.String(),
		},
		"orchestrator": map[string]any{
			"classify_timeout":   c.Orchestrator.ClassifyTimeout.String(),
			"tool_timeout":       c.Orchestrator.ToolTimeout.String(),
			"synthesis_timeout":  c.Orchestrator.SynthesisTimeout.String(),
			"max_parallel_tools": c.Orchestrator.MaxParallelTools,
			"replan":             c.Orchestrator.Replan,
		},
		"evaluator": map[string]any{
			"cache_size":           c.Evaluator.CacheSize,
			"cache_ttl":            c.Evaluator.CacheTTL.String(),
			"heuristic_confidence": c.Evaluator.HeuristicConfidence,
			"timeout":              c.Evaluator.Timeout.String(),
		},
		"analytics": map[string]any{
			"store":         c.Analytics.Store,
			"sqlite_path":   c.Analytics.SQLitePath,
			"retention":     c.Analytics.Retention.String(),
			"trim_schedule": c.Analytics.TrimSchedule,
		},
		"policy": map[string]any{
			"default": policySettings(c.Policy.Default),
			"users":   users,
		},
	}
}

func policySettings(p models.UsagePolicy) map[string]any {
	categories := make([]string, 0, len(p.EnabledCategories))
	for _, c := range p.EnabledCategories {
		categories = append(categories, string(c))
	}
	return map[string]any{
		"auto_tool_usage":     p.AutoToolUsage,
		"approach":            string(p.Approach),
		"max_tools_per_query": p.MaxToolsPerQuery,
		"enabled_categories":  categories,
	}
}
