// Package config loads the workspace configuration from .rfpflow/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/rfpflow/pkg/storage"
)

// Environment overrides.
const (
	EnvProvider      = "RFPFLOW_AI_PROVIDER"
	EnvModel         = "RFPFLOW_AI_MODEL"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvWebhookSecret = "RFPFLOW_WEBHOOK_SECRET"
)

// Duration is a time.Duration written as "90s" in YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// InsightsConfig selects where deliverables go.
type InsightsConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	WebhookURL    string `yaml:"webhook_url,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// RetrievalConfig selects the context retriever. Empty means no retrieval.
type RetrievalConfig struct {
	URL string `yaml:"url,omitempty"`
	Dir string `yaml:"dir,omitempty"`
}

// Config is the workspace configuration.
type Config struct {
	Provider        string                         `yaml:"provider"`
	Model           string                         `yaml:"model,omitempty"`
	StageTimeout    Duration                       `yaml:"stage_timeout"`
	ProviderTimeout Duration                       `yaml:"provider_timeout"`
	Retention       Duration                       `yaml:"retention"`
	MaxTokens       int                            `yaml:"max_tokens,omitempty"`
	MatchLimit      int                            `yaml:"match_limit,omitempty"`
	Temperatures    map[analysis.StageName]float32 `yaml:"temperatures,omitempty"`
	CaseStudies     string                         `yaml:"case_studies,omitempty"`
	Insights        InsightsConfig                 `yaml:"insights"`
	Retrieval       RetrievalConfig                `yaml:"retrieval,omitempty"`
	Notifications   []messaging.AdapterConfig      `yaml:"notifications,omitempty"`

	// APIKey is only taken from the environment.
	APIKey string `yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider:        "mock",
		StageTimeout:    Duration(90 * time.Second),
		ProviderTimeout: Duration(120 * time.Second),
		Retention:       Duration(storage.DefaultRetention),
		MatchLimit:      5,
		Insights:        InsightsConfig{Dir: storage.InsightsDir},
	}
}

// Load reads the workspace configuration under root. A missing file yields
// the defaults. Environment overrides are applied in both cases.
func Load(root string) (*Config, error) {
	return LoadWithEnv(root, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(root string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	repo := storage.NewFilesystemRepository(root)
	data, err := repo.ReadFile(storage.ConfigFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the workspace under root, creating the workspace if needed.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	repo := storage.NewFilesystemRepository(root)
	if err := repo.Initialize(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return repo.WriteFile(storage.ConfigFile, data)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvProvider); v != "" {
		c.Provider = v
	}
	if v := getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := getenv(EnvOpenAIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvWebhookSecret); v != "" {
		c.Insights.WebhookSecret = v
	}
}

var knownStages = map[analysis.StageName]bool{
	analysis.StageRFPAnalyzer:        true,
	analysis.StageChallengeExtractor: true,
	analysis.StageDiscoveryQuestions: true,
	analysis.StageValuePropositions:  true,
	analysis.StageCaseStudyMatcher:   true,
	analysis.StageProposalBuilder:    true,
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.StageTimeout <= 0 {
		return fmt.Errorf("config: stage_timeout must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: provider_timeout must be positive")
	}
	if c.Retention <= 0 {
		return fmt.Errorf("config: retention must be positive")
	}
	if c.MaxTokens < 0 || c.MatchLimit < 0 {
		return fmt.Errorf("config: max_tokens and match_limit must not be negative")
	}
	for stage, temp := range c.Temperatures {
		if !knownStages[stage] {
			return fmt.Errorf("config: unknown stage %q in temperatures", stage)
		}
		if temp < 0 || temp > 2 {
			return fmt.Errorf("config: temperature for %s must be within [0, 2]", stage)
		}
	}
	if c.Insights.WebhookURL != "" && !strings.HasPrefix(c.Insights.WebhookURL, "http://") && !strings.HasPrefix(c.Insights.WebhookURL, "https://") {
		return fmt.Errorf("config: insights.webhook_url must be an http(s) URL")
	}
	names := make(map[string]bool, len(c.Notifications))
	for _, n := range c.Notifications {
		if n.Name == "" || names[n.Name] {
			return fmt.Errorf("config: notification channels need unique names")
		}
		names[n.Name] = true
		if n.Type != messaging.TypeSlack && n.Type != messaging.TypeWebhook {
			return fmt.Errorf("config: notification %q has unknown type %q", n.Name, n.Type)
		}
	}
	return nil
}
