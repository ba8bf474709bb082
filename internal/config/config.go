package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models taskmind.yml. Model routing tables are loaded once at process
// start and passed by injection; nothing in here is mutated after Load.
type Config struct {
	AI struct {
		PrimaryModel string `yaml:"primary_model"`
		// Fallback maps a model id to the next model to try on failure.
		// A key present with an empty value means "no fallback, ever":
		// the user explicitly chose this model and it must not be
		// silently substituted.
		Fallback map[string]string `yaml:"fallback"`
		// Priority is the positional fallback source consulted only for
		// models with no explicit Fallback entry.
		Priority []string `yaml:"priority"`
		// Whitelist holds substring patterns matched (case- and
		// separator-insensitively) against remote model names and ids.
		Whitelist []string `yaml:"whitelist"`
		// LiveModels are ids that must be routed over the streaming
		// transport even when their id carries no "live" marker.
		LiveModels     []string `yaml:"live_models"`
		RequestTimeout int      `yaml:"request_timeout_seconds"`
		Temperature    float64  `yaml:"temperature"`
		MaxTokens      int      `yaml:"max_tokens"`
	} `yaml:"ai"`
	Notify struct {
		// EmailRelayURL is POSTed email payloads; empty disables delivery
		// and emails are logged only.
		EmailRelayURL  string `yaml:"email_relay_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"notify"`
	Server struct {
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// Load reads and validates config from the workspace directory.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run 'tm config init' first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.AI.PrimaryModel == "" {
		return fmt.Errorf("config.ai.primary_model is required")
	}
	for model, next := range c.AI.Fallback {
		if model == "" {
			return fmt.Errorf("config.ai.fallback contains empty model id")
		}
		if next == model {
			return fmt.Errorf("config.ai.fallback: %s falls back to itself", model)
		}
	}
	// Every explicit chain must terminate within a bounded number of hops.
	for model := range c.AI.Fallback {
		cur := model
		for hop := 0; ; hop++ {
			if hop > 8 {
				return fmt.Errorf("config.ai.fallback: chain from %s exceeds 8 hops", model)
			}
			next, ok := c.AI.Fallback[cur]
			if !ok || next == "" || next == c.AI.PrimaryModel {
				break
			}
			cur = next
		}
	}
	if len(c.AI.Whitelist) == 0 {
		return fmt.Errorf("config.ai.whitelist is required")
	}
	for _, p := range c.AI.Whitelist {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("config.ai.whitelist contains empty pattern")
		}
	}
	if c.AI.RequestTimeout < 0 {
		return fmt.Errorf("config.ai.request_timeout_seconds must be >= 0")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskmind.yml")
}

// Default returns the built-in model tables.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `ai:
  primary_model: gemini-2.5-flash

  # Next model to try when a call fails with a quota or technical error.
  # An empty value pins the model: it is never substituted.
  fallback:
    gemini-2.5-pro: gemini-2.5-flash
    gemini-2.5-flash: gemini-2.5-flash-lite
    gemini-2.5-flash-lite: gemini-2.0-flash
    gemini-2.0-flash: gemini-2.0-flash-lite
    gemini-2.0-flash-lite: ""
    gemini-embedding-1.0: ""

  # Positional fallback order for models without an explicit entry above.
  priority:
    - gemini-2.5-pro
    - gemini-2.5-flash
    - gemini-2.5-flash-lite
    - gemini-2.0-flash
    - gemini-2.0-flash-lite

  # Only manually verified models are offered; matching is substring-based,
  # case- and separator-insensitive, against remote names and ids.
  whitelist:
    - gemini 2.5 pro
    - gemini 2.5 flash
    - gemini 2.0 flash
    - gemini live

  live_models:
    - gemini-2.0-flash-live-001

  request_timeout_seconds: 60
  temperature: 0.7
  max_tokens: 2048

notify:
  email_relay_url: ""
  timeout_seconds: 5

server:
  base_path: /v0
  jwt_secret: ""
`
