// Package config reads the engine configuration and loads rule and lexicon
// files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/susimind/pkg/susimind/inference/console"
	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/language"
)

// Memory backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Logic engines.
const (
	LogicProlog = "prolog"
	LogicSimple = "simple"
	LogicNone   = "none"
)

// Config is the engine configuration.
type Config struct {
	Attention         int           `yaml:"attention"`
	LongTermAttention int           `yaml:"long_term_attention"`
	IdentityCache     int           `yaml:"identity_cache"`
	MaxAnswers        int           `yaml:"max_answers"`
	MaxIdeas          int           `yaml:"max_ideas"`
	MatchTimeout      time.Duration `yaml:"match_timeout"`
	Language          string        `yaml:"language"`

	Memory  Memory   `yaml:"memory"`
	Rules   []string `yaml:"rules"`
	Watch   bool     `yaml:"watch"`
	Lexicon string   `yaml:"lexicon"`

	Console Console `yaml:"console"`
	Script  Script  `yaml:"script"`
	Logic   Logic   `yaml:"logic"`
}

// Memory selects the conversation log backend.
type Memory struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Console configures outbound fetches.
type Console struct {
	Timeout  time.Duration     `yaml:"timeout"`
	Services []console.Service `yaml:"services"`
	Chat     *Chat             `yaml:"chat,omitempty"`
}

// Chat enables the "chat" console service on an OpenAI-compatible endpoint.
type Chat struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey reads the key from the environment.
func (c *Chat) APIKey() string {
	if c == nil || c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Script configures the script kind.
type Script struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// Logic configures the logic kind.
type Logic struct {
	Engine  string        `yaml:"engine"`
	Timeout time.Duration `yaml:"timeout"`
	// Transitive relations of the simple engine.
	Transitive []string `yaml:"transitive,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Attention:         5,
		LongTermAttention: 1000,
		IdentityCache:     1024,
		MaxAnswers:        1,
		MaxIdeas:          100,
		MatchTimeout:      300 * time.Millisecond,
		Language:          "en",
		Memory:            Memory{Backend: BackendFile, Path: "./data/memory"},
		Console:           Console{Timeout: 10 * time.Second},
		Script:            Script{Enabled: true, Timeout: 2 * time.Second},
		Logic:             Logic{Engine: LogicProlog, Timeout: 2 * time.Second},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects non-positive bounds and unknown backends.
func (c *Config) Validate() error {
	bounds := []struct {
		name  string
		value int
	}{
		{"attention", c.Attention},
		{"long_term_attention", c.LongTermAttention},
		{"identity_cache", c.IdentityCache},
		{"max_answers", c.MaxAnswers},
		{"max_ideas", c.MaxIdeas},
	}
	for _, b := range bounds {
		if b.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", internalerr.ErrInvalidConfig, b.name, b.value)
		}
	}
	if c.MatchTimeout <= 0 {
		return fmt.Errorf("%w: match_timeout must be positive", internalerr.ErrInvalidConfig)
	}
	if language.Parse(c.Language) == language.Unknown {
		return fmt.Errorf("%w: unknown language %q", internalerr.ErrInvalidConfig, c.Language)
	}
	switch c.Memory.Backend {
	case BackendFile, BackendSQLite:
		if c.Memory.Path == "" {
			return fmt.Errorf("%w: memory backend %s needs a path", internalerr.ErrInvalidConfig, c.Memory.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown memory backend %q", internalerr.ErrInvalidConfig, c.Memory.Backend)
	}
	switch c.Logic.Engine {
	case LogicProlog, LogicSimple, LogicNone:
	default:
		return fmt.Errorf("%w: unknown logic engine %q", internalerr.ErrInvalidConfig, c.Logic.Engine)
	}
	for i, s := range c.Console.Services {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("%w: console service %d needs a name and url", internalerr.ErrInvalidConfig, i)
		}
	}
	if c.Console.Chat != nil && c.Console.Chat.BaseURL == "" {
		return fmt.Errorf("%w: console chat needs a base_url", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Lang is the default user language.
func (c *Config) Lang() language.Language { return language.Parse(c.Language) }
