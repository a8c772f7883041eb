// Package config loads agent settings from defaults, an optional YAML file,
// and the environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingModelKey is returned by Validate when no model API key is set.
var ErrMissingModelKey = errors.New("config: OPENAI_API_KEY is required")

// Config holds everything needed to start one or more agents.
type Config struct {
	Role           string `yaml:"role,omitempty"`
	APIToken       string `yaml:"apiToken,omitempty"`
	TextServiceURL string `yaml:"textServiceUrl,omitempty"`
	ChatServiceURL string `yaml:"chatServiceUrl,omitempty"`
	DocumentID     string `yaml:"documentId,omitempty"`

	MaxEdits   int           `yaml:"maxEdits,omitempty"`
	CycleDelay time.Duration `yaml:"cycleDelay,omitempty"`
	Agents     int           `yaml:"agents,omitempty"`

	MaxRetries         int           `yaml:"maxRetries,omitempty"`
	RetryBaseDelay     time.Duration `yaml:"retryBaseDelay,omitempty"`
	RetryMaxDelay      time.Duration `yaml:"retryMaxDelay,omitempty"`
	ModelRetryMaxDelay time.Duration `yaml:"modelRetryMaxDelay,omitempty"`

	ModelAPIKey      string  `yaml:"modelApiKey,omitempty"`
	ModelBaseURL     string  `yaml:"modelBaseUrl,omitempty"`
	Model            string  `yaml:"model,omitempty"`
	ModelTemperature float64 `yaml:"modelTemperature,omitempty"`
	ModelMaxTokens   int     `yaml:"modelMaxTokens,omitempty"`

	ChatFetchLimit int `yaml:"chatFetchLimit,omitempty"`
	ChatSummaryMax int `yaml:"chatSummaryMax,omitempty"`

	HTTPTimeout   time.Duration `yaml:"httpTimeout,omitempty"`
	ShutdownGrace time.Duration `yaml:"shutdownGrace,omitempty"`

	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`
}

// Default returns the built-in settings. The model key has no default.
func Default() *Config {
	return &Config{
		Role:               "general editor",
		APIToken:           "test-token-123",
		TextServiceURL:     "http://localhost",
		ChatServiceURL:     "http://localhost",
		MaxEdits:           1,
		CycleDelay:         2 * time.Second,
		Agents:             1,
		MaxRetries:         5,
		RetryBaseDelay:     time.Second,
		RetryMaxDelay:      10 * time.Second,
		ModelRetryMaxDelay: 30 * time.Second,
		Model:              "gpt-4o-mini",
		ModelTemperature:   0.7,
		ModelMaxTokens:     5000,
		ChatFetchLimit:     100,
		ChatSummaryMax:     20,
		HTTPTimeout:        30 * time.Second,
		ShutdownGrace:      2 * time.Second,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds a Config from defaults, the YAML file at path (or at
// $AGENT_CONFIG when path is empty), and the environment read via getenv.
// A nil getenv uses os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path == "" {
		path = strings.TrimSpace(getenv("AGENT_CONFIG"))
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values. Durations are written like "2s".
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Unset or blank
// variables are ignored; *_MS variables are milliseconds.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	e := envReader{getenv: getenv}

	e.strVar("AGENT_ROLE", &cfg.Role)
	e.strVar("API_TOKEN", &cfg.APIToken)
	e.strVar("TEXT_SERVICE_URL", &cfg.TextServiceURL)
	e.strVar("CHAT_SERVICE_URL", &cfg.ChatServiceURL)
	e.strVar("DOCUMENT_ID", &cfg.DocumentID)
	e.intVar("MAX_EDITS", &cfg.MaxEdits)
	e.millisVar("CYCLE_DELAY_MS", &cfg.CycleDelay)
	e.intVar("AGENT_COUNT", &cfg.Agents)

	e.intVar("MAX_RETRIES", &cfg.MaxRetries)
	e.millisVar("RETRY_BASE_DELAY_MS", &cfg.RetryBaseDelay)
	e.millisVar("RETRY_MAX_DELAY_MS", &cfg.RetryMaxDelay)
	e.millisVar("MODEL_RETRY_MAX_DELAY_MS", &cfg.ModelRetryMaxDelay)

	e.strVar("OPENAI_API_KEY", &cfg.ModelAPIKey)
	e.strVar("OPENAI_BASE_URL", &cfg.ModelBaseURL)
	e.strVar("OPENAI_MODEL", &cfg.Model)
	e.floatVar("OPENAI_TEMPERATURE", &cfg.ModelTemperature)
	e.intVar("OPENAI_MAX_TOKENS", &cfg.ModelMaxTokens)

	e.intVar("CHAT_FETCH_LIMIT", &cfg.ChatFetchLimit)
	e.intVar("CHAT_SUMMARY_MAX", &cfg.ChatSummaryMax)
	e.millisVar("HTTP_TIMEOUT_MS", &cfg.HTTPTimeout)
	e.millisVar("SHUTDOWN_GRACE_MS", &cfg.ShutdownGrace)

	e.strVar("LOG_LEVEL", &cfg.LogLevel)
	e.strVar("LOG_FORMAT", &cfg.LogFormat)

	return errors.Join(e.errs...)
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ModelAPIKey) == "" {
		errs = append(errs, ErrMissingModelKey)
	}
	if c.MaxEdits < 1 {
		errs = append(errs, fmt.Errorf("config: max edits must be at least 1, got %d", c.MaxEdits))
	}
	if c.Agents < 1 {
		errs = append(errs, fmt.Errorf("config: agent count must be at least 1, got %d", c.Agents))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("config: max retries must be at least 1, got %d", c.MaxRetries))
	}
	for name, d := range map[string]time.Duration{
		"cycle delay":           c.CycleDelay,
		"retry base delay":      c.RetryBaseDelay,
		"retry max delay":       c.RetryMaxDelay,
		"model retry max delay": c.ModelRetryMaxDelay,
		"http timeout":          c.HTTPTimeout,
		"shutdown grace":        c.ShutdownGrace,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("config: %s must not be negative, got %s", name, d))
		}
	}
	if c.ChatFetchLimit < 0 || c.ChatSummaryMax < 0 || c.ModelMaxTokens < 0 {
		errs = append(errs, errors.New("config: chat limits and model max tokens must not be negative"))
	}
	for name, raw := range map[string]string{
		"text service url": c.TextServiceURL,
		"chat service url": c.ChatServiceURL,
	} {
		if err := checkURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
		}
	}
	if c.ModelBaseURL != "" {
		if err := checkURL(c.ModelBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("config: model base url: %w", err))
		}
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

// envReader collects parse failures so every bad variable is reported at once.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(key))
	return v, v != ""
}

func (e *envReader) strVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) floatVar(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = f
}

func (e *envReader) millisVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = time.Duration(ms) * time.Millisecond
}
