// Package config holds profilewatch configuration: server settings, browser
// lifecycle, state backend, timings, limits and the selector table. It is
// loaded from YAML; anything left unset falls back to built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level profilewatch configuration.
type Config struct {
	Server    ServerConfig  `yaml:"server"`
	Browser   BrowserConfig `yaml:"browser"`
	Broker    BrokerConfig  `yaml:"broker"`
	State     StateConfig   `yaml:"state"`
	Results   ResultsConfig `yaml:"results"`
	Timings   Timings       `yaml:"timings"`
	Limits    Limits        `yaml:"limits"`
	Selectors Selectors     `yaml:"selectors"`
}

// ServerConfig controls the HTTP/MCP surface.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	TokenHash string `yaml:"token_hash"` // bcrypt hash; empty disables auth
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Bin              string   `yaml:"bin"`
	UserDataDir      string   `yaml:"user_data_dir"`
	Headless         *bool    `yaml:"headless"`
	ResourceBlocking []string `yaml:"resource_blocking"` // image | font | media | stylesheet
}

// IsHeadless reports the effective headless setting (default true).
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// BrokerConfig controls request validation and deadlines.
type BrokerConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Host          string        `yaml:"host"`
	ProfilePrefix string        `yaml:"profile_prefix"`
}

// StateConfig selects the PhaseState backend.
type StateConfig struct {
	Backend   string        `yaml:"backend"` // session | memory | sqlite | redis
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// ResultsConfig controls the scrape history database.
type ResultsConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// Timings are the delays and budgets used by the readiness and interaction
// layers.
type Timings struct {
	Poll            time.Duration `yaml:"poll"`
	ObserverTimeout time.Duration `yaml:"observer_timeout"`
	SectionsTimeout time.Duration `yaml:"sections_timeout"`
	PostMainGrace   time.Duration `yaml:"post_main_grace"`
	ScrollSteps     int           `yaml:"scroll_steps"`
	ScrollStepPX    int           `yaml:"scroll_step_px"`
	ScrollDelay     time.Duration `yaml:"scroll_delay"`
	ShowMoreDelay   time.Duration `yaml:"show_more_delay"`
	ExpandRounds    int           `yaml:"expand_rounds"`
	ExpandDelay     time.Duration `yaml:"expand_delay"`
	ShowAllSettle   time.Duration `yaml:"show_all_settle"`
	ShowAllWait     time.Duration `yaml:"show_all_wait"`
	SPASettle       time.Duration `yaml:"spa_settle"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
}

// Limits cap how many items each section yields.
type Limits struct {
	MaxExperiences int `yaml:"max_experiences"`
	MaxEducation   int `yaml:"max_education"`
	MaxSkills      int `yaml:"max_skills"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Selectors: DefaultSelectors()}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file. Fields absent from the file keep
// their defaults, including individual selectors.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Selectors: DefaultSelectors()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides server and state settings from the environment.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Server.Listen = ":" + port
		}
	}
	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		c.Server.LogLevel = lvl
	}
	if h := getenv("PROFILEWATCH_TOKEN_HASH"); h != "" {
		c.Server.TokenHash = h
	}
	if addr := getenv("REDIS_ADDR"); addr != "" {
		c.State.RedisAddr = addr
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Broker.Timeout <= 0 {
		c.Broker.Timeout = 60 * time.Second
	}
	if c.Broker.Host == "" {
		c.Broker.Host = "www.linkedin.com"
	}
	if c.Broker.ProfilePrefix == "" {
		c.Broker.ProfilePrefix = "/in/"
	}
	if c.State.Backend == "" {
		c.State.Backend = "session"
	}
	if c.State.Path == "" {
		c.State.Path = "profilewatch-state.db"
	}
	if c.State.RedisAddr == "" {
		c.State.RedisAddr = "localhost:6379"
	}
	if c.State.TTL <= 0 {
		c.State.TTL = 10 * time.Minute
	}
	c.Timings.applyDefaults()
	c.Limits.applyDefaults()
}

func (t *Timings) applyDefaults() {
	if t.Poll <= 0 {
		t.Poll = 250 * time.Millisecond
	}
	if t.ObserverTimeout <= 0 {
		t.ObserverTimeout = 6 * time.Second
	}
	if t.SectionsTimeout <= 0 {
		t.SectionsTimeout = 12 * time.Second
	}
	if t.PostMainGrace <= 0 {
		t.PostMainGrace = 400 * time.Millisecond
	}
	if t.ScrollSteps <= 0 {
		t.ScrollSteps = 10
	}
	if t.ScrollStepPX <= 0 {
		t.ScrollStepPX = 800
	}
	if t.ScrollDelay <= 0 {
		t.ScrollDelay = 100 * time.Millisecond
	}
	if t.ShowMoreDelay <= 0 {
		t.ShowMoreDelay = time.Second
	}
	if t.ExpandRounds <= 0 {
		t.ExpandRounds = 3
	}
	if t.ExpandDelay <= 0 {
		t.ExpandDelay = 500 * time.Millisecond
	}
	if t.ShowAllSettle <= 0 {
		t.ShowAllSettle = 600 * time.Millisecond
	}
	if t.ShowAllWait <= 0 {
		t.ShowAllWait = 8 * time.Second
	}
	if t.SPASettle <= 0 {
		t.SPASettle = 800 * time.Millisecond
	}
	if t.FetchTimeout <= 0 {
		t.FetchTimeout = 15 * time.Second
	}
}

func (l *Limits) applyDefaults() {
	if l.MaxExperiences <= 0 {
		l.MaxExperiences = 5
	}
	if l.MaxEducation <= 0 {
		l.MaxEducation = 4
	}
	if l.MaxSkills <= 0 {
		l.MaxSkills = 15
	}
}
