// Package config loads cartography.yaml and applies environment overrides.
//
// Precedence, lowest first: built-in defaults, the YAML file, CARTOGRAPHY_*
// variables, then command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "cartography.yaml"

// Source providers.
const (
	ProviderAuto     = "auto"
	ProviderMock     = "mock"
	ProviderScenario = "scenario"
	ProviderProcess  = "process"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveFile   = "file"
	ArchiveRedis  = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Run     RunConfig     `yaml:"run"`
	Server  ServerConfig  `yaml:"server"`
	Archive ArchiveConfig `yaml:"archive"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig selects and tunes the step source.
type SourceConfig struct {
	Provider string `yaml:"provider"`

	// LLM providers.
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Breaker     bool    `yaml:"breaker"`
	Fallback    bool    `yaml:"fallback"` // fall back to the mock source on failure

	// Scenario provider.
	Scenarios string `yaml:"scenarios"`
	Scenario  string `yaml:"scenario"`

	// Process provider.
	Agents string `yaml:"agents"`
	Agent  string `yaml:"agent"`
}

// RunConfig holds per-run defaults.
type RunConfig struct {
	Steps    int           `yaml:"steps"`
	Delay    time.Duration `yaml:"delay"`
	Chaining string        `yaml:"chaining"`
	NodeIDs  string        `yaml:"node_ids"` // uuid or sequential
}

// ServerConfig configures the HTTP and MCP surfaces.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxSessions int    `yaml:"max_sessions"`
	Metrics     bool   `yaml:"metrics"`
}

// ArchiveConfig selects where finished runs are kept.
type ArchiveConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`

	// EncryptionKey is a base64 AES-256 key; records are encrypted at rest when set.
	EncryptionKey string `yaml:"encryption_key"`
	// Redact lists regular expressions masked before a run is archived.
	Redact []string `yaml:"redact"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Provider: ProviderAuto,
			Breaker:  true,
			Fallback: true,
		},
		Run: RunConfig{
			Steps:    driver.DefaultSteps,
			Delay:    time.Second,
			Chaining: string(domain.ChainLinear),
			NodeIDs:  "uuid",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Metrics: true,
		},
		Archive: ArchiveConfig{
			Backend: ArchiveFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
	}
}

// Load reads the configuration. An empty path tries DefaultFile and silently
// falls back to defaults when it does not exist; an explicit path must exist.
// Environment overrides come from os.LookupEnv.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays CARTOGRAPHY_* variables and provider API keys.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CARTOGRAPHY_SOURCE", &c.Source.Provider)
	str("CARTOGRAPHY_MODEL", &c.Source.Model)
	str("CARTOGRAPHY_BASE_URL", &c.Source.BaseURL)
	str("CARTOGRAPHY_SCENARIOS", &c.Source.Scenarios)
	str("CARTOGRAPHY_SCENARIO", &c.Source.Scenario)
	str("CARTOGRAPHY_AGENTS", &c.Source.Agents)
	str("CARTOGRAPHY_AGENT", &c.Source.Agent)
	str("CARTOGRAPHY_CHAINING", &c.Run.Chaining)
	str("CARTOGRAPHY_NODE_IDS", &c.Run.NodeIDs)
	str("CARTOGRAPHY_ADDR", &c.Server.Addr)
	str("CARTOGRAPHY_ARCHIVE", &c.Archive.Backend)
	str("CARTOGRAPHY_ARCHIVE_DIR", &c.Archive.Dir)
	str("CARTOGRAPHY_REDIS_ADDR", &c.Archive.RedisAddr)
	str("CARTOGRAPHY_REDIS_PASSWORD", &c.Archive.RedisPassword)
	str("CARTOGRAPHY_ARCHIVE_KEY", &c.Archive.EncryptionKey)
	str("CARTOGRAPHY_LOG_LEVEL", &c.Log.Level)
	str("CARTOGRAPHY_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("CARTOGRAPHY_STEPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CARTOGRAPHY_STEPS=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Run.Steps = n
	}
	if v, ok := lookup("CARTOGRAPHY_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: CARTOGRAPHY_DELAY=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Run.Delay = d
	}

	if c.Source.APIKey == "" {
		switch c.Source.Provider {
		case ProviderGemini:
			str("GEMINI_API_KEY", &c.Source.APIKey)
		case ProviderOpenAI:
			str("OPENAI_API_KEY", &c.Source.APIKey)
		case ProviderAuto:
			if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" {
				c.Source.Provider, c.Source.APIKey = ProviderGemini, v
			} else if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
				c.Source.Provider, c.Source.APIKey = ProviderOpenAI, v
			}
		}
	}
	return nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error
	switch c.Source.Provider {
	case ProviderAuto, ProviderMock, ProviderGemini, ProviderOpenAI:
	case ProviderScenario:
		if c.Source.Scenarios == "" {
			errs = append(errs, errors.New("source.scenarios is required for the scenario provider"))
		}
	case ProviderProcess:
		if c.Source.Agents == "" || c.Source.Agent == "" {
			errs = append(errs, errors.New("source.agents and source.agent are required for the process provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.provider %q", c.Source.Provider))
	}
	if c.Source.RateLimit < 0 {
		errs = append(errs, errors.New("source.rate_limit must not be negative"))
	}

	if c.Run.Steps < 1 || c.Run.Steps > driver.MaxSteps {
		errs = append(errs, fmt.Errorf("run.steps must be between 1 and %d", driver.MaxSteps))
	}
	if c.Run.Delay < 0 {
		errs = append(errs, errors.New("run.delay must not be negative"))
	}
	if _, ok := domain.ParseChainPolicy(c.Run.Chaining); !ok {
		errs = append(errs, fmt.Errorf("unknown run.chaining %q", c.Run.Chaining))
	}
	switch strings.ToLower(c.Run.NodeIDs) {
	case "uuid", "sequential":
	default:
		errs = append(errs, fmt.Errorf("unknown run.node_ids %q", c.Run.NodeIDs))
	}

	if c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server.max_sessions must not be negative"))
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory, ArchiveFile:
	case ArchiveRedis:
		if c.Archive.RedisAddr == "" {
			errs = append(errs, errors.New("archive.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive.backend %q", c.Archive.Backend))
	}
	if c.Archive.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Archive.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("archive.encryption_key: %w", err))
		}
	}
	for _, p := range c.Archive.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("archive.redact %q: %w", p, err))
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
