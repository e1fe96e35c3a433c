// Package config loads the worklist service configuration: a YAML file over the
// defaults, then WORKLIST_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	PACS     PACSConfig     `yaml:"pacs"`
	Store    StoreConfig    `yaml:"store"`
	Worklist WorklistConfig `yaml:"worklist"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig is the inbound worklist SCP.
type ServerConfig struct {
	Port        int           `yaml:"port"`
	AETitle     string        `yaml:"ae_title"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// PACSConfig is the archive the scheduler checks the worklist against.
type PACSConfig struct {
	// Check enables the periodic archive lookup.
	Check        bool          `yaml:"check"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	AETitle      string        `yaml:"ae_title"`
	LocalAETitle string        `yaml:"local_ae_title"`
	Interval     time.Duration `yaml:"interval"`
	// MaxOperations is the asynchronous operations window proposed to the archive.
	MaxOperations uint16 `yaml:"max_operations"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver     string `yaml:"driver"` // sqlite or postgres
	DSN        string `yaml:"dsn"`
	SeedSample bool   `yaml:"seed_sample"`
}

// WorklistConfig holds record validation and identifier settings.
type WorklistConfig struct {
	UIDRoot    string   `yaml:"uid_root"`
	Modalities []string `yaml:"modalities"`
}

// RedisConfig enables publishing archive matches to a Redis stream. An empty address
// disables it.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// LoggingConfig controls SetupLogger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // JSON log file in addition to stderr; empty for none
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8104,
			AETitle:     "MODALITY_SCP",
			IdleTimeout: 60 * time.Second,
		},
		PACS: PACSConfig{
			Check:         false,
			Host:          "127.0.0.1",
			Port:          9104,
			AETitle:       "STOR",
			LocalAETitle:  "KOBOWORKLIST",
			Interval:      30 * time.Second,
			MaxOperations: 8,
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			DSN:        "WorklistItems.db",
			SeedSample: true,
		},
		Worklist: WorklistConfig{
			UIDRoot:    "1.2.840.113619",
			Modalities: []string{"CT", "MR", "US", "CR", "DX", "MG", "NM", "PT", "XA", "RF", "OT"},
		},
		Redis: RedisConfig{
			Stream: "worklist:pacs-matches",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (when not empty) over Default, applies environment overrides and
// validates the result. Unknown YAML keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type envOverride struct {
	key   string
	apply func(c *Config, value string) error
}

func stringVar(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, value string) error {
		*dst(c) = value
		return nil
	}
}

func intVar(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolVar(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func durationVar(dst func(c *Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

var envOverrides = []envOverride{
	{"WORKLIST_SERVER_PORT", intVar(func(c *Config) *int { return &c.Server.Port })},
	{"WORKLIST_SERVER_AE_TITLE", stringVar(func(c *Config) *string { return &c.Server.AETitle })},
	{"WORKLIST_SERVER_IDLE_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Server.IdleTimeout })},
	{"WORKLIST_PACS_CHECK", boolVar(func(c *Config) *bool { return &c.PACS.Check })},
	{"WORKLIST_PACS_HOST", stringVar(func(c *Config) *string { return &c.PACS.Host })},
	{"WORKLIST_PACS_PORT", intVar(func(c *Config) *int { return &c.PACS.Port })},
	{"WORKLIST_PACS_AE_TITLE", stringVar(func(c *Config) *string { return &c.PACS.AETitle })},
	{"WORKLIST_PACS_LOCAL_AE_TITLE", stringVar(func(c *Config) *string { return &c.PACS.LocalAETitle })},
	{"WORKLIST_PACS_INTERVAL", durationVar(func(c *Config) *time.Duration { return &c.PACS.Interval })},
	{"WORKLIST_PACS_MAX_OPERATIONS", func(c *Config, value string) error {
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return err
		}
		c.PACS.MaxOperations = uint16(n)
		return nil
	}},
	{"WORKLIST_STORE_DRIVER", stringVar(func(c *Config) *string { return &c.Store.Driver })},
	{"WORKLIST_STORE_DSN", stringVar(func(c *Config) *string { return &c.Store.DSN })},
	{"WORKLIST_STORE_SEED_SAMPLE", boolVar(func(c *Config) *bool { return &c.Store.SeedSample })},
	{"WORKLIST_UID_ROOT", stringVar(func(c *Config) *string { return &c.Worklist.UIDRoot })},
	{"WORKLIST_MODALITIES", func(c *Config, value string) error {
		var modalities []string
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				modalities = append(modalities, strings.ToUpper(m))
			}
		}
		c.Worklist.Modalities = modalities
		return nil
	}},
	{"WORKLIST_REDIS_ADDRESS", stringVar(func(c *Config) *string { return &c.Redis.Address })},
	{"WORKLIST_REDIS_PASSWORD", stringVar(func(c *Config) *string { return &c.Redis.Password })},
	{"WORKLIST_REDIS_DB", intVar(func(c *Config) *int { return &c.Redis.DB })},
	{"WORKLIST_REDIS_STREAM", stringVar(func(c *Config) *string { return &c.Redis.Stream })},
	{"WORKLIST_LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
	{"WORKLIST_LOG_FILE", stringVar(func(c *Config) *string { return &c.Logging.File })},
}

// applyEnv applies every WORKLIST_* variable that lookup finds.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		value, ok := lookup(o.key)
		if !ok {
			continue
		}
		if err := o.apply(c, value); err != nil {
			return fmt.Errorf("%s=%q: %w", o.key, value, err)
		}
	}
	return nil
}

// Validate reports the first setting the service cannot run with.
func (c *Config) Validate() error {
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validateAETitle("server.ae_title", c.Server.AETitle); err != nil {
		return err
	}
	if c.PACS.Check {
		if c.PACS.Host == "" {
			return errors.New("pacs.host is required when pacs.check is enabled")
		}
		if err := validatePort("pacs.port", c.PACS.Port); err != nil {
			return err
		}
		if err := validateAETitle("pacs.ae_title", c.PACS.AETitle); err != nil {
			return err
		}
		if err := validateAETitle("pacs.local_ae_title", c.PACS.LocalAETitle); err != nil {
			return err
		}
	}
	if c.PACS.Interval <= 0 {
		return fmt.Errorf("pacs.interval must be positive, got %s", c.PACS.Interval)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn is required")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// AE titles are at most 16 characters (PS3.5 AE value representation).
func validateAETitle(name, aeTitle string) error {
	if aeTitle == "" || len(aeTitle) > 16 {
		return fmt.Errorf("%s must be 1 to 16 characters, got %q", name, aeTitle)
	}
	return nil
}

// ParseLevel parses debug, info, warn or error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// ListenAddress is the address the SCP listens on.
func (c ServerConfig) ListenAddress() string {
	return ":" + strconv.Itoa(c.Port)
}

// Address is the archive's host:port.
func (c PACSConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
