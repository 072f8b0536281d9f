package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/sift/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// CurrentV is the only config version sift reads.
	CurrentV = 0
)

// keyOrder lists every key of configKeys in config.toml section order.
var keyOrder = []string{
	"decode.format",
	"decode.export",
	"decode.output",
	"decode.sets",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"api.listen",
	"publish.kafka_brokers",
	"publish.kafka_topic",
	"ingest.workers",
	"ingest.buffer_size",
}

// presetOrder lists the presets understood by PresetConfig.
var presetOrder = []string{"local", "kafka", "postgres"}

// Configer reads and writes config.toml inside a resolved .sift/ directory.
type Configer struct {
	// path is empty when no .sift/ directory exists. Loads then return
	// defaults and saves fail.
	path string
}

// NewConfiger resolves the .sift/ directory, honouring override when set.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{path: path}, nil
}

// ValidConfigKeys returns every supported key in config.toml section order.
func ValidConfigKeys() []string {
	return append([]string(nil), keyOrder...)
}

func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// GetTarget returns the config.toml path, or "" without a .sift/ directory.
func (c *Configer) GetTarget() string {
	return c.path
}

// LoadConfig returns the config in config.toml layered over
// NewDefaultConfig. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

func (c *Configer) SaveConfig(cfg *Config) error {
	switch {
	case cfg == nil:
		return errors.New("cannot save nil config")
	case c.path == "":
		return errors.New("no .sift directory to save config in")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and writes it to config.toml.
func (c *Configer) SetConfigValue(key, value string) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := info.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key, defaults included.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

// PresetConfig returns the defaults adjusted for a deployment: "local"
// stores events in ./.sift/sift.sqlite, "kafka" also publishes them to a
// local broker, "postgres" stores them in a local PostgreSQL database.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()
	localDB := filepath.Join(".sift", "sift.sqlite")

	switch strings.ToLower(name) {
	case "local":
		cfg.Storage.SQLitePath = localDB
	case "kafka":
		cfg.Storage.SQLitePath = localDB
		cfg.Publish.KafkaBrokers = "localhost:9092"
	case "postgres":
		cfg.Storage.PostgresDSN = "postgres://localhost:5432/sift?sslmode=disable"
		cfg.Ingest.Workers = 8
	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(presetOrder, ", "))
	}

	return cfg, nil
}

func ValidPresetNames() []string {
	return append([]string(nil), presetOrder...)
}

// ParseConfigTOML decodes data over NewDefaultConfig, so keys the document
// leaves out keep their default.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}
