package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent sift configuration stored as config.toml
// in the .sift/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Decode  DecodeConfig  `toml:"decode"`
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
	Publish PublishConfig `toml:"publish"`
	Ingest  IngestConfig  `toml:"ingest"`
}

// DecodeConfig holds the defaults for reading a results stream.
type DecodeConfig struct {
	// Format is "xml" or "json".
	Format string `toml:"format,omitempty"`

	// Export marks input as coming from an export endpoint.
	Export bool `toml:"export,omitempty"`

	// Output is "ndjson", "table" or "markdown".
	Output string `toml:"output,omitempty"`

	// Sets is "final" to follow the reader's preview policy or "all" to
	// surface every set, previews included.
	Sets string `toml:"sets,omitempty"`
}

// StorageConfig selects where decoded events are persisted. With neither
// field set events are kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// PublishConfig holds event publishing settings. Publishing is disabled
// unless brokers are set.
type PublishConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// IngestConfig sizes the worker pool that persists and publishes events.
type IngestConfig struct {
	Workers    uint `toml:"workers,omitempty"`
	BufferSize uint `toml:"buffer_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"decode.format": {
		get: func(c *Config) string { return c.Decode.Format },
		set: func(c *Config, v string) error {
			if v != "xml" && v != "json" {
				return fmt.Errorf("invalid value for decode.format: %q (available: xml, json)", v)
			}
			c.Decode.Format = v
			return nil
		},
	},
	"decode.export": {
		get: func(c *Config) string { return strconv.FormatBool(c.Decode.Export) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for decode.export: %w", err)
			}
			c.Decode.Export = b
			return nil
		},
	},
	"decode.output": {
		get: func(c *Config) string { return c.Decode.Output },
		set: func(c *Config, v string) error {
			switch v {
			case "ndjson", "table", "markdown":
			default:
				return fmt.Errorf("invalid value for decode.output: %q (available: ndjson, table, markdown)", v)
			}
			c.Decode.Output = v
			return nil
		},
	},
	"decode.sets": {
		get: func(c *Config) string { return c.Decode.Sets },
		set: func(c *Config, v string) error {
			if v != "final" && v != "all" {
				return fmt.Errorf("invalid value for decode.sets: %q (available: final, all)", v)
			}
			c.Decode.Sets = v
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"publish.kafka_brokers": {
		get: func(c *Config) string { return c.Publish.KafkaBrokers },
		set: func(c *Config, v string) error { c.Publish.KafkaBrokers = v; return nil },
	},
	"publish.kafka_topic": {
		get: func(c *Config) string { return c.Publish.KafkaTopic },
		set: func(c *Config, v string) error { c.Publish.KafkaTopic = v; return nil },
	},
	"ingest.workers":     uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.buffer_size": uintKey("ingest.buffer_size", func(c *Config) *uint { return &c.Ingest.BufferSize }),
}
