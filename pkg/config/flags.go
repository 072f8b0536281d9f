package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes a CLI flag backed by a config key. Commands that share a
// setting (--sqlite on decode, serve and watch) register it from the same
// Flag.
type Flag struct {
	Name      string
	Shorthand string

	// ViperKey is the dotted config key, e.g. "decode.format".
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to flags.
type FlagSet map[string]Flag

// Registry keys of Flags.
const (
	FlagFormat       = "format"
	FlagExport       = "export"
	FlagOutput       = "output"
	FlagSets         = "sets"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagAPIListen    = "api-listen"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagWorkers      = "workers"
	FlagBufferSize   = "buffer-size"
)

// Flags is the registry shared by every sift command.
var Flags = FlagSet{
	FlagFormat:       {Name: "format", Shorthand: "f", ViperKey: "decode.format", Description: "Results wire format (xml, json)"},
	FlagExport:       {Name: "export", Shorthand: "e", ViperKey: "decode.export", Description: "Treat input as an export endpoint stream"},
	FlagOutput:       {Name: "output", Shorthand: "o", ViperKey: "decode.output", Description: "Output format (ndjson, table, markdown)"},
	FlagSets:         {Name: "sets", ViperKey: "decode.sets", Description: "Result sets to read: final, or all to include previews"},
	FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database for decoded events"},
	FlagPostgres:     {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for decoded events"},
	FlagAPIListen:    {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagKafkaBrokers: {Name: "kafka-brokers", ViperKey: "publish.kafka_brokers", Description: "Comma separated Kafka brokers to publish events to"},
	FlagKafkaTopic:   {Name: "kafka-topic", ViperKey: "publish.kafka_topic", Description: "Kafka topic for published events"},
	FlagWorkers:      {Name: "workers", ViperKey: "ingest.workers", Description: "Number of ingest workers"},
	FlagBufferSize:   {Name: "buffer-size", ViperKey: "ingest.buffer_size", Description: "Ingest queue capacity"},
}

// AddStringFlag registers the string flag key of fs on cmd, with its default
// taken from NewDefaultConfig. Unknown keys are ignored.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	if f, ok := fs[key]; ok {
		cmd.Flags().StringVarP(target, f.Name, f.Shorthand, defaults().GetString(f.ViperKey), f.Description)
	}
}

// AddBoolFlag is AddStringFlag for bool flags.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	if f, ok := fs[key]; ok {
		cmd.Flags().BoolVarP(target, f.Name, f.Shorthand, defaults().GetBool(f.ViperKey), f.Description)
	}
}

// AddUintFlag is AddStringFlag for uint flags.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	if f, ok := fs[key]; ok {
		cmd.Flags().UintVarP(target, f.Name, f.Shorthand, defaults().GetUint(f.ViperKey), f.Description)
	}
}

// BindRegisteredFlags binds the flags of keys already added to cmd to their
// viper keys, putting them first in the precedence chain. Call it in PreRunE
// after InitViper.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		f, ok := fs[key]
		if !ok {
			continue
		}
		if pf := cmd.Flags().Lookup(f.Name); pf != nil {
			_ = v.BindPFlag(f.ViperKey, pf)
		}
	}
}
