package config

const (
	defaultFormat    = "xml"
	defaultOutput    = "ndjson"
	defaultSets      = "final"
	defaultAPIListen = ":8081"

	defaultKafkaTopic = "sift.events"

	defaultWorkers    = 3
	defaultBufferSize = 1000
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Decode: DecodeConfig{
			Format: defaultFormat,
			Output: defaultOutput,
			Sets:   defaultSets,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Publish: PublishConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Ingest: IngestConfig{
			Workers:    defaultWorkers,
			BufferSize: defaultBufferSize,
		},
	}
}
