package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/config"
)

const fullConfig = `version = 0

[decode]
format = "json"
export = true
output = "table"
sets = "all"

[storage]
sqlite_path = "/srv/sift/events.sqlite"
postgres_dsn = "postgres://db/sift"

[api]
listen = ":9091"

[publish]
kafka_brokers = "k1:9092,k2:9092"
kafka_topic = "results"

[ingest]
workers = 5
buffer_size = 50
`

// writeConfig writes data as config.toml in dir.
func writeConfig(dir, data string) {
	GinkgoHelper()
	Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600)).To(Succeed())
}

var _ = Describe("Configer", func() {
	var (
		dir   string
		cfger *config.Configer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		cfger, err = config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets config.toml in the resolved directory", func() {
		Expect(cfger.GetTarget()).To(Equal(filepath.Join(dir, "config.toml")))
	})

	Describe("LoadConfig", func() {
		It("returns the defaults while config.toml does not exist", func() {
			Expect(cfger.LoadConfig()).To(Equal(config.NewDefaultConfig()))
		})

		It("reads every section", func() {
			writeConfig(dir, fullConfig)

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Decode).To(Equal(config.DecodeConfig{Format: "json", Export: true, Output: "table", Sets: "all"}))
			Expect(cfg.Storage).To(Equal(config.StorageConfig{SQLitePath: "/srv/sift/events.sqlite", PostgresDSN: "postgres://db/sift"}))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.Publish).To(Equal(config.PublishConfig{KafkaBrokers: "k1:9092,k2:9092", KafkaTopic: "results"}))
			Expect(cfg.Ingest).To(Equal(config.IngestConfig{Workers: 5, BufferSize: 50}))
		})

		It("keeps defaults for sections the file omits", func() {
			writeConfig(dir, "[decode]\nformat = \"json\"\n")

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			want := config.NewDefaultConfig()
			want.Decode.Format = "json"
			Expect(cfg).To(Equal(want))
		})

		DescribeTable("rejects bad files",
			func(data, msg string) {
				writeConfig(dir, data)
				_, err := cfger.LoadConfig()
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},
			Entry("broken TOML", "[decode\nformat = ", "parsing config TOML"),
			Entry("future version", "version = 99\n", "unsupported config version 99"),
		)
	})

	Describe("SaveConfig", func() {
		It("writes TOML that loads back", func() {
			cfg := config.NewDefaultConfig()
			cfg.Storage.SQLitePath = "/data/sift.sqlite"
			cfg.Ingest.Workers = 7
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`sqlite_path = "/data/sift.sqlite"`))

			Expect(cfger.LoadConfig()).To(Equal(cfg))
		})

		It("refuses a nil config", func() {
			Expect(cfger.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("values", func() {
		DescribeTable("round trip through SetConfigValue and GetConfigValue",
			func(key, value string) {
				Expect(cfger.SetConfigValue(key, value)).To(Succeed())
				Expect(cfger.GetConfigValue(key)).To(Equal(value))
			},
			Entry("string", "publish.kafka_topic", "decoded"),
			Entry("enumerated", "decode.output", "markdown"),
			Entry("bool", "decode.export", "true"),
			Entry("uint", "ingest.workers", "12"),
			Entry("dsn", "storage.postgres_dsn", "postgres://localhost:5432/sift"),
		)

		DescribeTable("SetConfigValue rejects",
			func(key, value, msg string) {
				Expect(cfger.SetConfigValue(key, value)).To(MatchError(ContainSubstring(msg)))
				Expect(filepath.Join(dir, "config.toml")).NotTo(BeAnExistingFile())
			},
			Entry("an unknown format", "decode.format", "csv", "available: xml, json"),
			Entry("an unknown output", "decode.output", "yaml", "available: ndjson, table, markdown"),
			Entry("an unknown set policy", "decode.sets", "some", "available: final, all"),
			Entry("a non-numeric size", "ingest.buffer_size", "lots", "invalid value for ingest.buffer_size"),
			Entry("a non-boolean flag", "decode.export", "maybe", "invalid value for decode.export"),
			Entry("an unknown key", "proxy.upstream", "x", "unknown config key"),
		)

		It("keeps earlier values when setting another key", func() {
			Expect(cfger.SetConfigValue("storage.sqlite_path", "/a.sqlite")).To(Succeed())
			Expect(cfger.SetConfigValue("api.listen", ":1234")).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.SQLitePath).To(Equal("/a.sqlite"))
			Expect(cfg.API.Listen).To(Equal(":1234"))
		})

		It("reads defaults and unset keys without a file", func() {
			Expect(cfger.GetConfigValue("decode.format")).To(Equal("xml"))
			Expect(cfger.GetConfigValue("ingest.buffer_size")).To(Equal("1000"))
			Expect(cfger.GetConfigValue("storage.postgres_dsn")).To(BeEmpty())
		})
	})
})

var _ = Describe("without a .sift directory", func() {
	BeforeEach(func() {
		empty := GinkgoT().TempDir()
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(empty)).To(Succeed())
		DeferCleanup(os.Chdir, orig)
		GinkgoT().Setenv("HOME", empty)
	})

	It("loads defaults and cannot save", func() {
		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.GetTarget()).To(BeEmpty())

		Expect(cfger.LoadConfig()).To(Equal(config.NewDefaultConfig()))
		Expect(cfger.SetConfigValue("decode.format", "json")).To(MatchError(ContainSubstring("no .sift directory")))
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(11))
		Expect(keys[0]).To(Equal("decode.format"))
		Expect(keys[len(keys)-1]).To(Equal("ingest.buffer_size"))

		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
		Expect(config.IsValidConfigKey("embedding.model")).To(BeFalse())
	})

	It("hands out a copy", func() {
		keys := config.ValidConfigKeys()
		keys[0] = "changed"
		Expect(config.ValidConfigKeys()[0]).To(Equal("decode.format"))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("decodes over the defaults", func() {
		cfg, err := config.ParseConfigTOML([]byte("[ingest]\nworkers = 9\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Ingest.Workers).To(Equal(uint(9)))
		Expect(cfg.Ingest.BufferSize).To(Equal(config.NewDefaultConfig().Ingest.BufferSize))
		Expect(cfg.Decode.Format).To(Equal("xml"))
	})
})

var _ = Describe("PresetConfig", func() {
	DescribeTable("builds each preset",
		func(name string, check func(*config.Config)) {
			cfg, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
			check(cfg)
		},
		Entry("local", "local", func(cfg *config.Config) {
			Expect(cfg.Storage.SQLitePath).To(Equal(filepath.Join(".sift", "sift.sqlite")))
			Expect(cfg.Publish.KafkaBrokers).To(BeEmpty())
		}),
		Entry("kafka", "kafka", func(cfg *config.Config) {
			Expect(cfg.Publish.KafkaBrokers).To(Equal("localhost:9092"))
			Expect(cfg.Publish.KafkaTopic).To(Equal("sift.events"))
			Expect(cfg.Storage.SQLitePath).NotTo(BeEmpty())
		}),
		Entry("postgres, any case", "Postgres", func(cfg *config.Config) {
			Expect(cfg.Storage.PostgresDSN).To(HavePrefix("postgres://"))
			Expect(cfg.Ingest.Workers).To(Equal(uint(8)))
		}),
	)

	It("names the presets it knows when given another", func() {
		_, err := config.PresetConfig("mongo")
		Expect(err).To(MatchError(ContainSubstring("available: local, kafka, postgres")))
	})

	It("accepts every listed name", func() {
		for _, name := range config.ValidPresetNames() {
			_, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred(), name)
		}
	})
})
