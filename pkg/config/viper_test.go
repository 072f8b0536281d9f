package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/sift/pkg/config"
)

var _ = Describe("InitViper", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("serves every default without a config file", func() {
		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		d := config.NewDefaultConfig()
		Expect(v.GetString("decode.format")).To(Equal(d.Decode.Format))
		Expect(v.GetString("decode.sets")).To(Equal(d.Decode.Sets))
		Expect(v.GetBool("decode.export")).To(BeFalse())
		Expect(v.GetString("api.listen")).To(Equal(d.API.Listen))
		Expect(v.GetUint("ingest.workers")).To(Equal(d.Ingest.Workers))
		Expect(v.GetUint("ingest.buffer_size")).To(Equal(d.Ingest.BufferSize))
		Expect(v.GetString("storage.sqlite_path")).To(BeEmpty())
	})

	It("layers the file over the defaults", func() {
		writeConfig(dir, "[decode]\nformat = \"json\"\n")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("decode.format")).To(Equal("json"))
		Expect(v.GetString("decode.output")).To(Equal("ndjson"))
	})

	It("layers SIFT_ variables over the file", func() {
		writeConfig(dir, "[publish]\nkafka_topic = \"from-file\"\n")
		GinkgoT().Setenv("SIFT_PUBLISH_KAFKA_TOPIC", "from-env")
		GinkgoT().Setenv("SIFT_INGEST_WORKERS", "6")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("publish.kafka_topic")).To(Equal("from-env"))
		Expect(v.GetUint("ingest.workers")).To(Equal(uint(6)))
	})

	It("fails on a malformed file", func() {
		writeConfig(dir, "[api\n")
		_, err := config.InitViper(dir)
		Expect(err).To(MatchError(ContainSubstring("reading config")))
	})
})

var _ = Describe("flag registry", func() {
	var cmd *cobra.Command

	BeforeEach(func() {
		cmd = &cobra.Command{Use: "test"}
	})

	It("takes name, shorthand, usage and default from the registry", func() {
		var format string
		config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &format)

		f := cmd.Flags().Lookup("format")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("f"))
		Expect(f.Usage).To(Equal(config.Flags[config.FlagFormat].Description))
		Expect(f.DefValue).To(Equal("xml"))
		Expect(format).To(Equal("xml"))
	})

	It("registers typed flags", func() {
		var export bool
		var workers uint
		var postgres string
		config.AddBoolFlag(cmd, config.Flags, config.FlagExport, &export)
		config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)
		config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &postgres)

		Expect(cmd.Flags().Lookup("export").DefValue).To(Equal("false"))
		Expect(cmd.Flags().Lookup("workers").DefValue).To(Equal("3"))
		Expect(cmd.Flags().Lookup("postgres").Shorthand).To(BeEmpty())
	})

	It("ignores unknown registry keys", func() {
		var s string
		config.AddStringFlag(cmd, config.Flags, "nonexistent", &s)
		Expect(cmd.Flags().HasFlags()).To(BeFalse())
	})

	Describe("BindRegisteredFlags", func() {
		var listen string

		BeforeEach(func() {
			config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)
		})

		It("puts a set flag above the file and the environment", func() {
			dir := GinkgoT().TempDir()
			writeConfig(dir, "[api]\nlisten = \":5555\"\n")
			GinkgoT().Setenv("SIFT_API_LISTEN", ":6666")

			v, err := config.InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})
			Expect(v.GetString("api.listen")).To(Equal(":7777"))
		})

		It("falls through to the file when the flag is not set", func() {
			dir := GinkgoT().TempDir()
			writeConfig(dir, "[api]\nlisten = \":5555\"\n")

			v, err := config.InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})
			Expect(v.GetString("api.listen")).To(Equal(":5555"))
		})

		It("skips keys missing from the registry", func() {
			v, err := config.InitViper(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())

			config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{config.FlagAPIListen})
			Expect(v.GetString("api.listen")).To(Equal(config.NewDefaultConfig().API.Listen))
		})
	})
})
