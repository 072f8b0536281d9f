// Package decodecmder provides the decode command, which decodes a search
// result stream from a file, URL or stdin.
package decodecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/sift/cmd/sift/backend"
	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/config"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

const decodeLongDesc string = `Decode a search result stream.

Reads results in XML, JSON or export JSON from a file, an HTTP(S) URL or
stdin ("-" or no argument) and prints one line per event. Input compressed
with gzip, zstd or lz4 is decompressed on the fly.

By default consecutive final result sets are concatenated and leading
preview sets of export streams are skipped. Use --sets all to list every
set, previews included.

Decoded events can also be stored (--sqlite, --postgres) and published
to Kafka (--kafka-brokers, --kafka-topic).

Examples:
  sift decode results.xml
  sift decode export.json.gz --export
  sift decode --format json --output table results.json
  curl -s "$SEARCH_EXPORT_URL" | sift decode -f json -e -
  sift decode --sqlite .sift/sift.sqlite --sets all results.xml`

const decodeShortDesc string = "Decode a search result stream"

var decodeFlags = []string{
	config.FlagFormat,
	config.FlagExport,
	config.FlagOutput,
	config.FlagSets,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagWorkers,
	config.FlagBufferSize,
}

// Output formats.
const (
	outputNDJSON   = "ndjson"
	outputTable    = "table"
	outputMarkdown = "markdown"
)

type decodeCommander struct {
	flags struct {
		format       string
		export       bool
		output       string
		sets         string
		sqlitePath   string
		postgresDSN  string
		kafkaBrokers string
		kafkaTopic   string
		workers      uint
		bufferSize   uint
	}

	limit  int
	stream string
	debug  bool

	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// outputLine is one NDJSON output line.
type outputLine struct {
	Stream       string        `json:"stream"`
	Set          int           `json:"set"`
	Preview      bool          `json:"preview"`
	Seq          int           `json:"seq"`
	Result       results.Event `json:"result"`
	SegmentedRaw string        `json:"segmented_raw,omitempty"`
}

func NewDecodeCmd() *cobra.Command {
	cmder := &decodeCommander{}

	cmd := &cobra.Command{
		Use:   "decode [file|url|-]",
		Short: decodeShortDesc,
		Long:  decodeLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, decodeFlags)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			input := "-"
			if len(args) == 1 {
				input = args[0]
			}

			return cmder.run(cmd.Context(), input, cmd.Flags().Changed("format"))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &cmder.flags.format)
	config.AddBoolFlag(cmd, config.Flags, config.FlagExport, &cmder.flags.export)
	config.AddStringFlag(cmd, config.Flags, config.FlagOutput, &cmder.flags.output)
	config.AddStringFlag(cmd, config.Flags, config.FlagSets, &cmder.flags.sets)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.flags.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagBufferSize, &cmder.flags.bufferSize)

	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Stop after this many events (0 for no limit)")
	cmd.Flags().StringVar(&cmder.stream, "stream", "", "Stream name recorded with stored events (default: input name)")

	return cmd
}

func (c *decodeCommander) run(ctx context.Context, input string, formatSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = logger.New(
		logger.WithWriter(c.errOut),
		logger.WithPretty(true),
		logger.WithLevel(level),
	)

	output := c.v.GetString("decode.output")
	switch output {
	case outputNDJSON, outputTable, outputMarkdown:
	default:
		return fmt.Errorf("invalid output %q (available: ndjson, table, markdown)", output)
	}

	sets := c.v.GetString("decode.sets")
	if sets != "final" && sets != "all" {
		return fmt.Errorf("invalid sets %q (available: final, all)", sets)
	}

	format, err := results.ParseFormat(c.v.GetString("decode.format"))
	if err != nil {
		return err
	}
	if !formatSet {
		format = results.DetectFormat(input, format)
	}

	body, name, err := openInput(ctx, input)
	if err != nil {
		return err
	}
	defer body.Close()

	if c.stream != "" {
		name = c.stream
	}

	src := ingest.Source{
		Name:    name,
		Format:  format,
		Export:  c.v.GetBool("decode.export"),
		AllSets: sets == "all",
		Limit:   c.limit,
		Body:    body,
	}

	settings := backend.SettingsFromViper(c.v)
	var be *backend.Backend
	if persistent(settings) {
		be, err = backend.Open(ctx, settings, c.logger)
		if err != nil {
			return err
		}
		defer be.Close()
	}

	ingCfg := ingest.Config{Logger: c.logger}
	if be != nil {
		ingCfg.Pool = be.Pool
	}
	ing := ingest.New(ingCfg)

	var collected []*storage.Record
	enc := json.NewEncoder(c.out)

	summary, err := ing.IngestFunc(ctx, src, func(rec *storage.Record) error {
		if output != outputNDJSON {
			collected = append(collected, rec)
			return nil
		}
		return enc.Encode(outputLine{
			Stream:       rec.Stream,
			Set:          rec.SetIndex,
			Preview:      rec.Preview,
			Seq:          rec.Seq,
			Result:       rec.Event,
			SegmentedRaw: rec.Event.SegmentedRaw(),
		})
	})
	if err != nil {
		return err
	}

	if err := c.render(output, collected); err != nil {
		return err
	}

	if be != nil {
		if cliui.IsTerminal(c.errOut) {
			err = cliui.Step(c.errOut, "flushing decoded events", be.Close)
		} else {
			err = be.Close()
		}
		if err != nil {
			return fmt.Errorf("closing backend: %w", err)
		}

		stats := be.Pool.Stats()
		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d events could not be stored", stats.Failed, summary.Events)
		}
	}

	c.printSummary(summary)
	return nil
}

func (c *decodeCommander) render(output string, records []*storage.Record) error {
	switch output {
	case outputTable:
		if len(records) == 0 {
			return nil
		}
		fmt.Fprintln(c.out, cliui.RenderEventsTable(records))

	case outputMarkdown:
		md := cliui.EventsMarkdown(records)
		if !cliui.IsTerminal(c.out) {
			fmt.Fprint(c.out, md)
			return nil
		}
		rendered, err := cliui.RenderMarkdown(md)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, rendered)
	}
	return nil
}

func (c *decodeCommander) printSummary(s ingest.Summary) {
	line := fmt.Sprintf("%d events in %d sets", s.Events, s.Sets)
	if s.Previews > 0 {
		line += fmt.Sprintf(", %s", cliui.PreviewStyle.Render(fmt.Sprintf("%d previews", s.Previews)))
	}
	if s.Truncated {
		line += cliui.DimStyle.Render(" (limit reached)")
	}
	fmt.Fprintf(c.errOut, "%s %s %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(s.Stream), line)
}

// persistent reports whether decoded events go anywhere besides the output.
func persistent(s backend.Settings) bool {
	return s.SQLitePath != "" || s.PostgresDSN != "" || len(s.Brokers()) > 0
}
