// Package watchcmder provides the watch command, which ingests result files
// dropped into a spool directory.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/sift/cmd/sift/backend"
	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/ingest/spool"
	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/config"
	"github.com/papercomputeco/sift/pkg/dotdir"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
)

const watchLongDesc string = `Watch a spool directory and ingest result files dropped into it.

Each file is decoded once it stops changing, stored and optionally
published to Kafka. The files already ingested are remembered in
.sift/watch.json so a restarted watcher skips them.

Files ending in .json, .jsonl or .ndjson are decoded as JSON and files
ending in .xml as XML; anything else uses --format. Hidden files and
files ending in .tmp or .part are ignored.

Without --sqlite or --postgres, events are stored in sift.sqlite inside
the resolved .sift directory.

Examples:
  sift watch ./spool
  sift watch --once ./spool
  sift watch --postgres postgres://localhost:5432/sift --kafka-brokers localhost:9092 ./spool`

const watchShortDesc string = "Ingest result files dropped into a directory"

var watchFlags = []string{
	config.FlagFormat,
	config.FlagExport,
	config.FlagSets,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagWorkers,
	config.FlagBufferSize,
}

type watchCommander struct {
	flags struct {
		format       string
		export       bool
		sets         string
		sqlitePath   string
		postgresDSN  string
		kafkaBrokers string
		kafkaTopic   string
		workers      uint
		bufferSize   uint
	}

	once      bool
	reset     bool
	debug     bool
	configDir string

	v      *viper.Viper
	errOut io.Writer
	logger *slog.Logger
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, watchFlags)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.errOut = cmd.ErrOrStderr()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &cmder.flags.format)
	config.AddBoolFlag(cmd, config.Flags, config.FlagExport, &cmder.flags.export)
	config.AddStringFlag(cmd, config.Flags, config.FlagSets, &cmder.flags.sets)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.flags.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagBufferSize, &cmder.flags.bufferSize)

	cmd.Flags().BoolVar(&cmder.once, "once", false, "Ingest the files already in the directory and exit")
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Forget previously ingested files before starting")

	return cmd
}

func (c *watchCommander) run(ctx context.Context, dir string) error {
	c.logger = logger.New(
		logger.WithWriter(c.errOut),
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
	)

	format, err := results.ParseFormat(c.v.GetString("decode.format"))
	if err != nil {
		return err
	}

	ddm := dotdir.NewManager()
	if c.reset {
		if err := ddm.ClearWatchState(c.configDir); err != nil {
			return err
		}
	}

	settings := backend.SettingsFromViper(c.v)
	if settings.SQLitePath == "" && settings.PostgresDSN == "" {
		settings.SQLitePath, err = defaultSQLitePath(ddm, c.configDir)
		if err != nil {
			return err
		}
	}

	be, err := backend.Open(ctx, settings, c.logger)
	if err != nil {
		return err
	}
	defer be.Close()

	w, err := spool.New(spool.Config{
		Dir:      dir,
		Ingester: ingest.New(ingest.Config{Pool: be.Pool, Logger: c.logger}),
		Format:   format,
		Export:   c.v.GetBool("decode.export"),
		AllSets:  c.v.GetString("decode.sets") == "all",
		State:    spool.DirState{Manager: ddm, ConfigDir: c.configDir},
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}

	if c.once {
		n, err := w.Scan(ctx)
		if err != nil {
			return err
		}
		if err := be.Close(); err != nil {
			return fmt.Errorf("closing backend: %w", err)
		}
		fmt.Fprintf(c.errOut, "%s ingested %s from %s\n",
			cliui.SuccessMark,
			cliui.KeyStyle.Render(fmt.Sprintf("%d files", n)),
			cliui.DimStyle.Render(dir),
		)
		return nil
	}

	return w.Run(ctx)
}

// defaultSQLitePath places the database in the resolved .sift directory.
func defaultSQLitePath(ddm *dotdir.Manager, configDir string) (string, error) {
	target, err := ddm.Target(configDir)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", errors.New("no storage configured; pass --sqlite or --postgres, or run \"sift init\"")
	}
	return filepath.Join(target, "sift.sqlite"), nil
}
