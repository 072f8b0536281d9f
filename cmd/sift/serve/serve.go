// Package servecmder provides the serve command, which runs the HTTP API and
// its MCP endpoint, optionally alongside a spool watcher.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/sift/api"
	"github.com/papercomputeco/sift/cmd/sift/backend"
	"github.com/papercomputeco/sift/cmd/sift/sqlitepath"
	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/ingest/spool"
	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/config"
	"github.com/papercomputeco/sift/pkg/dotdir"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
)

const serveLongDesc string = `Run the sift API server.

Serves the HTTP API for decoding result streams and querying stored
events, and an MCP endpoint at /mcp for agents.

Storage is taken from --postgres or --sqlite. Without either, an existing
sift.sqlite in ./.sift, $XDG_DATA_HOME/sift or ~/.sift is used, and events
are kept in memory when none exists.

Use --spool to also ingest result files dropped into a directory.

Examples:
  sift serve
  sift serve --listen :9000 --sqlite .sift/sift.sqlite
  sift serve --spool ./spool --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the sift API server"

var serveFlags = []string{
	config.FlagAPIListen,
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

type serveCommander struct {
	flags struct {
		listen       string
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

	spoolDir   string
	logFile    string
	disableMCP bool
	bodyLimit  int
	debug      bool
	configDir  string

	v      *viper.Viper
	errOut io.Writer
	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.errOut = cmd.ErrOrStderr()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &cmder.flags.format)
	config.AddBoolFlag(cmd, config.Flags, config.FlagExport, &cmder.flags.export)
	config.AddStringFlag(cmd, config.Flags, config.FlagSets, &cmder.flags.sets)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.flags.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagBufferSize, &cmder.flags.bufferSize)

	cmd.Flags().StringVar(&cmder.spoolDir, "spool", "", "Also ingest result files dropped into this directory")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Serve an empty MCP server at /mcp")
	cmd.Flags().IntVar(&cmder.bodyLimit, "body-limit", 64<<20, "Maximum request body size in bytes")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	be, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer be.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.v.GetString("api.listen"),
		BodyLimit:  c.bodyLimit,
		DisableMCP: c.disableMCP,
	}, be.Driver, be.Pool, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	var watcher *spool.Watcher
	if c.spoolDir != "" {
		watcher, err = c.newSpoolWatcher(be)
		if err != nil {
			return err
		}
	}

	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	select {
	case err = <-errChan:
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
	}

	if shutdownErr := server.Shutdown(); shutdownErr != nil {
		err = errors.Join(err, fmt.Errorf("shutting down API server: %w", shutdownErr))
	}
	if closeErr := be.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("closing backend: %w", closeErr))
	}
	return err
}

// setupLogger logs to errOut and, with --log-file, to the file as JSON too.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithWriter(c.errOut),
		logger.WithDebug(c.debug),
		logger.WithPretty(cliui.IsTerminal(c.errOut)),
		logger.WithJSON(!cliui.IsTerminal(c.errOut)),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
	))
	return func() { _ = f.Close() }, nil
}

// openBackend resolves storage. An explicitly configured database wins; an
// existing sift database is reused; otherwise events stay in memory.
func (c *serveCommander) openBackend(ctx context.Context) (*backend.Backend, error) {
	settings := backend.SettingsFromViper(c.v)

	if settings.SQLitePath == "" && settings.PostgresDSN == "" {
		path, err := sqlitepath.ResolveSQLitePath("")
		switch {
		case err == nil:
			settings.SQLitePath = path
		case errors.Is(err, sqlitepath.ErrNotFound):
			c.logger.Info("no sift database found, keeping events in memory")
		default:
			return nil, err
		}
	}

	return backend.Open(ctx, settings, c.logger)
}

func (c *serveCommander) newSpoolWatcher(be *backend.Backend) (*spool.Watcher, error) {
	format, err := results.ParseFormat(c.v.GetString("decode.format"))
	if err != nil {
		return nil, err
	}

	return spool.New(spool.Config{
		Dir:      c.spoolDir,
		Ingester: ingest.New(ingest.Config{Pool: be.Pool, Logger: c.logger}),
		Format:   format,
		Export:   c.v.GetBool("decode.export"),
		AllSets:  c.v.GetString("decode.sets") == "all",
		State:    spool.DirState{Manager: dotdir.NewManager(), ConfigDir: c.configDir},
		Logger:   c.logger,
	})
}
