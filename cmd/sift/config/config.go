// Package configcmder provides the config command for managing persistent
// sift configuration stored in the .sift/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/config"
)

const configLongDesc string = `Manage persistent sift configuration.

Configuration is stored as config.toml in the .sift/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and SIFT_* environment variables sit in between.

Keys use dotted notation matching the TOML section structure:
  decode.format, decode.export, decode.output, decode.sets,
  storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  publish.kafka_brokers, publish.kafka_topic,
  ingest.workers, ingest.buffer_size

Use subcommands to get, set, or list configuration values:
  sift config set <key> <value>    Set a configuration value
  sift config get <key>            Get a configuration value
  sift config list                 List all configuration values

Examples:
  sift config set decode.format json
  sift config set publish.kafka_brokers localhost:9092
  sift config get storage.sqlite_path
  sift config list`

const configShortDesc string = "Manage persistent sift configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configDir reads the persistent --config-dir flag when the command is
// attached to the root command.
func configDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// openConfig resolves the .sift/ directory and prints which config.toml is
// in use. A non-empty key is validated first so typos fail before any
// output.
func openConfig(w io.Writer, dir, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
	return cfger, nil
}

// displayValue renders value, or a dimmed placeholder for unset keys.
func displayValue(value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(value)
}
