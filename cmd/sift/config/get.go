package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/sift/pkg/cliui"
)

const getLongDesc string = `Get a configuration value.

Prints the effective value of a key: the one in config.toml, or the
built-in default when the file leaves it unset.

Examples:
  sift config get decode.format
  sift config get ingest.workers`

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.OutOrStdout(), args[0], configDir(cmd))
		},
		ValidArgsFunction: completeKeys,
	}
}

func runGet(w io.Writer, key, dir string) error {
	cfger, err := openConfig(w, dir, key)
	if err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), displayValue(value))
	return nil
}
