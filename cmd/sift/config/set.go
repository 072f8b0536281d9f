package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/sift/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Validates the value and writes it to config.toml in the .sift/ directory.
Run "sift init" first when no .sift/ directory exists.

Examples:
  sift config set decode.format json
  sift config set decode.sets all
  sift config set storage.postgres_dsn postgres://localhost:5432/sift
  sift config set ingest.workers 8`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir(cmd))
		},
		ValidArgsFunction: completeKeys,
	}
}

func runSet(w io.Writer, key, value, dir string) error {
	cfger, err := openConfig(w, dir, key)
	if err != nil {
		return err
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Set %s = %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	return nil
}
