package configcmder

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .sift/ directory.

Examples:
  sift config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.OutOrStdout(), configDir(cmd))
		},
	}
}

func runList(w io.Writer, dir string) error {
	cfger, err := openConfig(w, dir, "")
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return cliui.KeyStyle.PaddingRight(2)
			}
			return lipgloss.NewStyle()
		})

	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		t.Row(key, displayValue(value))
	}

	fmt.Fprintln(w, t.Render())
	return nil
}
