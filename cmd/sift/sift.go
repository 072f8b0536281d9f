// Package siftcmder wires the sift subcommands into the root command.
package siftcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/sift/cmd/sift/config"
	decodecmder "github.com/papercomputeco/sift/cmd/sift/decode"
	initcmder "github.com/papercomputeco/sift/cmd/sift/init"
	servecmder "github.com/papercomputeco/sift/cmd/sift/serve"
	watchcmder "github.com/papercomputeco/sift/cmd/sift/watch"
	versioncmder "github.com/papercomputeco/sift/cmd/version"
	"github.com/papercomputeco/sift/pkg/cliui"
)

const siftLongDesc string = `Sift decodes search result streams into events.

It reads results in XML, JSON and export JSON, keeps or skips preview
result sets, and can store the decoded events or publish them to Kafka.

Commands:
  sift decode     Decode a result stream from a file, URL or stdin
  sift watch      Ingest result files dropped into a directory
  sift serve      Run the HTTP API and MCP endpoint
  sift init       Create a local .sift/ directory
  sift config     Manage persistent configuration`

const siftShortDesc string = "Sift - search result decoding"

func NewSiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sift",
		Short:         siftShortDesc,
		Long:          siftLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			cliui.SetColor(!noColor && cliui.IsTerminal(cmd.OutOrStdout()))
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .sift configuration directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(decodecmder.NewDecodeCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
