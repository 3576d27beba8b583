// Package commands implements the gu-blender-mediator CLI, grounded on
// teranos-QNTX/cmd/qntx/commands's cobra root + subcommand layout.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prekucki/gu-blender-mediator/internal/xlog"
)

var configPath string

// RootCmd is the gu-blender-mediator entry point.
var RootCmd = &cobra.Command{
	Use:   "gu-blender-mediator",
	Short: "Bridges the Blender rendering marketplace and the golem-unlimited compute hub",
	Long: `gu-blender-mediator subscribes to Blender render tasks on the marketplace,
deploys Blender sessions onto hub peers, and reports subtask results back.

Available commands:
  serve    - Run the mediator (default hub session plus admin surface)
  version  - Print build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := xlog.Initialize(jsonLogs); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize logger: %v\n", err)
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the node identity TOML file")
	RootCmd.PersistentFlags().Bool("json-logs", false, "emit structured JSON logs instead of a console encoder")

	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(VersionCmd)
}
