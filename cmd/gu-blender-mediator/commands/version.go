package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at link time via -ldflags "-X ...buildVersion=...".
var buildVersion = "dev"

type versionInfo struct {
	Version string `json:"version"`
}

// VersionCmd prints the mediator's build version.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gu-blender-mediator version",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		info := versionInfo{Version: buildVersion}
		if jsonOutput {
			out, _ := json.MarshalIndent(info, "", "  ")
			fmt.Println(string(out))
			return
		}
		fmt.Println(info.Version)
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "output as JSON")
}
