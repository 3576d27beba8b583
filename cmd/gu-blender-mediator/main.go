package main

import (
	"fmt"
	"os"

	"github.com/prekucki/gu-blender-mediator/cmd/gu-blender-mediator/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
