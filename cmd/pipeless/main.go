// Command pipeless is the CLI entry point: it boots the runtime (start),
// scaffolds stages projects (init, stage new), and drives a running
// instance's HTTP control surface (streams list/add/rm).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "pipeless",
		Short: "Pipeless: a multi-stream media-processing runtime",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newStageCmd())
	root.AddCommand(newStreamsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
