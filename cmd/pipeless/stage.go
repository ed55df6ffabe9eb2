package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Manage stages in the current project",
	}
	cmd.AddCommand(newStageNewCmd())
	return cmd
}

func newStageNewCmd() *cobra.Command {
	var skipPre, skipProcess, skipPost bool

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold a new stage subdirectory with pass-through hook files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStageNew(args[0], skipPre, skipProcess, skipPost)
		},
	}

	cmd.Flags().BoolVar(&skipPre, "no-pre-process", false, "skip the pre-process hook file")
	cmd.Flags().BoolVar(&skipProcess, "no-process", false, "skip the process hook file")
	cmd.Flags().BoolVar(&skipPost, "no-post-process", false, "skip the post-process hook file")

	return cmd
}

func runStageNew(name string, skipPre, skipProcess, skipPost bool) error {
	if err := os.Mkdir(name, 0o755); err != nil {
		return fmt.Errorf("creating stage directory: %w", err)
	}

	hooks := []struct {
		file string
		skip bool
	}{
		{"pre-process.js", skipPre},
		{"process.js", skipProcess},
		{"post-process.js", skipPost},
	}
	for _, h := range hooks {
		if h.skip {
			continue
		}
		if err := os.WriteFile(filepath.Join(name, h.file), []byte("return frame;\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", h.file, err)
		}
	}

	fmt.Printf("stage %q created\n", name)
	return nil
}
