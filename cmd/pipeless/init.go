package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const scaffoldPreProcess = `// pre-process hook: shape the incoming frame for the process stage.
return frame;
`

const scaffoldProcess = `// process hook: run inference or custom processing logic.
return frame;
`

const scaffoldPostProcess = `// post-process hook: consume the processed frame, e.g. draw annotations.
return frame;
`

func newInitCmd() *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "init <project_dir>",
		Short: "Scaffold a new stages project directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], template)
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "scaffold an example stage (\"scaffold\") alongside the project")

	return cmd
}

func runInit(projectDir, template string) error {
	if err := os.Mkdir(projectDir, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	switch template {
	case "":
		// no example stage requested
	case "scaffold":
		if err := scaffoldStage(filepath.Join(projectDir, "my-stage")); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown template %q", template)
	}

	fmt.Printf("project created at: %s\n", projectDir)
	return nil
}

func scaffoldStage(stageDir string) error {
	if err := os.Mkdir(stageDir, 0o755); err != nil {
		return fmt.Errorf("creating stage directory: %w", err)
	}
	files := map[string]string{
		"pre-process.js":  scaffoldPreProcess,
		"process.js":      scaffoldProcess,
		"post-process.js": scaffoldPostProcess,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(stageDir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
