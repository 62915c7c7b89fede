package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Create a workspace configuration",
	Long:  `Create .testnorm/config.toml with documented defaults in DIR (default: current directory).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	proj, err := project.Create(dir)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	defer proj.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", filepath.Join(proj.Root, project.ConfigDir, project.ConfigFile))
	return nil
}
