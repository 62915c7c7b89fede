package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/filter"
)

var (
	flagFilterSuite     string
	flagFilterClass     string
	flagFilterFile      string
	flagFilterTarget    string
	flagFilterFramework string
	flagFilterPatterns  string
)

var filterCmd = &cobra.Command{
	Use:   "filter NAME",
	Short: "Print the filter expression that re-runs a single test case",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&flagFilterSuite, "suite", "", "suite of the case")
	filterCmd.Flags().StringVar(&flagFilterClass, "class", "", "class of the case")
	filterCmd.Flags().StringVar(&flagFilterFile, "file", "", "source file of the case")
	filterCmd.Flags().StringVarP(&flagFilterTarget, "target", "t", "", "owning target, used to infer the framework family")
	filterCmd.Flags().StringVar(&flagFilterFramework, "framework", "", "pattern id that produced the case")
	filterCmd.Flags().StringVarP(&flagFilterPatterns, "patterns", "p", "", "comma-separated pattern ids to choose a template from")
}

func runFilter(cmd *cobra.Command, args []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	expr := filter.Build(proj.Registry(), args[0], splitList(flagFilterPatterns), filter.Context{
		Suite:     flagFilterSuite,
		Class:     flagFilterClass,
		File:      flagFilterFile,
		Target:    flagFilterTarget,
		Framework: flagFilterFramework,
	})
	fmt.Fprintln(cmd.OutOrStdout(), expr)
	return nil
}
