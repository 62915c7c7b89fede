package cmd

import (
	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/testcase"
)

var (
	flagParseTarget   string
	flagParsePatterns string
	flagParseJSON     bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [FILE|-]",
	Short: "Recover test cases from raw test output",
	Long: `Scan raw, interleaved stdout/stderr text with the pattern registry and print
the recovered test cases. Reads stdin when FILE is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&flagParseTarget, "target", "t", "", "target identifier stamped on every case")
	parseCmd.Flags().StringVarP(&flagParsePatterns, "patterns", "p", "", "comma-separated pattern ids to restrict matching to")
	parseCmd.Flags().BoolVar(&flagParseJSON, "json", false, "print the result as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	data, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	parser := lineparser.New(proj.Registry())
	res := parser.Parse(string(data), lineparser.Options{
		Target:  flagParseTarget,
		Allowed: splitList(flagParsePatterns),
	})

	if flagParseJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	renderResult(cmd.OutOrStdout(), res, testcase.ProvenanceOutput)
	return nil
}
