package cmd

import (
	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/testcase"
	"github.com/newhook/testnorm/internal/xmlparser"
)

var (
	flagXMLTarget  string
	flagXMLPackage string
	flagXMLJSON    bool
)

var xmlCmd = &cobra.Command{
	Use:   "xml FILE",
	Short: "Read test cases from a JUnit-style result file",
	Long: `Decode a JUnit-style XML report, tolerating truncated or malformed documents.
Cases without a location are backfilled from failure messages and from any
system-out text the report embeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runXML,
}

func init() {
	xmlCmd.Flags().StringVarP(&flagXMLTarget, "target", "t", "", "target identifier stamped on every case")
	xmlCmd.Flags().StringVar(&flagXMLPackage, "package", "", "package path used to prefer in-package failure locations")
	xmlCmd.Flags().BoolVar(&flagXMLJSON, "json", false, "print the result as JSON")
}

func runXML(cmd *cobra.Command, args []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	parser := xmlparser.New(lineparser.New(proj.Registry()))
	res := parser.Parse(data, xmlparser.Options{
		Target:      flagXMLTarget,
		PackagePath: flagXMLPackage,
	})

	if flagXMLJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	renderResult(cmd.OutOrStdout(), res, testcase.ProvenanceXML)
	return nil
}
