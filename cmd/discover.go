package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/detect"
	"github.com/newhook/testnorm/internal/discovery"
)

var (
	flagDiscoverKind   string
	flagDiscoverDeps   string
	flagDiscoverLog    string
	flagDiscoverRunner string
	flagDiscoverJSON   bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover TARGET...",
	Short: "Resolve the canonical result for one or more targets",
	Long: `Look up each target's structured result file under the runner's testlogs
directory and fall back to the raw output given with --log. Targets are
discovered in parallel up to the configured concurrency.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&flagDiscoverKind, "kind", "", "rule kind of the targets, e.g. cc_test or py_test")
	discoverCmd.Flags().StringVar(&flagDiscoverDeps, "deps", "", "comma-separated dependency labels of the targets")
	discoverCmd.Flags().StringVar(&flagDiscoverLog, "log", "", "raw output of the last run (\"-\" for stdin)")
	discoverCmd.Flags().StringVar(&flagDiscoverRunner, "runner", "", "runner executable (default: from config)")
	discoverCmd.Flags().BoolVar(&flagDiscoverJSON, "json", false, "print the reports as JSON")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	var raw string
	if flagDiscoverLog != "" {
		data, err := readInput(cmd, flagDiscoverLog)
		if err != nil {
			return err
		}
		raw = string(data)
	}

	meta := detect.Meta{RuleKind: flagDiscoverKind, Deps: splitList(flagDiscoverDeps)}
	reqs := make([]discovery.Request, 0, len(args))
	for _, target := range args {
		reqs = append(reqs, discovery.Request{
			Target:     target,
			Workspace:  proj.Root,
			RunnerPath: flagDiscoverRunner,
			Meta:       meta,
			RawOutput:  raw,
		})
	}

	svc := proj.NewService()
	reports, err := svc.DiscoverAll(ctx, reqs)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if flagDiscoverJSON {
		return writeJSON(cmd.OutOrStdout(), reports)
	}
	out := cmd.OutOrStdout()
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, headerStyle.Render(r.Target))
		renderResult(out, r.Result, r.Provenance)
	}
	return nil
}
