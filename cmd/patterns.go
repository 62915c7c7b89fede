package cmd

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/patterns"
)

var (
	flagPatternsKind string
	flagPatternsJSON bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the grammars in the pattern registry",
	Args:  cobra.NoArgs,
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&flagPatternsKind, "kind", "", "only list grammars mapped to this rule kind")
	patternsCmd.Flags().BoolVar(&flagPatternsJSON, "json", false, "print the grammars as JSON")
}

type patternInfo struct {
	ID          string   `json:"id"`
	Family      string   `json:"family,omitempty"`
	Description string   `json:"description,omitempty"`
	Regex       string   `json:"regex"`
	Filter      string   `json:"filter,omitempty"`
	Individual  bool     `json:"individual"`
	RuleKinds   []string `json:"rule_kinds,omitempty"`
}

func runPatterns(cmd *cobra.Command, args []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	reg := proj.Registry()
	list := reg.All()
	if flagPatternsKind != "" {
		list = reg.Subset(reg.IDsForRuleKind(flagPatternsKind))
	}

	infos := make([]patternInfo, 0, len(list))
	for _, p := range list {
		infos = append(infos, describePattern(p))
	}

	if flagPatternsJSON {
		return writeJSON(cmd.OutOrStdout(), infos)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-16s %-10s %-5s %s\n", "ID", "FAMILY", "RERUN", "FILTER")
	fmt.Fprintf(out, "%-16s %-10s %-5s %s\n", "--", "------", "-----", "------")
	for _, p := range infos {
		rerun := "no"
		if p.Individual {
			rerun = "yes"
		}
		filterTpl := p.Filter
		if filterTpl == "" {
			filterTpl = "-"
		}
		fmt.Fprintf(out, "%-16s %-10s %-5s %s\n", p.ID, p.Family, rerun, truncate.StringWithTail(filterTpl, 60, "..."))
	}
	if flagPatternsKind != "" && len(infos) == 0 {
		fmt.Fprintf(out, "No grammars for rule kind '%s'\n", strings.ToLower(flagPatternsKind))
	}
	return nil
}

func describePattern(p patterns.Pattern) patternInfo {
	return patternInfo{
		ID:          p.ID,
		Family:      p.Family,
		Description: p.Description,
		Regex:       p.Regex.String(),
		Filter:      p.FilterTemplate,
		Individual:  p.Individual,
		RuleKinds:   p.RuleKinds,
	}
}
