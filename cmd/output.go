package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/testcase"
)

const (
	messageWidth    = 100
	maxMessageLines = 6
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

func statusLabel(s testcase.Status) string {
	label := fmt.Sprintf("%-7s", s)
	switch s {
	case testcase.StatusPass:
		return passStyle.Render(label)
	case testcase.StatusFail:
		return failStyle.Render(label)
	case testcase.StatusTimeout:
		return timeoutStyle.Render(label)
	default:
		return skipStyle.Render(label)
	}
}

// displayName qualifies the case name with its suite or class.
func displayName(c *testcase.Case) string {
	if scope := c.Scope(); scope != "" {
		return scope + "." + c.Name
	}
	return c.Name
}

func location(c *testcase.Case) string {
	switch {
	case c.HasLocation():
		return fmt.Sprintf("%s:%d", c.File, c.Line)
	case c.File != "":
		return c.File
	}
	return ""
}

// messageLines wraps a failure message and caps it to maxMessageLines.
func messageLines(msg string, width int) []string {
	wrapped := strings.Split(wordwrap.String(strings.TrimSpace(msg), width), "\n")
	var out []string
	for _, line := range wrapped {
		if len(out) == maxMessageLines {
			out = append(out, "...")
			break
		}
		out = append(out, truncate.StringWithTail(line, uint(width), "..."))
	}
	return out
}

func summaryLine(s testcase.Summary, prov testcase.Provenance) string {
	return fmt.Sprintf("%d tests, %d passed, %d failed, %d ignored (%s)",
		s.Total, s.Passed, s.Failed, s.Ignored, prov)
}

// renderResult prints one line per case with failure messages indented
// beneath, then the summary.
func renderResult(w io.Writer, res *testcase.Result, prov testcase.Provenance) {
	for i := range res.Cases {
		c := &res.Cases[i]
		line := statusLabel(c.Status) + " " + displayName(c)
		if loc := location(c); loc != "" {
			line += " " + dimStyle.Render(loc)
		}
		fmt.Fprintln(w, line)

		if c.Message == "" || c.Status == testcase.StatusPass {
			continue
		}
		for _, m := range messageLines(c.Message, messageWidth) {
			fmt.Fprintln(w, "        "+m)
		}
	}
	fmt.Fprintln(w, headerStyle.Render(summaryLine(res.Summary, prov)))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
