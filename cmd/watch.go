package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newhook/testnorm/internal/detect"
	"github.com/newhook/testnorm/internal/discovery"
	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/resolver"
	tnsignal "github.com/newhook/testnorm/internal/signal"
	"github.com/newhook/testnorm/internal/watcher"
)

var flagWatchKind string

var watchCmd = &cobra.Command{
	Use:   "watch TARGET",
	Short: "Re-resolve a target whenever its result file changes",
	Long: `Watch the structured result file of TARGET and print its canonical result
each time the runner rewrites it. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchKind, "kind", "", "rule kind of the target")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	target := args[0]
	cfg := proj.DiscoveryConfig()
	loader := resolver.NewFileLoader(nil, proj.Config.Discovery.GetTestlogsDir())
	paths := loader.ResultPaths(target, proj.Root, cfg.RunnerPath)
	if len(paths) == 0 {
		// Nothing written yet; watch where the single-file report will appear.
		dir := loader.TargetDir(target, proj.Root, cfg.RunnerPath)
		if dir == "" {
			return fmt.Errorf("invalid target label %q", target)
		}
		paths = []string{filepath.Join(dir, resolver.ResultFileName)}
	}

	w, err := watcher.New(watcher.DefaultConfig(paths...))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	defer func() { _ = w.Stop() }()
	if err := w.Start(); err != nil {
		return err
	}

	svc := proj.NewService()
	req := discovery.Request{
		Target:    target,
		Workspace: proj.Root,
		Meta:      detect.Meta{RuleKind: flagWatchKind},
	}
	out := cmd.OutOrStdout()
	show := func() error {
		report, err := svc.Discover(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, headerStyle.Render(target))
		renderResult(out, report.Result, report.Provenance)
		return nil
	}

	if err := show(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			if tnsignal.Interrupted(ctx) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			logging.Debug("re-resolving target", "target", target, "path", ev.Path)
			if err := svc.Invalidate(ctx, target); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := show(); err != nil {
				return err
			}
		}
	}
}
