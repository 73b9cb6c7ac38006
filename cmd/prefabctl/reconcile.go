package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mirgo/internal/prefab"
)

func newReconcileCommand(a *app) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "reconcile SCENE...",
		Short: "Rebuild stale prefab instances and save the scenes",
		Long: `Rebuild every instance whose prefab has a newer revision, keeping its
modifications, and save each scene that changed. Scenes are processed in
parallel.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers > 0 {
				a.cfg.Reconcile.Workers = workers
			}
			results, err := a.reconcileScenes(cmd.Context(), args)
			printResults(cmd.OutOrStdout(), results)
			return err
		},
	}

	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "Scenes processed at once (defaults to reconcile.workers)")
	return cmd
}

type sceneResult struct {
	path    string
	rebuilt int
	report  *prefab.Report
	done    bool
}

// reconcileScenes loads, reconciles and saves each scene in its own world.
// Worlds share the library, so an asset is read once.
func (a *app) reconcileScenes(ctx context.Context, paths []string) ([]sceneResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]sceneResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Reconcile.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w := a.newWorld(false)
			if err := w.LoadScene(path); err != nil {
				return err
			}
			n, report, err := w.Prefabs.ReconcileStale()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if n > 0 {
				if err := w.SaveScene(path); err != nil {
					return err
				}
			}
			a.log.WithFields(logrus.Fields{"scene": path, "instances": n}).Debug("scene reconciled")
			results[i] = sceneResult{path: path, rebuilt: n, report: report, done: true}
			return nil
		})
	}
	return results, g.Wait()
}

func printResults(out io.Writer, results []sceneResult) {
	for _, r := range results {
		if !r.done {
			continue
		}
		printReport(out, r.report)
		if r.rebuilt == 0 {
			fmt.Fprintf(out, "%s: up to date\n", r.path)
			continue
		}
		printSuccess(out, "%s: rebuilt %s", r.path, plural(r.rebuilt, "instance"))
	}
}
