package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"mirgo/internal/asset"
	"mirgo/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch SCENE...",
		Short: "Reconcile scenes whenever a prefab file changes",
		Long: `Watch the prefab directory and, whenever assets change on disk, refresh them
and reconcile the given scenes. Requires the file asset store. Stops on
interrupt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, ok := a.lib.Store().(*asset.FileStore)
			if !ok {
				return fmt.Errorf("watch needs the file asset store, project uses %q", a.cfg.Assets.Store)
			}
			watcher, err := watch.New(store, a.log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s\n", store.Dir())
			err = watcher.Run(ctx, func(ids []string) {
				changed := a.refresh(ids)
				if len(changed) == 0 {
					return
				}
				fmt.Fprintf(out, "changed: %s\n", strings.Join(changed, ", "))
				results, err := a.reconcileScenes(ctx, args)
				printResults(out, results)
				if err != nil {
					printWarning(out, "%v", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// refresh rereads the given assets and returns those with a new revision.
func (a *app) refresh(ids []string) []string {
	var changed []string
	for _, id := range ids {
		ok, err := a.lib.Refresh(id)
		if err != nil {
			a.log.WithField("asset", id).WithError(err).Warn("refresh failed")
			continue
		}
		if ok {
			changed = append(changed, id)
		}
	}
	return changed
}
