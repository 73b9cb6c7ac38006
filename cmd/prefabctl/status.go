package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mirgo/internal/world"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status SCENE...",
		Short: "List the prefab instances of scenes",
		Long: `List every prefab instance with its asset, the revision it was built from,
whether a newer revision exists and how many modifications it carries.
Scenes are loaded without reconciling.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				w := a.newWorld(false)
				if err := w.LoadScene(path); err != nil {
					return err
				}
				if err := printStatus(cmd.OutOrStdout(), path, w); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printStatus(out io.Writer, path string, w *world.World) error {
	links := w.Prefabs.Links()
	fmt.Fprintf(out, "%s: %s\n", path, plural(len(links), "instance"))
	if len(links) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, l := range links {
		root := w.Scene.FindByUID(l.Root)
		if root == nil {
			continue
		}
		mods, err := w.Prefabs.Modifications(root)
		if err != nil {
			return fmt.Errorf("%s: %w", objectPath(root), err)
		}
		stale, err := w.Prefabs.IsStale(l)
		if err != nil {
			return fmt.Errorf("%s: %w", objectPath(root), err)
		}
		state := successColor.Sprint("up to date")
		if stale {
			state = warningColor.Sprint("stale")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", objectPath(root), l.AssetID, l.Revision.Short(), state, plural(mods.Count(), "modification"))
	}
	return tw.Flush()
}
