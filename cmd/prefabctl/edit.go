package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mirgo/internal/engine"
	"mirgo/internal/world"
)

// editCommand loads SCENE, runs fn on the object at OBJECT and saves the
// scene when fn succeeds.
func editCommand(a *app, use, short string, fn func(cmd *cobra.Command, w *world.World, obj *engine.GameObject) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SCENE OBJECT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenePath, objPath := args[0], args[1]
			w, err := a.loadWorld(scenePath)
			if err != nil {
				return err
			}
			obj, err := findObject(w.Scene, objPath)
			if err != nil {
				return err
			}
			if err := fn(cmd, w, obj); err != nil {
				return err
			}
			return w.SaveScene(scenePath)
		},
	}
}

func newApplyCommand(a *app) *cobra.Command {
	var scenes []string
	cmd := editCommand(a, "apply", "Write an instance's modifications into its prefab",
		func(cmd *cobra.Command, w *world.World, obj *engine.GameObject) error {
			mods, err := w.Prefabs.Modifications(obj)
			if err != nil {
				return err
			}
			rootUID := obj.UID
			report, err := w.Prefabs.ApplyPrefab(obj)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReport(out, report)
			if l, ok := w.Prefabs.Link(w.Scene.FindByUID(rootUID)); ok {
				printSuccess(out, "applied %s to %s (revision %s)", plural(mods.Count(), "modification"), l.AssetID, l.Revision.Short())
			}
			return nil
		})
	cmd.Flags().StringSliceVar(&scenes, "reconcile", nil, "Other scenes to reconcile once the prefab is saved")
	cmd.PostRunE = func(cmd *cobra.Command, args []string) error {
		saved := a.takeSaved()
		if len(saved) == 0 || len(scenes) == 0 {
			return nil
		}
		for _, s := range saved {
			a.log.WithFields(logrus.Fields{"asset": s.AssetID, "revision": s.Revision.Short()}).Debug("reconciling scenes after save")
		}
		results, err := a.reconcileScenes(cmd.Context(), scenes)
		printResults(cmd.OutOrStdout(), results)
		return err
	}
	return cmd
}

func newRevertCommand(a *app) *cobra.Command {
	return editCommand(a, "revert", "Discard an instance's modifications",
		func(cmd *cobra.Command, w *world.World, obj *engine.GameObject) error {
			root, report, err := w.Prefabs.RevertPrefab(obj)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReport(out, report)
			printSuccess(out, "reverted %s", objectPath(root))
			return nil
		})
}

func newBreakCommand(a *app) *cobra.Command {
	return editCommand(a, "break", "Turn an instance into plain objects",
		func(cmd *cobra.Command, w *world.World, obj *engine.GameObject) error {
			if err := w.Prefabs.BreakPrefabLink(obj); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "unlinked %s", objectPath(obj))
			return nil
		})
}
