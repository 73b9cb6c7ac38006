package main

import (
	"github.com/spf13/cobra"

	"mirgo/internal/engine"
)

func newInstantiateCommand(a *app) *cobra.Command {
	var (
		parentPath string
		position   []float32
	)

	cmd := &cobra.Command{
		Use:   "instantiate SCENE ASSET",
		Short: "Add a linked instance of a prefab to a scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenePath, assetID := args[0], args[1]
			w, err := a.loadWorld(scenePath)
			if err != nil {
				return err
			}

			var parent *engine.GameObject
			if parentPath != "" {
				if parent, err = findObject(w.Scene, parentPath); err != nil {
					return err
				}
			}
			root, report, err := w.Prefabs.Instantiate(assetID, parent)
			if err != nil {
				return err
			}
			if len(position) == 3 {
				root.Transform.Position.X = position[0]
				root.Transform.Position.Y = position[1]
				root.Transform.Position.Z = position[2]
			}
			if err := w.SaveScene(scenePath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, report)
			printSuccess(out, "instantiated %s as %s (uid %d)", assetID, objectPath(root), root.UID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parentPath, "parent", "", "Parent object path (scene root when empty)")
	cmd.Flags().Float32SliceVar(&position, "at", nil, "Local position of the instance root as x,y,z")
	return cmd
}
