package main

import (
	"github.com/spf13/cobra"
)

func newCreateCommand(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "create SCENE OBJECT",
		Short: "Save an object subtree as a new prefab and link it",
		Long: `Create a prefab asset from the subtree at OBJECT and turn the subtree into
the first instance of it. OBJECT is a slash separated name path starting at
a root object, for example "level/crate".`,
		Args: cobra.ExactArgs(2),
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
			link, report, err := w.Prefabs.CreatePrefab(obj, id)
			if err != nil {
				return err
			}
			if err := w.SaveScene(scenePath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, report)
			printSuccess(out, "created prefab %s (revision %s) from %s", link.AssetID, link.Revision.Short(), objPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset id (generated when empty)")
	return cmd
}
