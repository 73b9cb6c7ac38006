package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mirgo/internal/config"
	"mirgo/internal/engine"
	"mirgo/internal/logging"
	"mirgo/internal/prefab"
	"mirgo/internal/world"
)

var errNoObject = errors.New("object not found")

// app is the state shared by every command: the project configuration and
// the prefab library in front of the configured store.
type app struct {
	dir     string
	strict  bool
	verbose bool

	cfg        *config.Config
	log        *logrus.Logger
	lib        *prefab.Library
	closeStore func() error

	mu    sync.Mutex
	saved []prefab.Saved
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "prefabctl",
		Short:         "Inspect and edit prefab instances in scene files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "Project directory (mirgo.toml is searched upwards from here)")
	root.PersistentFlags().BoolVar(&a.strict, "strict", false, "Fail instead of clearing references that cannot be resolved")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newCreateCommand(a))
	root.AddCommand(newInstantiateCommand(a))
	root.AddCommand(newStatusCommand(a))
	root.AddCommand(newDiffCommand(a))
	root.AddCommand(newApplyCommand(a))
	root.AddCommand(newRevertCommand(a))
	root.AddCommand(newBreakCommand(a))
	root.AddCommand(newReconcileCommand(a))
	root.AddCommand(newWatchCommand(a))
	return root
}

func (a *app) open(logOut io.Writer) error {
	cfg, err := config.FindAndLoad(a.dir)
	if err != nil {
		return err
	}
	if a.strict {
		cfg.Reconcile.StrictReferences = true
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return err
	}
	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return err
	}

	a.cfg, a.log, a.closeStore = cfg, log, closeStore
	a.lib = prefab.NewLibrary(store, log)
	a.lib.OnSaved.AddListener(a.recordSave)
	log.WithFields(logrus.Fields{"project": cfg.Dir, "store": cfg.Assets.Store}).Debug("project opened")
	return nil
}

func (a *app) recordSave(s prefab.Saved) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, s)
}

// takeSaved returns the prefab saves made since the last call.
func (a *app) takeSaved() []prefab.Saved {
	a.mu.Lock()
	defer a.mu.Unlock()
	saved := a.saved
	a.saved = nil
	return saved
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.closeStore = nil
	return err
}

func (a *app) newWorld(reconcileOnLoad bool) *world.World {
	return world.New(a.lib, world.Options{
		Logger:           a.log,
		ReconcileOnLoad:  reconcileOnLoad,
		StrictReferences: a.cfg.Reconcile.StrictReferences,
	})
}

// loadWorld loads a scene the way the editor would, reconciling stale
// instances when the project asks for it.
func (a *app) loadWorld(path string) (*world.World, error) {
	w := a.newWorld(a.cfg.Reconcile.OnLoad)
	if err := w.LoadScene(path); err != nil {
		return nil, err
	}
	return w, nil
}

// findObject resolves a slash separated name path whose first element names
// a root object of the scene.
func findObject(scene *engine.Scene, path string) (*engine.GameObject, error) {
	first, rest, _ := strings.Cut(strings.Trim(path, "/"), "/")
	for _, root := range scene.Roots() {
		if root.Name != first {
			continue
		}
		if obj := root.FindPath(rest); obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", path, errNoObject)
}

// objectPath is the inverse of findObject.
func objectPath(obj *engine.GameObject) string {
	root := obj
	for root.Parent != nil {
		root = root.Parent
	}
	p, _ := obj.PathFrom(root)
	if p == "" {
		return root.Name
	}
	return root.Name + "/" + p
}
