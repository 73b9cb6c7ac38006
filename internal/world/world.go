// Package world loads and saves scene files and keeps the prefab links of
// the loaded scene.
package world

import (
	"github.com/sirupsen/logrus"

	"mirgo/internal/engine"
	"mirgo/internal/prefab"
)

type World struct {
	Scene   *engine.Scene
	Prefabs *prefab.Manager

	lib  *prefab.Library
	opts Options
	log  logrus.FieldLogger
}

type Options struct {
	// Components defaults to engine.DefaultRegistry().
	Components *engine.ComponentRegistry
	Logger     logrus.FieldLogger

	// ReconcileOnLoad rebuilds instances whose prefab changed since the
	// scene was saved.
	ReconcileOnLoad bool

	StrictReferences bool
}

func New(lib *prefab.Library, opts Options) *World {
	if opts.Components == nil {
		opts.Components = engine.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	w := &World{lib: lib, opts: opts, log: opts.Logger}
	w.reset(engine.NewScene("Main"))
	return w
}

func (w *World) reset(scene *engine.Scene) {
	w.Scene = scene
	w.Prefabs = w.newManager(scene)
}

func (w *World) newManager(scene *engine.Scene) *prefab.Manager {
	return prefab.NewManager(scene, w.lib,
		prefab.WithComponents(w.opts.Components),
		prefab.WithLogger(w.opts.Logger),
		prefab.WithStrictReferences(w.opts.StrictReferences),
	)
}

func (w *World) Library() *prefab.Library { return w.lib }
