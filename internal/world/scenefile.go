package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
	"mirgo/internal/prefab"
)

const SceneVersion = 1

var ErrInvalidScene = errors.New("invalid scene file")

// --- JSON types ---

type SceneFile struct {
	Version int         `json:"version"`
	Name    string      `json:"name"`
	Objects []ObjectDef `json:"objects"`
	Prefabs []PrefabDef `json:"prefabs,omitempty"`
}

// ObjectDef is one object. Objects are listed parents first, children in
// sibling order.
type ObjectDef struct {
	UID        uint64         `json:"uid"`
	Parent     uint64         `json:"parent,omitempty"`
	Source     uint64         `json:"source,omitempty"`
	Name       string         `json:"name"`
	Tags       []string       `json:"tags,omitempty"`
	Active     *bool          `json:"active,omitempty"`
	Position   [3]float32     `json:"position"`
	Rotation   [3]float32     `json:"rotation"`
	Scale      [3]float32     `json:"scale"`
	Components []ComponentDef `json:"components,omitempty"`
}

type ComponentDef struct {
	Type   string          `json:"type"`
	UID    uint64          `json:"uid"`
	Source uint64          `json:"source,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// PrefabDef is the link of an instance root. Mods holds the encoded
// prefab.Modifications.
type PrefabDef struct {
	Root     uint64 `json:"root"`
	Asset    string `json:"asset"`
	Revision string `json:"revision"`
	Mods     []byte `json:"mods,omitempty"`
}

// --- Loading ---

// LoadScene replaces the current scene with the one stored at path. Links
// are restored, and with ReconcileOnLoad stale instances are rebuilt. The
// current scene is kept if the file cannot be loaded.
func (w *World) LoadScene(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}

	var sf SceneFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse scene: %w: %v", ErrInvalidScene, err)
	}
	if sf.Version > SceneVersion {
		return fmt.Errorf("parse scene: %w: version %d is newer than %d", ErrInvalidScene, sf.Version, SceneVersion)
	}

	log := w.log.WithField("scene", path)
	scene := engine.NewScene(sf.Name)
	byUID := make(map[uint64]*engine.GameObject, len(sf.Objects))
	objects := make([]*engine.GameObject, 0, len(sf.Objects))

	for _, objDef := range sf.Objects {
		if objDef.UID == 0 {
			return fmt.Errorf("parse scene: %w: object %q has no uid", ErrInvalidScene, objDef.Name)
		}
		if _, dup := byUID[objDef.UID]; dup {
			return fmt.Errorf("parse scene: %w: duplicate uid %d", ErrInvalidScene, objDef.UID)
		}

		g := engine.NewGameObject(objDef.Name)
		g.UID = objDef.UID
		engine.ReserveUID(g.UID)
		g.PrefabSourceID = objDef.Source
		g.Tags = objDef.Tags
		if objDef.Active != nil {
			g.Active = *objDef.Active
		}
		g.Transform.Position = vec(objDef.Position)
		g.Transform.Rotation = vec(objDef.Rotation)

		// Default scale to 1 if zero
		if objDef.Scale != [3]float32{} {
			g.Transform.Scale = vec(objDef.Scale)
		}

		for _, def := range objDef.Components {
			c, err := w.loadComponent(def)
			if err != nil {
				log.WithFields(logrus.Fields{"object": g.Name, "type": def.Type}).WithError(err).Warn("component skipped")
				continue
			}
			g.AddComponent(c)
		}

		byUID[g.UID] = g
		objects = append(objects, g)
	}

	for i, objDef := range sf.Objects {
		if objDef.Parent == 0 {
			continue
		}
		parent, ok := byUID[objDef.Parent]
		if !ok {
			return fmt.Errorf("parse scene: %w: parent %d of %q not found", ErrInvalidScene, objDef.Parent, objDef.Name)
		}
		parent.AddChild(objects[i])
	}
	for _, g := range objects {
		scene.AddGameObject(g)
	}

	mgr := w.newManager(scene)
	for _, def := range sf.Prefabs {
		mods, err := prefab.UnmarshalModifications(def.Mods)
		if err != nil {
			return fmt.Errorf("parse scene: prefab link %d: %w", def.Root, err)
		}
		link := &prefab.Link{Root: def.Root, AssetID: def.Asset, Revision: asset.Revision(def.Revision), Mods: mods}
		if err := mgr.AddLink(link); err != nil {
			log.WithError(err).Warn("prefab link dropped")
		}
	}

	if w.opts.ReconcileOnLoad {
		n, _, err := mgr.ReconcileStale()
		if err != nil {
			return fmt.Errorf("load scene %s: %w", path, err)
		}
		if n > 0 {
			log.WithField("instances", n).Info("stale prefab instances rebuilt")
		}
	}

	w.Scene, w.Prefabs = scene, mgr
	log.WithFields(logrus.Fields{"objects": len(objects), "prefabs": len(mgr.Links())}).Debug("scene loaded")
	return nil
}

func (w *World) loadComponent(def ComponentDef) (engine.Component, error) {
	c := w.opts.Components.Create(def.Type)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", prefab.ErrUnknownType, def.Type)
	}
	if len(def.Data) > 0 {
		if err := json.Unmarshal(def.Data, c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", def.Type, err)
		}
	}
	if def.UID != 0 {
		c.SetID(def.UID)
		engine.ReserveUID(def.UID)
	}
	c.SetSourceID(def.Source)
	return c, nil
}

// --- Saving ---

// SaveScene records the modifications of every prefab instance and writes
// the scene to path.
func (w *World) SaveScene(path string) error {
	if err := w.Prefabs.RecordModifications(); err != nil {
		return fmt.Errorf("save scene: %w", err)
	}

	sf := SceneFile{Version: SceneVersion, Name: w.Scene.Name}
	for _, root := range w.Scene.Roots() {
		var err error
		root.Walk(func(g *engine.GameObject) {
			if err != nil {
				return
			}
			var objDef ObjectDef
			objDef, err = w.objectDef(g)
			sf.Objects = append(sf.Objects, objDef)
		})
		if err != nil {
			return fmt.Errorf("save scene: %w", err)
		}
	}

	for _, l := range w.Prefabs.Links() {
		mods, err := l.Mods.Marshal()
		if err != nil {
			return fmt.Errorf("save scene: prefab link %d: %w", l.Root, err)
		}
		sf.Prefabs = append(sf.Prefabs, PrefabDef{Root: l.Root, Asset: l.AssetID, Revision: string(l.Revision), Mods: mods})
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

func (w *World) objectDef(g *engine.GameObject) (ObjectDef, error) {
	objDef := ObjectDef{
		UID:      g.UID,
		Source:   g.PrefabSourceID,
		Name:     g.Name,
		Tags:     g.Tags,
		Position: arr(g.Transform.Position),
		Rotation: arr(g.Transform.Rotation),
		Scale:    arr(g.Transform.Scale),
	}
	if g.Parent != nil {
		objDef.Parent = g.Parent.UID
	}
	if !g.Active {
		active := false
		objDef.Active = &active
	}

	for _, c := range g.Components() {
		name, ok := w.opts.Components.NameOf(c)
		if !ok {
			// Code-managed components are not saved.
			continue
		}
		data, err := json.Marshal(c)
		if err != nil {
			return objDef, fmt.Errorf("%q: encode %s: %w", g.Name, name, err)
		}
		objDef.Components = append(objDef.Components, ComponentDef{
			Type:   name,
			UID:    c.ID(),
			Source: c.SourceID(),
			Data:   data,
		})
	}
	return objDef, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func vec(v [3]float32) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

func arr(v rl.Vector3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
