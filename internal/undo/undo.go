// Package undo records scene edits, prefab operations included, so they
// can be taken back.
package undo

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"mirgo/internal/engine"
	"mirgo/internal/prefab"
)

const maxUndoStack = 50

// ActionType represents the type of action that can be undone
type ActionType int

const (
	ActionTransform ActionType = iota
	ActionDelete
	ActionRevert
	ActionReconcile
	ActionBreak
	ActionApply
)

func (a ActionType) String() string {
	switch a {
	case ActionTransform:
		return "transform"
	case ActionDelete:
		return "delete"
	case ActionRevert:
		return "revert prefab"
	case ActionReconcile:
		return "reconcile prefab"
	case ActionBreak:
		return "break prefab link"
	case ActionApply:
		return "apply prefab"
	}
	return "unknown"
}

// State captures what an action changed
type State struct {
	Type   ActionType
	Object *engine.GameObject

	Position rl.Vector3
	Rotation rl.Vector3
	Scale    rl.Vector3

	// For delete undo
	Parent *engine.GameObject
	Index  int

	// For prefab actions. Object is the root before the action and
	// Replacement the root it was swapped for, if any.
	Replacement *engine.GameObject
	Links       map[uint64]*prefab.Link
	Sources     *sources
}

// sources is a snapshot of the prefab source ids of a subtree.
type sources struct {
	objects    map[*engine.GameObject]uint64
	components map[engine.Component]uint64
}

func snapshotSources(root *engine.GameObject) *sources {
	s := &sources{
		objects:    make(map[*engine.GameObject]uint64),
		components: make(map[engine.Component]uint64),
	}
	root.Walk(func(obj *engine.GameObject) {
		s.objects[obj] = obj.PrefabSourceID
		for _, c := range obj.Components() {
			s.components[c] = c.SourceID()
		}
	})
	return s
}

func (s *sources) restore() {
	for obj, id := range s.objects {
		obj.PrefabSourceID = id
	}
	for c, id := range s.components {
		c.SetSourceID(id)
	}
}

// Stack is a capped undo stack for one scene.
type Stack struct {
	prefabs *prefab.Manager
	states  []State
}

func New(prefabs *prefab.Manager) *Stack {
	return &Stack{
		prefabs: prefabs,
		states:  make([]State, 0, maxUndoStack),
	}
}

func (s *Stack) Len() int { return len(s.states) }

// Peek returns the action Undo would take back.
func (s *Stack) Peek() (ActionType, bool) {
	if len(s.states) == 0 {
		return 0, false
	}
	return s.states[len(s.states)-1].Type, true
}

func (s *Stack) Clear() {
	s.states = s.states[:0]
}

func (s *Stack) push(state State) {
	// Cap stack size
	if len(s.states) >= maxUndoStack {
		s.states = s.states[1:]
	}
	s.states = append(s.states, state)
}

// links clones the prefab links of root and of every instance nested in it.
func (s *Stack) links(root *engine.GameObject) map[uint64]*prefab.Link {
	out := make(map[uint64]*prefab.Link)
	root.Walk(func(obj *engine.GameObject) {
		if l, ok := s.prefabs.Link(obj); ok {
			out[obj.UID] = l.Clone()
		}
	})
	return out
}

// PushTransform saves the current transform of obj
func (s *Stack) PushTransform(obj *engine.GameObject) {
	if obj == nil {
		return
	}
	s.push(State{
		Type:     ActionTransform,
		Object:   obj,
		Position: obj.Transform.Position,
		Rotation: obj.Transform.Rotation,
		Scale:    obj.Transform.Scale,
	})
}

// Delete removes obj and its subtree from the scene, keeping them for undo.
func (s *Stack) Delete(obj *engine.GameObject) {
	state := State{
		Type:   ActionDelete,
		Object: obj,
		Parent: obj.Parent,
		Index:  -1,
		Links:  s.links(obj),
	}
	if obj.Parent != nil {
		state.Index = obj.Parent.ChildIndex(obj)
	}
	for uid := range state.Links {
		s.prefabs.RestoreLink(uid, nil)
	}
	s.prefabs.Scene().RemoveGameObject(obj)
	s.push(state)
}

// Revert reverts a prefab instance and records it.
func (s *Stack) Revert(root *engine.GameObject) (*engine.GameObject, *prefab.Report, error) {
	return s.rebuild(ActionRevert, root, s.prefabs.RevertPrefab)
}

// Reconcile reconciles a prefab instance and records it.
func (s *Stack) Reconcile(root *engine.GameObject) (*engine.GameObject, *prefab.Report, error) {
	return s.rebuild(ActionReconcile, root, s.prefabs.Reconcile)
}

func (s *Stack) rebuild(action ActionType, root *engine.GameObject, fn func(*engine.GameObject) (*engine.GameObject, *prefab.Report, error)) (*engine.GameObject, *prefab.Report, error) {
	links := s.links(root)
	replacement, report, err := fn(root)
	if err != nil {
		return nil, nil, err
	}
	s.push(State{Type: action, Object: root, Replacement: replacement, Links: links})
	return replacement, report, nil
}

// Break breaks a prefab link and records it.
func (s *Stack) Break(root *engine.GameObject) error {
	links := s.links(root)
	snap := snapshotSources(root)
	if err := s.prefabs.BreakPrefabLink(root); err != nil {
		return err
	}
	s.push(State{Type: ActionBreak, Object: root, Links: links, Sources: snap})
	return nil
}

// Apply applies an instance to its prefab and records the instance side of
// it. Undo leaves the saved asset alone; the instance goes back to its old
// revision and modifications.
func (s *Stack) Apply(root *engine.GameObject) (*prefab.Report, error) {
	links := s.links(root)
	snap := snapshotSources(root)
	report, err := s.prefabs.ApplyPrefab(root)
	if err != nil {
		return nil, err
	}
	state := State{Type: ActionApply, Object: root, Links: links, Sources: snap}
	if cur := s.prefabs.Scene().FindByUID(root.UID); cur != root {
		// A stale instance was rebuilt before applying.
		state.Replacement = cur
	}
	s.push(state)
	return report, nil
}

// Undo takes back the last action. It returns the object the action was
// applied to, as it is after the undo.
func (s *Stack) Undo() (*engine.GameObject, bool) {
	if len(s.states) == 0 {
		return nil, false
	}
	// Pop last state
	state := s.states[len(s.states)-1]
	s.states = s.states[:len(s.states)-1]

	switch state.Type {
	case ActionTransform:
		state.Object.Transform.Position = state.Position
		state.Object.Transform.Rotation = state.Rotation
		state.Object.Transform.Scale = state.Scale

	case ActionDelete:
		if state.Parent != nil {
			state.Parent.InsertChild(state.Index, state.Object)
		}
		s.prefabs.Scene().AddTree(state.Object)

	case ActionRevert, ActionReconcile, ActionBreak, ActionApply:
		if state.Replacement != nil {
			if l, ok := s.prefabs.Link(state.Replacement); ok {
				s.prefabs.RestoreLink(l.Root, nil)
			}
			s.prefabs.Swap(state.Replacement, state.Object)
		}
		if state.Sources != nil {
			state.Sources.restore()
		}
	}

	for uid, l := range state.Links {
		s.prefabs.RestoreLink(uid, l)
	}
	return state.Object, true
}
