package engine

// GameObjectRef is a serializable reference to a GameObject by UID.
//
// Example:
//
//	type Follower struct {
//	    engine.BaseComponent
//	    Target engine.GameObjectRef
//	}
//
//	func (f *Follower) Leader() *engine.GameObject {
//	    return f.Target.Get(f.GetGameObject().Scene)
//	}
type GameObjectRef struct {
	UID uint64 // 0 = none
}

// Get resolves the reference to the actual GameObject.
// Returns nil if the reference is empty (UID = 0) or if the GameObject doesn't exist.
func (r GameObjectRef) Get(scene *Scene) *GameObject {
	if r.UID == 0 || scene == nil {
		return nil
	}
	return scene.FindByUID(r.UID)
}

// IsValid returns true if the reference points to something (UID != 0).
// Note: This doesn't check if the GameObject actually exists in the scene.
func (r GameObjectRef) IsValid() bool {
	return r.UID != 0
}

// Set sets the reference to point to the given GameObject.
// Pass nil to clear the reference.
func (r *GameObjectRef) Set(g *GameObject) {
	if g == nil {
		r.UID = 0
	} else {
		r.UID = g.UID
	}
}

func (r *GameObjectRef) Clear() {
	r.UID = 0
}

func (r GameObjectRef) TargetID() uint64 { return r.UID }

func (r *GameObjectRef) SetTargetID(id uint64) { r.UID = id }

// ComponentRef is a serializable reference to a Component by its UID.
type ComponentRef struct {
	ID uint64 // 0 = none
}

func (r ComponentRef) Get(scene *Scene) Component {
	if r.ID == 0 || scene == nil {
		return nil
	}
	return scene.FindComponent(r.ID)
}

func (r ComponentRef) IsValid() bool {
	return r.ID != 0
}

func (r *ComponentRef) Set(c Component) {
	if c == nil {
		r.ID = 0
	} else {
		r.ID = c.ID()
	}
}

func (r ComponentRef) TargetID() uint64 { return r.ID }

func (r *ComponentRef) SetTargetID(id uint64) { r.ID = id }
