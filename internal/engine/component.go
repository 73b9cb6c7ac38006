package engine

type Component interface {
	SetGameObject(g *GameObject)
	GetGameObject() *GameObject

	// ID is the component's UID, unique across objects and components.
	ID() uint64
	SetID(id uint64)

	// SourceID is the id of the prefab component this one was built from,
	// or 0 when it is not part of a prefab instance.
	SourceID() uint64
	SetSourceID(id uint64)
}

// BaseComponent provides default implementation for Component interface
type BaseComponent struct {
	gameObject *GameObject
	id         uint64
	sourceID   uint64
}

func (b *BaseComponent) SetGameObject(g *GameObject) {
	b.gameObject = g
}

func (b *BaseComponent) GetGameObject() *GameObject {
	return b.gameObject
}

func (b *BaseComponent) ID() uint64 { return b.id }

func (b *BaseComponent) SetID(id uint64) { b.id = id }

func (b *BaseComponent) SourceID() uint64 { return b.sourceID }

func (b *BaseComponent) SetSourceID(id uint64) { b.sourceID = id }
