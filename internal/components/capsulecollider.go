package components

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"mirgo/internal/engine"
)

func init() {
	engine.RegisterComponent("CapsuleCollider", func() engine.Component {
		return NewCapsuleCollider(0.5, 2)
	})
}

// CapsuleCollider is a capsule along the object's local Y axis.
type CapsuleCollider struct {
	engine.BaseComponent
	Radius float32
	Height float32 // total height, caps included
	Offset rl.Vector3
}

func NewCapsuleCollider(radius, height float32) *CapsuleCollider {
	return &CapsuleCollider{Radius: radius, Height: height}
}
