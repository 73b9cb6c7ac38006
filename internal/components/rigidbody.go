package components

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"mirgo/internal/engine"
)

func init() {
	engine.RegisterComponent("Rigidbody", func() engine.Component {
		return NewRigidbody()
	})
}

type Rigidbody struct {
	engine.BaseComponent
	Velocity        rl.Vector3 `prefab:"-"`
	AngularVelocity rl.Vector3 `prefab:"-"` // degrees per second on each axis
	Mass            float32
	Bounciness      float32 // 0 = no bounce, 1 = perfect bounce
	Friction        float32 // 0 = ice, 1 = stops immediately
	AngularDamping  float32
	UseGravity      bool
	IsKinematic     bool // moves but doesn't get pushed by physics
	CanSleep        bool

	IsSleeping bool `prefab:"-"`
}

func NewRigidbody() *Rigidbody {
	return &Rigidbody{
		Mass:           1.0,
		Bounciness:     0.5,
		Friction:       0.1,
		AngularDamping: 0.98,
		UseGravity:     true,
		CanSleep:       true,
	}
}
