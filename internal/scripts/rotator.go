package scripts

import "mirgo/internal/engine"

func init() {
	engine.RegisterComponent("Rotator", func() engine.Component {
		return &Rotator{Speed: 90}
	})
}

// Rotator spins an object around the Y axis.
type Rotator struct {
	engine.BaseComponent
	Speed float32 // degrees per second
}
