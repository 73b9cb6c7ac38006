package scripts

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"mirgo/internal/engine"
)

func init() {
	engine.RegisterComponent("Spawner", func() engine.Component {
		return &Spawner{Interval: 1, Limits: [3]int{1, 4, 16}}
	})
}

type SpawnOverride struct {
	Name  string
	Scale float32
}

// Spawner describes where and how often a prefab is spawned.
type Spawner struct {
	engine.BaseComponent
	Prefab   string
	Interval float32
	Points   []rl.Vector3
	Weights  map[string]float32
	Limits   [3]int // min, start, max
	Override *SpawnOverride
	Markers  []engine.GameObjectRef
	Anchor   engine.GameObjectRef
}
