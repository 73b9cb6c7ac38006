package prefab

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
)

// ObjectProps are the overridable properties of a GameObject.
type ObjectProps struct {
	Name     string
	Tags     []string
	Active   bool
	Position rl.Vector3
	Rotation rl.Vector3
	Scale    rl.Vector3
}

func propsOf(g *engine.GameObject) ObjectProps {
	return ObjectProps{
		Name:     g.Name,
		Tags:     append([]string(nil), g.Tags...),
		Active:   g.Active,
		Position: g.Transform.Position,
		Rotation: g.Transform.Rotation,
		Scale:    g.Transform.Scale,
	}
}

func (p ObjectProps) applyTo(g *engine.GameObject) {
	g.Name = p.Name
	g.Tags = p.Tags
	g.Active = p.Active
	g.Transform = engine.Transform{Position: p.Position, Rotation: p.Rotation, Scale: p.Scale}
}

func nodeProps(n *asset.Node) ObjectProps {
	return ObjectProps{
		Name:     n.Name,
		Tags:     append([]string(nil), n.Tags...),
		Active:   n.Active,
		Position: vec(n.Position),
		Rotation: vec(n.Rotation),
		Scale:    vec(n.Scale),
	}
}

func (p ObjectProps) toNode(n *asset.Node) {
	n.Name = p.Name
	n.Tags = append([]string(nil), p.Tags...)
	n.Active = p.Active
	n.Position = asset.Vec3{p.Position.X, p.Position.Y, p.Position.Z}
	n.Rotation = asset.Vec3{p.Rotation.X, p.Rotation.Y, p.Rotation.Z}
	n.Scale = asset.Vec3{p.Scale.X, p.Scale.Y, p.Scale.Z}
}

func vec(v asset.Vec3) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}
