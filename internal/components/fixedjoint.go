package components

import "mirgo/internal/engine"

func init() {
	engine.RegisterComponent("FixedJoint", func() engine.Component {
		return &FixedJoint{}
	})
}

// FixedJoint pins its object to Connected.
type FixedJoint struct {
	engine.BaseComponent
	Connected  engine.GameObjectRef
	Body       engine.ComponentRef // the connected Rigidbody, if any
	BreakForce float32             // 0 = unbreakable
}
