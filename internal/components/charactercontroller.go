package components

import "mirgo/internal/engine"

func init() {
	engine.RegisterComponent("CharacterController", func() engine.Component {
		return NewCharacterController()
	})
}

// CharacterController holds the movement settings of a character.
type CharacterController struct {
	engine.BaseComponent

	Height     float32 // Total height of the character box
	Radius     float32 // Half-width of the character box
	StepHeight float32 // Max height of steps to climb
	SlopeLimit float32 // degrees

	UseGravity bool
	Gravity    float32 // positive = down
}

func NewCharacterController() *CharacterController {
	return &CharacterController{
		Height:     1.8,
		Radius:     0.4,
		StepHeight: 0.4,
		SlopeLimit: 45.0,
		UseGravity: true,
		Gravity:    20.0,
	}
}
