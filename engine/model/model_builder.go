package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSourcePath is an option builder that records the file the Model was loaded from.
//
// Parameters:
//   - path: the source file path
//
// Returns:
//   - ModelBuilderOption: a function that applies the source path option to a model
func WithSourcePath(path string) ModelBuilderOption {
	return func(m *model) {
		m.sourcePath = path
	}
}

// WithBones is an option builder that sets the skeleton bone definitions of the Model.
//
// Parameters:
//   - bones: the bone definitions, parents first
//
// Returns:
//   - ModelBuilderOption: a function that applies the bones option to a model
func WithBones(bones []skeleton.Bone) ModelBuilderOption {
	return func(m *model) {
		m.bones = bones
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []*animation.Clip) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}
