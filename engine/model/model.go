package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// model is the implementation of the Model interface.
type model struct {
	name       string
	sourcePath string
	bones      []skeleton.Bone
	animations []*animation.Clip
}

// Model defines the interface for a loaded animated model.
// A Model is the immutable, shareable half of an animated character: the skeleton
// definition and the animation clips. Each on-screen instance creates its own Skeleton
// from it with NewSkeleton and drives it with its own mixer, while the clips stay shared.
// It is produced by the Loader after importing and validating a model file.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// SourcePath returns the file the model was loaded from, or "" for models built in code.
	//
	// Returns:
	//   - string: the source file path
	SourcePath() string

	// Bones returns the bone definitions of the skeleton, parents first.
	// The returned slice is shared and must not be modified.
	//
	// Returns:
	//   - []skeleton.Bone: the bone definitions
	Bones() []skeleton.Bone

	// BoneCount returns the number of bones in the skeleton definition.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// NewSkeleton creates a fresh per-instance Skeleton from the bone definitions.
	//
	// Parameters:
	//   - options: variadic SkeletonBuilderOption functions (layout, binding)
	//
	// Returns:
	//   - skeleton.Skeleton: the new skeleton at bind pose
	//   - error: an error if the bone definitions are invalid
	NewSkeleton(options ...skeleton.SkeletonBuilderOption) (skeleton.Skeleton, error)

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*animation.Clip: the animation clips
	Animations() []*animation.Clip

	// Animation returns the clip with the given name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *animation.Clip: the clip, or nil if not found
	Animation(name string) *animation.Clip

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) SourcePath() string {
	return m.sourcePath
}

func (m *model) Bones() []skeleton.Bone {
	return m.bones
}

func (m *model) BoneCount() int {
	return len(m.bones)
}

func (m *model) NewSkeleton(options ...skeleton.SkeletonBuilderOption) (skeleton.Skeleton, error) {
	return skeleton.NewSkeleton(m.bones, options...)
}

func (m *model) Animations() []*animation.Clip {
	return m.animations
}

func (m *model) Animation(name string) *animation.Clip {
	if i := m.GetAnimationIndex(name); i >= 0 {
		return m.animations[i]
	}
	return nil
}

func (m *model) AnimationCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name()
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name() == name {
			return i
		}
	}
	return -1
}
