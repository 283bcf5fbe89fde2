package scene

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/rs/zerolog"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for updates.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithComputeWorkers sets the number of worker goroutines used to update entries in
// parallel. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithLogger sets the logger used for entry lifecycle and quarantine reports.
// Mixers created by AddModel inherit it.
//
// Parameters:
//   - logger: the zerolog logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger zerolog.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.logger = logger
	}
}

// WithSkeletonOptions sets the options applied to skeletons created by AddModel.
//
// Parameters:
//   - options: the skeleton options (layout, binding)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSkeletonOptions(options ...skeleton.SkeletonBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.skeletonOptions = append(s.skeletonOptions, options...)
	}
}

// WithMixerOptions sets the options applied to mixers created by AddModel.
//
// Parameters:
//   - options: the mixer options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMixerOptions(options ...animator.MixerBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.mixerOptions = append(s.mixerOptions, options...)
	}
}
