package animator

import (
	"github.com/rs/zerolog"
)

// MixerBuilderOption is a functional option for configuring a Mixer during construction.
type MixerBuilderOption func(*mixer)

// WithLogger is an option builder that sets the logger used for action and crossfade diagnostics.
// Defaults to a disabled logger.
//
// Parameters:
//   - logger: the zerolog logger
//
// Returns:
//   - MixerBuilderOption: a function that applies the logger option to a mixer
func WithLogger(logger zerolog.Logger) MixerBuilderOption {
	return func(m *mixer) {
		m.logger = logger
	}
}

// WithTimeScale is an option builder that sets the initial global time multiplier.
//
// Parameters:
//   - scale: the time scale (1 = normal)
//
// Returns:
//   - MixerBuilderOption: a function that applies the time scale option to a mixer
func WithTimeScale(scale float32) MixerBuilderOption {
	return func(m *mixer) {
		m.timeScale = scale
	}
}

// WithListener is an option builder that registers an event listener during construction.
//
// Parameters:
//   - eventType: the event type to listen for
//   - listener: the callback
//
// Returns:
//   - MixerBuilderOption: a function that applies the listener option to a mixer
func WithListener(eventType EventType, listener Listener) MixerBuilderOption {
	return func(m *mixer) {
		m.AddListener(eventType, listener)
	}
}
