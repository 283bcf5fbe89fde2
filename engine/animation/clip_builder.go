package animation

// ClipBuilderOption is a functional option for configuring a Clip via NewClip.
type ClipBuilderOption func(*Clip)

// WithDuration is an option builder that sets an explicit clip duration instead of
// deriving it from the last keyframe.
//
// Parameters:
//   - duration: the clip length in seconds, must be >= 0
//
// Returns:
//   - ClipBuilderOption: a function that applies the duration option to a clip
func WithDuration(duration float32) ClipBuilderOption {
	return func(c *Clip) {
		c.hasDuration = true
		c.explicitDuration = duration
	}
}
