package animation

import (
	"errors"
	"fmt"
	"math"
)

// Clip is a named, immutable set of keyframe tracks describing one animation (walk, run, wave).
// A single Clip is shared by pointer across every action playing it and is never mutated
// after NewClip returns, so it can be read from any number of goroutines.
type Clip struct {
	name             string
	duration         float32
	tracks           []*Track
	maxBoneIndex     int
	hasDuration      bool
	explicitDuration float32
}

// NewClip validates the tracks and builds an immutable Clip.
// Unless WithDuration is given, the duration is the latest keyframe time across all tracks.
//
// Parameters:
//   - name: the clip identifier
//   - tracks: the clip tracks, in evaluation order
//   - options: variadic ClipBuilderOption functions
//
// Returns:
//   - *Clip: the validated clip
//   - error: an error wrapping ErrInvalidClip if validation fails
func NewClip(name string, tracks []*Track, options ...ClipBuilderOption) (*Clip, error) {
	c := &Clip{
		name:         name,
		maxBoneIndex: -1,
	}
	for _, opt := range options {
		opt(c)
	}

	var errs []error
	var end float32
	for i, tr := range tracks {
		if tr == nil {
			errs = append(errs, fmt.Errorf("clip %q track %d: nil track: %w", name, i, ErrInvalidClip))
			continue
		}
		if tr.EndTime() > end {
			end = tr.EndTime()
		}
		if tr.boneIndex > c.maxBoneIndex {
			c.maxBoneIndex = tr.boneIndex
		}
	}

	if c.hasDuration {
		d := c.explicitDuration
		if d < 0 || math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
			errs = append(errs, fmt.Errorf("clip %q: duration %v must be a finite value >= 0: %w", name, d, ErrInvalidClip))
		}
		c.duration = d
	} else {
		c.duration = end
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c.tracks = append([]*Track(nil), tracks...)
	return c, nil
}

// Name returns the clip identifier.
func (c *Clip) Name() string {
	return c.name
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float32 {
	return c.duration
}

// Tracks returns the clip tracks. The returned slice is shared and must not be modified.
func (c *Clip) Tracks() []*Track {
	return c.tracks
}

// TrackCount returns the number of tracks in the clip.
func (c *Clip) TrackCount() int {
	return len(c.tracks)
}

// MaxBoneIndex returns the largest bone index referenced by any track, or -1 for an empty clip.
// A skeleton can play the clip only if it has more than MaxBoneIndex bones.
func (c *Clip) MaxBoneIndex() int {
	return c.maxBoneIndex
}
