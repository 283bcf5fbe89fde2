package animation

import (
	"fmt"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Track holds the keyframes animating one property of one bone.
// A Track is immutable once built by NewTrack and may be sampled concurrently.
type Track struct {
	boneIndex     int
	property      Property
	interpolation Interpolation
	times         []float32
	values        []float32
	stride        int
}

// NewTrack validates keyframe data and builds an immutable Track.
// The times and values slices are copied.
//
// Values are laid out flat, stride components per keyframe (3 for position and scale,
// 4 for rotation). Cubic spline tracks store three entries per keyframe in the order
// in-tangent, value, out-tangent.
//
// Parameters:
//   - boneIndex: the index of the animated bone, must be >= 0
//   - property: the transform property animated by the track
//   - interpolation: the interpolation mode used between keyframes
//   - times: keyframe timestamps in seconds, non-decreasing, at least one entry
//   - values: flat keyframe values
//
// Returns:
//   - *Track: the validated track
//   - error: an error wrapping ErrInvalidTrack if validation fails
func NewTrack(boneIndex int, property Property, interpolation Interpolation, times, values []float32) (*Track, error) {
	if boneIndex < 0 {
		return nil, fmt.Errorf("bone index %d is negative: %w", boneIndex, ErrInvalidTrack)
	}
	if !property.Valid() {
		return nil, fmt.Errorf("%s is not a valid property: %w", property, ErrInvalidTrack)
	}
	if !interpolation.Valid() {
		return nil, fmt.Errorf("%s is not a valid interpolation: %w", interpolation, ErrInvalidTrack)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("track has no keyframes: %w", ErrInvalidTrack)
	}
	for i, t := range times {
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil, fmt.Errorf("keyframe %d time is not finite: %w", i, ErrInvalidTrack)
		}
		if i > 0 && t < times[i-1] {
			return nil, fmt.Errorf("keyframe %d time %v precedes keyframe %d time %v: %w", i, t, i-1, times[i-1], ErrInvalidTrack)
		}
	}

	stride := property.Stride()
	want := len(times) * stride
	if interpolation == InterpolationCubicSpline {
		want *= 3
	}
	if len(values) != want {
		return nil, fmt.Errorf("%s %s track has %d values, want %d for %d keyframes: %w",
			interpolation, property, len(values), want, len(times), ErrInvalidTrack)
	}

	return &Track{
		boneIndex:     boneIndex,
		property:      property,
		interpolation: interpolation,
		times:         append([]float32(nil), times...),
		values:        append([]float32(nil), values...),
		stride:        stride,
	}, nil
}

// BoneIndex returns the index of the bone animated by this track.
func (t *Track) BoneIndex() int {
	return t.boneIndex
}

// Property returns the transform property animated by this track.
func (t *Track) Property() Property {
	return t.property
}

// Interpolation returns the interpolation mode of this track.
func (t *Track) Interpolation() Interpolation {
	return t.interpolation
}

// KeyframeCount returns the number of keyframes in the track.
func (t *Track) KeyframeCount() int {
	return len(t.times)
}

// Times returns the keyframe timestamps. The returned slice is shared and must not be modified.
func (t *Track) Times() []float32 {
	return t.times
}

// Values returns the flat keyframe values. The returned slice is shared and must not be modified.
func (t *Track) Values() []float32 {
	return t.values
}

// StartTime returns the timestamp of the first keyframe.
func (t *Track) StartTime() float32 {
	return t.times[0]
}

// EndTime returns the timestamp of the last keyframe.
func (t *Track) EndTime() float32 {
	return t.times[len(t.times)-1]
}

// Sample evaluates the track at the given time.
//
// Times before the first keyframe or after the last one clamp to the first or last value.
// Rotation results from cubic spline tracks are not normalized.
//
// The optional hint holds the segment index found by a previous call and is updated on
// return. It only speeds up the search for monotonically advancing playback; the result
// is identical with or without it. Callers sampling the same track from several
// goroutines must each use their own hint.
//
// Parameters:
//   - time: the query time in seconds
//   - hint: an optional per-consumer segment cursor, may be nil
//
// Returns:
//   - [4]float32: the sampled value; only the first Property().Stride() components are meaningful
func (t *Track) Sample(time float32, hint *int) [4]float32 {
	last := len(t.times) - 1
	if last == 0 || time <= t.times[0] {
		return t.valueAt(0)
	}
	if time >= t.times[last] {
		return t.valueAt(last)
	}

	lo := t.findSegment(time, hint)
	hi := lo + 1
	if hint != nil {
		*hint = lo
	}

	dt := t.times[hi] - t.times[lo]
	u := (time - t.times[lo]) / dt

	switch t.interpolation {
	case InterpolationStep:
		return t.valueAt(lo)
	case InterpolationCubicSpline:
		return t.hermite(lo, hi, dt, u)
	default:
		a, b := t.valueAt(lo), t.valueAt(hi)
		if t.property == PropertyRotation {
			return common.QuatSlerp(a, b, u)
		}
		v := common.Lerp3([3]float32{a[0], a[1], a[2]}, [3]float32{b[0], b[1], b[2]}, u)
		return [4]float32{v[0], v[1], v[2], 0}
	}
}

// findSegment returns lo such that times[lo] <= time < times[lo+1].
// time must lie strictly inside the keyframe range.
func (t *Track) findSegment(time float32, hint *int) int {
	if hint != nil {
		h := *hint
		if t.inSegment(h, time) {
			return h
		}
		if t.inSegment(h+1, time) {
			return h + 1
		}
	}
	hi := sort.Search(len(t.times), func(i int) bool {
		return t.times[i] > time
	})
	return hi - 1
}

func (t *Track) inSegment(lo int, time float32) bool {
	return lo >= 0 && lo+1 < len(t.times) && t.times[lo] <= time && time < t.times[lo+1]
}

// valueAt returns the keyframe value at index k, skipping tangents for cubic spline tracks.
func (t *Track) valueAt(k int) [4]float32 {
	off := k * t.stride
	if t.interpolation == InterpolationCubicSpline {
		off = k*t.stride*3 + t.stride
	}
	var v [4]float32
	copy(v[:t.stride], t.values[off:off+t.stride])
	return v
}

func (t *Track) hermite(lo, hi int, dt, u float32) [4]float32 {
	s := t.stride
	p0 := lo*s*3 + s
	m0 := lo*s*3 + 2*s
	p1 := hi*s*3 + s
	m1 := hi * s * 3

	var v [4]float32
	for c := 0; c < s; c++ {
		v[c] = common.Hermite(
			t.values[p0+c],
			t.values[m0+c]*dt,
			t.values[p1+c],
			t.values[m1+c]*dt,
			u,
		)
	}
	return v
}
