package animation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTrack is returned by NewTrack when keyframe data fails validation.
	ErrInvalidTrack = errors.New("invalid animation track")

	// ErrInvalidClip is returned by NewClip when the clip itself fails validation.
	ErrInvalidClip = errors.New("invalid animation clip")
)

// Property identifies which component of a bone's local transform a Track animates.
type Property int

const (
	// PropertyPosition animates the bone translation (3 components).
	PropertyPosition Property = iota

	// PropertyRotation animates the bone rotation quaternion (4 components, x y z w).
	PropertyRotation

	// PropertyScale animates the bone scale (3 components).
	PropertyScale
)

// Stride returns the number of float components a single value of this property occupies.
//
// Returns:
//   - int: 3 for position and scale, 4 for rotation, 0 for unknown properties
func (p Property) Stride() int {
	switch p {
	case PropertyPosition, PropertyScale:
		return 3
	case PropertyRotation:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is one of the defined properties.
func (p Property) Valid() bool {
	return p >= PropertyPosition && p <= PropertyScale
}

func (p Property) String() string {
	switch p {
	case PropertyPosition:
		return "position"
	case PropertyRotation:
		return "rotation"
	case PropertyScale:
		return "scale"
	default:
		return fmt.Sprintf("Property(%d)", int(p))
	}
}

// ParseProperty converts a property name into a Property.
// glTF channel path names ("translation") are accepted as aliases.
//
// Parameters:
//   - s: the property name, case-insensitive
//
// Returns:
//   - Property: the parsed property
//   - error: an error wrapping ErrInvalidTrack if the name is unknown
func ParseProperty(s string) (Property, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position", "translation":
		return PropertyPosition, nil
	case "rotation":
		return PropertyRotation, nil
	case "scale":
		return PropertyScale, nil
	default:
		return 0, fmt.Errorf("unknown property %q: %w", s, ErrInvalidTrack)
	}
}

// Interpolation selects how values between two keyframes are computed.
type Interpolation int

const (
	// InterpolationLinear lerps vectors and slerps rotations.
	InterpolationLinear Interpolation = iota

	// InterpolationStep holds the value of the earlier keyframe.
	InterpolationStep

	// InterpolationCubicSpline evaluates a cubic Hermite curve using stored tangents.
	InterpolationCubicSpline
)

// Valid reports whether i is one of the defined interpolation modes.
func (i Interpolation) Valid() bool {
	return i >= InterpolationLinear && i <= InterpolationCubicSpline
}

func (i Interpolation) String() string {
	switch i {
	case InterpolationLinear:
		return "linear"
	case InterpolationStep:
		return "step"
	case InterpolationCubicSpline:
		return "cubicspline"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// ParseInterpolation converts an interpolation name ("step", "linear", "cubicspline") into
// an Interpolation. Matching is case-insensitive, so glTF sampler names work unchanged.
// An empty string yields InterpolationLinear.
//
// Parameters:
//   - s: the interpolation name
//
// Returns:
//   - Interpolation: the parsed mode
//   - error: an error wrapping ErrInvalidTrack if the name is unknown
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return InterpolationLinear, nil
	case "step":
		return InterpolationStep, nil
	case "cubicspline", "cubic":
		return InterpolationCubicSpline, nil
	default:
		return 0, fmt.Errorf("unknown interpolation %q: %w", s, ErrInvalidTrack)
	}
}
