package skeleton

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// ErrInvalidSkeleton is returned by NewSkeleton when the bone hierarchy fails validation.
var ErrInvalidSkeleton = errors.New("invalid skeleton")

// Transform represents a decomposed local transform for animation blending.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, identity rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: common.QuatIdentity(),
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major 4x4 matrix (T * R * S).
//
// Returns:
//   - [16]float32: the composed matrix
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	common.ComposeTRS(m[:], t.Translation, t.Rotation, t.Scale)
	return m
}

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	// Parents must precede their children.
	ParentIndex int32

	// Bind is the bone's local transform relative to its parent at bind pose.
	Bind Transform

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	// A zero matrix means "not provided" and is computed from the bind pose by NewSkeleton.
	InverseBindMatrix [16]float32
}
