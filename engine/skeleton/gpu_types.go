package skeleton

import (
	"fmt"
	"strings"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// at a given byte offset. The renderer that owns the buffer applies it.
type BufferWrite struct {
	Binding int
	Offset  uint64
	Data    []byte
}

// MatrixLayout is the per-bone layout of the bone-matrix buffer negotiated with the renderer.
type MatrixLayout int

const (
	// MatrixLayoutMat4x4 stores one full column-major 4x4 matrix per bone (16 floats, 64 bytes).
	MatrixLayoutMat4x4 MatrixLayout = iota

	// MatrixLayoutMat3x4 stores the top three rows of the affine matrix, row-major (12 floats, 48 bytes).
	// The implicit fourth row is (0, 0, 0, 1).
	MatrixLayoutMat3x4
)

// FloatsPerBone returns the number of float32 values one bone occupies in this layout.
func (l MatrixLayout) FloatsPerBone() int {
	if l == MatrixLayoutMat3x4 {
		return 12
	}
	return 16
}

// BytesPerBone returns the number of bytes one bone occupies in this layout.
func (l MatrixLayout) BytesPerBone() int {
	return l.FloatsPerBone() * 4
}

func (l MatrixLayout) String() string {
	switch l {
	case MatrixLayoutMat4x4:
		return "mat4x4"
	case MatrixLayoutMat3x4:
		return "mat3x4"
	default:
		return fmt.Sprintf("MatrixLayout(%d)", int(l))
	}
}

// ParseMatrixLayout converts a layout name ("mat4x4" or "mat3x4") into a MatrixLayout.
// An empty string yields MatrixLayoutMat4x4.
//
// Parameters:
//   - s: the layout name, case-insensitive
//
// Returns:
//   - MatrixLayout: the parsed layout
//   - error: an error if the name is unknown
func ParseMatrixLayout(s string) (MatrixLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mat4x4", "mat4":
		return MatrixLayoutMat4x4, nil
	case "mat3x4", "affine":
		return MatrixLayoutMat3x4, nil
	default:
		return 0, fmt.Errorf("unknown matrix layout %q", s)
	}
}

// pack writes the column-major matrix m into dst using this layout.
func (l MatrixLayout) pack(dst []float32, m *[16]float32) {
	if l != MatrixLayoutMat3x4 {
		copy(dst[:16], m[:])
		return
	}
	for r := 0; r < 3; r++ {
		dst[r*4+0] = m[r]
		dst[r*4+1] = m[4+r]
		dst[r*4+2] = m[8+r]
		dst[r*4+3] = m[12+r]
	}
}

// unpack reads one bone from src and returns it as a column-major 4x4 matrix.
func (l MatrixLayout) unpack(src []float32) [16]float32 {
	var m [16]float32
	if l != MatrixLayoutMat3x4 {
		copy(m[:], src[:16])
		return m
	}
	for r := 0; r < 3; r++ {
		m[r] = src[r*4+0]
		m[4+r] = src[r*4+1]
		m[8+r] = src[r*4+2]
		m[12+r] = src[r*4+3]
	}
	m[15] = 1
	return m
}
