package skeleton

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Propagate computes every bone's world matrix from its local transform, with root bones
// relative to the identity, and feeds the results back through SetWorldMatrix.
// Use it when no external scene graph owns the bones.
//
// Parameters:
//   - s: the skeleton to propagate
func Propagate(s Skeleton) {
	var root [16]float32
	common.Identity(root[:])
	PropagateFrom(s, root)
}

// PropagateFrom computes every bone's world matrix from its local transform in a single
// forward pass, placing root bones under the given model matrix, then clears the
// skeleton's dirty flag. Parents precede children, so each parent's world matrix is
// final by the time its children read it.
//
// Parameters:
//   - s: the skeleton to propagate
//   - root: the column-major model matrix applied to root bones
func PropagateFrom(s Skeleton, root [16]float32) {
	var local, world [16]float32
	for i := 0; i < s.BoneCount(); i++ {
		t := s.LocalTransform(i)
		common.ComposeTRS(local[:], t.Translation, common.QuatNormalize(t.Rotation), t.Scale)

		parent := root
		if p := s.ParentIndex(i); p >= 0 {
			parent = s.WorldMatrix(p)
		}
		common.Mul4(world[:], parent[:], local[:])
		s.SetWorldMatrix(i, world)
	}
	s.ClearDirty()
}

// bindWorldMatrices returns the model-space bind matrices of the bones, 16 floats per bone.
// bones must already be validated parent-first.
func bindWorldMatrices(bones []Bone) []float32 {
	out := make([]float32, len(bones)*16)
	var local [16]float32
	for i, b := range bones {
		common.ComposeTRS(local[:], b.Bind.Translation, b.Bind.Rotation, b.Bind.Scale)
		dst := out[i*16 : i*16+16]
		if b.ParentIndex < 0 {
			copy(dst, local[:])
			continue
		}
		p := int(b.ParentIndex)
		common.Mul4(dst, out[p*16:p*16+16], local[:])
	}
	return out
}
