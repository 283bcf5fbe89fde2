package skeleton

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-5

func bindAt(x, y, z float32) Transform {
	t := IdentityTransform()
	t.Translation = [3]float32{x, y, z}
	return t
}

// armBones is a three bone chain: root at the origin, upper arm one unit up, forearm one unit further.
func armBones() []Bone {
	return []Bone{
		{Name: "root", ParentIndex: -1, Bind: bindAt(0, 0, 0)},
		{Name: "upper", ParentIndex: 0, Bind: bindAt(0, 1, 0)},
		{Name: "fore", ParentIndex: 1, Bind: bindAt(0, 1, 0)},
	}
}

func identity() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	return m
}

func assertMatInDelta(t *testing.T, want, got [16]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestNewSkeletonValidation(t *testing.T) {
	_, err := NewSkeleton(nil)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	bones := armBones()
	bones[1].ParentIndex = 2
	_, err = NewSkeleton(bones)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	bones = armBones()
	bones[1].ParentIndex = 1
	_, err = NewSkeleton(bones)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	bones = armBones()
	bones[2].ParentIndex = -2
	_, err = NewSkeleton(bones)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	bones = armBones()
	bones[2].Name = "upper"
	_, err = NewSkeleton(bones)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	bones = armBones()
	bones[1].Bind.Scale = [3]float32{0, 0, 0}
	_, err = NewSkeleton(bones)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)
}

func TestNewSkeletonBindPose(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)

	assert.Equal(t, 3, s.BoneCount())
	assert.Equal(t, 2, s.BoneIndex("fore"))
	assert.Equal(t, -1, s.BoneIndex("missing"))
	assert.Equal(t, 1, s.ParentIndex(2))
	assert.Equal(t, -1, s.ParentIndex(0))
	assert.Len(t, s.BoneMatrices(), 3*16)

	// Computed inverse binds undo the bind pose.
	ibm := s.InverseBindMatrix(2)
	assert.InDelta(t, -2, ibm[13], tol)

	// At bind pose every skinning matrix is the identity.
	for i := 0; i < s.BoneCount(); i++ {
		assertMatInDelta(t, identity(), s.BoneMatrix(i))
	}

	writes := s.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Len(t, writes[0].Data, 3*64)
	assert.Empty(t, s.StagedWriteData())
}

func TestNewSkeletonKeepsExplicitInverseBind(t *testing.T) {
	bones := armBones()
	bones[0].InverseBindMatrix = identity()
	bones[0].InverseBindMatrix[12] = 5

	s, err := NewSkeleton(bones)
	require.NoError(t, err)
	assert.Equal(t, float32(5), s.InverseBindMatrix(0)[12])
	assert.InDelta(t, 5, s.BoneMatrix(0)[12], tol)
}

func TestPropagateAndUpdateBoneMatrices(t *testing.T) {
	s, err := NewSkeleton(armBones(), WithBinding(3))
	require.NoError(t, err)
	s.StagedWriteData()

	root := s.LocalTransform(0)
	root.Translation = [3]float32{1, 0, 0}
	s.SetLocalTransform(0, root)
	assert.True(t, s.Dirty())

	Propagate(s)
	assert.False(t, s.Dirty())

	world := s.WorldMatrix(2)
	assert.InDelta(t, 1, world[12], tol)
	assert.InDelta(t, 2, world[13], tol)

	assert.Equal(t, 3, s.UpdateBoneMatrices())
	for i := 0; i < 3; i++ {
		m := s.BoneMatrix(i)
		assert.InDelta(t, 1, m[12], tol, "bone %d", i)
		assert.InDelta(t, 0, m[13], tol, "bone %d", i)
	}

	writes := s.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Binding)

	assert.Equal(t, 0, s.UpdateBoneMatrices())
	assert.Empty(t, s.StagedWriteData())
}

func TestPropagateFromRootMatrix(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)

	root := identity()
	root[14] = -4
	PropagateFrom(s, root)
	assert.InDelta(t, -4, s.WorldMatrix(1)[14], tol)
	assert.InDelta(t, 1, s.WorldMatrix(1)[13], tol)
}

func TestUpdateOnlyRefreshedBones(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)
	s.StagedWriteData()

	w := s.WorldMatrix(1)
	w[12] = 2
	s.SetWorldMatrix(1, w)

	assert.Equal(t, 1, s.UpdateBoneMatrices())
	assert.InDelta(t, 2, s.BoneMatrix(1)[12], tol)
	assert.InDelta(t, 0, s.BoneMatrix(2)[12], tol)

	writes := s.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(64), writes[0].Offset)
	assert.Len(t, writes[0].Data, 64)
}

func TestUndrainedWritesMerge(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)
	s.StagedWriteData()

	s.SetWorldMatrix(0, s.WorldMatrix(0))
	s.UpdateBoneMatrices()
	s.SetWorldMatrix(2, s.WorldMatrix(2))
	s.UpdateBoneMatrices()

	writes := s.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Len(t, writes[0].Data, 3*64)
}

func TestStagedWriteDataIsCallerOwned(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)
	s.StagedWriteData()

	s.SetWorldMatrix(0, s.WorldMatrix(0))
	s.UpdateBoneMatrices()
	first := s.StagedWriteData()
	require.Len(t, first, 1)

	s.SetWorldMatrix(2, s.WorldMatrix(2))
	s.UpdateBoneMatrices()
	second := s.StagedWriteData()
	require.Len(t, second, 1)

	assert.Equal(t, uint64(0), first[0].Offset)
	assert.Len(t, first[0].Data, 64)
	assert.Equal(t, uint64(128), second[0].Offset)
	assert.Len(t, second[0].Data, 64)
	assert.Empty(t, s.StagedWriteData())
}

func TestMat3x4Layout(t *testing.T) {
	s, err := NewSkeleton(armBones(), WithMatrixLayout(MatrixLayoutMat3x4))
	require.NoError(t, err)
	assert.Equal(t, MatrixLayoutMat3x4, s.Layout())
	assert.Len(t, s.BoneMatrices(), 3*12)
	s.StagedWriteData()

	w := s.WorldMatrix(2)
	w[12], w[13], w[14] = 3, 4, 5
	s.SetWorldMatrix(2, w)
	s.UpdateBoneMatrices()

	// Translation lands in the last column of each packed row.
	packed := s.BoneMatrices()[2*12 : 3*12]
	assert.InDelta(t, 3, packed[3], tol)
	assert.InDelta(t, 2, packed[7], tol)
	assert.InDelta(t, 5, packed[11], tol)

	m := s.BoneMatrix(2)
	assert.InDelta(t, 3, m[12], tol)
	assert.InDelta(t, 1, m[15], tol)

	writes := s.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(2*48), writes[0].Offset)
	assert.Len(t, writes[0].Data, 48)
}

func TestSetPoseAndReset(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)
	s.ClearDirty()

	pose := []Transform{bindAt(1, 1, 1), bindAt(2, 2, 2)}
	s.SetPose(pose)
	assert.True(t, s.Dirty())
	assert.Equal(t, [3]float32{2, 2, 2}, s.LocalTransform(1).Translation)
	assert.Equal(t, [3]float32{0, 1, 0}, s.LocalTransform(2).Translation)

	s.ResetPose()
	assert.Equal(t, s.BindTransform(0), s.LocalTransform(0))
	assert.Equal(t, s.BindTransform(1), s.LocalTransform(1))
}

func TestOutOfRangeAccess(t *testing.T) {
	s, err := NewSkeleton(armBones())
	require.NoError(t, err)

	s.SetLocalTransform(7, bindAt(1, 1, 1))
	s.SetWorldMatrix(-1, identity())
	assert.Equal(t, IdentityTransform(), s.LocalTransform(7))
	assert.Equal(t, [16]float32{}, s.WorldMatrix(9))
	assert.Equal(t, Bone{}, s.Bone(3))
}

func TestParseMatrixLayout(t *testing.T) {
	l, err := ParseMatrixLayout("MAT3X4")
	require.NoError(t, err)
	assert.Equal(t, MatrixLayoutMat3x4, l)

	l, err = ParseMatrixLayout("")
	require.NoError(t, err)
	assert.Equal(t, MatrixLayoutMat4x4, l)

	_, err = ParseMatrixLayout("mat2")
	assert.Error(t, err)
}
