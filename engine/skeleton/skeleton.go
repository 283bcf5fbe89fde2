package skeleton

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// skeleton is the implementation of the Skeleton interface.
type skeleton struct {
	mu *sync.Mutex

	bones       []Bone
	nameToIndex map[string]int

	local       []Transform
	world       []float32 // 16 per bone, column-major
	inverseBind []float32 // 16 per bone, column-major, immutable

	layout       MatrixLayout
	binding      int
	boneMatrices []float32

	refreshed    []bool
	hasRefreshed bool
	dirty        bool

	stagedWriteData          []BufferWrite
	pendingStart, pendingEnd int

	// Mirrors boneMatrices byte-for-byte; staged writes slice into it so no
	// per-frame allocation is needed.
	stagingBones []byte
}

// Skeleton defines the interface for a per-instance bone hierarchy.
//
// A Skeleton owns the local transform of every bone (written by the animation mixer),
// the world matrices fed back by the hierarchy propagation step, the immutable inverse
// bind matrices, and the flat bone-matrix buffer uploaded for GPU skinning.
// All methods are safe for concurrent use.
type Skeleton interface {
	// BoneCount returns the number of bones in the skeleton.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// Bone returns the static definition of the bone at index i.
	// Returns the zero Bone for out-of-range indices.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - Bone: the bone definition
	Bone(i int) Bone

	// BoneIndex looks up a bone by name.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - int: the bone index, or -1 if no bone has that name
	BoneIndex(name string) int

	// ParentIndex returns the parent of bone i, or -1 for root bones and out-of-range indices.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - int: the parent bone index or -1
	ParentIndex(i int) int

	// BindTransform returns the bind-pose local transform of bone i.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - Transform: the bind-pose transform, or the identity transform for out-of-range indices
	BindTransform(i int) Transform

	// LocalTransform returns the current local transform of bone i.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - Transform: the current local transform, or the identity transform for out-of-range indices
	LocalTransform(i int) Transform

	// SetLocalTransform sets the local transform of bone i and marks the hierarchy dirty.
	// No-op for out-of-range indices.
	//
	// Parameters:
	//   - i: the bone index
	//   - t: the new local transform
	SetLocalTransform(i int, t Transform)

	// SetPose sets the local transform of every bone in a single call and marks the hierarchy dirty.
	// Extra entries are ignored; missing entries leave the corresponding bones unchanged.
	//
	// Parameters:
	//   - pose: the local transforms indexed by bone
	SetPose(pose []Transform)

	// ResetPose restores every bone's local transform to its bind pose and marks the hierarchy dirty.
	ResetPose()

	// Dirty reports whether local transforms changed since the last ClearDirty.
	//
	// Returns:
	//   - bool: true if world matrices need to be propagated
	Dirty() bool

	// ClearDirty resets the dirty flag. Called by the hierarchy propagation step.
	ClearDirty()

	// WorldMatrix returns the most recent world matrix of bone i (column-major).
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - [16]float32: the world matrix, or the zero matrix for out-of-range indices
	WorldMatrix(i int) [16]float32

	// SetWorldMatrix stores a refreshed world matrix for bone i. The bone's skinning matrix
	// is recomputed by the next UpdateBoneMatrices. No-op for out-of-range indices.
	//
	// Parameters:
	//   - i: the bone index
	//   - m: the world matrix (column-major)
	SetWorldMatrix(i int, m [16]float32)

	// InverseBindMatrix returns the inverse bind matrix of bone i.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - [16]float32: the inverse bind matrix, or the zero matrix for out-of-range indices
	InverseBindMatrix(i int) [16]float32

	// UpdateBoneMatrices computes world x inverseBind for every bone whose world matrix was
	// refreshed since the last call, packs the results into the bone-matrix buffer and stages
	// one GPU write covering the changed range.
	// Must run after hierarchy propagation.
	//
	// Returns:
	//   - int: the number of bones updated
	UpdateBoneMatrices() int

	// BoneMatrices returns the flat bone-matrix buffer in the negotiated layout.
	// The returned slice is owned by the skeleton and is overwritten by UpdateBoneMatrices.
	//
	// Returns:
	//   - []float32: the packed bone matrices
	BoneMatrices() []float32

	// BoneMatrix returns the skinning matrix of bone i expanded to a column-major 4x4 matrix.
	//
	// Parameters:
	//   - i: the bone index
	//
	// Returns:
	//   - [16]float32: the skinning matrix, or the zero matrix for out-of-range indices
	BoneMatrix(i int) [16]float32

	// Layout returns the per-bone layout of the bone-matrix buffer.
	//
	// Returns:
	//   - MatrixLayout: the layout
	Layout() MatrixLayout

	// Binding returns the bind group binding index used for staged writes.
	//
	// Returns:
	//   - int: the binding index
	Binding() int

	// StagedWriteData returns and clears the pending GPU buffer writes.
	// The returned slice is owned by the caller, but the Data of each write aliases an
	// internal staging buffer that is reused by the next UpdateBoneMatrices, so the renderer
	// must submit it before then.
	//
	// Returns:
	//   - []BufferWrite: the pending buffer writes
	StagedWriteData() []BufferWrite
}

var _ Skeleton = &skeleton{}

// NewSkeleton validates the bone hierarchy and creates a Skeleton posed at bind pose.
//
// Every bone's parent must be -1 or an index lower than its own. Bind rotations are
// normalized, and bones with a zero InverseBindMatrix get one computed from the bind pose.
// A full bone-matrix write is staged so the first upload covers the whole buffer.
//
// Parameters:
//   - bones: the bone definitions, parents first
//   - options: variadic SkeletonBuilderOption functions
//
// Returns:
//   - Skeleton: the new skeleton
//   - error: an error wrapping ErrInvalidSkeleton if validation fails
func NewSkeleton(bones []Bone, options ...SkeletonBuilderOption) (Skeleton, error) {
	if len(bones) == 0 {
		return nil, fmt.Errorf("skeleton has no bones: %w", ErrInvalidSkeleton)
	}

	s := &skeleton{
		mu:           &sync.Mutex{},
		bones:        make([]Bone, len(bones)),
		nameToIndex:  make(map[string]int, len(bones)),
		local:        make([]Transform, len(bones)),
		world:        make([]float32, len(bones)*16),
		inverseBind:  make([]float32, len(bones)*16),
		refreshed:    make([]bool, len(bones)),
		pendingStart: -1,
		pendingEnd:   -1,
	}
	for _, opt := range options {
		opt(s)
	}

	for i, b := range bones {
		if b.ParentIndex < -1 || int(b.ParentIndex) >= i {
			return nil, fmt.Errorf("bone %d (%q): parent index %d must be -1 or below %d: %w", i, b.Name, b.ParentIndex, i, ErrInvalidSkeleton)
		}
		if b.Name != "" {
			if prev, ok := s.nameToIndex[b.Name]; ok {
				return nil, fmt.Errorf("bone %d: name %q already used by bone %d: %w", i, b.Name, prev, ErrInvalidSkeleton)
			}
			s.nameToIndex[b.Name] = i
		}
		b.Bind.Rotation = common.QuatNormalize(b.Bind.Rotation)
		s.bones[i] = b
		s.local[i] = b.Bind
	}

	bindWorld := bindWorldMatrices(s.bones)
	copy(s.world, bindWorld)
	for i := range s.bones {
		ibm := s.bones[i].InverseBindMatrix
		if ibm == ([16]float32{}) {
			if !common.Invert4(ibm[:], bindWorld[i*16:i*16+16]) {
				return nil, fmt.Errorf("bone %d (%q): bind pose is singular, cannot derive inverse bind matrix: %w", i, s.bones[i].Name, ErrInvalidSkeleton)
			}
			s.bones[i].InverseBindMatrix = ibm
		}
		copy(s.inverseBind[i*16:], ibm[:])
	}

	fpb := s.layout.FloatsPerBone()
	s.boneMatrices = make([]float32, len(bones)*fpb)
	s.stagingBones = make([]byte, len(bones)*s.layout.BytesPerBone())
	for i := range s.refreshed {
		s.refreshed[i] = true
	}
	s.hasRefreshed = true
	s.UpdateBoneMatrices()

	return s, nil
}

func (s *skeleton) BoneCount() int {
	return len(s.bones)
}

func (s *skeleton) Bone(i int) Bone {
	if i < 0 || i >= len(s.bones) {
		return Bone{}
	}
	return s.bones[i]
}

func (s *skeleton) BoneIndex(name string) int {
	if i, ok := s.nameToIndex[name]; ok {
		return i
	}
	return -1
}

func (s *skeleton) ParentIndex(i int) int {
	if i < 0 || i >= len(s.bones) {
		return -1
	}
	return int(s.bones[i].ParentIndex)
}

func (s *skeleton) BindTransform(i int) Transform {
	if i < 0 || i >= len(s.bones) {
		return IdentityTransform()
	}
	return s.bones[i].Bind
}

func (s *skeleton) LocalTransform(i int) Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.local) {
		return IdentityTransform()
	}
	return s.local[i]
}

func (s *skeleton) SetLocalTransform(i int, t Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.local) {
		return
	}
	s.local[i] = t
	s.dirty = true
}

func (s *skeleton) SetPose(pose []Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(s.local, pose)
	if n > 0 {
		s.dirty = true
	}
}

func (s *skeleton) ResetPose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bones {
		s.local[i] = s.bones[i].Bind
	}
	s.dirty = true
}

func (s *skeleton) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *skeleton) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *skeleton) WorldMatrix(i int) [16]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m [16]float32
	if i < 0 || i >= len(s.bones) {
		return m
	}
	copy(m[:], s.world[i*16:i*16+16])
	return m
}

func (s *skeleton) SetWorldMatrix(i int, m [16]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.bones) {
		return
	}
	copy(s.world[i*16:i*16+16], m[:])
	s.refreshed[i] = true
	s.hasRefreshed = true
}

func (s *skeleton) InverseBindMatrix(i int) [16]float32 {
	if i < 0 || i >= len(s.bones) {
		return [16]float32{}
	}
	return s.bones[i].InverseBindMatrix
}

func (s *skeleton) UpdateBoneMatrices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRefreshed {
		return 0
	}

	fpb := s.layout.FloatsPerBone()
	var m [16]float32
	start, end, count := -1, -1, 0
	for i, ok := range s.refreshed {
		if !ok {
			continue
		}
		common.Mul4(m[:], s.world[i*16:i*16+16], s.inverseBind[i*16:i*16+16])
		s.layout.pack(s.boneMatrices[i*fpb:(i+1)*fpb], &m)
		s.refreshed[i] = false
		if start < 0 {
			start = i
		}
		end = i + 1
		count++
	}
	s.hasRefreshed = false

	s.stageRange(start, end)
	return count
}

// stageRange copies bones [start, end) into the staging buffer and stages a write covering
// them, merged with any write that has not been drained yet.
func (s *skeleton) stageRange(start, end int) {
	if start < 0 {
		return
	}
	bpb := s.layout.BytesPerBone()
	fpb := s.layout.FloatsPerBone()

	raw := common.SliceToBytes(s.boneMatrices[start*fpb : end*fpb])
	copy(s.stagingBones[start*bpb:end*bpb], raw)

	if s.pendingStart >= 0 {
		start = min(start, s.pendingStart)
		end = max(end, s.pendingEnd)
	}
	s.pendingStart, s.pendingEnd = start, end

	write := BufferWrite{
		Binding: s.binding,
		Offset:  uint64(start * bpb),
		Data:    s.stagingBones[start*bpb : end*bpb],
	}
	if len(s.stagedWriteData) > 0 {
		s.stagedWriteData[0] = write
		return
	}
	s.stagedWriteData = append(s.stagedWriteData, write)
}

func (s *skeleton) BoneMatrices() []float32 {
	return s.boneMatrices
}

func (s *skeleton) BoneMatrix(i int) [16]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.bones) {
		return [16]float32{}
	}
	fpb := s.layout.FloatsPerBone()
	return s.layout.unpack(s.boneMatrices[i*fpb : (i+1)*fpb])
}

func (s *skeleton) Layout() MatrixLayout {
	return s.layout
}

func (s *skeleton) Binding() int {
	return s.binding
}

func (s *skeleton) StagedWriteData() []BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stagedWriteData) == 0 {
		return nil
	}
	w := make([]BufferWrite, len(s.stagedWriteData))
	copy(w, s.stagedWriteData)
	s.stagedWriteData = s.stagedWriteData[:0]
	s.pendingStart, s.pendingEnd = -1, -1
	return w
}
