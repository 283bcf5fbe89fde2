package model

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clip(t *testing.T, name string) *animation.Clip {
	t.Helper()
	tr, err := animation.NewTrack(0, animation.PropertyScale, animation.InterpolationStep, []float32{0}, []float32{1, 1, 1})
	require.NoError(t, err)
	c, err := animation.NewClip(name, []*animation.Track{tr})
	require.NoError(t, err)
	return c
}

func TestModelLookups(t *testing.T) {
	idle, walk := clip(t, "Idle"), clip(t, "Walk")
	m := NewModel(
		WithName("robot"),
		WithSourcePath("robot.yaml"),
		WithBones([]skeleton.Bone{{Name: "root", ParentIndex: -1, Bind: skeleton.IdentityTransform()}}),
		WithAnimations([]*animation.Clip{idle, walk}),
	)

	assert.Equal(t, "robot", m.Name())
	assert.Equal(t, "robot.yaml", m.SourcePath())
	assert.Equal(t, 1, m.BoneCount())
	assert.Equal(t, 2, m.AnimationCount())
	assert.Equal(t, []string{"Idle", "Walk"}, m.AnimationNames())
	assert.Equal(t, 1, m.GetAnimationIndex("Walk"))
	assert.Equal(t, -1, m.GetAnimationIndex("Run"))
	assert.Same(t, walk, m.Animation("Walk"))
	assert.Nil(t, m.Animation("Run"))
}

func TestNewSkeletonPerInstance(t *testing.T) {
	m := NewModel(WithBones([]skeleton.Bone{
		{Name: "root", ParentIndex: -1, Bind: skeleton.IdentityTransform()},
		{Name: "child", ParentIndex: 0, Bind: skeleton.IdentityTransform()},
	}))

	a, err := m.NewSkeleton()
	require.NoError(t, err)
	b, err := m.NewSkeleton(skeleton.WithBinding(2))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, b.Binding())
	assert.Equal(t, 1, a.BoneIndex("child"))

	bad := NewModel(WithBones([]skeleton.Bone{{Name: "orphan", ParentIndex: 3}}))
	_, err = bad.NewSkeleton()
	assert.True(t, errors.Is(err, skeleton.ErrInvalidSkeleton))
}
