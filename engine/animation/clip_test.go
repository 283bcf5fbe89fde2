package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClipDerivesDuration(t *testing.T) {
	pos := mustTrack(t, 0, PropertyPosition, InterpolationLinear, []float32{0, 1}, make([]float32, 6))
	rot := mustTrack(t, 3, PropertyRotation, InterpolationStep, []float32{0, 0.5, 1.75}, make([]float32, 12))

	c, err := NewClip("Walk", []*Track{pos, rot})
	require.NoError(t, err)
	assert.Equal(t, "Walk", c.Name())
	assert.Equal(t, float32(1.75), c.Duration())
	assert.Equal(t, 2, c.TrackCount())
	assert.Equal(t, 3, c.MaxBoneIndex())
	assert.Same(t, rot, c.Tracks()[1])
}

func TestNewClipExplicitDuration(t *testing.T) {
	pos := mustTrack(t, 0, PropertyPosition, InterpolationLinear, []float32{0, 1}, make([]float32, 6))

	c, err := NewClip("Idle", []*Track{pos}, WithDuration(2))
	require.NoError(t, err)
	assert.Equal(t, float32(2), c.Duration())

	empty, err := NewClip("Empty", nil)
	require.NoError(t, err)
	assert.Equal(t, float32(0), empty.Duration())
	assert.Equal(t, -1, empty.MaxBoneIndex())
}

func TestNewClipRejectsInvalidInput(t *testing.T) {
	pos := mustTrack(t, 0, PropertyPosition, InterpolationLinear, []float32{0, 1}, make([]float32, 6))

	_, err := NewClip("Negative", []*Track{pos}, WithDuration(-1))
	assert.ErrorIs(t, err, ErrInvalidClip)

	_, err = NewClip("Holes", []*Track{pos, nil})
	assert.ErrorIs(t, err, ErrInvalidClip)
	assert.Contains(t, err.Error(), "track 1")
}

func TestNewClipCopiesTrackSlice(t *testing.T) {
	pos := mustTrack(t, 0, PropertyPosition, InterpolationLinear, []float32{0, 1}, make([]float32, 6))
	tracks := []*Track{pos}

	c, err := NewClip("Idle", tracks)
	require.NoError(t, err)

	tracks[0] = nil
	assert.Same(t, pos, c.Tracks()[0])
}
