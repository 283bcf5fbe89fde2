package engine

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bobModel(t *testing.T) model.Model {
	t.Helper()
	tr, err := animation.NewTrack(0, animation.PropertyPosition, animation.InterpolationLinear,
		[]float32{0, 1}, []float32{0, 0, 0, 0, 1, 0})
	require.NoError(t, err)
	clip, err := animation.NewClip("Bob", []*animation.Track{tr})
	require.NoError(t, err)
	return model.NewModel(
		model.WithName("bob"),
		model.WithBones([]skeleton.Bone{{Name: "root", ParentIndex: -1, Bind: skeleton.IdentityTransform()}}),
		model.WithAnimations([]*animation.Clip{clip}),
	)
}

func playingScene(t *testing.T, name string, active bool) (scene.Scene, animator.Mixer) {
	t.Helper()
	mdl := bobModel(t)
	s := scene.NewScene(name, scene.WithActive(active), scene.WithComputeWorkers(1))
	t.Cleanup(s.Close)

	m, err := s.AddModel("bob", mdl)
	require.NoError(t, err)
	a, err := m.ClipAction(mdl.Animation("Bob"))
	require.NoError(t, err)
	a.Play()
	return s, m
}

type panicMixer struct {
	animator.Mixer
}

func (panicMixer) Update(float32) { panic("boom") }

func TestStepUpdatesActiveScenes(t *testing.T) {
	active, activeMixer := playingScene(t, "active", true)
	idle, idleMixer := playingScene(t, "idle", false)

	var ticks int
	var writes int
	e := NewEngine(WithLogger(zerolog.Nop()), WithScene(0, active), WithScene(1, idle))
	e.SetTickCallback(func(dt float32) {
		ticks++
		assert.InDelta(t, 0.25, dt, 1e-6)
	})
	e.SetFrameCallback(func(dt float32, w []skeleton.BufferWrite) {
		writes = len(w)
	})

	e.Step(0.25)

	assert.Equal(t, 1, ticks)
	assert.Equal(t, 1, writes, "only the active scene contributes")
	assert.InDelta(t, 0.25, activeMixer.Time(), 1e-6)
	assert.Zero(t, idleMixer.Time())
	assert.InDelta(t, 0.25, active.Skeleton("bob").WorldMatrix(0)[13], 1e-5)
}

func TestStepLogsSceneErrors(t *testing.T) {
	var buf bytes.Buffer
	s := scene.NewScene("broken", scene.WithActive(true), scene.WithComputeWorkers(1))
	defer s.Close()

	skel, err := bobModel(t).NewSkeleton()
	require.NoError(t, err)
	require.NoError(t, s.Add("bad", panicMixer{Mixer: animator.NewMixer(skel)}))

	e := NewEngine(WithLogger(zerolog.New(&buf)), WithScene(0, s))
	e.Step(0.1)

	assert.Contains(t, buf.String(), "scene update failed")
	assert.Contains(t, buf.String(), "broken")
	assert.True(t, s.Quarantined("bad"))
}

func TestSceneRegistry(t *testing.T) {
	a, _ := playingScene(t, "a", true)
	b, _ := playingScene(t, "b", true)

	e := NewEngine(WithLogger(zerolog.Nop()))
	e.AddScene(2, b)
	e.AddScene(1, a)
	assert.Same(t, a, e.Scene(1))
	assert.Nil(t, e.Scene(3))
	assert.Len(t, e.Scenes(), 2)

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	assert.Len(t, e.Scenes(), 1)
	assert.Nil(t, e.Window())
}

func TestTickRate(t *testing.T) {
	e := NewEngine(WithLogger(zerolog.Nop()), WithTickRate(0))
	assert.Equal(t, time.Second/60, e.TickRate())

	e.SetTickRate(30)
	assert.Equal(t, time.Second/30, e.TickRate())

	e.SetTickRate(-1)
	assert.Equal(t, time.Second/60, e.TickRate())
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	s, m := playingScene(t, "main", true)

	var ticks atomic.Int32
	e := NewEngine(WithLogger(zerolog.Nop()), WithTickRate(200), WithScene(0, s), WithProfiling(true))
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	e.SetTickRate(100)
	e.Quit()
	e.Quit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.Greater(t, m.Time(), float32(0))
}
