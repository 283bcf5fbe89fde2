package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const armPath = "testdata/arm.yaml"

func TestLoadSortsBonesParentsFirst(t *testing.T) {
	l := NewLoader(BackendTypeYAML)
	m, err := l.Load(armPath)
	require.NoError(t, err)

	assert.Equal(t, "arm", m.Name())
	assert.Equal(t, armPath, m.SourcePath())
	require.Equal(t, 3, m.BoneCount())

	bones := m.Bones()
	assert.Equal(t, "root", bones[0].Name)
	assert.Equal(t, "upper", bones[1].Name)
	assert.Equal(t, "forearm", bones[2].Name)
	assert.Equal(t, int32(-1), bones[0].ParentIndex)
	assert.Equal(t, int32(0), bones[1].ParentIndex)
	assert.Equal(t, int32(1), bones[2].ParentIndex)

	// Missing inverse bind matrices are filled from the bind pose.
	assert.InDelta(t, -5, bones[0].InverseBindMatrix[13], 1e-5)
	assert.InDelta(t, -7, bones[1].InverseBindMatrix[13], 1e-5)
	assert.InDelta(t, -8, bones[2].InverseBindMatrix[13], 1e-5)
	assert.InDelta(t, 1, bones[2].Bind.Scale[0], 1e-6)
	assert.InDelta(t, 1, bones[2].Bind.Rotation[3], 1e-6)
}

func TestLoadResolvesTrackBones(t *testing.T) {
	l := NewLoader(BackendTypeYAML)
	m, err := l.Load(armPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"Wave", "Idle"}, m.AnimationNames())

	wave := m.Animation("Wave")
	require.NotNil(t, wave)
	assert.InDelta(t, 1, wave.Duration(), 1e-6)
	require.Equal(t, 2, wave.TrackCount())
	assert.Equal(t, 2, wave.Tracks()[0].BoneIndex(), "forearm by name")
	assert.Equal(t, animation.PropertyRotation, wave.Tracks()[0].Property())
	assert.Equal(t, 0, wave.Tracks()[1].BoneIndex(), "document index 1 is root")
	assert.Equal(t, animation.PropertyPosition, wave.Tracks()[1].Property())
	assert.Equal(t, animation.InterpolationStep, wave.Tracks()[1].Interpolation())

	idle := m.Animation("Idle")
	require.NotNil(t, idle)
	assert.InDelta(t, 2, idle.Duration(), 1e-6)
	assert.Equal(t, 1, m.GetAnimationIndex("Idle"))
	assert.Nil(t, m.Animation("Run"))
}

func TestLoadedModelBuildsSkeleton(t *testing.T) {
	l := NewLoader(BackendTypeYAML)
	m, err := l.Load(armPath)
	require.NoError(t, err)

	skel, err := m.NewSkeleton()
	require.NoError(t, err)
	skeleton.Propagate(skel)

	world := skel.WorldMatrix(2)
	assert.InDelta(t, 8, world[13], 1e-5)

	skel.UpdateBoneMatrices()
	identity := skel.BoneMatrix(2)
	assert.InDelta(t, 0, identity[13], 1e-5)
	assert.InDelta(t, 1, identity[0], 1e-5)
}

func TestLoadCachesByPath(t *testing.T) {
	l := NewLoader(BackendTypeYAML)
	first, err := l.Load(armPath)
	require.NoError(t, err)
	second, err := l.Load(armPath)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(armPath))
	assert.Len(t, l.Models(), 1)
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(BackendTypeYAML)

	_, err := l.Load("testdata/notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load("testdata/unknown_bone.yaml")
	assert.ErrorIs(t, err, ErrUnknownBone)
	assert.Contains(t, err.Error(), "Broken")

	_, err = l.Load("testdata/missing.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Empty(t, l.Models())
}

func TestLoadReaderValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "empty document",
			doc:  "",
			want: ErrInvalidDocument,
		},
		{
			name: "no bones",
			doc:  "name: x\n",
			want: ErrInvalidDocument,
		},
		{
			name: "unknown field",
			doc:  "skeleton:\n  bones:\n    - name: root\n      color: red\n",
			want: ErrInvalidDocument,
		},
		{
			name: "duplicate bone",
			doc:  "skeleton:\n  bones:\n    - name: a\n    - name: a\n",
			want: ErrInvalidDocument,
		},
		{
			name: "cycle",
			doc:  "skeleton:\n  bones:\n    - name: a\n      parent: b\n    - name: b\n      parent: a\n",
			want: ErrInvalidDocument,
		},
		{
			name: "self parent",
			doc:  "skeleton:\n  bones:\n    - name: a\n      parent: a\n",
			want: ErrInvalidDocument,
		},
		{
			name: "unknown parent",
			doc:  "skeleton:\n  bones:\n    - name: a\n      parent: ghost\n",
			want: ErrUnknownBone,
		},
		{
			name: "parent index out of range",
			doc:  "skeleton:\n  bones:\n    - name: a\n      parent: 4\n",
			want: ErrUnknownBone,
		},
		{
			name: "short translation",
			doc:  "skeleton:\n  bones:\n    - name: a\n      translation: [1, 2]\n",
			want: ErrInvalidDocument,
		},
		{
			name: "short inverse bind",
			doc:  "skeleton:\n  bones:\n    - name: a\n      inverse_bind: [1, 0, 0]\n",
			want: ErrInvalidDocument,
		},
		{
			name: "singular bind",
			doc:  "skeleton:\n  bones:\n    - name: a\n      scale: [0, 0, 0]\n",
			want: skeleton.ErrInvalidSkeleton,
		},
		{
			name: "bad property",
			doc: "skeleton:\n  bones:\n    - name: a\nclips:\n  - name: c\n    tracks:\n" +
				"      - bone: a\n        property: color\n        times: [0]\n        values: [0, 0, 0]\n",
			want: animation.ErrInvalidTrack,
		},
		{
			name: "value count mismatch",
			doc: "skeleton:\n  bones:\n    - name: a\nclips:\n  - name: c\n    tracks:\n" +
				"      - bone: a\n        property: position\n        times: [0, 1]\n        values: [0, 0, 0]\n",
			want: animation.ErrInvalidTrack,
		},
		{
			name: "track without bone",
			doc: "skeleton:\n  bones:\n    - name: a\nclips:\n  - name: c\n    tracks:\n" +
				"      - property: position\n        times: [0]\n        values: [0, 0, 0]\n",
			want: ErrUnknownBone,
		},
		{
			name: "duplicate clip",
			doc:  "skeleton:\n  bones:\n    - name: a\nclips:\n  - name: c\n  - name: c\n",
			want: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(BackendTypeYAML)
			_, err := l.LoadReader(tt.name, strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, l.Get(tt.name))
		})
	}
}

func TestLoadReaderDefaults(t *testing.T) {
	doc := "skeleton:\n  bones:\n    - {}\nclips:\n  - tracks:\n" +
		"      - bone: 0\n        property: position\n        times: [0, 2]\n        values: [0, 0, 0, 1, 0, 0]\n"

	l := NewLoader(BackendTypeYAML)
	m, err := l.LoadReader("fallback", strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "fallback", m.Name())
	assert.Equal(t, "", m.SourcePath())
	assert.Equal(t, "bone_0", m.Bones()[0].Name)
	assert.Equal(t, []string{"clip_0"}, m.AnimationNames())
	assert.InDelta(t, 2, m.Animations()[0].Duration(), 1e-6)
	assert.Same(t, m, l.Get("fallback"))
}

func TestReloadKeepsCachedModelOnFailure(t *testing.T) {
	path := copyArm(t, t.TempDir())

	l := NewLoader(BackendTypeYAML)
	original, err := l.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("skeleton: [\n"), 0o644))
	_, err = l.Reload(path)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Same(t, original, l.Get(path))

	writeRenamedArm(t, path, "arm_v2")
	reloaded, err := l.Reload(path)
	require.NoError(t, err)
	assert.Equal(t, "arm_v2", reloaded.Name())
	assert.Same(t, reloaded, l.Get(path))
}

func TestEvictAndWithModel(t *testing.T) {
	prebuilt := model.NewModel(model.WithName("prebuilt"))
	l := NewLoader(BackendTypeYAML, WithModel("prebuilt", prebuilt))

	assert.Same(t, prebuilt, l.Get("prebuilt"))
	assert.True(t, l.Evict("prebuilt"))
	assert.False(t, l.Evict("prebuilt"))
	assert.Nil(t, l.Get("prebuilt"))
}

func TestWatcherReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := copyArm(t, dir)

	l := NewLoader(BackendTypeYAML)
	_, err := l.Load(path)
	require.NoError(t, err)

	type result struct {
		path string
		m    model.Model
		err  error
	}
	results := make(chan result, 8)
	w, err := NewWatcher(l, 50*time.Millisecond, func(p string, m model.Model, err error) {
		results <- result{p, m, err}
	}, dir)
	require.NoError(t, err)
	defer w.Close()

	// Non-model files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))
	writeRenamedArm(t, path, "arm_hot")

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, path, r.path)
		assert.Equal(t, "arm_hot", r.m.Name())
		assert.Same(t, r.m, l.Get(path))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return l.Get(path) == nil }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(NewLoader(BackendTypeYAML), 0, nil, t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func copyArm(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(armPath)
	require.NoError(t, err)
	path := filepath.Join(dir, "arm.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeRenamedArm(t *testing.T, path, name string) {
	t.Helper()
	data, err := os.ReadFile(armPath)
	require.NoError(t, err)
	renamed := strings.Replace(string(data), "name: arm\n", "name: "+name+"\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))
}
