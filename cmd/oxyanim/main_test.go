package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robotPath = "../../assets/robot.yaml"

// syncBuffer is a bytes.Buffer safe for the watcher's callback goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	isolate(t)

	out, err := run(t, "inspect", robotPath)
	require.NoError(t, err)

	assert.Contains(t, out, "model robot")
	assert.Contains(t, out, "bones: 5")
	assert.Contains(t, out, "      head [2]")
	assert.Contains(t, out, "clips: 3")
	assert.Contains(t, out, "cubicspline")
	for _, clip := range []string{"Idle", "Walk", "Wave"} {
		assert.Contains(t, out, clip)
	}
}

func TestInspectErrors(t *testing.T) {
	isolate(t)

	_, err := run(t, "inspect")
	assert.Error(t, err)

	_, err = run(t, "inspect", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSimulateCrossFade(t *testing.T) {
	isolate(t)

	out, err := run(t, "simulate", robotPath,
		"--clip", "Walk", "--to", "Wave", "--at", "0.5", "--fade", "0.25",
		"--frames", "20", "--dt", "0.05", "--every", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "crossfade Walk -> Wave over 0.250s")
	assert.Contains(t, out, "Walk faded_out")
	assert.Contains(t, out, "frame 10 t=")
	assert.Contains(t, out, "frame 20 t=")
	assert.NotContains(t, out, "frame 5 t=")
	assert.Contains(t, out, "final pose:")
	// Wave does not animate the hips, so they sit at their bind position.
	assert.Contains(t, out, "world=(0.000, 1.000, 0.000)")
}

func TestSimulateLoopModes(t *testing.T) {
	isolate(t)

	out, err := run(t, "simulate", robotPath, "--clip", "Wave", "--frames", "20", "--dt", "0.05", "--every", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Wave loop")
	assert.NotContains(t, out, "t=")

	out, err = run(t, "simulate", robotPath, "--clip", "Wave", "--frames", "20", "--dt", "0.05", "--every", "0", "--loop", "once")
	require.NoError(t, err)
	assert.Contains(t, out, "Wave finished")
	assert.NotContains(t, out, "Wave loop")
}

func TestSimulateErrors(t *testing.T) {
	isolate(t)

	_, err := run(t, "simulate", robotPath, "--clip", "Run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown clip "Run"`)

	_, err = run(t, "simulate", robotPath, "--loop", "sideways")
	assert.Error(t, err)

	_, err = run(t, "simulate", robotPath, "--frames", "-1")
	assert.Error(t, err)

	_, err = run(t, "simulate", robotPath, "--clip", "Walk", "--to", "Walk")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	isolate(t)

	cfgPath := filepath.Join(t.TempDir(), "oxyanim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("engine:\n  tick_rate: -5\n"), 0o644))
	_, err := run(t, "--config", cfgPath, "inspect", robotPath)
	assert.Error(t, err)

	_, err = run(t, "--log-level", "loud", "inspect", robotPath)
	assert.Error(t, err)
}

func TestWatchReloadsChangedModels(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	src, err := os.ReadFile(robotPath)
	require.NoError(t, err)
	path := filepath.Join(dir, "robot.yaml")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"watch", dir})
	cmd.SetOut(&out)
	cmd.SetErr(&syncBuffer{})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "watching 1 directory") }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "loaded robot: 5 bones, 3 clips")

	renamed := strings.Replace(string(src), "name: robot", "name: robot2", 1)
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "reloaded robot2") }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
