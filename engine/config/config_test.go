package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
engine:
  tick_rate: 30
  profiling: true
scene:
  workers: 3
  matrix_layout: mat3x4
  binding: 2
mixer:
  default_fade: 0.5
logging:
  level: debug
  format: json
assets:
  dirs: ["~/models", "./local"]
  watch: true
  debounce: 250ms
`

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxyanim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.Engine.TickRate)
	assert.True(t, cfg.Engine.Profiling)
	assert.Equal(t, 3, cfg.Scene.Workers)
	assert.Equal(t, 2, cfg.Scene.Binding)
	assert.InDelta(t, 0.5, cfg.Mixer.DefaultFade, 1e-6)
	assert.InDelta(t, 1, cfg.Mixer.TimeScale, 1e-6, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{filepath.Join(home, "models"), "./local"}, cfg.Assets.Dirs)
	assert.True(t, cfg.Assets.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Assets.Debounce)

	layout, err := cfg.Scene.Layout()
	require.NoError(t, err)
	assert.Equal(t, skeleton.MatrixLayoutMat3x4, layout)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("oxyanim.yaml", []byte("engine:\n  tick_rate: 90\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Engine.TickRate)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv("OXY_ENGINE_TICK_RATE", "120")
	t.Setenv("OXY_LOGGING_FORMAT", "console")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 120.0, cfg.Engine.TickRate)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "engine: [\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "engine:\n  tick_rate: -1\nscene:\n  matrix_layout: mat2\nlogging:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.tick_rate")
	assert.Contains(t, err.Error(), "scene.matrix_layout")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = LoggingConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}

func TestSkeletonOptions(t *testing.T) {
	opts := SceneConfig{MatrixLayout: "mat3x4", Binding: 4}.SkeletonOptions()
	skel, err := skeleton.NewSkeleton([]skeleton.Bone{{Name: "root", ParentIndex: -1, Bind: skeleton.IdentityTransform()}}, opts...)
	require.NoError(t, err)
	assert.Equal(t, skeleton.MatrixLayoutMat3x4, skel.Layout())
	assert.Equal(t, 4, skel.Binding())
}
