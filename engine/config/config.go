// Package config loads process configuration for the oxy-anim tools from a YAML file and
// OXY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. OXY_ENGINE_TICK_RATE.
const EnvPrefix = "OXY"

// Config holds the complete application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Scene   SceneConfig   `mapstructure:"scene"`
	Mixer   MixerConfig   `mapstructure:"mixer"`
	Logging LoggingConfig `mapstructure:"logging"`
	Assets  AssetsConfig  `mapstructure:"assets"`
}

// EngineConfig holds tick loop settings.
type EngineConfig struct {
	TickRate  float64 `mapstructure:"tick_rate"`
	Profiling bool    `mapstructure:"profiling"`
}

// SceneConfig holds scene worker and bone matrix upload settings.
type SceneConfig struct {
	Workers      int    `mapstructure:"workers"` // 0 = runtime.NumCPU()-1
	MatrixLayout string `mapstructure:"matrix_layout"`
	Binding      int    `mapstructure:"binding"`
}

// MixerConfig holds playback defaults applied to new mixers.
type MixerConfig struct {
	TimeScale   float32 `mapstructure:"time_scale"`
	DefaultFade float32 `mapstructure:"default_fade"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

// AssetsConfig holds model search and hot reload settings.
type AssetsConfig struct {
	Dirs     []string      `mapstructure:"dirs"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultConfig returns a new configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:  60,
			Profiling: false,
		},
		Scene: SceneConfig{
			Workers:      0,
			MatrixLayout: skeleton.MatrixLayoutMat4x4.String(),
			Binding:      0,
		},
		Mixer: MixerConfig{
			TimeScale:   1,
			DefaultFade: 0.3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Assets: AssetsConfig{
			Dirs:     []string{"assets"},
			Watch:    false,
			Debounce: 100 * time.Millisecond,
		},
	}
}

// Load loads configuration from defaults, the config file and environment variables, in
// increasing priority. An empty configPath searches for oxyanim.yaml in the working
// directory and in $HOME/.config/oxy-anim; a missing file there is not an error.
//
// Parameters:
//   - configPath: an explicit config file, or ""
//
// Returns:
//   - *Config: the validated configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("oxyanim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", ".config", "oxy-anim"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Assets.Dirs = expandHome(cfg.Assets.Dirs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_rate must be positive, got %v", c.Engine.TickRate))
	}
	if c.Scene.Workers < 0 {
		errs = append(errs, fmt.Errorf("scene.workers must be >= 0, got %d", c.Scene.Workers))
	}
	if _, err := c.Scene.Layout(); err != nil {
		errs = append(errs, err)
	}
	if c.Mixer.DefaultFade < 0 {
		errs = append(errs, fmt.Errorf("mixer.default_fade must be >= 0, got %v", c.Mixer.DefaultFade))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if f := c.Logging.Format; f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", f))
	}
	if c.Assets.Debounce < 0 {
		errs = append(errs, fmt.Errorf("assets.debounce must be >= 0, got %v", c.Assets.Debounce))
	}
	return errors.Join(errs...)
}

// Layout parses the configured matrix layout.
func (c SceneConfig) Layout() (skeleton.MatrixLayout, error) {
	l, err := skeleton.ParseMatrixLayout(c.MatrixLayout)
	if err != nil {
		return 0, fmt.Errorf("scene.matrix_layout: %w", err)
	}
	return l, nil
}

// SkeletonOptions returns the skeleton builder options for the configured layout and binding.
// The layout must already be valid.
func (c SceneConfig) SkeletonOptions() []skeleton.SkeletonBuilderOption {
	l, _ := c.Layout()
	return []skeleton.SkeletonBuilderOption{
		skeleton.WithMatrixLayout(l),
		skeleton.WithBinding(c.Binding),
	}
}

// NewLogger builds a zerolog logger writing to w at the configured level and format.
//
// Parameters:
//   - w: the output writer
//
// Returns:
//   - zerolog.Logger: the logger
//   - error: an error if the level is unknown
func (c LoggingConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logging.level: %w", err)
	}
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("engine.tick_rate", defaults.Engine.TickRate)
	v.SetDefault("engine.profiling", defaults.Engine.Profiling)
	v.SetDefault("scene.workers", defaults.Scene.Workers)
	v.SetDefault("scene.matrix_layout", defaults.Scene.MatrixLayout)
	v.SetDefault("scene.binding", defaults.Scene.Binding)
	v.SetDefault("mixer.time_scale", defaults.Mixer.TimeScale)
	v.SetDefault("mixer.default_fade", defaults.Mixer.DefaultFade)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("assets.dirs", defaults.Assets.Dirs)
	v.SetDefault("assets.watch", defaults.Assets.Watch)
	v.SetDefault("assets.debounce", defaults.Assets.Debounce)
}

func expandHome(dirs []string) []string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	out := make([]string, len(dirs))
	for i, dir := range dirs {
		if strings.HasPrefix(dir, "~") {
			dir = home + dir[1:]
		}
		out[i] = dir
	}
	return out
}
