// Package main provides the oxyanim command line tool for inspecting, simulating and
// previewing skeletal animation models.
package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "dev"

// app carries the state shared by every subcommand once the root pre-run has loaded it.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "oxyanim",
		Short: "Inspect, simulate and preview skeletal animation models",
		Long: `oxyanim loads YAML skeletal animation models and drives them through the
animation mixer, either headless or in a preview window.

Configuration is read from --config, ./oxyanim.yaml or ~/.config/oxy-anim/oxyanim.yaml,
and every key can be overridden with an OXY_ environment variable
(for example OXY_ENGINE_TICK_RATE=30).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./oxyanim.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(
		newInspectCmd(a),
		newSimulateCmd(a),
		newWatchCmd(a),
		newViewCmd(a),
	)
	return rootCmd
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	log.Logger = logger
	return nil
}

// newScene creates an active scene configured from the scene and mixer sections.
func (a *app) newScene(name string) scene.Scene {
	options := []scene.SceneBuilderOption{
		scene.WithActive(true),
		scene.WithLogger(a.logger),
		scene.WithSkeletonOptions(a.cfg.Scene.SkeletonOptions()...),
		scene.WithMixerOptions(animator.WithTimeScale(a.cfg.Mixer.TimeScale)),
	}
	if a.cfg.Scene.Workers > 0 {
		options = append(options, scene.WithComputeWorkers(a.cfg.Scene.Workers))
	}
	return scene.NewScene(name, options...)
}

// newEngine creates an engine configured from the engine section.
func (a *app) newEngine(options ...engine.EngineBuilderOption) engine.Engine {
	options = append([]engine.EngineBuilderOption{
		engine.WithLogger(a.logger),
		engine.WithTickRate(a.cfg.Engine.TickRate),
		engine.WithProfiling(a.cfg.Engine.Profiling),
	}, options...)
	return engine.NewEngine(options...)
}
