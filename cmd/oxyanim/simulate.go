package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/spf13/cobra"
)

// simulateOptions holds the flags of the simulate command.
type simulateOptions struct {
	clip   string
	to     string
	fade   float32
	at     float32
	frames int
	dt     float32
	loop   string
	speed  float32
	every  int
}

func newSimulateCmd(a *app) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <model.yaml>",
		Short: "Play clips headless and print the mixer state frame by frame",
		Long: `simulate plays a clip on a model without a window, stepping the engine a fixed
number of frames. With --to it crossfades into a second clip at --at seconds.
Playback events and the final skinning matrices are printed.`,
		Example: `  oxyanim simulate assets/robot.yaml --clip Walk --to Wave --at 0.5 --fade 0.25 --frames 60`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("fade") {
				opts.fade = a.cfg.Mixer.DefaultFade
			}
			if opts.dt <= 0 {
				opts.dt = float32(1 / a.cfg.Engine.TickRate)
			}
			return a.simulate(cmd.OutOrStdout(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.clip, "clip", "", "clip to play (default: first clip)")
	flags.StringVar(&opts.to, "to", "", "clip to crossfade into")
	flags.Float32Var(&opts.fade, "fade", 0, "crossfade duration in seconds (default: mixer.default_fade)")
	flags.Float32Var(&opts.at, "at", 0, "playback time in seconds at which the crossfade starts")
	flags.IntVar(&opts.frames, "frames", 30, "number of frames to step")
	flags.Float32Var(&opts.dt, "dt", 0, "seconds per frame (default: 1/engine.tick_rate)")
	flags.StringVar(&opts.loop, "loop", "repeat", "loop mode: repeat, once or pingpong")
	flags.Float32Var(&opts.speed, "speed", 1, "playback speed of the clips")
	flags.IntVar(&opts.every, "every", 1, "print the mixer state every N frames (0 disables)")
	return cmd
}

func (a *app) simulate(out io.Writer, path string, opts *simulateOptions) error {
	if opts.frames < 0 {
		return fmt.Errorf("--frames must be >= 0, got %d", opts.frames)
	}
	loop, err := animator.ParseLoopMode(opts.loop)
	if err != nil {
		return err
	}

	mdl, err := a.loadModel(path)
	if err != nil {
		return err
	}
	if mdl.AnimationCount() == 0 {
		return errors.New("model has no clips")
	}

	s := a.newScene("simulate")
	defer s.Close()

	mixer, err := s.AddModel(mdl.Name(), mdl)
	if err != nil {
		return err
	}

	clipName := common.Coalesce(opts.clip, mdl.AnimationNames()[0])
	from, err := clipAction(mixer, mdl, clipName)
	if err != nil {
		return err
	}
	from.SetLoop(loop).SetSpeed(opts.speed).Play()

	var to animator.Action
	if opts.to != "" {
		if to, err = clipAction(mixer, mdl, opts.to); err != nil {
			return err
		}
		to.SetLoop(loop).SetSpeed(opts.speed)
	}

	frame := 0
	for _, et := range []animator.EventType{animator.EventFinished, animator.EventLoop, animator.EventFadedOut} {
		mixer.AddListener(et, func(ev animator.Event) {
			fmt.Fprintf(out, "frame %d: %s %s at %.3f\n", frame, ev.Action.Clip().Name(), ev.Type, ev.Time)
		})
	}

	var elapsed float32
	var crossed bool
	var crossFadeErr error
	e := a.newEngine()
	e.AddScene(0, s)
	e.SetTickCallback(func(dt float32) {
		frame++
		if to != nil && !crossed && elapsed >= opts.at {
			crossed = true
			fmt.Fprintf(out, "frame %d: crossfade %s -> %s over %.3fs\n", frame, clipName, opts.to, opts.fade)
			crossFadeErr = mixer.CrossFade(from, to, opts.fade)
		}
		elapsed += dt
	})
	e.SetFrameCallback(func(dt float32, writes []skeleton.BufferWrite) {
		if opts.every <= 0 || frame%opts.every != 0 {
			return
		}
		fmt.Fprintf(out, "frame %d t=%.3f %s| uploads=%d bytes=%d\n", frame, elapsed, describeActions(mixer), len(writes), writeBytes(writes))
	})

	for i := 0; i < opts.frames && crossFadeErr == nil; i++ {
		e.Step(opts.dt)
	}
	if crossFadeErr != nil {
		return crossFadeErr
	}

	printPose(out, s.Skeleton(mdl.Name()))
	return nil
}

// clipAction resolves a named clip of mdl to an action on the mixer.
func clipAction(mixer animator.Mixer, mdl model.Model, name string) (animator.Action, error) {
	clip := mdl.Animation(name)
	if clip == nil {
		return nil, fmt.Errorf("unknown clip %q", name)
	}
	return mixer.ClipAction(clip)
}

func describeActions(mixer animator.Mixer) string {
	var sb strings.Builder
	for _, act := range mixer.Actions() {
		if !act.IsPlaying() {
			continue
		}
		state := "playing"
		switch {
		case act.IsPaused():
			state = "paused"
		case act.IsFading():
			state = "fading"
		}
		fmt.Fprintf(&sb, "%s[%s t=%.3f w=%.2f] ", act.Clip().Name(), state, act.Time(), act.EffectiveWeight())
	}
	return sb.String()
}

func writeBytes(writes []skeleton.BufferWrite) int {
	n := 0
	for _, w := range writes {
		n += len(w.Data)
	}
	return n
}

// printPose prints every bone's world position and skinning matrix translation.
func printPose(out io.Writer, skel skeleton.Skeleton) {
	if skel == nil {
		return
	}
	fmt.Fprintln(out, "final pose:")
	for i := 0; i < skel.BoneCount(); i++ {
		w := skel.WorldMatrix(i)
		m := skel.BoneMatrix(i)
		fmt.Fprintf(out, "  %-12s world=(%.3f, %.3f, %.3f) skin=(%.3f, %.3f, %.3f)\n",
			skel.Bone(i).Name, w[12], w[13], w[14], m[12], m[13], m[14])
	}
}
