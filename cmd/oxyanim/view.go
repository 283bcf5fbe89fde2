package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW must run on the main OS thread.
	runtime.LockOSThread()
}

// timeScaleStep is how much one scroll notch changes the mixer time scale.
const timeScaleStep = 0.1

func newViewCmd(a *app) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "view <model.yaml>",
		Short: "Preview a model's clips in a window",
		Long: `view opens a window and plays the model's first clip. The title bar shows the
playing actions and their blend weights.

  1-9     crossfade to clip N
  Space   pause or resume
  Scroll  change the time scale
  Esc     quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(cmd.OutOrStdout(), args[0], width, height)
		},
	}
	cmd.Flags().IntVar(&width, "width", 800, "window width")
	cmd.Flags().IntVar(&height, "height", 450, "window height")
	return cmd
}

func (a *app) view(out io.Writer, path string, width, height int) error {
	mdl, err := a.loadModel(path)
	if err != nil {
		return err
	}
	if mdl.AnimationCount() == 0 {
		return errors.New("model has no clips")
	}

	s := a.newScene("view")
	defer s.Close()
	mixer, err := s.AddModel(mdl.Name(), mdl)
	if err != nil {
		return err
	}

	names := mdl.AnimationNames()
	current, err := mixer.ClipAction(mdl.Animation(names[0]))
	if err != nil {
		return err
	}
	current.Play()

	win, err := window.NewWindow(
		window.WithTitle("oxyanim - "+mdl.Name()),
		window.WithWidth(width),
		window.WithHeight(height),
		window.WithPollInterval(1/a.cfg.Engine.TickRate),
	)
	if err != nil {
		return err
	}

	// Input arrives on the window thread; the mixer is only touched from the tick callback.
	commands := make(chan func(), 16)
	send := func(fn func()) {
		select {
		case commands <- fn:
		default:
		}
	}

	var title atomic.Value
	title.Store(win.Title())

	e := a.newEngine(engine.WithWindow(win), engine.WithScene(0, s))
	e.SetTickCallback(func(float32) {
		for {
			select {
			case fn := <-commands:
				fn()
			default:
				return
			}
		}
	})
	e.SetFrameCallback(func(float32, []skeleton.BufferWrite) {
		title.Store(fmt.Sprintf("oxyanim - %s x%.1f %s", mdl.Name(), mixer.TimeScale(), describeActions(mixer)))
	})

	win.SetUpdateCallback(func() {
		if t := title.Load().(string); t != win.Title() {
			win.SetTitle(t)
		}
	})
	win.SetKeyDownCallback(func(keyCode uint32) {
		switch {
		case keyCode >= common.Key1 && keyCode <= common.Key9:
			idx := int(keyCode - common.Key1)
			if idx >= len(names) {
				return
			}
			send(func() {
				next, err := mixer.ClipAction(mdl.Animation(names[idx]))
				if err != nil || next == current {
					return
				}
				if err := mixer.CrossFade(current, next, a.cfg.Mixer.DefaultFade); err != nil {
					a.logger.Warn().Err(err).Str("clip", names[idx]).Msg("crossfade failed")
					return
				}
				current = next
			})
		case keyCode == common.KeySpace:
			send(func() {
				if current.IsPaused() {
					current.Play()
				} else {
					current.Pause()
				}
			})
		}
	})
	win.SetScrollCallback(func(delta float32) {
		send(func() {
			mixer.SetTimeScale(max(mixer.TimeScale()+delta*timeScaleStep, 0))
		})
	})

	for i, name := range names {
		if i < 9 {
			fmt.Fprintf(out, "  %d = %s\n", i+1, name)
		}
	}
	e.Run()
	return nil
}
