package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/chewxy/math32"
)

// action is the implementation of the Action interface.
type action struct {
	mixer *mixer
	clip  *animation.Clip

	// time is the raw playback position; for LoopPingPong it runs over [0, 2*duration)
	// and is folded into [0, duration] by clipTime.
	time   float32
	speed  float32
	weight float32
	loop   LoopMode

	playing, paused bool

	fadeIn, fadeOut fade

	// effectiveWeight is the normalized weight this action contributed in the last blend.
	effectiveWeight float32

	// hints holds one segment cursor per clip track, so the shared clip stays read-only.
	hints []int
}

// Action defines the public interface for one playing instance of a clip on a mixer.
//
// An Action is a mutable cursor over a shared, immutable clip. Control methods take effect
// immediately and return the action so calls can be chained:
//
//	mixer.ClipAction(walk).SetLoop(LoopOnce).SetSpeed(1.5).Play()
//
// Actions are owned by a single mixer and must not be used from more than one goroutine.
type Action interface {
	// Clip returns the clip played by this action.
	//
	// Returns:
	//   - *animation.Clip: the shared clip
	Clip() *animation.Clip

	// Play starts the action, or resumes it if paused. The playback position is kept.
	//
	// Returns:
	//   - Action: the action, for chaining
	Play() Action

	// Stop stops the action and cancels any fade. The playback position is kept;
	// call Reset to rewind.
	//
	// Returns:
	//   - Action: the action, for chaining
	Stop() Action

	// Pause freezes time and fades without removing the action from the blend.
	//
	// Returns:
	//   - Action: the action, for chaining
	Pause() Action

	// Reset rewinds the action to time 0, clears the paused flag and cancels any fade.
	//
	// Returns:
	//   - Action: the action, for chaining
	Reset() Action

	// SetSpeed sets the signed playback speed multiplier (1 = normal, -1 = reverse).
	//
	// Parameters:
	//   - speed: the speed multiplier
	//
	// Returns:
	//   - Action: the action, for chaining
	SetSpeed(speed float32) Action

	// SetWeight sets the pre-normalization blend weight, clamped to [0, 1].
	//
	// Parameters:
	//   - weight: the blend weight
	//
	// Returns:
	//   - Action: the action, for chaining
	SetWeight(weight float32) Action

	// SetLoop sets the loop mode.
	//
	// Parameters:
	//   - loop: the loop mode
	//
	// Returns:
	//   - Action: the action, for chaining
	SetLoop(loop LoopMode) Action

	// SetTime sets the playback position in seconds, clamped to [0, duration].
	//
	// Parameters:
	//   - time: the playback position
	//
	// Returns:
	//   - Action: the action, for chaining
	SetTime(time float32) Action

	// FadeIn sets the weight to 0 and ramps it linearly to 1 over duration seconds.
	// Cancels an active fade-out.
	//
	// Parameters:
	//   - duration: the fade length in seconds; 0 snaps on the next update
	//
	// Returns:
	//   - Action: the action, for chaining
	FadeIn(duration float32) Action

	// FadeOut ramps the weight linearly from 1 to 0 over duration seconds, then stops the action.
	// Cancels an active fade-in.
	//
	// Parameters:
	//   - duration: the fade length in seconds; 0 stops the action on the next update
	//
	// Returns:
	//   - Action: the action, for chaining
	FadeOut(duration float32) Action

	// CrossFadeTo crossfades from this action into other over duration seconds.
	// Equivalent to Mixer.CrossFade(a, other, duration).
	//
	// Parameters:
	//   - other: the action to fade in
	//   - duration: the crossfade length in seconds
	//
	// Returns:
	//   - error: an error if other is nil, is this action, or belongs to another mixer
	CrossFadeTo(other Action, duration float32) error

	// Time returns the clip time sampled by the mixer, in [0, duration].
	//
	// Returns:
	//   - float32: the playback position in seconds
	Time() float32

	// Speed returns the signed playback speed multiplier.
	//
	// Returns:
	//   - float32: the speed
	Speed() float32

	// Weight returns the pre-normalization blend weight.
	//
	// Returns:
	//   - float32: the weight in [0, 1]
	Weight() float32

	// EffectiveWeight returns the normalized weight the action contributed to the last blend.
	//
	// Returns:
	//   - float32: the normalized weight, 0 if the action did not contribute
	EffectiveWeight() float32

	// Loop returns the loop mode.
	//
	// Returns:
	//   - LoopMode: the loop mode
	Loop() LoopMode

	// IsPlaying reports whether the action is playing (paused actions are still playing).
	//
	// Returns:
	//   - bool: true if playing
	IsPlaying() bool

	// IsPaused reports whether the action is paused.
	//
	// Returns:
	//   - bool: true if paused
	IsPaused() bool

	// IsRunning reports whether the action is playing, not paused and moving.
	//
	// Returns:
	//   - bool: true if time advances on the next update
	IsRunning() bool

	// IsFading reports whether a fade-in or fade-out is in progress.
	//
	// Returns:
	//   - bool: true if fading
	IsFading() bool
}

var _ Action = &action{}

func newAction(m *mixer, clip *animation.Clip) *action {
	a := &action{
		mixer:  m,
		clip:   clip,
		speed:  1,
		weight: 1,
		loop:   LoopRepeat,
		hints:  make([]int, clip.TrackCount()),
	}
	a.resetHints()
	return a
}

func (a *action) resetHints() {
	for i := range a.hints {
		a.hints[i] = -1
	}
}

func (a *action) Clip() *animation.Clip {
	return a.clip
}

func (a *action) Play() Action {
	a.playing = true
	a.paused = false
	return a
}

func (a *action) Stop() Action {
	a.playing = false
	a.paused = false
	a.fadeIn.cancel()
	a.fadeOut.cancel()
	return a
}

func (a *action) Pause() Action {
	a.paused = true
	return a
}

func (a *action) Reset() Action {
	a.time = 0
	a.paused = false
	a.fadeIn.cancel()
	a.fadeOut.cancel()
	a.resetHints()
	return a
}

func (a *action) SetSpeed(speed float32) Action {
	a.speed = speed
	return a
}

func (a *action) SetWeight(weight float32) Action {
	a.weight = clamp01(weight)
	return a
}

func (a *action) SetLoop(loop LoopMode) Action {
	if a.loop == LoopPingPong && loop != LoopPingPong {
		a.time = a.clipTime()
	}
	a.loop = loop
	return a
}

func (a *action) SetTime(time float32) Action {
	a.time = math32.Max(0, math32.Min(time, a.clip.Duration()))
	return a
}

func (a *action) FadeIn(duration float32) Action {
	a.weight = 0
	a.fadeOut.cancel()
	a.fadeIn.arm(duration)
	return a
}

func (a *action) FadeOut(duration float32) Action {
	a.fadeIn.cancel()
	a.fadeOut.arm(duration)
	return a
}

func (a *action) CrossFadeTo(other Action, duration float32) error {
	if a.mixer == nil {
		return fmt.Errorf("clip %q was uncached: %w", a.clip.Name(), ErrForeignAction)
	}
	return a.mixer.CrossFade(a, other, duration)
}

func (a *action) Time() float32 {
	return a.clipTime()
}

func (a *action) Speed() float32 {
	return a.speed
}

func (a *action) Weight() float32 {
	return a.weight
}

func (a *action) EffectiveWeight() float32 {
	return a.effectiveWeight
}

func (a *action) Loop() LoopMode {
	return a.loop
}

func (a *action) IsPlaying() bool {
	return a.playing
}

func (a *action) IsPaused() bool {
	return a.paused
}

func (a *action) IsRunning() bool {
	return a.playing && !a.paused && a.speed != 0
}

func (a *action) IsFading() bool {
	return a.fadeIn.active || a.fadeOut.active
}

// clipTime returns the time to sample the clip at, folding the ping-pong cycle.
func (a *action) clipTime() float32 {
	d := a.clip.Duration()
	if a.loop == LoopPingPong && a.time > d {
		return 2*d - a.time
	}
	return a.time
}

// advance steps fades and playback time by dt and appends any raised events to events.
// Only called for playing, unpaused actions.
//
// Fade-in runs before fade-out, so if both were somehow active the fade-out weight wins;
// arming either fade cancels the other, so that state is never reached through the API.
func (a *action) advance(dt float32, events []Event) []Event {
	if a.fadeIn.active {
		remaining, _ := a.fadeIn.tick(dt)
		a.weight = clamp01(1 - remaining)
	}
	if a.fadeOut.active {
		remaining, done := a.fadeOut.tick(dt)
		a.weight = clamp01(remaining)
		if done {
			a.playing = false
			return append(events, Event{Type: EventFadedOut, Action: a, Time: a.clipTime()})
		}
	}

	before := a.time
	a.time += dt * a.speed
	return a.applyLoop(before, events)
}

func (a *action) applyLoop(before float32, events []Event) []Event {
	d := a.clip.Duration()
	switch a.loop {
	case LoopOnce:
		switch {
		case a.speed >= 0 && a.time >= d:
			a.time = d
		case a.speed < 0 && a.time <= 0:
			a.time = 0
		default:
			return events
		}
		a.playing = false
		return append(events, Event{Type: EventFinished, Action: a, Time: a.time})

	case LoopPingPong:
		if d <= 0 {
			a.time = 0
			return events
		}
		if a.time >= 0 && a.time < 2*d {
			// Bouncing off the far end also counts as a loop.
			if (before < d) != (a.time < d) {
				events = append(events, Event{Type: EventLoop, Action: a, Time: a.clipTime()})
			}
			return events
		}
		a.time = wrap(a.time, 2*d)
		return append(events, Event{Type: EventLoop, Action: a, Time: a.clipTime()})

	default:
		if d <= 0 {
			a.time = 0
			return events
		}
		if a.time >= 0 && a.time < d {
			return events
		}
		a.time = wrap(a.time, d)
		return append(events, Event{Type: EventLoop, Action: a, Time: a.time})
	}
}

// wrap maps t into [0, period).
func wrap(t, period float32) float32 {
	t = math32.Mod(t, period)
	if t < 0 {
		t += period
	}
	if t >= period {
		t = 0
	}
	return t
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(v, 1))
}
