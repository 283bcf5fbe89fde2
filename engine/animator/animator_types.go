package animator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

var (
	// ErrIncompatibleClip is returned by ClipAction when a clip targets bones the mixer's skeleton does not have.
	ErrIncompatibleClip = errors.New("clip incompatible with skeleton")

	// ErrNilAction is returned when a nil action is passed to a mixer operation.
	ErrNilAction = errors.New("nil action")

	// ErrSameAction is returned by CrossFade when both sides are the same action.
	ErrSameAction = errors.New("cannot crossfade an action into itself")

	// ErrForeignAction is returned when an action created by a different mixer is passed to a mixer operation.
	ErrForeignAction = errors.New("action belongs to another mixer")
)

// fadeCompleteTolerance is the fraction of a fade's duration that may still remain when
// the fade counts as complete. It absorbs the rounding of float32 frame steps that should
// sum exactly to the duration.
const fadeCompleteTolerance = 1e-5

// LoopMode controls what an action does when playback reaches either end of its clip.
type LoopMode int

const (
	// LoopRepeat wraps time back to the start (or end, when playing backwards).
	LoopRepeat LoopMode = iota

	// LoopOnce clamps at the end of the clip and stops the action.
	LoopOnce

	// LoopPingPong alternates between forward and backward playback.
	LoopPingPong
)

func (l LoopMode) String() string {
	switch l {
	case LoopRepeat:
		return "repeat"
	case LoopOnce:
		return "once"
	case LoopPingPong:
		return "pingpong"
	default:
		return fmt.Sprintf("LoopMode(%d)", int(l))
	}
}

// ParseLoopMode converts a loop mode name ("once", "repeat", "pingpong") into a LoopMode.
// An empty string yields LoopRepeat.
//
// Parameters:
//   - s: the loop mode name, case-insensitive
//
// Returns:
//   - LoopMode: the parsed loop mode
//   - error: an error if the name is unknown
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "repeat", "loop":
		return LoopRepeat, nil
	case "once":
		return LoopOnce, nil
	case "pingpong", "ping-pong":
		return LoopPingPong, nil
	default:
		return 0, fmt.Errorf("unknown loop mode %q", s)
	}
}

// EventType identifies a playback event raised by the mixer.
type EventType int

const (
	// EventFinished is raised when a LoopOnce action reaches the end of its clip and stops.
	EventFinished EventType = iota

	// EventLoop is raised when a LoopRepeat or LoopPingPong action wraps around.
	EventLoop

	// EventFadedOut is raised when a fade-out completes and retires the action.
	EventFadedOut
)

func (e EventType) String() string {
	switch e {
	case EventFinished:
		return "finished"
	case EventLoop:
		return "loop"
	case EventFadedOut:
		return "faded_out"
	default:
		return fmt.Sprintf("EventType(%d)", int(e))
	}
}

// Event describes a playback event for one action.
type Event struct {
	// Type is the kind of event.
	Type EventType

	// Action is the action that raised the event.
	Action Action

	// Time is the action's clip time when the event was raised.
	Time float32
}

// Listener receives mixer events. Listeners run synchronously at the end of Mixer.Update,
// after the pose has been written, and may call back into the mixer.
type Listener func(Event)

// fade holds the timer of one fade-in or fade-out.
// An active fade with a zero duration completes on the next tick. The timer is kept in
// float64 so long fades at high frame rates do not drift.
type fade struct {
	active    bool
	remaining float64
	duration  float64
}

func (f *fade) arm(duration float32) {
	if duration < 0 {
		duration = 0
	}
	f.active = true
	f.remaining = float64(duration)
	f.duration = float64(duration)
}

func (f *fade) cancel() {
	*f = fade{}
}

// tick advances the fade by |dt| and returns the fraction of the fade still remaining in
// [0, 1] and whether the fade finished on this tick. Fades always run forward, so a negative
// time scale cannot push a weight outside [0, 1].
func (f *fade) tick(dt float32) (float32, bool) {
	f.remaining -= float64(math32.Abs(dt))
	if f.duration <= 0 || f.remaining <= f.duration*fadeCompleteTolerance {
		f.cancel()
		return 0, true
	}
	return float32(min(f.remaining/f.duration, 1)), false
}
