package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/rs/zerolog"
)

// fullWeightEpsilon is how close a bone's accumulated weight must be to 1 before the bind
// pose stops being mixed in.
const fullWeightEpsilon = 1e-6

// mixer is the implementation of the Mixer interface.
type mixer struct {
	skeleton skeleton.Skeleton
	logger   zerolog.Logger

	// actions is kept in creation order, which is the blend order.
	actions []*action
	byClip  map[*animation.Clip]int

	timeScale, time float32

	listeners map[EventType][]Listener

	// Per-bone blend scratch, reused every Update.
	posAcc   [][3]float32
	posW     []float32
	rotAcc   [][4]float32
	rotW     []float32
	scaleAcc [][3]float32
	scaleW   []float32
	pose     []skeleton.Transform
	events   []Event
}

// Mixer defines the public interface for blending animation actions onto one skeleton.
//
// Each Update advances every playing action, normalizes their weights, samples each
// contributing clip and accumulates the weighted results into the skeleton's local bone
// transforms. Hierarchy propagation and UpdateBoneMatrices are left to the caller (or the
// scene), which runs them after Update.
//
// A Mixer is single-owner: it must not be used from more than one goroutine at a time.
// Clips, however, may be shared by any number of mixers updated concurrently.
type Mixer interface {
	// Skeleton returns the skeleton driven by this mixer.
	//
	// Returns:
	//   - skeleton.Skeleton: the skeleton
	Skeleton() skeleton.Skeleton

	// ClipAction returns the action playing clip on this mixer, creating it on first use.
	// Repeated calls with the same clip return the same action. New actions start stopped
	// with weight 1, speed 1 and LoopRepeat.
	//
	// Parameters:
	//   - clip: the clip to play
	//
	// Returns:
	//   - Action: the cached action for the clip
	//   - error: an error wrapping ErrIncompatibleClip if clip is nil or targets a bone the skeleton does not have
	ClipAction(clip *animation.Clip) (Action, error)

	// ExistingAction returns the cached action for clip without creating one.
	//
	// Parameters:
	//   - clip: the clip to look up
	//
	// Returns:
	//   - Action: the cached action, or nil if none exists
	ExistingAction(clip *animation.Clip) Action

	// Uncache stops and removes the action for clip. Later ClipAction calls create a fresh action.
	// The removed action is detached: passing it to CrossFade afterwards returns ErrForeignAction.
	//
	// Parameters:
	//   - clip: the clip whose action should be dropped
	Uncache(clip *animation.Clip)

	// Actions returns every cached action in blend order.
	//
	// Returns:
	//   - []Action: the actions
	Actions() []Action

	// CrossFade transitions from one action to another over duration seconds.
	// to is reset, played and faded in from weight 0; from is faded out and stops when the
	// fade completes. A zero duration completes on the next Update.
	//
	// Parameters:
	//   - from: the action to fade out
	//   - to: the action to fade in
	//   - duration: the crossfade length in seconds
	//
	// Returns:
	//   - error: ErrNilAction, ErrSameAction or ErrForeignAction for invalid arguments
	CrossFade(from, to Action, duration float32) error

	// Update advances all actions by dt seconds (scaled by the time scale), blends the result
	// into the skeleton's local transforms and then delivers events to listeners.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	Update(dt float32)

	// StopAll stops every action.
	StopAll()

	// SetTimeScale sets the global multiplier applied to every Update's dt.
	//
	// Parameters:
	//   - scale: the time scale (1 = normal, 0 = frozen)
	SetTimeScale(scale float32)

	// TimeScale returns the global time multiplier.
	//
	// Returns:
	//   - float32: the time scale
	TimeScale() float32

	// Time returns the total scaled time the mixer has advanced.
	//
	// Returns:
	//   - float32: the accumulated time in seconds
	Time() float32

	// AddListener registers a listener for one event type.
	//
	// Parameters:
	//   - eventType: the event type to listen for
	//   - listener: the callback
	AddListener(eventType EventType, listener Listener)
}

var _ Mixer = &mixer{}

// NewMixer creates a new Mixer driving the given skeleton.
//
// Parameters:
//   - skel: the skeleton whose local transforms the mixer writes
//   - options: variadic MixerBuilderOption functions
//
// Returns:
//   - Mixer: the new mixer
func NewMixer(skel skeleton.Skeleton, options ...MixerBuilderOption) Mixer {
	n := skel.BoneCount()
	m := &mixer{
		skeleton:  skel,
		logger:    zerolog.Nop(),
		byClip:    make(map[*animation.Clip]int),
		timeScale: 1,
		listeners: make(map[EventType][]Listener),
		posAcc:    make([][3]float32, n),
		posW:      make([]float32, n),
		rotAcc:    make([][4]float32, n),
		rotW:      make([]float32, n),
		scaleAcc:  make([][3]float32, n),
		scaleW:    make([]float32, n),
		pose:      make([]skeleton.Transform, n),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *mixer) Skeleton() skeleton.Skeleton {
	return m.skeleton
}

func (m *mixer) ClipAction(clip *animation.Clip) (Action, error) {
	if clip == nil {
		return nil, fmt.Errorf("nil clip: %w", ErrIncompatibleClip)
	}
	if i, ok := m.byClip[clip]; ok {
		return m.actions[i], nil
	}

	bones := m.skeleton.BoneCount()
	if clip.MaxBoneIndex() >= bones {
		for i, tr := range clip.Tracks() {
			if tr.BoneIndex() >= bones {
				m.logger.Warn().
					Str("clip", clip.Name()).
					Int("track", i).
					Int("bone_index", tr.BoneIndex()).
					Int("bone_count", bones).
					Msg("rejected clip for skeleton")
				return nil, fmt.Errorf("clip %q track %d: bone index %d out of range for %d bones: %w",
					clip.Name(), i, tr.BoneIndex(), bones, ErrIncompatibleClip)
			}
		}
	}

	a := newAction(m, clip)
	m.byClip[clip] = len(m.actions)
	m.actions = append(m.actions, a)
	m.logger.Debug().Str("clip", clip.Name()).Int("actions", len(m.actions)).Msg("created action")
	return a, nil
}

func (m *mixer) ExistingAction(clip *animation.Clip) Action {
	if i, ok := m.byClip[clip]; ok {
		return m.actions[i]
	}
	return nil
}

func (m *mixer) Uncache(clip *animation.Clip) {
	i, ok := m.byClip[clip]
	if !ok {
		return
	}
	// Detach the action so later crossfades through it are rejected as foreign.
	m.actions[i].Stop()
	m.actions[i].mixer = nil
	m.actions = append(m.actions[:i], m.actions[i+1:]...)
	delete(m.byClip, clip)
	for j := i; j < len(m.actions); j++ {
		m.byClip[m.actions[j].clip] = j
	}
}

func (m *mixer) Actions() []Action {
	out := make([]Action, len(m.actions))
	for i, a := range m.actions {
		out[i] = a
	}
	return out
}

func (m *mixer) CrossFade(from, to Action, duration float32) error {
	if from == nil || to == nil {
		return ErrNilAction
	}
	fa, err := m.own(from)
	if err != nil {
		return err
	}
	ta, err := m.own(to)
	if err != nil {
		return err
	}
	if fa == ta {
		return fmt.Errorf("clip %q: %w", fa.clip.Name(), ErrSameAction)
	}

	ta.Reset().Play()
	ta.FadeIn(duration)
	fa.FadeOut(duration)

	m.logger.Debug().
		Str("from", fa.clip.Name()).
		Str("to", ta.clip.Name()).
		Float32("duration", duration).
		Msg("crossfade armed")
	return nil
}

// own returns the concrete action if it was created by this mixer.
func (m *mixer) own(a Action) (*action, error) {
	ac, ok := a.(*action)
	if !ok || ac == nil {
		return nil, ErrNilAction
	}
	if ac.mixer != m {
		return nil, fmt.Errorf("clip %q: %w", ac.clip.Name(), ErrForeignAction)
	}
	return ac, nil
}

func (m *mixer) Update(dt float32) {
	dt *= m.timeScale
	m.time += dt

	events := m.events[:0]
	for _, a := range m.actions {
		if a.playing && !a.paused {
			events = a.advance(dt, events)
		}
	}

	m.blend()

	// Listeners may re-enter the mixer, so m.events is released before dispatch.
	m.events = nil
	for _, e := range events {
		for _, l := range m.listeners[e.Type] {
			l(e)
		}
	}
	m.events = events[:0]
}

// blend samples every contributing action and writes the weighted pose into the skeleton.
func (m *mixer) blend() {
	for b := range m.posW {
		m.posW[b], m.rotW[b], m.scaleW[b] = 0, 0, 0
	}

	var total float32
	for _, a := range m.actions {
		a.effectiveWeight = 0
		if a.playing {
			total += a.weight
		}
	}

	if total > 0 {
		weightScale := 1 / total
		for _, a := range m.actions {
			if !a.playing || a.weight <= 0 {
				continue
			}
			w := a.weight * weightScale
			a.effectiveWeight = w
			m.accumulate(a, w)
		}
	}

	for b := range m.pose {
		m.pose[b] = m.resolve(b)
	}
	m.skeleton.SetPose(m.pose)
}

func (m *mixer) accumulate(a *action, w float32) {
	t := a.clipTime()
	for i, tr := range a.clip.Tracks() {
		v := tr.Sample(t, &a.hints[i])
		b := tr.BoneIndex()

		switch tr.Property() {
		case animation.PropertyPosition:
			if m.posW[b] == 0 {
				m.posAcc[b] = [3]float32{}
			}
			m.posAcc[b][0] += w * v[0]
			m.posAcc[b][1] += w * v[1]
			m.posAcc[b][2] += w * v[2]
			m.posW[b] += w

		case animation.PropertyRotation:
			q := common.QuatNormalize(v)
			cum := m.rotW[b] + w
			if m.rotW[b] == 0 {
				m.rotAcc[b] = q
			} else {
				m.rotAcc[b] = common.QuatSlerp(m.rotAcc[b], q, w/cum)
			}
			m.rotW[b] = cum

		case animation.PropertyScale:
			s := [3]float32{v[0], v[1], v[2]}
			cum := m.scaleW[b] + w
			if m.scaleW[b] == 0 {
				m.scaleAcc[b] = s
			} else {
				m.scaleAcc[b] = common.Lerp3(m.scaleAcc[b], s, w/cum)
			}
			m.scaleW[b] = cum
		}
	}
}

// resolve returns the final local transform of bone b. Properties animated with less than
// full accumulated weight are topped up with the bind pose; untouched ones hold it.
func (m *mixer) resolve(b int) skeleton.Transform {
	bind := m.skeleton.BindTransform(b)
	out := bind

	if w := m.posW[b]; w > 0 {
		out.Translation = m.posAcc[b]
		if rest := 1 - w; rest > fullWeightEpsilon {
			out.Translation[0] += rest * bind.Translation[0]
			out.Translation[1] += rest * bind.Translation[1]
			out.Translation[2] += rest * bind.Translation[2]
		}
	}
	if w := m.rotW[b]; w > 0 {
		q := m.rotAcc[b]
		if rest := 1 - w; rest > fullWeightEpsilon {
			q = common.QuatSlerp(q, bind.Rotation, rest)
		}
		out.Rotation = common.QuatNormalize(q)
	}
	if w := m.scaleW[b]; w > 0 {
		s := m.scaleAcc[b]
		if rest := 1 - w; rest > fullWeightEpsilon {
			s = common.Lerp3(s, bind.Scale, rest)
		}
		out.Scale = s
	}
	return out
}

func (m *mixer) StopAll() {
	for _, a := range m.actions {
		a.Stop()
	}
}

func (m *mixer) SetTimeScale(scale float32) {
	m.timeScale = scale
}

func (m *mixer) TimeScale() float32 {
	return m.timeScale
}

func (m *mixer) Time() float32 {
	return m.time
}

func (m *mixer) AddListener(eventType EventType, listener Listener) {
	if listener == nil {
		return
	}
	m.listeners[eventType] = append(m.listeners[eventType], listener)
}
