package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateEntry is returned when an entry name is already registered.
	ErrDuplicateEntry = errors.New("duplicate scene entry")

	// ErrEntryPanicked wraps the recovered value of an entry whose frame panicked.
	ErrEntryPanicked = errors.New("scene entry panicked")
)

// entry is one animated skeleton registered with the scene.
type entry struct {
	name  string
	mixer animator.Mixer
	skel  skeleton.Skeleton

	// root is written under the scene lock and read by the entry's frame task.
	root [16]float32

	quarantined atomic.Bool
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu     *sync.RWMutex
	name   string
	active bool
	logger zerolog.Logger

	// entries is kept in registration order.
	entries []*entry
	byName  map[string]*entry

	skeletonOptions []skeleton.SkeletonBuilderOption
	mixerOptions    []animator.MixerBuilderOption

	// Pre-allocated slices reused each frame to avoid per-frame allocations.
	writePool []skeleton.BufferWrite
	errPool   []error

	// computePool manages a bounded set of reusable goroutines for the parallel
	// per-entry frame. Workers persist across frames.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	closed         bool
}

// Scene manages a collection of animated skeletons, each driven by its own Mixer.
// Update advances every entry in parallel on a worker pool: mixer update, hierarchy
// propagation from the entry's root matrix, then bone matrix refresh and staging.
// An entry whose frame panics is quarantined and skipped until revived; the others keep
// updating. Thread-safe for concurrent access, although mixers obtained from the scene must
// not be touched while Update runs.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently updated by the engine.
	Active() bool

	// SetActive sets whether this scene is updated by the engine.
	SetActive(active bool)

	// Add registers a mixer and the skeleton it drives under a unique name.
	//
	// Parameters:
	//   - name: the entry name
	//   - m: the mixer to update each frame
	//
	// Returns:
	//   - error: ErrDuplicateEntry if the name is taken
	Add(name string, m animator.Mixer) error

	// AddModel creates a skeleton instance from mdl and a mixer driving it, and registers
	// both under name. The scene's skeleton and mixer options are applied.
	//
	// Parameters:
	//   - name: the entry name
	//   - mdl: the model providing bone definitions
	//
	// Returns:
	//   - animator.Mixer: the new mixer, ready for ClipAction calls with the model's clips
	//   - error: an error if the skeleton is invalid or the name is taken
	AddModel(name string, mdl model.Model) (animator.Mixer, error)

	// Remove unregisters an entry.
	//
	// Parameters:
	//   - name: the entry name
	//
	// Returns:
	//   - bool: true if an entry was removed
	Remove(name string) bool

	// Mixer returns the mixer registered under name, or nil.
	Mixer(name string) animator.Mixer

	// Skeleton returns the skeleton registered under name, or nil.
	Skeleton(name string) skeleton.Skeleton

	// Names returns the entry names in registration order.
	Names() []string

	// Count returns the number of registered entries, quarantined ones included.
	Count() int

	// SetRootMatrix sets the world matrix the entry's root bones are parented to.
	//
	// Parameters:
	//   - name: the entry name
	//   - m: the column-major root matrix
	//
	// Returns:
	//   - bool: false if no entry has that name
	SetRootMatrix(name string, m [16]float32) bool

	// Update advances every healthy entry by dt seconds in parallel and waits for all of them.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	//
	// Returns:
	//   - error: the joined errors of entries quarantined during this frame, or nil
	Update(dt float32) error

	// Quarantined reports whether the named entry is skipped after a failure.
	Quarantined(name string) bool

	// Revive clears the quarantine of an entry so the next Update includes it again.
	//
	// Returns:
	//   - bool: true if the entry was quarantined
	Revive(name string) bool

	// StagedWriteData collects and drains the staged bone matrix writes of every entry.
	// The returned slice is reused by the next call.
	//
	// Returns:
	//   - []skeleton.BufferWrite: the coalesced writes
	StagedWriteData() []skeleton.BufferWrite

	// Close stops the worker pool. Update becomes a no-op afterwards.
	Close()
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene with the given name and options.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		logger:         zerolog.Nop(),
		byName:         make(map[string]*entry),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Add(name string, m animator.Mixer) error {
	if m == nil {
		return fmt.Errorf("entry %q: nil mixer", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("entry %q: %w", name, ErrDuplicateEntry)
	}
	e := &entry{
		name:  name,
		mixer: m,
		skel:  m.Skeleton(),
	}
	common.Identity(e.root[:])
	s.entries = append(s.entries, e)
	s.byName[name] = e

	s.logger.Debug().Str("scene", s.name).Str("entry", name).Int("bones", e.skel.BoneCount()).Msg("added entry")
	return nil
}

func (s *scene) AddModel(name string, mdl model.Model) (animator.Mixer, error) {
	skel, err := mdl.NewSkeleton(s.skeletonOptions...)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	opts := append([]animator.MixerBuilderOption{animator.WithLogger(s.logger)}, s.mixerOptions...)
	m := animator.NewMixer(skel, opts...)
	if err := s.Add(name, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *scene) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.byName, name)
	for i, cur := range s.entries {
		if cur == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return true
}

func (s *scene) Mixer(name string) animator.Mixer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byName[name]; ok {
		return e.mixer
	}
	return nil
}

func (s *scene) Skeleton(name string) skeleton.Skeleton {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byName[name]; ok {
		return e.skel
	}
	return nil
}

func (s *scene) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *scene) SetRootMatrix(name string, m [16]float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[name]
	if !ok {
		return false
	}
	e.root = m
	return true
}

func (s *scene) Update(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if cap(s.errPool) < len(s.entries) {
		s.errPool = make([]error, len(s.entries))
	}
	errs := s.errPool[:len(s.entries)]
	clear(errs)

	// Fan each entry out to the compute pool. A WaitGroup provides the per-frame barrier
	// since pool.Wait() blocks until workers idle-exit.
	var wg sync.WaitGroup
	for i, e := range s.entries {
		if e.quarantined.Load() {
			continue
		}
		wg.Add(1)
		idx, eCap := i, e
		s.computePool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = updateEntry(eCap, dt)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		e := s.entries[i]
		e.quarantined.Store(true)
		s.logger.Error().Err(err).Str("scene", s.name).Str("entry", e.name).Msg("quarantined scene entry")
		failed = append(failed, err)
	}
	return errors.Join(failed...)
}

// updateEntry runs one entry's frame and converts a panic into an error.
func updateEntry(e *entry, dt float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry %q: %w: %v", e.name, ErrEntryPanicked, r)
		}
	}()

	e.mixer.Update(dt)
	skeleton.PropagateFrom(e.skel, e.root)
	e.skel.UpdateBoneMatrices()
	return nil
}

func (s *scene) Quarantined(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byName[name]
	return ok && e.quarantined.Load()
}

func (s *scene) Revive(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byName[name]
	if !ok || !e.quarantined.CompareAndSwap(true, false) {
		return false
	}
	s.logger.Info().Str("scene", s.name).Str("entry", name).Msg("revived scene entry")
	return true
}

func (s *scene) StagedWriteData() []skeleton.BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	allWrites := s.writePool[:0]
	for _, e := range s.entries {
		allWrites = append(allWrites, e.skel.StagedWriteData()...)
	}
	s.writePool = allWrites
	return allWrites
}

func (s *scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.computePool.Stop()
}
