// Package part manages the lifecycle and sequencing of demo parts: an
// ordered registry of self-contained segments driven through
// init/update/render/cleanup by the frame loop.
package part

import (
	"errors"
	"log"

	"demoshow/internal/dis"
	"demoshow/internal/video"
)

// RegistryMax bounds the part registry.
const RegistryMax = 32

var (
	ErrNilPart      = errors.New("part: nil part")
	ErrRegistryFull = errors.New("part: registry full")
	ErrBadIndex     = errors.New("part: index out of range")
	ErrNotRunning   = errors.New("part: sequencer not running")

	// ErrSequenceDone signals normal end-of-sequence from Advance. It
	// is a termination marker, not a failure.
	ErrSequenceDone = errors.New("part: sequence complete")
)

// State tracks where a part is in its lifecycle.
type State int

const (
	Stopped State = iota
	Initializing
	Running
	Cleanup
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Cleanup:
		return "cleanup"
	}
	return "unknown"
}

// Context is handed to every lifecycle call: the sync server and video
// pipeline the part renders against. Parts reference these, they never
// own them.
type Context struct {
	Sync  *dis.Server
	Video *video.Video
}

// Part is one demo segment. Update receives the frame delta from the
// sync server and returns true when the part is finished and the
// sequencer should advance. Render is called exactly once per displayed
// frame, after Update.
type Part interface {
	Name() string
	Init(ctx *Context) error
	Update(ctx *Context, frames int) bool
	Render(ctx *Context)
	Cleanup(ctx *Context)
}

// descriptor wraps a registered part with its lifecycle state.
type descriptor struct {
	part  Part
	state State
}

// Sequencer runs the registered parts in order. All methods are frame
// thread only.
type Sequencer struct {
	registry []descriptor
	current  int // -1 = not running
	running  bool
	ctx      *Context
	onSwitch func(from, to int)
}

// NewSequencer returns a stopped sequencer bound to the given sync
// server and video pipeline.
func NewSequencer(sync *dis.Server, vid *video.Video) *Sequencer {
	return &Sequencer{
		current: -1,
		ctx:     &Context{Sync: sync, Video: vid},
	}
}

// Register appends a part to the registry. The registry is append-only;
// capacity overflow and nil parts fail softly.
func (q *Sequencer) Register(p Part) (int, error) {
	if p == nil {
		log.Printf("part: refusing to register nil part")
		return -1, ErrNilPart
	}
	if len(q.registry) >= RegistryMax {
		log.Printf("part: registry full (max %d), dropping %q", RegistryMax, p.Name())
		return -1, ErrRegistryFull
	}
	q.registry = append(q.registry, descriptor{part: p, state: Stopped})
	index := len(q.registry) - 1
	log.Printf("part: registered %d: %s", index, p.Name())
	return index, nil
}

// SetTransitionFunc installs a hook invoked with (from, to) on every
// transition, including the initial (-1 -> first) one. Nil removes it.
func (q *Sequencer) SetTransitionFunc(fn func(from, to int)) { q.onSwitch = fn }

// transition resets the shared state between parts: notification, sync
// server reset (message areas survive by construction), and a blank
// video state (black palette, framebuffer cleared to index 0).
func (q *Sequencer) transition(from, to int) {
	log.Printf("part: transition %d -> %d", from, to)
	if q.onSwitch != nil {
		q.onSwitch(from, to)
	}
	q.ctx.Sync.Reset()
	for i := 0; i < 256; i++ {
		q.ctx.Video.SetColor(byte(i), 0, 0, 0)
	}
	q.ctx.Video.Clear(0)
}

// startCurrent drives the current part Initializing -> Running.
func (q *Sequencer) startCurrent() {
	d := &q.registry[q.current]
	log.Printf("part: starting %s", d.part.Name())
	d.state = Initializing
	if err := d.part.Init(q.ctx); err != nil {
		log.Printf("part: init %s failed: %v", d.part.Name(), err)
		d.state = Stopped
		return
	}
	d.state = Running
}

// Start begins the sequence at the given registry index.
func (q *Sequencer) Start(index int) error {
	if index < 0 || index >= len(q.registry) {
		log.Printf("part: invalid start index %d (count=%d)", index, len(q.registry))
		return ErrBadIndex
	}
	q.current = index
	q.running = true
	q.transition(-1, index)
	q.startCurrent()
	return nil
}

// Tick advances the current part by one displayed frame: it takes the
// frame delta from the sync server's WaitFrame and calls Update. A true
// return from Update advances the sequence.
func (q *Sequencer) Tick() {
	d := q.currentDescriptor()
	if d == nil || d.state != Running {
		return
	}
	frames := q.ctx.Sync.WaitFrame()
	if d.part.Update(q.ctx, frames) {
		if err := q.Advance(); err != nil && !errors.Is(err, ErrSequenceDone) {
			log.Printf("part: advance failed: %v", err)
		}
	}
}

// Render draws the current part. Always paired 1:1 with Tick by the
// frame loop, render after update.
func (q *Sequencer) Render() {
	d := q.currentDescriptor()
	if d == nil || d.state != Running {
		return
	}
	d.part.Render(q.ctx)
}

// Advance cleans up the current part and transitions into the next one.
// Returns ErrSequenceDone when the registry is exhausted.
func (q *Sequencer) Advance() error {
	if !q.running || q.current < 0 {
		return ErrNotRunning
	}

	d := &q.registry[q.current]
	log.Printf("part: ending %s", d.part.Name())
	d.state = Cleanup
	d.part.Cleanup(q.ctx)
	d.state = Stopped

	from := q.current
	next := q.current + 1
	if next >= len(q.registry) {
		log.Printf("part: sequence complete")
		q.running = false
		q.current = -1
		return ErrSequenceDone
	}

	q.current = next
	q.transition(from, next)
	q.startCurrent()
	return nil
}

// Shutdown stops the sequence, running the current part's cleanup if
// one is active.
func (q *Sequencer) Shutdown() {
	if d := q.currentDescriptor(); d != nil && d.state == Running {
		d.state = Cleanup
		d.part.Cleanup(q.ctx)
		d.state = Stopped
	}
	q.running = false
	q.current = -1
}

func (q *Sequencer) currentDescriptor() *descriptor {
	if !q.running || q.current < 0 || q.current >= len(q.registry) {
		return nil
	}
	return &q.registry[q.current]
}

// Current returns the running part, or nil if none.
func (q *Sequencer) Current() Part {
	if d := q.currentDescriptor(); d != nil {
		return d.part
	}
	return nil
}

// CurrentIndex returns the running part's registry index, -1 if none.
func (q *Sequencer) CurrentIndex() int {
	if !q.running {
		return -1
	}
	return q.current
}

// Count returns the number of registered parts.
func (q *Sequencer) Count() int { return len(q.registry) }

// IsRunning reports whether a part is active.
func (q *Sequencer) IsRunning() bool { return q.running }

// PartAt returns the registered part at index without running it; used
// by the registry listing.
func (q *Sequencer) PartAt(index int) (Part, error) {
	if index < 0 || index >= len(q.registry) {
		return nil, ErrBadIndex
	}
	return q.registry[index].part, nil
}

// StateAt returns the lifecycle state of the part at index.
func (q *Sequencer) StateAt(index int) (State, error) {
	if index < 0 || index >= len(q.registry) {
		return Stopped, ErrBadIndex
	}
	return q.registry[index].state, nil
}
