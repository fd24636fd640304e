package part

import (
	"errors"
	"fmt"
	"testing"

	"demoshow/internal/dis"
	"demoshow/internal/video"
)

// scriptedPart finishes after a fixed number of update frames and counts
// its lifecycle calls.
type scriptedPart struct {
	name     string
	lifetime int // frames until Update reports done

	elapsed  int
	inits    int
	cleanups int
	renders  int
	updates  int

	initErr error
	journal *[]string
}

func (p *scriptedPart) log(event string) {
	if p.journal != nil {
		*p.journal = append(*p.journal, fmt.Sprintf("%s:%s", p.name, event))
	}
}

func (p *scriptedPart) Name() string { return p.name }

func (p *scriptedPart) Init(ctx *Context) error {
	p.inits++
	p.log("init")
	return p.initErr
}

func (p *scriptedPart) Update(ctx *Context, frames int) bool {
	p.updates++
	p.elapsed += frames
	return p.elapsed >= p.lifetime
}

func (p *scriptedPart) Render(ctx *Context) {
	p.renders++
	p.log("render")
}

func (p *scriptedPart) Cleanup(ctx *Context) {
	p.cleanups++
	p.log("cleanup")
}

func newTestSequencer() *Sequencer {
	return NewSequencer(dis.NewServer(nil, dis.SyncTable{}), video.New())
}

func TestSequenceAdvancesWhenPartFinishes(t *testing.T) {
	q := newTestSequencer()
	a := &scriptedPart{name: "a", lifetime: 5}
	b := &scriptedPart{name: "b", lifetime: 100}
	q.Register(a)
	q.Register(b)

	if err := q.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if q.CurrentIndex() != 0 {
		t.Fatalf("CurrentIndex = %d, want 0", q.CurrentIndex())
	}

	// Each Tick delivers one frame (no FrameTick calls, WaitFrame min).
	for i := 0; i < 4; i++ {
		q.Tick()
		q.Render()
	}
	if q.CurrentIndex() != 0 {
		t.Fatalf("advanced early at frame 4")
	}

	q.Tick() // fifth frame: a reports done
	if q.CurrentIndex() != 1 {
		t.Fatalf("CurrentIndex after a finished = %d, want 1", q.CurrentIndex())
	}
	if a.cleanups != 1 {
		t.Errorf("a cleaned up %d times, want 1", a.cleanups)
	}
	if b.inits != 1 {
		t.Errorf("b initialized %d times, want 1", b.inits)
	}
	if b.renders != 0 {
		t.Errorf("b rendered before its first Tick")
	}
}

func TestCleanupRunsBeforeNextInit(t *testing.T) {
	q := newTestSequencer()
	var journal []string
	a := &scriptedPart{name: "a", lifetime: 1, journal: &journal}
	b := &scriptedPart{name: "b", lifetime: 1, journal: &journal}
	q.Register(a)
	q.Register(b)

	q.Start(0)
	q.Tick() // a finishes immediately, b starts

	want := []string{"a:init", "a:cleanup", "b:init"}
	if len(journal) != len(want) {
		t.Fatalf("journal = %v, want %v", journal, want)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Fatalf("journal = %v, want %v", journal, want)
		}
	}
}

func TestSequenceExhaustion(t *testing.T) {
	q := newTestSequencer()
	a := &scriptedPart{name: "a", lifetime: 1}
	q.Register(a)

	q.Start(0)
	q.Tick()

	if q.IsRunning() {
		t.Errorf("IsRunning = true after last part finished")
	}
	if q.Current() != nil {
		t.Errorf("Current = %v after exhaustion, want nil", q.Current())
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex = %d after exhaustion, want -1", q.CurrentIndex())
	}
	if err := q.Advance(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Advance on stopped sequencer = %v, want ErrNotRunning", err)
	}
}

func TestTransitionBlanksVideoAndResetsSync(t *testing.T) {
	sync := dis.NewServer(nil, dis.SyncTable{})
	vid := video.New()
	q := NewSequencer(sync, vid)
	q.Register(&scriptedPart{name: "a", lifetime: 10})

	// Dirty the shared state a part switch must wipe.
	vid.SetColor(1, 63, 63, 63)
	vid.Clear(1)
	sync.FrameTick()
	sync.SetCopper(0, func() {})

	var from, to int
	q.SetTransitionFunc(func(f, t int) { from, to = f, t })

	q.Start(0)

	if from != -1 || to != 0 {
		t.Errorf("transition hook got (%d,%d), want (-1,0)", from, to)
	}
	pal := vid.GetPalette(nil)
	for i, c := range pal {
		if c != 0 {
			t.Fatalf("palette component %d = %d after transition, want 0", i, c)
		}
	}
	if fb := vid.Framebuffer(); fb[0] != 0 {
		t.Errorf("framebuffer not cleared to index 0")
	}
	if sync.TotalFrames() != 0 {
		t.Errorf("sync server not reset across transition")
	}
}

func TestRegisterLimits(t *testing.T) {
	q := newTestSequencer()

	if _, err := q.Register(nil); !errors.Is(err, ErrNilPart) {
		t.Errorf("Register(nil) = %v, want ErrNilPart", err)
	}

	for i := 0; i < RegistryMax; i++ {
		if _, err := q.Register(&scriptedPart{name: fmt.Sprintf("p%d", i), lifetime: 1}); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
	}
	if _, err := q.Register(&scriptedPart{name: "overflow", lifetime: 1}); !errors.Is(err, ErrRegistryFull) {
		t.Errorf("Register past cap = %v, want ErrRegistryFull", err)
	}
	if q.Count() != RegistryMax {
		t.Errorf("Count = %d, want %d", q.Count(), RegistryMax)
	}
}

func TestStartBadIndex(t *testing.T) {
	q := newTestSequencer()
	q.Register(&scriptedPart{name: "a", lifetime: 1})
	if err := q.Start(5); !errors.Is(err, ErrBadIndex) {
		t.Errorf("Start(5) = %v, want ErrBadIndex", err)
	}
	if q.IsRunning() {
		t.Errorf("sequencer running after failed Start")
	}
}

func TestInitFailureStopsPart(t *testing.T) {
	q := newTestSequencer()
	a := &scriptedPart{name: "a", lifetime: 1, initErr: errors.New("boom")}
	q.Register(a)

	q.Start(0)
	state, _ := q.StateAt(0)
	if state != Stopped {
		t.Fatalf("state after failed init = %v, want stopped", state)
	}
	// A stopped part is never updated or rendered.
	q.Tick()
	q.Render()
	if a.updates != 0 || a.renders != 0 {
		t.Errorf("failed part was driven: updates=%d renders=%d", a.updates, a.renders)
	}
}

func TestShutdownCleansRunningPart(t *testing.T) {
	q := newTestSequencer()
	a := &scriptedPart{name: "a", lifetime: 100}
	q.Register(a)

	q.Start(0)
	q.Shutdown()

	if a.cleanups != 1 {
		t.Errorf("cleanups = %d after Shutdown, want 1", a.cleanups)
	}
	if q.IsRunning() {
		t.Errorf("IsRunning = true after Shutdown")
	}
	// Idempotent.
	q.Shutdown()
	if a.cleanups != 1 {
		t.Errorf("Shutdown ran cleanup twice")
	}
}

func TestFrameDeltaReachesUpdate(t *testing.T) {
	sync := dis.NewServer(nil, dis.SyncTable{})
	q := NewSequencer(sync, video.New())
	a := &scriptedPart{name: "a", lifetime: 10}
	q.Register(a)
	q.Start(0)

	// Simulate a stall: 7 timer ticks before the next update.
	for i := 0; i < 7; i++ {
		sync.FrameTick()
	}
	q.Tick()
	if a.elapsed != 7 {
		t.Fatalf("elapsed = %d after 7-frame stall, want 7", a.elapsed)
	}
}
