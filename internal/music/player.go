package music

import (
	"encoding/binary"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

var (
	ErrNoDevice = errors.New("music: audio device not open")
	ErrPlaying  = errors.New("music: cannot load while playing")
)

// Player streams a Module to the audio device. The oto player pulls
// PCM from Read on its own goroutine; position state crosses back to
// the frame thread through atomics only, control operations take the
// mutex.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	mod    Module

	playing  atomic.Bool
	order    atomic.Int64
	row      atomic.Int64
	posMilli atomic.Int64

	buf []int16
}

func NewPlayer() *Player { return &Player{} }

// Open creates the audio device and starts the pull loop. The stream
// renders silence until a module is loaded and playing.
func (p *Player) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	p.ctx = ctx
	p.player = ctx.NewPlayer(p)
	p.player.Play()
	log.Printf("music: audio device open at %d Hz", SampleRate)
	return nil
}

// Load parses ProTracker data and installs it as the current module.
// Loading over a playing module is refused; stop first.
func (p *Player) Load(data []byte) error {
	if p.playing.Load() {
		return ErrPlaying
	}
	mod, err := LoadMOD(data)
	if err != nil {
		return err
	}
	p.LoadModule(mod)
	log.Printf("music: loaded %q (%d orders, %d patterns)",
		mod.Title(), mod.NumOrders(), mod.NumPatterns())
	return nil
}

// LoadModule installs an already-constructed module.
func (p *Player) LoadModule(m Module) {
	p.mu.Lock()
	p.mod = m
	p.mu.Unlock()
	p.order.Store(0)
	p.row.Store(0)
	p.posMilli.Store(0)
}

// Module returns the currently loaded module, nil if none.
func (p *Player) Module() Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mod
}

// Play starts or resumes playback.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mod == nil {
		return ErrNotModule
	}
	if p.player == nil {
		return ErrNoDevice
	}
	p.playing.Store(true)
	return nil
}

// Pause halts playback without losing position.
func (p *Player) Pause() { p.playing.Store(false) }

// Stop halts playback and rewinds to the first order.
func (p *Player) Stop() {
	p.playing.Store(false)
	p.mu.Lock()
	if p.mod != nil {
		p.mod.SetPosition(0)
	}
	p.mu.Unlock()
	p.order.Store(0)
	p.row.Store(0)
	p.posMilli.Store(0)
}

// Close tears down the audio device. The player is unusable afterwards.
func (p *Player) Close() error {
	p.playing.Store(false)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		if err := p.player.Close(); err != nil {
			return err
		}
		p.player = nil
	}
	return nil
}

// Read renders the next chunk of interleaved 16-bit stereo PCM. It is
// the oto pull callback but works standalone, which keeps the render
// path testable without a device.
func (p *Player) Read(b []byte) (int, error) {
	frames := len(b) / 4
	if cap(p.buf) < frames*2 {
		p.buf = make([]int16, frames*2)
	}
	buf := p.buf[:frames*2]

	p.mu.Lock()
	mod := p.mod
	p.mu.Unlock()

	n := 0
	if mod != nil && p.playing.Load() {
		n = mod.Render(buf)
		order, row, seconds := mod.Position()
		p.order.Store(int64(order))
		p.row.Store(int64(row))
		p.posMilli.Store(int64(seconds * 1000))
		if n < frames {
			// Non-looping module ran out.
			p.playing.Store(false)
		}
	}
	for i := n * 2; i < len(buf); i++ {
		buf[i] = 0
	}
	for i, s := range buf {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return frames * 4, nil
}

// SetPosition seeks the loaded module to the start of an order.
func (p *Player) SetPosition(order int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mod != nil {
		p.mod.SetPosition(order)
	}
}

// Duration estimates the loaded song's length in seconds, 0 if none.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mod == nil {
		return 0
	}
	return p.mod.Duration()
}

// IsPlaying reports whether playback is active. Safe from any
// goroutine.
func (p *Player) IsPlaying() bool { return p.playing.Load() }

// PositionSeconds returns the elapsed song time with millisecond
// resolution.
func (p *Player) PositionSeconds() float64 {
	return float64(p.posMilli.Load()) / 1000
}

// CurrentOrder returns the order index last published by the renderer.
func (p *Player) CurrentOrder() int { return int(p.order.Load()) }

// CurrentRow returns the row index last published by the renderer.
func (p *Player) CurrentRow() int { return int(p.row.Load()) }
