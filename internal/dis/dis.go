// Package dis is the demo's synchronization server. It turns host frame
// ticks and music playback position into the counters, sync points and
// raster-style callbacks that parts pace themselves with. The name and
// API shape follow the original DOS-era "Demo Interrupt Server".
package dis

import (
	"errors"
	"log"
	"time"
)

// Version is returned by Initialize; 0x100 = V1.0.
const Version = 0x100

const (
	// MessageAreaCount and MessageAreaSize define the persistent
	// inter-part communication buffers.
	MessageAreaCount = 4
	MessageAreaSize  = 64

	// Copper slots: 0=top of screen, 1=bottom of screen, 2=retrace.
	CopperCount = 3

	// SyncPointMax caps SyncPoint's range at [0, 8].
	SyncPointMax = 8
)

var (
	ErrBadMessageArea = errors.New("dis: message area index out of range")
	ErrBadCopperSlot  = errors.New("dis: copper slot out of range")
)

// MusicSource supplies playback position for music-driven sync.
// Implementations must be safe to call from the frame thread while the
// audio thread renders (atomic scalar reads).
type MusicSource interface {
	IsPlaying() bool
	PositionSeconds() float64
	CurrentOrder() int
	CurrentRow() int
}

// SyncTable maps playback position to sync points. MusicCuts holds the
// seconds thresholds for points 1..len (position below MusicCuts[0]
// yields 0). FramesPerPoint divides the frame counter when no music is
// playing. The numbers are content calibration, not server policy:
// parts ship their own tables.
type SyncTable struct {
	MusicCuts      []float64
	FramesPerPoint int
}

// DefaultSyncTable mirrors the original calibration: one point every
// five seconds of music, or every 300 frames without it.
func DefaultSyncTable() SyncTable {
	return SyncTable{
		MusicCuts:      []float64{3, 8, 13, 18, 23, 28, 33, 38},
		FramesPerPoint: 300,
	}
}

func (t SyncTable) normalized() SyncTable {
	if len(t.MusicCuts) == 0 {
		t.MusicCuts = DefaultSyncTable().MusicCuts
	}
	if t.FramesPerPoint <= 0 {
		t.FramesPerPoint = DefaultSyncTable().FramesPerPoint
	}
	return t
}

// Server holds the sync state for one demo run. All methods except the
// MusicSource reads must be called from the frame-driving thread;
// FrameTick and WaitFrame in particular share an unguarded counter.
type Server struct {
	exitRequested bool
	frameCounter  int
	totalFrames   int
	start         time.Time
	musicFrame    int

	// msgAreas survive every Reset; parts use them to hand state to
	// their successors.
	msgAreas [MessageAreaCount][MessageAreaSize]byte

	copper [CopperCount]func()

	source   MusicSource
	table    SyncTable
	lastSync int
}

// NewServer returns a server using the given sync table. A nil source
// means SyncPoint always uses the frame-count fallback.
func NewServer(source MusicSource, table SyncTable) *Server {
	s := &Server{source: source, table: table.normalized()}
	s.Initialize()
	return s
}

// SetSyncTable swaps the threshold table, typically at a part boundary
// when the next part ships its own calibration.
func (s *Server) SetSyncTable(table SyncTable) {
	s.table = table.normalized()
}

// Initialize clears transient state and captures the wall-clock epoch
// for the part that is starting. Message areas are left alone. Returns
// the server version.
func (s *Server) Initialize() int {
	s.exitRequested = false
	s.frameCounter = 0
	s.totalFrames = 0
	s.musicFrame = 0
	s.lastSync = 0
	s.start = time.Now()
	return Version
}

// Reset is the part-transition variant of Initialize: same clearing,
// plus the copper callbacks are dropped. Message areas persist.
func (s *Server) Reset() {
	s.Initialize()
	for i := range s.copper {
		s.copper[i] = nil
	}
}

// FrameTick is called exactly once per host frame callback. Not safe to
// call concurrently with WaitFrame.
func (s *Server) FrameTick() {
	s.frameCounter++
	s.totalFrames++
}

// WaitFrame is the cooperative stand-in for "wait for vertical blank":
// it runs the copper callbacks in slot order, then returns the number
// of frames since the previous call (at least 1) without blocking.
func (s *Server) WaitFrame() int {
	for _, fn := range s.copper {
		if fn != nil {
			fn()
		}
	}
	frames := s.frameCounter
	if frames == 0 {
		frames = 1
	}
	s.frameCounter = 0
	return frames
}

// RequestExit flags the demo for exit; parts observe it via ShouldExit
// on their next update.
func (s *Server) RequestExit() { s.exitRequested = true }

// ShouldExit reports whether exit has been requested since the last
// Initialize/Reset.
func (s *Server) ShouldExit() bool { return s.exitRequested }

// TotalFrames returns the frames elapsed since the current part began.
func (s *Server) TotalFrames() int { return s.totalFrames }

// Epoch returns the wall-clock instant captured at Initialize.
func (s *Server) Epoch() time.Time { return s.start }

// SetMusicFrame stores a free-form counter for part bookkeeping.
func (s *Server) SetMusicFrame(frame int) { s.musicFrame = frame }

// MusicFrame returns the counter stored by SetMusicFrame.
func (s *Server) MusicFrame() int { return s.musicFrame }

// SyncPoint maps the current music position (or, without music, the
// frame count) through the sync table to a phase value in [0, 8].
// The result never decreases within a part's lifetime, even if the
// underlying music position seeks backwards.
func (s *Server) SyncPoint() int {
	point := 0
	if s.source != nil && s.source.IsPlaying() {
		pos := s.source.PositionSeconds()
		for _, cut := range s.table.MusicCuts {
			if pos < cut {
				break
			}
			point++
		}
	} else {
		point = s.totalFrames / s.table.FramesPerPoint
	}
	if point > SyncPointMax {
		point = SyncPointMax
	}
	if point < s.lastSync {
		return s.lastSync
	}
	s.lastSync = point
	return point
}

// MusicOrder returns the tracker order currently playing, or 0 without
// a music source.
func (s *Server) MusicOrder() int {
	if s.source == nil {
		return 0
	}
	return s.source.CurrentOrder()
}

// MusicRow returns the tracker row currently playing, or 0 without a
// music source.
func (s *Server) MusicRow() int {
	if s.source == nil {
		return 0
	}
	return s.source.CurrentRow()
}

// MusicCombined folds order and row into one comparable value
// (order*64+row) for sync finer than SyncPoint.
func (s *Server) MusicCombined() int {
	return s.MusicOrder()*64 + s.MusicRow()
}

// MessageArea returns the persistent 64-byte buffer for the given area.
// The slice aliases server state: writes through it are the intended
// inter-part communication mechanism.
func (s *Server) MessageArea(area int) ([]byte, error) {
	if area < 0 || area >= MessageAreaCount {
		log.Printf("dis: invalid message area %d (valid 0-%d)", area, MessageAreaCount-1)
		return nil, ErrBadMessageArea
	}
	return s.msgAreas[area][:], nil
}

// SetCopper installs fn in the given slot (0=top, 1=bottom, 2=retrace);
// nil removes it. Copper callbacks run once per WaitFrame in slot order.
func (s *Server) SetCopper(slot int, fn func()) error {
	if slot < 0 || slot >= CopperCount {
		log.Printf("dis: invalid copper slot %d (valid 0-%d)", slot, CopperCount-1)
		return ErrBadCopperSlot
	}
	s.copper[slot] = fn
	return nil
}
