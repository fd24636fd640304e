package music

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ProTracker module constants.
const (
	modSampleCount = 31
	modOrderTable  = 128
	modRowsPerPat  = 64
	modHeaderSize  = 1084

	paulaClock = 7093789 // PAL Amiga, Hz

	defaultSpeed = 6
	defaultTempo = 125
)

var ErrNotModule = errors.New("music: not a recognized module")

type modSample struct {
	name      string
	length    int
	volume    int
	loopStart int
	loopLen   int
	data      []int8
}

// note is one decoded pattern cell.
type note struct {
	sample byte
	period int
	effect byte
	param  byte
}

type modChannel struct {
	sample       int // 1-based, 0 = silent
	period       int
	targetPeriod int
	portaSpeed   int
	volume       int
	pos          uint32 // 16.16 fixed point into the sample
	step         uint32
	effect       byte
	param        byte
}

// MOD is a ProTracker module player state. It implements Module.
type MOD struct {
	title    string
	samples  [modSampleCount]modSample
	orders   []byte
	restart  int
	patterns [][]note
	channels int

	speed          int
	bpm            int
	tick           int
	row            int
	orderPos       int
	samplesPerTick int
	tickRemain     int
	rendered       int64
	ended          bool
	loop           bool
	pendingBreak   int
	pendingJump    int

	chans []modChannel
}

// LoadMOD parses ProTracker data (M.K. and nCHN variants).
func LoadMOD(data []byte) (*MOD, error) {
	if len(data) < modHeaderSize {
		return nil, ErrNotModule
	}

	magic := string(data[1080:1084])
	channels := 0
	switch magic {
	case "M.K.", "M!K!", "FLT4", "4CHN":
		channels = 4
	case "6CHN":
		channels = 6
	case "8CHN":
		channels = 8
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrNotModule, magic)
	}

	m := &MOD{
		title:        trimPad(data[0:20]),
		channels:     channels,
		speed:        defaultSpeed,
		bpm:          defaultTempo,
		loop:         true,
		pendingBreak: -1,
		pendingJump:  -1,
	}

	for i := 0; i < modSampleCount; i++ {
		h := data[20+i*30 : 20+i*30+30]
		s := &m.samples[i]
		s.name = trimPad(h[0:22])
		s.length = int(binary.BigEndian.Uint16(h[22:24])) * 2
		s.volume = int(h[25])
		if s.volume > 64 {
			s.volume = 64
		}
		s.loopStart = int(binary.BigEndian.Uint16(h[26:28])) * 2
		s.loopLen = int(binary.BigEndian.Uint16(h[28:30])) * 2
	}

	songLen := int(data[950])
	if songLen < 1 || songLen > modOrderTable {
		return nil, fmt.Errorf("%w: song length %d", ErrNotModule, songLen)
	}
	m.restart = int(data[951])
	if m.restart >= songLen {
		m.restart = 0
	}
	m.orders = append([]byte(nil), data[952:952+songLen]...)

	patternCount := 0
	for _, o := range data[952 : 952+modOrderTable] {
		if int(o) >= patternCount {
			patternCount = int(o) + 1
		}
	}

	patBytes := modRowsPerPat * channels * 4
	need := modHeaderSize + patternCount*patBytes
	if len(data) < need {
		return nil, fmt.Errorf("%w: truncated pattern data", ErrNotModule)
	}

	m.patterns = make([][]note, patternCount)
	off := modHeaderSize
	for p := 0; p < patternCount; p++ {
		cells := make([]note, modRowsPerPat*channels)
		for c := range cells {
			b := data[off+c*4 : off+c*4+4]
			cells[c] = note{
				sample: (b[0] & 0xF0) | (b[2] >> 4),
				period: int(b[0]&0x0F)<<8 | int(b[1]),
				effect: b[2] & 0x0F,
				param:  b[3],
			}
		}
		m.patterns[p] = cells
		off += patBytes
	}

	for i := 0; i < modSampleCount; i++ {
		s := &m.samples[i]
		if s.length == 0 {
			continue
		}
		if off+s.length > len(data) {
			s.length = len(data) - off
			if s.length < 0 {
				s.length = 0
			}
		}
		s.data = make([]int8, s.length)
		for j := 0; j < s.length; j++ {
			s.data[j] = int8(data[off+j])
		}
		off += s.length
		if s.loopStart+s.loopLen > s.length {
			s.loopLen = 0
		}
	}

	m.chans = make([]modChannel, channels)
	m.recalcTick()
	return m, nil
}

func trimPad(b []byte) string {
	return strings.TrimRight(strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, string(b)), " ")
}

func (m *MOD) Title() string    { return m.title }
func (m *MOD) NumOrders() int   { return len(m.orders) }
func (m *MOD) NumPatterns() int { return len(m.patterns) }
func (m *MOD) PatternRows() int { return modRowsPerPat }

// SetLooping controls whether the song restarts after the last order.
func (m *MOD) SetLooping(loop bool) { m.loop = loop }

// Duration estimates one pass through the order list at the initial
// tempo. Mid-song speed changes make this an estimate, not a promise.
func (m *MOD) Duration() float64 {
	rows := len(m.orders) * modRowsPerPat
	return float64(rows*defaultSpeed) * 2.5 / defaultTempo
}

func (m *MOD) Position() (order, row int, seconds float64) {
	return m.orderPos, m.row, float64(m.rendered) / SampleRate
}

func (m *MOD) SetPosition(order int) {
	if order < 0 {
		order = 0
	}
	if order >= len(m.orders) {
		order = len(m.orders) - 1
	}
	m.orderPos = order
	m.row = 0
	m.tick = 0
	m.tickRemain = 0
	m.ended = false
	m.pendingBreak = -1
	m.pendingJump = -1
	for i := range m.chans {
		m.chans[i] = modChannel{}
	}
}

func (m *MOD) recalcTick() {
	// One tick is 2.5/bpm seconds.
	m.samplesPerTick = SampleRate * 5 / (m.bpm * 2)
}

// periodToStep converts an Amiga period to a 16.16 resampling step.
func periodToStep(period int) uint32 {
	if period <= 0 {
		return 0
	}
	rate := paulaClock / (2 * period)
	return uint32(uint64(rate) << 16 / SampleRate)
}

// triggerRow applies the current row's notes and tick-0 effects. Row
// advancement is deferred to the tick wrap so position queries report
// the row that is actually sounding.
func (m *MOD) triggerRow() {
	pat := m.patterns[m.orders[m.orderPos]]
	m.pendingBreak = -1
	m.pendingJump = -1

	for c := 0; c < m.channels; c++ {
		n := pat[m.row*m.channels+c]
		ch := &m.chans[c]

		if n.sample > 0 && int(n.sample) <= modSampleCount {
			ch.sample = int(n.sample)
			ch.volume = m.samples[ch.sample-1].volume
		}
		if n.period > 0 {
			if n.effect == 0x3 {
				// Tone portamento slides toward the note, no retrigger.
				ch.targetPeriod = n.period
			} else {
				ch.period = n.period
				ch.pos = 0
			}
			ch.step = periodToStep(ch.period)
		}

		ch.effect = n.effect
		ch.param = n.param

		switch n.effect {
		case 0x3:
			if n.param != 0 {
				ch.portaSpeed = int(n.param)
			}
		case 0xB:
			m.pendingJump = int(n.param)
		case 0xC:
			ch.volume = int(n.param)
			if ch.volume > 64 {
				ch.volume = 64
			}
		case 0xD:
			m.pendingBreak = int(n.param>>4)*10 + int(n.param&0x0F)
			if m.pendingBreak >= modRowsPerPat {
				m.pendingBreak = 0
			}
		case 0xF:
			if n.param == 0 {
				break
			}
			if n.param < 0x20 {
				m.speed = int(n.param)
			} else {
				m.bpm = int(n.param)
				m.recalcTick()
			}
		}
	}
}

// nextRow moves to the row that follows the one just played, honoring
// any position jump or pattern break it requested.
func (m *MOD) nextRow() {
	switch {
	case m.pendingJump >= 0:
		m.orderPos = m.pendingJump
		m.row = 0
		if m.orderPos >= len(m.orders) {
			m.songEnd()
		}
	case m.pendingBreak >= 0:
		m.row = m.pendingBreak
		m.nextOrder()
	default:
		m.row++
		if m.row >= modRowsPerPat {
			m.row = 0
			m.nextOrder()
		}
	}
	m.pendingJump = -1
	m.pendingBreak = -1
}

func (m *MOD) nextOrder() {
	m.orderPos++
	if m.orderPos >= len(m.orders) {
		m.songEnd()
	}
}

func (m *MOD) songEnd() {
	if m.loop {
		m.orderPos = m.restart
		return
	}
	m.ended = true
	m.orderPos = len(m.orders) - 1
}

// tickEffects runs the per-tick (non-zero tick) effect updates.
func (m *MOD) tickEffects() {
	for c := range m.chans {
		ch := &m.chans[c]
		switch ch.effect {
		case 0x1: // portamento up
			ch.period -= int(ch.param)
			if ch.period < 113 {
				ch.period = 113
			}
			ch.step = periodToStep(ch.period)
		case 0x2: // portamento down
			ch.period += int(ch.param)
			if ch.period > 856 {
				ch.period = 856
			}
			ch.step = periodToStep(ch.period)
		case 0x3: // tone portamento
			if ch.targetPeriod == 0 {
				break
			}
			if ch.period < ch.targetPeriod {
				ch.period += ch.portaSpeed
				if ch.period > ch.targetPeriod {
					ch.period = ch.targetPeriod
				}
			} else if ch.period > ch.targetPeriod {
				ch.period -= ch.portaSpeed
				if ch.period < ch.targetPeriod {
					ch.period = ch.targetPeriod
				}
			}
			ch.step = periodToStep(ch.period)
		case 0xA: // volume slide
			up := int(ch.param >> 4)
			down := int(ch.param & 0x0F)
			if up > 0 {
				ch.volume += up
			} else {
				ch.volume -= down
			}
			if ch.volume > 64 {
				ch.volume = 64
			}
			if ch.volume < 0 {
				ch.volume = 0
			}
		}
	}
}

// advanceTick steps the playroutine by one tick.
func (m *MOD) advanceTick() {
	if m.ended {
		return
	}
	if m.tick == 0 {
		m.triggerRow()
	} else {
		m.tickEffects()
	}
	m.tick++
	if m.tick >= m.speed {
		m.tick = 0
		m.nextRow()
	}
}

// mixFrame mixes one stereo frame from all channels. Amiga channel
// panning: 0 and 3 left, 1 and 2 right, each side bleeding a quarter
// into the other.
func (m *MOD) mixFrame() (int16, int16) {
	var left, right int32
	for c := range m.chans {
		ch := &m.chans[c]
		if ch.sample == 0 || ch.step == 0 {
			continue
		}
		s := &m.samples[ch.sample-1]
		idx := int(ch.pos >> 16)
		if idx >= len(s.data) {
			if s.loopLen > 2 {
				ch.pos = uint32(s.loopStart) << 16
				idx = s.loopStart
			} else {
				ch.sample = 0
				continue
			}
		}
		v := int32(s.data[idx]) * int32(ch.volume)
		ch.pos += ch.step

		if c&3 == 0 || c&3 == 3 {
			left += v
			right += v / 4
		} else {
			right += v
			left += v / 4
		}
	}
	return clamp16(left), clamp16(right)
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Render mixes interleaved stereo frames into out. Returns the frame
// count written; short only when the song has ended and looping is off.
func (m *MOD) Render(out []int16) int {
	frames := len(out) / 2
	done := 0
	for done < frames {
		if m.ended {
			break
		}
		if m.tickRemain == 0 {
			m.advanceTick()
			m.tickRemain = m.samplesPerTick
		}
		n := frames - done
		if n > m.tickRemain {
			n = m.tickRemain
		}
		for i := 0; i < n; i++ {
			l, r := m.mixFrame()
			out[(done+i)*2] = l
			out[(done+i)*2+1] = r
		}
		done += n
		m.tickRemain -= n
		m.rendered += int64(n)
	}
	return done
}
