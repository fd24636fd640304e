// Package music renders tracker modules to PCM and streams them to the
// audio device. The decoder is behind the Module interface so the
// player and the sync queries never depend on a particular format.
package music

// SampleRate is the fixed output rate of every Module renderer.
const SampleRate = 44100

// Module is a loaded tracker song. Render produces interleaved stereo
// int16 frames and returns how many frames it wrote; fewer than
// requested means the song ended (a looping song never returns short).
// All methods are called from the audio goroutine only.
type Module interface {
	Title() string

	// Render mixes up to len(out)/2 stereo frames into out.
	Render(out []int16) int

	// Position reports the current order, row and elapsed seconds.
	Position() (order, row int, seconds float64)

	// SetPosition seeks to the start of the given order. Out-of-range
	// values clamp.
	SetPosition(order int)

	// Duration estimates the song length in seconds, ignoring loops.
	Duration() float64

	NumOrders() int
	NumPatterns() int
	PatternRows() int
}
