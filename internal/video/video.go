// Package video emulates a VGA-style indexed-color pipeline: a 320-wide
// framebuffer of palette indices, a 256-entry 6-bit-per-channel palette,
// and a once-per-frame conversion to RGBA for the presentation backend.
package video

const (
	Width          = 320
	HeightStandard = 200 // mode 13h-style
	HeightDouble   = 400 // mode X-style

	// PaletteSize is 256 entries * 3 components, each 0-63.
	PaletteSize = 768

	fbSize = Width * HeightDouble
)

// Mode selects how much of the framebuffer is presented.
type Mode int

const (
	StandardHeight Mode = iota // 200 active lines
	DoubleHeight               // 400 active lines
)

// Backend is the GPU presentation collaborator: it owns the texture,
// sampler and draw call. Present assumes a render pass has begun.
type Backend interface {
	// UpdateTexture uploads w*h RGBA pixels.
	UpdateTexture(pix []byte, w, h int)
	// Draw draws the texture into the given viewport rectangle.
	Draw(x, y, w, h int)
	// OutputSize returns the current window dimensions in pixels.
	OutputSize() (w, h int)
}

// Video owns the framebuffer, palette and scroll state. One instance
// per graphics session; parts reference it, they never own it.
type Video struct {
	fb      [fbSize]byte
	palette [PaletteSize]byte

	lut     [256][4]byte // palette index -> RGBA
	staging []byte
	dirty   bool

	mode        Mode
	startOffset int
	hscroll     int
}

// New returns a pipeline sized for the taller mode, with the neutral
// grayscale default palette.
func New() *Video {
	v := &Video{
		staging: make([]byte, fbSize*4),
		dirty:   true,
	}
	for i := 0; i < 256; i++ {
		gray := byte(i >> 2) // 0-255 -> 0-63
		v.palette[i*3+0] = gray
		v.palette[i*3+1] = gray
		v.palette[i*3+2] = gray
	}
	return v
}

// SetMode switches the active region between 200 and 400 lines. The
// allocation never changes, only how much of it is presented.
func (v *Video) SetMode(m Mode) {
	if m == StandardHeight || m == DoubleHeight {
		v.mode = m
	}
}

// GetMode returns the active mode.
func (v *Video) GetMode() Mode { return v.mode }

// ActiveHeight returns the line count of the current mode.
func (v *Video) ActiveHeight() int {
	if v.mode == DoubleHeight {
		return HeightDouble
	}
	return HeightStandard
}

// Framebuffer returns the full indexed plane for direct part writes.
// Callers stay within Width*ActiveHeight; there is no per-write check.
func (v *Video) Framebuffer() []byte { return v.fb[:] }

// Clear fills the entire allocated framebuffer with one index.
func (v *Video) Clear(color byte) {
	for i := range v.fb {
		v.fb[i] = color
	}
}

func clamp6(c byte) byte { return c & 0x3F }

// SetPalette replaces all 256 entries. Components are 6-bit (0-63).
func (v *Video) SetPalette(pal []byte) {
	n := copy(v.palette[:], pal)
	for i := 0; i < n; i++ {
		v.palette[i] = clamp6(v.palette[i])
	}
	v.dirty = true
}

// SetPaletteRange writes count entries starting at start. A range that
// would run past entry 255 is truncated.
func (v *Video) SetPaletteRange(start, count int, data []byte) {
	if start < 0 || start >= 256 || count <= 0 {
		return
	}
	if start+count > 256 {
		count = 256 - start
	}
	for i := 0; i < count*3 && i < len(data); i++ {
		v.palette[start*3+i] = clamp6(data[i])
	}
	v.dirty = true
}

// SetColor sets one palette entry (components 0-63).
func (v *Video) SetColor(index, r, g, b byte) {
	v.palette[int(index)*3+0] = clamp6(r)
	v.palette[int(index)*3+1] = clamp6(g)
	v.palette[int(index)*3+2] = clamp6(b)
	v.dirty = true
}

// GetPalette copies the current 768-byte palette into out and returns
// it; a round trip through SetColor is byte-exact.
func (v *Video) GetPalette(out []byte) []byte {
	if out == nil {
		out = make([]byte, PaletteSize)
	}
	copy(out, v.palette[:])
	return out
}

// SetStartOffset sets the display start address for page-flip style
// double buffering. The unit is one address step: one pixel in
// StandardHeight, four pixels in DoubleHeight (mode X planes).
func (v *Video) SetStartOffset(offset int) {
	if offset < 0 {
		offset = 0
	}
	v.startOffset = offset
}

// SetHScroll sets the fine horizontal scroll phase (0-3 pixels).
func (v *Video) SetHScroll(pixels int) {
	v.hscroll = pixels & 3
}

// readOrigin is the first framebuffer index presented, per mode.
func (v *Video) readOrigin() int {
	if v.mode == DoubleHeight {
		return v.startOffset*4 + v.hscroll
	}
	return v.startOffset + v.hscroll
}

// expand6 widens a 6-bit channel to 8 bits: (v<<2)|(v>>4), so 0 -> 0,
// 32 -> 130, 63 -> 255.
func expand6(c byte) byte { return (c << 2) | (c >> 4) }

func (v *Video) rebuildLUT() {
	for i := 0; i < 256; i++ {
		v.lut[i] = [4]byte{
			expand6(v.palette[i*3+0]),
			expand6(v.palette[i*3+1]),
			expand6(v.palette[i*3+2]),
			0xFF,
		}
	}
	v.dirty = false
}

// convert fills the staging buffer with RGBA for the active region,
// honoring the start offset and fine scroll. Reads wrap around the
// allocated framebuffer.
func (v *Video) convert() (w, h int) {
	h = v.ActiveHeight()
	origin := v.readOrigin()
	count := Width * h
	for i := 0; i < count; i++ {
		c := v.lut[v.fb[(origin+i)%fbSize]]
		copy(v.staging[i*4:i*4+4], c[:])
	}
	return Width, h
}

// Letterbox computes the largest viewport with the source aspect ratio
// that fits the window, centered. Integer math throughout.
func Letterbox(winW, winH, srcW, srcH int) (x, y, w, h int) {
	if winW <= 0 || winH <= 0 || srcW <= 0 || srcH <= 0 {
		return 0, 0, 0, 0
	}
	if winW*srcH > winH*srcW {
		// Window wider than source: pillarbox.
		h = winH
		w = winH * srcW / srcH
		x = (winW - w) / 2
		y = 0
	} else {
		w = winW
		h = winW * srcH / srcW
		x = 0
		y = (winH - h) / 2
	}
	return x, y, w, h
}

// Present converts the active region to RGBA (rebuilding the palette
// lookup first if a palette write dirtied it), uploads it, and draws it
// letterboxed into the backend's output.
func (v *Video) Present(b Backend) {
	if b == nil {
		return
	}
	if v.dirty {
		v.rebuildLUT()
	}
	w, h := v.convert()
	b.UpdateTexture(v.staging[:w*h*4], w, h)
	winW, winH := b.OutputSize()
	x, y, vw, vh := Letterbox(winW, winH, w, h)
	b.Draw(x, y, vw, vh)
}
