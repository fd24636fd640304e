package video

// LerpPalettes writes into dst the blend of src and target at the given
// step in [0, 64]: dst = (src*(64-step) + target*step) >> 6. All three
// slices are 768-byte palettes.
func LerpPalettes(dst, src, target []byte, step int) {
	if step < 0 {
		step = 0
	}
	if step > 64 {
		step = 64
	}
	for i := 0; i < PaletteSize && i < len(dst) && i < len(src) && i < len(target); i++ {
		dst[i] = byte((int(src[i])*(64-step) + int(target[i])*step) >> 6)
	}
}

// Fade is a non-blocking palette fade: construct it, then call Tick once
// per frame until it reports done. The same shape the original parts
// used for their text fade-in/out.
type Fade struct {
	src    [PaletteSize]byte
	target [PaletteSize]byte
	step   int
	steps  int
}

// NewFade fades from src to target over steps ticks. Steps below 1 are
// treated as 1 (an immediate snap on the first Tick).
func NewFade(src, target []byte, steps int) *Fade {
	f := &Fade{steps: steps}
	if f.steps < 1 {
		f.steps = 1
	}
	copy(f.src[:], src)
	copy(f.target[:], target)
	return f
}

// FadeTo starts a fade from the video's current palette to target.
func (v *Video) FadeTo(target []byte, steps int) *Fade {
	return NewFade(v.palette[:], target, steps)
}

// Done reports whether the fade has reached the target palette.
func (f *Fade) Done() bool { return f.step >= f.steps }

// Tick advances the fade one step and applies the interpolated palette.
// Returns true while the fade is still active after this step.
func (f *Fade) Tick(v *Video) bool {
	if f.Done() {
		return false
	}
	f.step++
	var pal [PaletteSize]byte
	LerpPalettes(pal[:], f.src[:], f.target[:], f.step*64/f.steps)
	v.SetPalette(pal[:])
	return !f.Done()
}
