// Package plasma is the middle part: three summed sine fields rendered
// as palette indices, animated by rotating the palette underneath them.
package plasma

import (
	"math"

	"demoshow/internal/part"
	"demoshow/internal/video"
)

// duration in displayed frames (70 Hz nominal).
const duration = 840

type Part struct {
	t     int
	sine  [256]int
	base  [video.PaletteSize]byte
	cycle [video.PaletteSize]byte
}

func New() *Part { return &Part{} }

func (p *Part) Name() string { return "plasma" }

func (p *Part) Init(ctx *part.Context) error {
	p.t = 0

	for i := range p.sine {
		p.sine[i] = int(40 * math.Sin(float64(i)*2*math.Pi/256))
	}
	for i := 0; i < 256; i++ {
		a := float64(i) * 2 * math.Pi / 256
		p.base[i*3+0] = byte(32 + 31*math.Sin(a))
		p.base[i*3+1] = byte(32 + 31*math.Sin(a+2*math.Pi/3))
		p.base[i*3+2] = byte(32 + 31*math.Sin(a+4*math.Pi/3))
	}

	ctx.Video.SetMode(video.StandardHeight)
	ctx.Video.SetStartOffset(0)
	ctx.Video.SetHScroll(0)
	ctx.Video.SetPalette(p.base[:])
	return nil
}

func (p *Part) Update(ctx *part.Context, frames int) bool {
	p.t += frames
	if p.t >= duration {
		return true
	}

	// Color cycling: rotate the whole palette one entry per frame.
	shift := p.t & 0xFF
	for i := 0; i < 256; i++ {
		src := ((i + shift) & 0xFF) * 3
		copy(p.cycle[i*3:i*3+3], p.base[src:src+3])
	}
	ctx.Video.SetPaletteRange(0, 256, p.cycle[:])
	return false
}

func (p *Part) Render(ctx *part.Context) {
	fb := ctx.Video.Framebuffer()
	t1, t2 := p.t*2, p.t*3
	for y := 0; y < video.HeightStandard; y++ {
		sy := p.sine[(y*3+t2)&0xFF]
		row := y * video.Width
		for x := 0; x < video.Width; x++ {
			v := p.sine[(x*2+t1)&0xFF] + sy + p.sine[(x+y+p.t)&0xFF]
			fb[row+x] = byte(128 + v)
		}
	}
}

func (p *Part) Cleanup(ctx *part.Context) {}
