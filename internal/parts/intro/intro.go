// Package intro is the opening part: music-synced text screens fading
// in and out, closing on a scroll up into a procedural horizon.
package intro

import (
	"math"

	"demoshow/internal/dis"
	"demoshow/internal/part"
	"demoshow/internal/text"
	"demoshow/internal/video"
)

// Title is handed to the closing part through message area 0.
const Title = "PHASE SHIFT"

// One screen per sync point. The last slot is the horizon scroll.
var screens = []string{
	"we have traveled far",
	"through static and noise",
	"chasing a signal",
	"older than memory",
	"it spoke in colors",
	"it moved in waves",
	"and at the horizon",
	"it was waiting",
}

const (
	textIndex   = 1
	skyBase     = 16 // first of 48 gradient entries
	skyBands    = 48
	fadeSteps   = 24
	scrollLines = video.HeightStandard
)

type Part struct {
	fade      *video.Fade
	target    []byte
	shown     int // sync point of the screen on display, -1 before the first
	scroll    int
	raster    int
	scrolling bool
}

func New() *Part { return &Part{} }

func (p *Part) Name() string { return "intro" }

func (p *Part) Init(ctx *part.Context) error {
	p.fade = nil
	p.shown = -1
	p.scroll = 0
	p.raster = 0
	p.scrolling = false

	ctx.Video.SetMode(video.StandardHeight)
	ctx.Video.SetStartOffset(0)
	ctx.Video.SetHScroll(0)

	// The part owns the show's timing: cuts match the soundtrack's
	// section boundaries, with a five second per point fallback.
	ctx.Sync.SetSyncTable(dis.SyncTable{
		MusicCuts:      []float64{3, 8, 13, 18, 23, 28, 33, 38},
		FramesPerPoint: 300,
	})

	// Retrace hook: a raster counter driving the fine-scroll wobble.
	if err := ctx.Sync.SetCopper(2, func() { p.raster++ }); err != nil {
		return err
	}

	if area, err := ctx.Sync.MessageArea(0); err == nil {
		for i := range area {
			area[i] = 0
		}
		copy(area, Title)
	}

	p.target = targetPalette()
	p.drawHorizon(ctx.Video)
	return nil
}

// targetPalette is what every fade-in lands on: white text over a
// sunset gradient.
func targetPalette() []byte {
	pal := make([]byte, video.PaletteSize)
	pal[textIndex*3+0] = 63
	pal[textIndex*3+1] = 63
	pal[textIndex*3+2] = 63
	for i := 0; i < skyBands; i++ {
		e := (skyBase + i) * 3
		pal[e+0] = byte(63 - i/4)     // red holds long
		pal[e+1] = byte(40 - i*40/48) // green falls off
		pal[e+2] = byte(i / 3)        // a little blue at the bottom
	}
	return pal
}

// drawHorizon paints the closing scene into the lines below the
// visible screen; the scroll phase pans down into it.
func (p *Part) drawHorizon(v *video.Video) {
	fb := v.Framebuffer()
	for y := 0; y < video.HeightStandard; y++ {
		band := byte(skyBase + y*skyBands/video.HeightStandard)
		row := (video.HeightStandard + y) * video.Width
		for x := 0; x < video.Width; x++ {
			fb[row+x] = band
		}
	}
	text.DrawCentered(v, video.HeightStandard+92, Title, textIndex)
}

// showScreen swaps the visible text and restarts the fade-in from the
// current (black) palette.
func (p *Part) showScreen(ctx *part.Context, n int) {
	fb := ctx.Video.Framebuffer()
	for i := 0; i < video.Width*video.HeightStandard; i++ {
		fb[i] = 0
	}
	if n < len(screens) {
		text.DrawCentered(ctx.Video, 94, screens[n], textIndex)
	}
	black := make([]byte, video.PaletteSize)
	ctx.Video.SetPalette(black)
	p.fade = video.NewFade(black, p.target, fadeSteps)
	p.shown = n
}

func (p *Part) Update(ctx *part.Context, frames int) bool {
	pt := ctx.Sync.SyncPoint()

	if pt >= dis.SyncPointMax {
		if !p.scrolling {
			p.scrolling = true
			p.fade = nil
			ctx.Video.SetPalette(p.target)
		}
		p.scroll += frames
		if p.scroll >= scrollLines {
			return true
		}
		ctx.Video.SetStartOffset(p.scroll * video.Width)
		return false
	}

	if pt != p.shown {
		p.showScreen(ctx, pt)
	}
	if p.fade != nil && !p.fade.Tick(ctx.Video) {
		p.fade = nil
	}
	return false
}

func (p *Part) Render(ctx *part.Context) {
	if p.scrolling {
		// Gentle horizontal sway while panning to the horizon.
		ctx.Video.SetHScroll(int(1.5 + 1.5*math.Sin(float64(p.raster)/23)))
	}
}

func (p *Part) Cleanup(ctx *part.Context) {
	ctx.Sync.SetCopper(2, nil)
	ctx.Video.SetStartOffset(0)
	ctx.Video.SetHScroll(0)
}
