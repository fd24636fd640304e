// Package endscroll is the closing credits: a vertical scroller drawn
// ahead of the view into the tall framebuffer plane, panned with the
// display start address and swayed with the fine scroll register.
package endscroll

import (
	"math"
	"strings"

	"demoshow/internal/part"
	"demoshow/internal/text"
	"demoshow/internal/video"
)

const (
	titleIndex = 2
	bodyIndex  = 1

	// Divides the plane height, so a line never straddles the wrap.
	lineSpacing = 20
	planeLines  = video.HeightDouble
	visible     = video.HeightStandard

	// Half a scanline per frame.
	speedDen = 2

	fadeSteps = 48
)

var credits = []string{
	"",
	"code",
	"morning crew",
	"",
	"music",
	"one channel short",
	"",
	"graphics",
	"all of the above",
	"",
	"",
	"thank you for watching",
	"",
	"see you at the next party",
}

type Part struct {
	lines    []string
	scroll   int // accumulated frame units, scanlines = scroll / speedDen
	nextLine int
	nextY    int // absolute plane row of the next undrawn line
	fade     *video.Fade
}

func New() *Part { return &Part{} }

func (p *Part) Name() string { return "endscroll" }

func (p *Part) Init(ctx *part.Context) error {
	p.scroll = 0
	p.nextLine = 0
	p.nextY = visible
	p.fade = nil

	// The opener leaves the show title in message area 0.
	title := "the end"
	if area, err := ctx.Sync.MessageArea(0); err == nil {
		if s := strings.TrimRight(string(area), "\x00"); s != "" {
			title = s
		}
	}
	p.lines = append([]string{title}, credits...)

	ctx.Video.SetMode(video.StandardHeight)
	ctx.Video.SetStartOffset(0)
	ctx.Video.SetHScroll(0)
	ctx.Video.Clear(0)
	ctx.Video.SetColor(bodyIndex, 48, 48, 48)
	ctx.Video.SetColor(titleIndex, 63, 63, 40)
	return nil
}

// topLine is the plane scanline at the top of the view.
func (p *Part) topLine() int { return p.scroll / speedDen }

// drawAhead lays down credit lines in the half of the ring the view is
// about to pan into.
func (p *Part) drawAhead(v *video.Video) {
	fb := v.Framebuffer()
	for p.nextLine < len(p.lines) && p.nextY < p.topLine()+planeLines {
		y := p.nextY % planeLines
		for r := 0; r < lineSpacing; r++ {
			row := ((y + r) % planeLines) * video.Width
			for x := 0; x < video.Width; x++ {
				fb[row+x] = 0
			}
		}
		index := byte(bodyIndex)
		if p.nextLine == 0 {
			index = titleIndex
		}
		text.DrawCentered(v, y, p.lines[p.nextLine], index)
		p.nextLine++
		p.nextY += lineSpacing
	}
}

func (p *Part) Update(ctx *part.Context, frames int) bool {
	if p.fade != nil {
		if !p.fade.Tick(ctx.Video) {
			return true
		}
		return false
	}

	p.scroll += frames
	end := len(p.lines)*lineSpacing + visible
	if p.topLine() >= end {
		p.fade = ctx.Video.FadeTo(make([]byte, video.PaletteSize), fadeSteps)
		return false
	}

	p.drawAhead(ctx.Video)
	ctx.Video.SetStartOffset(p.topLine() * video.Width)
	ctx.Video.SetHScroll(int(1.5 + 1.5*math.Sin(float64(p.scroll)/40)))
	return false
}

func (p *Part) Render(ctx *part.Context) {}

func (p *Part) Cleanup(ctx *part.Context) {
	ctx.Video.SetStartOffset(0)
	ctx.Video.SetHScroll(0)
}
