// Package ui is the windowed frontend: it drives the show loop from
// ebiten's update/draw callbacks and maps keys to show controls.
package ui

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"demoshow/internal/dis"
	"demoshow/internal/music"
	"demoshow/internal/part"
	"demoshow/internal/video"
)

type App struct {
	cfg     Config
	sync    *dis.Server
	seq     *part.Sequencer
	vid     *video.Video
	player  *music.Player // may be nil when no soundtrack is loaded
	backend  ebitenBackend
	paused   bool
	startIdx int
}

func NewApp(cfg Config, sync *dis.Server, seq *part.Sequencer, vid *video.Video, player *music.Player) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(video.Width*cfg.Scale, video.HeightStandard*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return &App{cfg: cfg, sync: sync, seq: seq, vid: vid, player: player, startIdx: -1}
}

func (a *App) Run() error {
	err := ebiten.RunGame(a)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (a *App) Update() error {
	// Escape ends the show, Space skips to the next part.
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.sync.RequestExit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := a.seq.Advance(); err != nil && !errors.Is(err, part.ErrSequenceDone) {
			return err
		}
	}

	// Pause toggle (P): freezes the parts, the music keeps its state.
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
		if a.player != nil {
			if a.paused {
				a.player.Pause()
			} else {
				a.player.Play()
			}
		}
	}

	// Screenshot (F12)
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}

	if a.sync.ShouldExit() || !a.seq.IsRunning() {
		return ebiten.Termination
	}
	if a.startIdx < 0 {
		a.startIdx = a.seq.CurrentIndex()
	}
	if a.cfg.SinglePart && a.seq.CurrentIndex() != a.startIdx {
		return ebiten.Termination
	}

	if !a.paused {
		a.sync.FrameTick()
		a.seq.Tick()
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	a.seq.Render()
	a.backend.screen = screen
	a.vid.Present(&a.backend)
	a.backend.screen = nil
}

func (a *App) Layout(outW, outH int) (int, int) {
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

// saveScreenshot writes the indexed framebuffer, through the current
// palette, as a timestamped PNG next to the binary.
func (a *App) saveScreenshot() error {
	w, h := video.Width, a.vid.ActiveHeight()
	fb := a.vid.Framebuffer()
	pal := a.vid.GetPalette(nil)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		c := fb[i]
		for ch := 0; ch < 3; ch++ {
			v := pal[int(c)*3+ch]
			img.Pix[i*4+ch] = (v << 2) | (v >> 4)
		}
		img.Pix[i*4+3] = 0xFF
	}

	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
