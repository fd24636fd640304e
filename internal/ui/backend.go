package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// ebitenBackend adapts an ebiten frame to the video presentation
// interface. The screen pointer is only valid during Draw; the texture
// is reallocated when the source dimensions change (mode switch).
type ebitenBackend struct {
	tex    *ebiten.Image
	screen *ebiten.Image
	w, h   int
}

func (b *ebitenBackend) UpdateTexture(pix []byte, w, h int) {
	if b.tex == nil || w != b.w || h != b.h {
		b.tex = ebiten.NewImage(w, h)
		b.w, b.h = w, h
	}
	b.tex.WritePixels(pix)
}

func (b *ebitenBackend) Draw(x, y, w, h int) {
	if b.screen == nil || b.tex == nil || w <= 0 || h <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(w)/float64(b.w), float64(h)/float64(b.h))
	op.GeoM.Translate(float64(x), float64(y))
	b.screen.DrawImage(b.tex, op)
}

func (b *ebitenBackend) OutputSize() (int, int) {
	if b.screen == nil {
		return 0, 0
	}
	bounds := b.screen.Bounds()
	return bounds.Dx(), bounds.Dy()
}
