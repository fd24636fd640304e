// Package text rasterizes strings into the indexed framebuffer. Glyphs
// come from the fixed 7x13 bitmap face; coverage is thresholded into a
// single palette index so parts can recolor text with palette fades.
package text

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"demoshow/internal/video"
)

var face = basicfont.Face7x13

// Width returns the advance width of s in pixels.
func Width(s string) int { return font.MeasureString(face, s).Ceil() }

// Height returns the line height of the face in pixels.
func Height() int { return face.Height }

// Draw renders s with its top-left corner at (x, y), writing the given
// palette index wherever glyph coverage crosses half. Writes clip to
// the allocated plane, not just the active region, so text can be laid
// down in scroll-ahead lines.
func Draw(v *video.Video, x, y int, s string, index byte) {
	w := Width(s)
	if w <= 0 {
		return
	}
	h := face.Height

	img := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Alpha{0xFF}),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	fb := v.Framebuffer()
	planeH := len(fb) / video.Width
	for py := 0; py < h; py++ {
		ty := y + py
		if ty < 0 || ty >= planeH {
			continue
		}
		row := ty * video.Width
		for px := 0; px < w; px++ {
			tx := x + px
			if tx < 0 || tx >= video.Width {
				continue
			}
			if img.AlphaAt(px, py).A >= 0x80 {
				fb[row+tx] = index
			}
		}
	}
}

// DrawCentered renders s horizontally centered at line y.
func DrawCentered(v *video.Video, y int, s string, index byte) {
	Draw(v, (video.Width-Width(s))/2, y, s, index)
}
