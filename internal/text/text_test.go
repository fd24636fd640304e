package text

import (
	"testing"

	"demoshow/internal/video"
)

func TestWidthIsAdvanceTimesRunes(t *testing.T) {
	if got := Width("AB"); got != 14 {
		t.Errorf("Width(AB) = %d, want 14", got)
	}
	if got := Width(""); got != 0 {
		t.Errorf("Width empty = %d, want 0", got)
	}
}

func TestDrawWritesOnlyTheGivenIndex(t *testing.T) {
	v := video.New()
	v.Clear(0)
	Draw(v, 10, 20, "X", 7)

	fb := v.Framebuffer()
	lit := 0
	for i, c := range fb {
		switch c {
		case 0:
		case 7:
			lit++
			x, y := i%video.Width, i/video.Width
			if x < 10 || x >= 10+Width("X") || y < 20 || y >= 20+Height() {
				t.Fatalf("pixel outside glyph box at %d,%d", x, y)
			}
		default:
			t.Fatalf("unexpected index %d in framebuffer", c)
		}
	}
	if lit == 0 {
		t.Fatalf("Draw produced no pixels")
	}
}

func TestDrawClipsAtEdges(t *testing.T) {
	v := video.New()
	// Off-screen placements must not panic or write out of bounds.
	Draw(v, -100, -100, "clip", 1)
	Draw(v, video.Width-3, video.HeightDouble-3, "clip", 1)
	Draw(v, video.Width+5, 0, "clip", 1)
}

func TestDrawCentered(t *testing.T) {
	v := video.New()
	v.Clear(0)
	s := "CENTER"
	DrawCentered(v, 50, s, 3)

	fb := v.Framebuffer()
	minX, maxX := video.Width, -1
	for i, c := range fb {
		if c != 3 {
			continue
		}
		x := i % video.Width
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}
	if maxX < 0 {
		t.Fatalf("nothing drawn")
	}
	left := minX
	right := video.Width - 1 - maxX
	if diff := left - right; diff < -7 || diff > 7 {
		t.Errorf("text not centered: left margin %d, right margin %d", left, right)
	}
}
