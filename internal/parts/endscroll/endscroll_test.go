package endscroll

import (
	"testing"

	"demoshow/internal/dis"
	"demoshow/internal/part"
	"demoshow/internal/video"
)

func newCtx() *part.Context {
	return &part.Context{
		Sync:  dis.NewServer(nil, dis.SyncTable{}),
		Video: video.New(),
	}
}

func planeHas(v *video.Video, index byte, fromRow, toRow int) bool {
	fb := v.Framebuffer()
	for y := fromRow; y < toRow; y++ {
		for x := 0; x < video.Width; x++ {
			if fb[y*video.Width+x] == index {
				return true
			}
		}
	}
	return false
}

func TestTitleComesFromMessageArea(t *testing.T) {
	ctx := newCtx()
	area, _ := ctx.Sync.MessageArea(0)
	copy(area, "HANDOFF")

	p := New()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if p.lines[0] != "HANDOFF" {
		t.Fatalf("title = %q, want the message area handoff", p.lines[0])
	}
}

func TestTitleFallsBackWhenAreaEmpty(t *testing.T) {
	ctx := newCtx()
	p := New()
	p.Init(ctx)
	if p.lines[0] != "the end" {
		t.Fatalf("title = %q, want fallback", p.lines[0])
	}
}

func TestCreditsAreDrawnAheadOfTheView(t *testing.T) {
	ctx := newCtx()
	p := New()
	p.Init(ctx)

	p.Update(ctx, 1)

	// The title is laid down just below the visible screen, in the
	// title color, before the view reaches it.
	if !planeHas(ctx.Video, titleIndex, visible, visible+lineSpacing) {
		t.Fatalf("title not drawn ahead at row %d", visible)
	}
	if planeHas(ctx.Video, titleIndex, 0, visible/2) {
		t.Fatalf("title leaked into the initial view")
	}
}

func TestScrollerCompletesWithFadeOut(t *testing.T) {
	ctx := newCtx()
	p := New()
	p.Init(ctx)

	done := false
	for i := 0; i < 100000; i++ {
		if p.Update(ctx, 4) {
			done = true
			break
		}
	}
	if !done {
		t.Fatalf("scroller never finished")
	}
	for i, c := range ctx.Video.GetPalette(nil) {
		if c != 0 {
			t.Fatalf("palette component %d = %d after fade out, want 0", i, c)
		}
	}
}
