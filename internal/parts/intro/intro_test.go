package intro

import (
	"bytes"
	"testing"

	"demoshow/internal/dis"
	"demoshow/internal/part"
	"demoshow/internal/video"
)

type stubSource struct {
	playing bool
	pos     float64
}

func (s *stubSource) IsPlaying() bool          { return s.playing }
func (s *stubSource) PositionSeconds() float64 { return s.pos }
func (s *stubSource) CurrentOrder() int        { return 0 }
func (s *stubSource) CurrentRow() int          { return 0 }

func newCtx(src dis.MusicSource) *part.Context {
	return &part.Context{
		Sync:  dis.NewServer(src, dis.SyncTable{}),
		Video: video.New(),
	}
}

func visibleHas(v *video.Video, index byte) bool {
	fb := v.Framebuffer()
	for i := 0; i < video.Width*video.HeightStandard; i++ {
		if fb[i] == index {
			return true
		}
	}
	return false
}

func TestInitLeavesTitleInMessageArea(t *testing.T) {
	ctx := newCtx(nil)
	p := New()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	area, err := ctx.Sync.MessageArea(0)
	if err != nil {
		t.Fatalf("MessageArea: %v", err)
	}
	if !bytes.HasPrefix(area, []byte(Title)) {
		t.Errorf("message area = %q, want prefix %q", area[:16], Title)
	}
}

func TestScreensFollowSyncPoints(t *testing.T) {
	src := &stubSource{playing: true, pos: 0.5}
	ctx := newCtx(src)
	p := New()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if done := p.Update(ctx, 1); done {
		t.Fatalf("finished on the first screen")
	}
	if !visibleHas(ctx.Video, 1) {
		t.Fatalf("no text on screen at sync point 0")
	}

	// Crossing a music cut swaps the screen and restarts the fade
	// from black.
	src.pos = 9 // past cuts at 3s and 8s
	p.Update(ctx, 1)
	if p.shown != 2 {
		t.Fatalf("shown = %d at 9s, want 2", p.shown)
	}
	pal := ctx.Video.GetPalette(nil)
	bright := false
	for _, c := range pal {
		if c > 10 {
			bright = true
		}
	}
	if bright {
		t.Errorf("palette not restarted from black on screen swap")
	}
}

func TestFadeReachesFullBrightness(t *testing.T) {
	src := &stubSource{playing: true, pos: 0.5}
	ctx := newCtx(src)
	p := New()
	p.Init(ctx)

	for i := 0; i < fadeSteps+1; i++ {
		p.Update(ctx, 1)
	}
	pal := ctx.Video.GetPalette(nil)
	if pal[3] != 63 || pal[4] != 63 || pal[5] != 63 {
		t.Errorf("text color = %v after fade, want full white", pal[3:6])
	}
}

func TestScrollPhaseEndsThePart(t *testing.T) {
	src := &stubSource{playing: true, pos: 100} // past every cut
	ctx := newCtx(src)
	p := New()
	p.Init(ctx)

	if done := p.Update(ctx, scrollLines-1); done {
		t.Fatalf("finished before scrolling a full screen")
	}
	if done := p.Update(ctx, 1); !done {
		t.Fatalf("not finished after scrolling a full screen")
	}
}

func TestLifecycleIsRestartable(t *testing.T) {
	src := &stubSource{playing: true, pos: 100}
	ctx := newCtx(src)
	p := New()

	p.Init(ctx)
	p.Update(ctx, scrollLines)
	p.Cleanup(ctx)

	// Sync point memory survives in the server, but a fresh Init after
	// a server reset runs the whole part again.
	ctx.Sync.Reset()
	src.pos = 0
	if err := p.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if done := p.Update(ctx, 1); done {
		t.Fatalf("restarted part finished immediately")
	}
}
