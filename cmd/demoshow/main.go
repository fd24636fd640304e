package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"demoshow/internal/dis"
	"demoshow/internal/music"
	"demoshow/internal/part"
	"demoshow/internal/parts/endscroll"
	"demoshow/internal/parts/intro"
	"demoshow/internal/parts/plasma"
	"demoshow/internal/ui"
	"demoshow/internal/video"
)

type CLIFlags struct {
	Part   int
	Single bool
	List   bool
	Music  string
	Scale  int
	Title  string

	// headless
	Headless bool
	Frames   int
	FPS      int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.IntVar(&f.Part, "part", 0, "registry index to start at")
	flag.BoolVar(&f.Single, "single", false, "exit after the starting part")
	flag.BoolVar(&f.List, "list", false, "list registered parts and exit")
	flag.StringVar(&f.Music, "music", "", "path to soundtrack (.mod)")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "demoshow", "window title")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window or audio")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.IntVar(&f.FPS, "fps", 0, "pace headless frames at this rate (0 = unthrottled)")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

// buildShow wires the sync server, video pipeline and part registry.
func buildShow(source dis.MusicSource) (*dis.Server, *video.Video, *part.Sequencer) {
	sync := dis.NewServer(source, dis.DefaultSyncTable())
	vid := video.New()
	seq := part.NewSequencer(sync, vid)

	seq.Register(intro.New())
	seq.Register(plasma.New())
	seq.Register(endscroll.New())
	return sync, vid, seq
}

func runHeadless(f CLIFlags, sync *dis.Server, vid *video.Video, seq *part.Sequencer) error {
	frames := f.Frames
	if frames <= 0 {
		frames = 1
	}

	var pace <-chan time.Time
	if f.FPS > 0 {
		t := time.NewTicker(time.Second / time.Duration(f.FPS))
		defer t.Stop()
		pace = t.C
	}

	start := time.Now()
	ran := 0
	for ; ran < frames; ran++ {
		if sync.ShouldExit() || !seq.IsRunning() {
			break
		}
		sync.FrameTick()
		seq.Tick()
		seq.Render()
		if pace != nil {
			<-pace
		}
	}
	dur := time.Since(start)

	fb := vid.Framebuffer()[:video.Width*vid.ActiveHeight()]
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(ran) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		ran, dur.Truncate(time.Millisecond), fps, crc)

	if f.PNGOut != "" {
		if err := saveFramePNG(vid, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// saveFramePNG converts the indexed frame through the current palette.
func saveFramePNG(vid *video.Video, path string) error {
	w, h := video.Width, vid.ActiveHeight()
	fb := vid.Framebuffer()
	pal := vid.GetPalette(nil)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		c := fb[i]
		for ch := 0; ch < 3; ch++ {
			v := pal[int(c)*3+ch]
			img.Pix[i*4+ch] = (v << 2) | (v >> 4)
		}
		img.Pix[i*4+3] = 0xFF
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f := parseFlags()

	// The sync server consumes music position; audio stays off in
	// headless runs so timing falls back to frame counting.
	var player *music.Player
	var source dis.MusicSource
	if f.Music != "" && !f.Headless {
		data, err := os.ReadFile(f.Music)
		if err != nil {
			log.Fatalf("read %s: %v", f.Music, err)
		}
		player = music.NewPlayer()
		if err := player.Load(data); err != nil {
			log.Fatalf("load %s: %v", f.Music, err)
		}
		source = player
	}

	sync, vid, seq := buildShow(source)

	if f.List {
		for i := 0; i < seq.Count(); i++ {
			p, _ := seq.PartAt(i)
			fmt.Printf("%2d  %s\n", i, p.Name())
		}
		return
	}

	if v := sync.Initialize(); v != dis.Version {
		log.Fatalf("sync server version %#x, want %#x", v, dis.Version)
	}

	if err := seq.Start(f.Part); err != nil {
		log.Fatalf("start part %d: %v", f.Part, err)
	}
	defer seq.Shutdown()

	if f.Headless {
		if err := runHeadless(f, sync, vid, seq); err != nil {
			log.Fatal(err)
		}
		return
	}

	if player != nil {
		if err := player.Open(); err != nil {
			log.Printf("audio unavailable, running silent: %v", err)
		} else {
			defer player.Close()
			if err := player.Play(); err != nil {
				log.Printf("music: %v", err)
			}
		}
	}

	uiCfg := ui.Config{Title: f.Title, Scale: f.Scale, SinglePart: f.Single}
	app := ui.NewApp(uiCfg, sync, seq, vid, player)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
