package ui

// Config contains window/input related settings.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor of the 320x200 view

	SinglePart bool // exit after the starting part instead of advancing
	// Later: fullscreen toggle, key mapping, etc.
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "demoshow"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
