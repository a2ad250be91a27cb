package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagSkin     = flag.String("skin", "", "Skin file path or URL")
	flagOverlay  = flag.String("overlay", "", "Overlay skin file path or URL")
	flagSlim     = flag.Bool("slim", false, "Use the slim (3px arm) model")
	flagWidth    = flag.Int("width", 0, "Output width")
	flagHeight   = flag.Int("height", 0, "Output height")
	flagOut      = flag.String("out", "", "Output image path")
	flagAddr     = flag.String("addr", "", "HTTP listen address")
	flagWatch    = flag.Bool("watch", false, "Reload local skin files when they change")
	flagRenderer = flag.String("renderer", "", "Window renderer: opengl or software")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSkin != "" {
		cfg.Skin.Path = *flagSkin
	}
	if *flagOverlay != "" {
		cfg.Skin.Overlay = *flagOverlay
	}
	if *flagSlim {
		cfg.Skin.Variant = "slim"
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
	if *flagOut != "" {
		cfg.Output.Path = *flagOut
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagWatch {
		cfg.Skin.Watch = true
	}
	if *flagRenderer != "" {
		cfg.Viewer.Renderer = *flagRenderer
	}
}
