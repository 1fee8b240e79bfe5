package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagThreads   = flag.Int("threads", 0, "Worker threads (0 keeps the config value)")
	flagStream    = flag.String("stream", "", "Ray stream: scalar or packet")
	flagSubdivide = flag.Float64("subdivide", 0, "Surface light subdivision in world units")
	flagNoVis     = flag.Bool("novisapprox", false, "Skip surface light visibility bounds")
	flagNoGlow    = flag.Bool("noglow", false, "Ignore glow textures")
	flagTextures  = flag.String("textures", "", "Texture directory")
	flagLogFile   = flag.String("logfile", "", "Also write the log to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagThreads > 0 {
		cfg.Light.Threads = *flagThreads
	}
	if *flagStream != "" {
		cfg.Light.RayStream = *flagStream
	}
	if *flagSubdivide > 0 {
		cfg.SurfaceLights.Subdivide = *flagSubdivide
	}
	if *flagNoVis {
		cfg.SurfaceLights.VisApprox = false
	}
	if *flagNoGlow {
		cfg.SurfaceLights.GlowTextures = false
	}
	if *flagTextures != "" {
		cfg.Textures.Dir = *flagTextures
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
