// Package config handles lightbake configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/df07/go-lightbake/pkg/surflight"
	"github.com/df07/go-lightbake/pkg/trace"
)

// Config holds all settings of a run.
type Config struct {
	Light         LightConfig        `yaml:"light"`
	SurfaceLights SurfaceLightConfig `yaml:"surface_lights"`
	Textures      TextureConfig      `yaml:"textures"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// LightConfig holds settings shared by every lighting pass.
type LightConfig struct {
	Threads   int    `yaml:"threads"`    // 0 uses every CPU
	RayStream string `yaml:"ray_stream"` // scalar or packet
}

// SurfaceLightConfig holds surface light generation settings.
type SurfaceLightConfig struct {
	Subdivide     float64 `yaml:"subdivide"`
	GlowTextures  bool    `yaml:"glow_textures"`
	VisApprox     bool    `yaml:"vis_approx"`
	DarkThreshold int     `yaml:"dark_threshold"`
	MinArea       float64 `yaml:"min_area"`
}

// TextureConfig locates texture images.
type TextureConfig struct {
	Dir     string `yaml:"dir"`
	Palette string `yaml:"palette"` // raw 768 byte palette or PCX file, for WAL textures
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the standard values.
func Default() *Config {
	return &Config{
		Light: LightConfig{
			Threads:   0,
			RayStream: trace.StreamScalar.String(),
		},
		SurfaceLights: SurfaceLightConfig{
			Subdivide:     surflight.DefaultSubdivide,
			GlowTextures:  true,
			VisApprox:     true,
			DarkThreshold: surflight.DefaultDarkThreshold,
			MinArea:       surflight.DefaultMinArea,
		},
		Textures: TextureConfig{
			Dir: "textures",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every out of range setting.
func (c *Config) Validate() error {
	var errs error
	if c.Light.Threads < 0 {
		errs = multierr.Append(errs, fmt.Errorf("light.threads must not be negative, got %d", c.Light.Threads))
	}
	if _, err := trace.ParseStreamKind(c.Light.RayStream); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("light.ray_stream: %w", err))
	}
	if c.SurfaceLights.Subdivide <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("surface_lights.subdivide must be positive, got %g", c.SurfaceLights.Subdivide))
	}
	if t := c.SurfaceLights.DarkThreshold; t < 0 || t > 255 {
		errs = multierr.Append(errs, fmt.Errorf("surface_lights.dark_threshold must be within 0..255, got %d", t))
	}
	if c.SurfaceLights.MinArea < 0 {
		errs = multierr.Append(errs, fmt.Errorf("surface_lights.min_area must not be negative, got %g", c.SurfaceLights.MinArea))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = multierr.Append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return errs
}

// SurfaceLightConfig converts the settings into generator options.
func (c *Config) SurfaceLightConfig() (surflight.Config, error) {
	kind, err := trace.ParseStreamKind(c.Light.RayStream)
	if err != nil {
		return surflight.Config{}, err
	}
	return surflight.Config{
		Subdivide:     c.SurfaceLights.Subdivide,
		GlowTextures:  c.SurfaceLights.GlowTextures,
		VisApprox:     c.SurfaceLights.VisApprox,
		DarkThreshold: c.SurfaceLights.DarkThreshold,
		MinArea:       c.SurfaceLights.MinArea,
		Threads:       c.Light.Threads,
		StreamKind:    kind,
	}, nil
}
