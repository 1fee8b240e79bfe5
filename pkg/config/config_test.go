package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"

	"github.com/df07/go-lightbake/pkg/surflight"
	"github.com/df07/go-lightbake/pkg/trace"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Light.Threads != 0 {
		t.Errorf("expected threads 0, got %d", cfg.Light.Threads)
	}
	if cfg.Light.RayStream != "scalar" {
		t.Errorf("expected ray stream 'scalar', got %s", cfg.Light.RayStream)
	}
	if cfg.SurfaceLights.Subdivide != 128 {
		t.Errorf("expected subdivide 128, got %f", cfg.SurfaceLights.Subdivide)
	}
	if !cfg.SurfaceLights.GlowTextures || !cfg.SurfaceLights.VisApprox {
		t.Error("expected glow textures and vis approx on by default")
	}
	if cfg.SurfaceLights.DarkThreshold != 25 {
		t.Errorf("expected dark threshold 25, got %d", cfg.SurfaceLights.DarkThreshold)
	}
	if cfg.SurfaceLights.MinArea != 1 {
		t.Errorf("expected min area 1, got %f", cfg.SurfaceLights.MinArea)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lightbake.yaml")

	yamlContent := `
light:
  threads: 6
  ray_stream: packet

surface_lights:
  subdivide: 64
  glow_textures: false
  dark_threshold: 40

textures:
  dir: "/maps/textures"

logging:
  level: "debug"
  log_file: "bake.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Light.Threads != 6 {
		t.Errorf("expected threads 6, got %d", cfg.Light.Threads)
	}
	if cfg.SurfaceLights.Subdivide != 64 {
		t.Errorf("expected subdivide 64, got %f", cfg.SurfaceLights.Subdivide)
	}
	if cfg.SurfaceLights.GlowTextures {
		t.Error("expected glow textures off")
	}
	// Keys missing from the file keep their defaults
	if !cfg.SurfaceLights.VisApprox {
		t.Error("expected vis approx to keep its default")
	}
	if cfg.SurfaceLights.MinArea != 1 {
		t.Errorf("expected min area to keep its default, got %f", cfg.SurfaceLights.MinArea)
	}
	if cfg.Textures.Dir != "/maps/textures" {
		t.Errorf("expected texture dir /maps/textures, got %s", cfg.Textures.Dir)
	}
	if cfg.Logging.LogFile != "bake.log" {
		t.Errorf("expected log file 'bake.log', got %s", cfg.Logging.LogFile)
	}

	sl, err := cfg.SurfaceLightConfig()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}
	want := surflight.Config{
		Subdivide:     64,
		GlowTextures:  false,
		VisApprox:     true,
		DarkThreshold: 40,
		MinArea:       1,
		Threads:       6,
		StreamKind:    trace.StreamPacket,
	}
	if sl != want {
		t.Errorf("expected %+v, got %+v", want, sl)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
light:
  threads: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
	if err := loadFromFile(Default(), "/nonexistent/path/lightbake.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Light.Threads = -1
	cfg.Light.RayStream = "simd"
	cfg.SurfaceLights.Subdivide = 0
	cfg.SurfaceLights.DarkThreshold = 300
	cfg.SurfaceLights.MinArea = -2
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 6 {
		t.Errorf("expected 6 problems, got %d: %v", got, err)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	mapDir := filepath.Join(tmpDir, "maps")
	if err := os.MkdirAll(mapDir, 0755); err != nil {
		t.Fatal(err)
	}
	mapPath := filepath.Join(mapDir, "base1.bsp")

	if path := findConfigFile(mapPath); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	beside := filepath.Join(mapDir, DefaultFileName)
	if err := os.WriteFile(beside, []byte("light:\n  threads: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := findConfigFile(mapPath); path != beside {
		t.Errorf("expected config beside the map, got %q", path)
	}

	if err := os.WriteFile(DefaultFileName, []byte("light:\n  threads: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := findConfigFile(mapPath); filepath.Base(path) != DefaultFileName || filepath.Dir(path) != "." {
		t.Errorf("expected the working directory config to win, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "threads and stream",
			setup: func() { *flagThreads = 3; *flagStream = "packet" },
			verify: func(cfg *Config) {
				if cfg.Light.Threads != 3 || cfg.Light.RayStream != "packet" {
					t.Errorf("expected 3 packet threads, got %d %s", cfg.Light.Threads, cfg.Light.RayStream)
				}
			},
			teardown: func() { *flagThreads = 0; *flagStream = "" },
		},
		{
			name:  "surface light switches",
			setup: func() { *flagSubdivide = 16; *flagNoVis = true; *flagNoGlow = true },
			verify: func(cfg *Config) {
				sl := cfg.SurfaceLights
				if sl.Subdivide != 16 || sl.VisApprox || sl.GlowTextures {
					t.Errorf("unexpected surface light settings %+v", sl)
				}
			},
			teardown: func() { *flagSubdivide = 0; *flagNoVis = false; *flagNoGlow = false },
		},
		{
			name:  "paths",
			setup: func() { *flagTextures = "/tex"; *flagLogFile = "out.log" },
			verify: func(cfg *Config) {
				if cfg.Textures.Dir != "/tex" || cfg.Logging.LogFile != "out.log" {
					t.Errorf("unexpected paths %s %s", cfg.Textures.Dir, cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagTextures = ""; *flagLogFile = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lightbake.yaml")

	cfg := Default()
	cfg.SurfaceLights.Subdivide = 32
	cfg.Light.RayStream = "packet"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("expected %+v after reload, got %+v", *cfg, *loaded)
	}
}
