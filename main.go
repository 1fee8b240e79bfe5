package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/df07/go-lightbake/pkg/bspfile"
	"github.com/df07/go-lightbake/pkg/config"
	"github.com/df07/go-lightbake/pkg/core"
	"github.com/df07/go-lightbake/pkg/logger"
	"github.com/df07/go-lightbake/pkg/surflight"
	"github.com/df07/go-lightbake/pkg/texture"
	"github.com/df07/go-lightbake/pkg/trace"
)

var flagDump = flag.String("dump", "", "Write the surface lights to this YAML file")

func main() {
	config.ParseFlags()

	if flag.NArg() != 1 {
		fmt.Println("Lightbake")
		fmt.Println("Usage: lightbake [options] map.bsp")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(2)
	}
	mapPath := flag.Arg(0)

	cfg, err := config.Load(mapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if _, err := bake(mapPath, cfg, *flagDump, logger.Sugar); err != nil {
		logger.Sugar.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// bake loads the map and its textures, generates the surface lights and
// optionally dumps them
func bake(mapPath string, cfg *config.Config, dumpPath string, log core.Logger) (*surflight.Registry, error) {
	slCfg, err := cfg.SurfaceLightConfig()
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	world, err := bspfile.Load(mapPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", mapPath, err)
	}
	log.Infof("Loaded %s: %d faces, %d models, %d leafs", mapPath, len(world.Faces), len(world.Models), len(world.Leafs))

	textures, err := openTextures(cfg.Textures, log)
	if err != nil {
		return nil, err
	}

	tracer := trace.NewTracer(world, trace.ShadowModels(world))
	reg := surflight.MakeSurfaceLights(tracer, textures, slCfg, log)

	s := reg.Stats()
	log.Infof("Surface lights: %d emitting faces, %d lights, %d points (%d zero intensity, %d too small, %d dark glow, %d degenerate)",
		s.Emitters, s.Lights, s.Points, s.ZeroIntensity, s.SmallArea, s.DarkGlow, s.Degenerate)
	log.Infof("Finished in %v", time.Since(startTime))

	if dumpPath != "" {
		if err := writeDump(reg, dumpPath); err != nil {
			return nil, err
		}
		log.Infof("Surface lights written to %s", dumpPath)
	}
	return reg, nil
}

// openTextures creates the texture store, loading the palette if one is
// configured
func openTextures(tc config.TextureConfig, log core.Logger) (texture.Store, error) {
	var pal *texture.Palette
	if tc.Palette != "" {
		data, err := os.ReadFile(tc.Palette)
		if err != nil {
			return nil, fmt.Errorf("reading palette: %w", err)
		}
		if pal, err = texture.ParsePalette(data); err != nil {
			return nil, fmt.Errorf("parsing palette %s: %w", tc.Palette, err)
		}
	}
	return texture.NewDirStore(tc.Dir, pal, log), nil
}

func writeDump(reg *surflight.Registry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dump: %w", err)
	}
	defer file.Close()

	if err := reg.WriteYAML(file); err != nil {
		return err
	}
	return file.Close()
}
