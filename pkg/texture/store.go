package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"

	"github.com/df07/go-lightbake/pkg/core"
)

// Store resolves textures by the name stored in texinfo. Implementations
// must be safe for concurrent use.
type Store interface {
	Texture(name string) *Texture
	Palette() *Palette
}

// MemoryStore is a Store backed by a map, filled before lighting starts
type MemoryStore struct {
	textures map[string]*Texture
	palette  *Palette
}

// NewMemoryStore creates an empty store using pal for paletted textures
func NewMemoryStore(pal *Palette) *MemoryStore {
	return &MemoryStore{textures: make(map[string]*Texture), palette: pal}
}

// Add registers t under its name, replacing any previous texture
func (s *MemoryStore) Add(t *Texture) {
	s.textures[strings.ToLower(t.Name)] = t
}

func (s *MemoryStore) Texture(name string) *Texture {
	return s.textures[strings.ToLower(name)]
}

func (s *MemoryStore) Palette() *Palette {
	return s.palette
}

// Image extensions tried in order when resolving a texture name
var imageExtensions = []string{".png", ".tga", ".jpg", ".bmp"}

// DirStore loads textures lazily from a directory tree laid out the way the
// map references them: <dir>/<name>.<ext>, with an optional
// <dir>/<name>_glow.<ext> beside it. Paletted .wal files are the fallback.
type DirStore struct {
	dir     string
	palette *Palette
	log     core.Logger

	mu    sync.Mutex
	cache map[string]*Texture
}

// NewDirStore creates a store rooted at dir. pal may be nil, in which case
// .wal textures cannot be used.
func NewDirStore(dir string, pal *Palette, log core.Logger) *DirStore {
	if log == nil {
		log = core.NopLogger{}
	}
	return &DirStore{dir: dir, palette: pal, log: log, cache: make(map[string]*Texture)}
}

func (s *DirStore) Palette() *Palette {
	return s.palette
}

// Texture returns the named texture, loading it on first use. Missing or
// unreadable textures are logged once and cached as nil.
func (s *DirStore) Texture(name string) *Texture {
	key := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.cache[key]; ok {
		return t
	}
	t, err := s.load(name)
	if err != nil {
		s.log.Warnf("texture %s: %v", name, err)
	}
	s.cache[key] = t
	return t
}

func (s *DirStore) load(name string) (*Texture, error) {
	base := filepath.Join(s.dir, filepath.FromSlash(name))

	var tex *Texture
	img, err := loadImage(base)
	switch {
	case err == nil:
		tex = NewTexture(name, img)
	case errors.Is(err, fs.ErrNotExist):
		if s.palette == nil {
			return nil, fmt.Errorf("not found and no palette for .wal fallback")
		}
		data, werr := os.ReadFile(base + ".wal")
		if werr != nil {
			return nil, fmt.Errorf("not found: %w", werr)
		}
		if tex, werr = DecodeWAL(data, s.palette); werr != nil {
			return nil, werr
		}
		tex.Name = name
	default:
		return nil, err
	}

	glow, err := loadImage(base + "_glow")
	switch {
	case err == nil:
		if err := tex.SetGlow(glow); err != nil {
			s.log.Warnf("ignoring glow: %v", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		s.log.Warnf("texture %s: glow: %v", name, err)
	}

	return tex, nil
}

// loadImage tries each known extension on base and decodes the first file
// found. It returns an error wrapping fs.ErrNotExist when none exist.
func loadImage(base string) (image.Image, error) {
	for _, ext := range imageExtensions {
		data, err := os.ReadFile(base + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return DecodeImage(data, ext)
	}
	return nil, fmt.Errorf("%s: %w", base, fs.ErrNotExist)
}

// DecodeImage decodes image bytes, using the TGA decoder for ".tga" and the
// registered image formats otherwise
func DecodeImage(data []byte, ext string) (image.Image, error) {
	if strings.EqualFold(ext, ".tga") {
		return DecodeTGA(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
