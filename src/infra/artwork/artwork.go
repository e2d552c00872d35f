package artwork

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

var sidecarExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Cover is a decoded cover ready for display.
type Cover struct {
	Image  *image.RGBA
	Width  int
	Height int
	Color  color.RGBA
	// Path is a file holding the cover, for collaborators that want a path
	// rather than pixels.
	Path string
}

// Service finds, decodes and scales cover art.
type Service struct {
	config *config.Manager
}

// NewService creates a new artwork service
func NewService(config *config.Manager) *Service {
	return &Service{
		config: config,
	}
}

// FromEmbedded builds a cover from an embedded picture. The scaled cover is
// written to the cover cache under key so it can be referenced by path.
func (s *Service) FromEmbedded(key string, data []byte) (*Cover, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded artwork: %w", err)
	}
	cover := s.prepare(img)
	if path, err := s.cache(key, cover.Image); err != nil {
		slog.Debug("Failed to cache embedded artwork", "key", key, "error", err)
	} else {
		cover.Path = path
	}
	return cover, nil
}

// FromSidecar looks for a cover image next to audioPath.
func (s *Service) FromSidecar(audioPath string) (*Cover, error) {
	path := s.FindSidecar(filepath.Dir(audioPath))
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork image %s: %w", path, err)
	}
	cover := s.prepare(img)
	cover.Path = path
	return cover, nil
}

// FindSidecar returns the first configured cover file in dir, matching names
// case-insensitively, or "" when there is none.
func (s *Service) FindSidecar(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, base := range s.config.Get().Artwork.SidecarNames {
		for _, ext := range sidecarExtensions {
			if name, ok := names[strings.ToLower(base)+ext]; ok {
				return filepath.Join(dir, name)
			}
		}
	}
	return ""
}

func (s *Service) prepare(img image.Image) *Cover {
	if size := s.config.Get().Artwork.CoverSize; size > 0 {
		img = resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)
	}
	rgba := ToRGBA(img)
	b := rgba.Bounds()
	return &Cover{
		Image:  rgba,
		Width:  b.Dx(),
		Height: b.Dy(),
		Color:  DominantColor(rgba),
	}
}

func (s *Service) cache(key string, img image.Image) (string, error) {
	dir := s.config.Get().Artwork.CacheDir
	if dir == "" || key == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork cache: %w", err)
	}
	path := filepath.Join(dir, key+".jpg")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	outFile, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artwork file: %w", err)
	}
	defer outFile.Close()

	if err := jpeg.Encode(outFile, img, &jpeg.Options{Quality: 85}); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode artwork image: %w", err)
	}
	return path, nil
}

// ToRGBA converts img to an RGBA buffer anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// DominantColor returns the average pixel of img.
func DominantColor(img image.Image) color.RGBA {
	b := img.Bounds()
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += uint64(pr >> 8)
			g += uint64(pg >> 8)
			bl += uint64(pb >> 8)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 0xff}
}
