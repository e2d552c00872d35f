package config

import (
	"os"
	"path/filepath"

	"github.com/contre95/soulplay/src/infra/decoder"
)

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "soulplay")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "soulplay")
	}
	playlistDir := "./playlists"
	if dir, err := os.UserConfigDir(); err == nil {
		playlistDir = filepath.Join(dir, "soulplay", "playlists")
	}
	return &Config{
		LibraryPath: "./music",
		Logger: Logger{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(cacheDir, "soulplay.log"),
		},
		Playback: Playback{
			SampleRate:      44100,
			BufferMillis:    100,
			TickMillis:      100,
			SeekStepSeconds: 5,
			Repeat:          "off",
			Shuffle:         false,
			Volume:          0,
		},
		Library: Library{
			Extensions: decoder.SupportedExtensions(),
			Cache: Cache{
				Enabled: true,
				Path:    filepath.Join(cacheDir, "library.db"),
			},
			Watch: true,
			Sort:  "name",
		},
		Artwork: Artwork{
			CoverSize:    256,
			SidecarNames: []string{"cover", "folder", "front", "album", "albumart"},
			CacheDir:     filepath.Join(cacheDir, "covers"),
		},
		Playlists: Playlists{
			Dir:     playlistDir,
			Special: "kept.m3u",
		},
		Remote: Remote{
			Enabled:     true,
			Port:        3636,
			PrintRoutes: false,
		},
	}
}
