package playlists

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// M3UEntry is one song line of an m3u file.
type M3UEntry struct {
	Path     string
	Title    string
	Duration time.Duration
}

// ParseM3U parses M3U content and extracts song paths. Relative paths are
// resolved against baseDir.
func ParseM3U(content, baseDir string) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		path := strings.Trim(line, "\"'")
		if path == "" {
			continue
		}
		path = strings.TrimPrefix(path, "file://")
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		paths = append(paths, filepath.Clean(path))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing M3U content: %w", err)
	}

	return paths, nil
}

// GenerateM3U generates extended M3U content. Unknown durations are
// written as -1.
func GenerateM3U(entries []M3UEntry) string {
	var builder strings.Builder
	builder.WriteString("#EXTM3U\n")

	for _, e := range entries {
		seconds := int(e.Duration.Seconds())
		if e.Duration <= 0 {
			seconds = -1
		}
		title := e.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		}
		fmt.Fprintf(&builder, "#EXTINF:%d,%s\n", seconds, title)
		builder.WriteString(e.Path)
		builder.WriteString("\n")
	}

	return builder.String()
}
