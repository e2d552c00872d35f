package decoder

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Kind tags the backend implementation behind a Decoder.
type Kind int

const (
	KindNone Kind = iota
	KindPCM
	KindBuiltin
	KindMP3
	KindFLAC
	KindVorbis
	KindOpus
	KindM4A
	KindWebM
)

func (k Kind) String() string {
	switch k {
	case KindPCM:
		return "pcm"
	case KindBuiltin:
		return "builtin"
	case KindMP3:
		return "mp3"
	case KindFLAC:
		return "flac"
	case KindVorbis:
		return "vorbis"
	case KindOpus:
		return "opus"
	case KindM4A:
		return "m4a"
	case KindWebM:
		return "webm"
	default:
		return "none"
	}
}

var extensionKinds = map[string]Kind{
	".pcm":  KindPCM,
	".raw":  KindPCM,
	".wav":  KindBuiltin,
	".wave": KindBuiltin,
	".mp3":  KindMP3,
	".flac": KindFLAC,
	".ogg":  KindVorbis,
	".oga":  KindVorbis,
	".opus": KindOpus,
	".m4a":  KindM4A,
	".aac":  KindM4A,
	".mp4":  KindM4A,
	".webm": KindWebM,
}

// KindForExtension maps a file extension (with or without the dot) to a kind.
func KindForExtension(ext string) Kind {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return extensionKinds[ext]
}

// SupportedExtensions lists, sorted, the extensions whose kind has a
// working backend.
func SupportedExtensions() []string {
	exts := lo.Filter(lo.Keys(extensionKinds), func(ext string, _ int) bool {
		return extensionKinds[ext].Playable()
	})
	slices.Sort(exts)
	return exts
}

// Detect picks the backend for path from its container signature, falling
// back to the extension when the header is not recognized.
func Detect(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return KindForExtension(filepath.Ext(path))
	}
	defer f.Close()

	header := make([]byte, 64)
	n, _ := io.ReadFull(f, header)
	if kind := sniff(header[:n]); kind != KindNone {
		return kind
	}
	return KindForExtension(filepath.Ext(path))
}

func sniff(h []byte) Kind {
	switch {
	case len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WAVE")):
		return KindBuiltin
	case bytes.HasPrefix(h, []byte("fLaC")):
		return KindFLAC
	case bytes.HasPrefix(h, []byte("OggS")):
		if bytes.Contains(h, []byte("OpusHead")) {
			return KindOpus
		}
		return KindVorbis
	case bytes.HasPrefix(h, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return KindWebM
	case len(h) >= 8 && bytes.Equal(h[4:8], []byte("ftyp")):
		return KindM4A
	case bytes.HasPrefix(h, []byte("ID3")):
		return KindMP3
	case len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0 && h[1]&0x06 != 0:
		// Layer bits 00 mark an ADTS (AAC) header, not MPEG audio.
		return KindMP3
	}
	return KindNone
}
