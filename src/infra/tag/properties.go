package tag

import (
	"fmt"
	"time"

	"go.senan.xyz/taglib"
)

// Properties are stream parameters read from headers, without decoding audio.
type Properties struct {
	Duration   time.Duration
	Bitrate    int // kbit/s
	SampleRate int
	Channels   int
}

// PropertiesReader reads stream properties through taglib.
type PropertiesReader struct{}

// NewPropertiesReader creates a new PropertiesReader
func NewPropertiesReader() *PropertiesReader {
	return &PropertiesReader{}
}

// ReadProperties returns the duration and average bit rate of filePath.
func (p *PropertiesReader) ReadProperties(filePath string) (Properties, error) {
	props, err := taglib.ReadProperties(filePath)
	if err != nil {
		return Properties{}, fmt.Errorf("failed to read audio properties: %w", err)
	}
	return Properties{
		Duration:   props.Length,
		Bitrate:    int(props.Bitrate),
		SampleRate: int(props.SampleRate),
		Channels:   int(props.Channels),
	}, nil
}
