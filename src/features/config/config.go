package config

// Config holds the application configuration.
type Config struct {
	LibraryPath string    `yaml:"libraryPath" validate:"required"`
	Logger      Logger    `yaml:"logger"`
	Playback    Playback  `yaml:"playback"`
	Library     Library   `yaml:"library"`
	Artwork     Artwork   `yaml:"artwork"`
	Playlists   Playlists `yaml:"playlists"`
	Remote      Remote    `yaml:"remote"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text logfmt"`
	// File receives the log output instead of stderr, which the player owns.
	File string `yaml:"file"`
}

// Playback holds the output device and control loop settings.
type Playback struct {
	SampleRate      int     `yaml:"sampleRate" validate:"gte=8000,lte=192000"`
	BufferMillis    int     `yaml:"bufferMillis" validate:"gte=10,lte=2000"`
	TickMillis      int     `yaml:"tickMillis" validate:"gte=10,lte=1000"`
	SeekStepSeconds int     `yaml:"seekStepSeconds" validate:"gte=1"`
	Repeat          string  `yaml:"repeat" validate:"omitempty,oneof=off song list"`
	Shuffle         bool    `yaml:"shuffle"`
	Volume          float64 `yaml:"volume" validate:"gte=-10,lte=2"`
}

// Library holds the scan, cache and watch settings.
type Library struct {
	Extensions []string `yaml:"extensions"`
	Cache      Cache    `yaml:"cache"`
	Watch      bool     `yaml:"watch"`
	Sort       string   `yaml:"sort" validate:"omitempty,oneof=name modified"`
}

// Cache holds the configuration for the library snapshot database
type Cache struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Artwork holds configuration for cover handling
type Artwork struct {
	CoverSize    int      `yaml:"coverSize" validate:"gte=0"`
	SidecarNames []string `yaml:"sidecarNames"`
	CacheDir     string   `yaml:"cacheDir"`
}

// Playlists holds the m3u locations.
type Playlists struct {
	Dir     string `yaml:"dir"`
	Special string `yaml:"special"`
}

// Remote hold the configuration for the Fiber remote control server
type Remote struct {
	Enabled     bool   `yaml:"enabled"`
	Port        uint32 `yaml:"port"`
	PrintRoutes bool   `yaml:"show_routes"`
}
