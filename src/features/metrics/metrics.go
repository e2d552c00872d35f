package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the player's Prometheus instruments. A nil *Collector is
// valid and records nothing, so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	songsLoaded       *prometheus.CounterVec
	loadSeconds       prometheus.Histogram
	preloadsDiscarded prometheus.Counter
	promotions        prometheus.Counter
	skips             *prometheus.CounterVec
	seekRequests      prometheus.Counter
	decoderSeeks      prometheus.Counter
	playbackState     *prometheus.GaugeVec
	libraryEntries    *prometheus.GaugeVec
	scanSeconds       prometheus.Histogram
	playlistLength    prometheus.Gauge
}

// NewCollector creates the instruments on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		songsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "songs_loaded_total",
			Help:      "Songs loaded into a pipeline slot, by result.",
		}, []string{"result"}),
		loadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soulplay",
			Name:      "song_load_seconds",
			Help:      "Time spent loading a song and opening its decoder.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		preloadsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "preloads_discarded_total",
			Help:      "Finished preloads thrown away because a newer request superseded them.",
		}),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "slot_promotions_total",
			Help:      "Staging slots promoted to live.",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "skips_total",
			Help:      "Skip requests, by kind.",
		}, []string{"kind"}),
		seekRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "seek_requests_total",
			Help:      "Seek commands received.",
		}),
		decoderSeeks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulplay",
			Name:      "decoder_seeks_total",
			Help:      "Decoder repositions issued after coalescing.",
		}),
		playbackState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "soulplay",
			Name:      "playback_state",
			Help:      "1 for the current playback state, 0 otherwise.",
		}, []string{"state"}),
		libraryEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "soulplay",
			Name:      "library_entries",
			Help:      "Library tree entries, by kind.",
		}, []string{"kind"}),
		scanSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soulplay",
			Name:      "library_scan_seconds",
			Help:      "Duration of library scans and rescans.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		playlistLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "soulplay",
			Name:      "playlist_length",
			Help:      "Nodes in the live playlist.",
		}),
	}
	c.registry.MustRegister(
		c.songsLoaded, c.loadSeconds, c.preloadsDiscarded, c.promotions,
		c.skips, c.seekRequests, c.decoderSeeks, c.playbackState,
		c.libraryEntries, c.scanSeconds, c.playlistLength,
	)
	return c
}

// Registry returns the registry the instruments live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) SongLoaded(d time.Duration, hasErrors bool) {
	if c == nil {
		return
	}
	result := "ok"
	if hasErrors {
		result = "error"
	}
	c.songsLoaded.WithLabelValues(result).Inc()
	c.loadSeconds.Observe(d.Seconds())
}

func (c *Collector) PreloadDiscarded() {
	if c != nil {
		c.preloadsDiscarded.Inc()
	}
}

func (c *Collector) SlotPromoted() {
	if c != nil {
		c.promotions.Inc()
	}
}

func (c *Collector) Skip(kind string) {
	if c != nil {
		c.skips.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) SeekRequested() {
	if c != nil {
		c.seekRequests.Inc()
	}
}

func (c *Collector) DecoderSeek() {
	if c != nil {
		c.decoderSeeks.Inc()
	}
}

// PlaybackState marks state as the current one among all.
func (c *Collector) PlaybackState(state string, all ...string) {
	if c == nil {
		return
	}
	for _, s := range all {
		c.playbackState.WithLabelValues(s).Set(0)
	}
	c.playbackState.WithLabelValues(state).Set(1)
}

func (c *Collector) LibraryScanned(d time.Duration, dirs, songs, enqueued int) {
	if c == nil {
		return
	}
	c.scanSeconds.Observe(d.Seconds())
	c.LibraryEnqueued(enqueued)
	c.libraryEntries.WithLabelValues("directory").Set(float64(dirs))
	c.libraryEntries.WithLabelValues("song").Set(float64(songs))
}

func (c *Collector) LibraryEnqueued(enqueued int) {
	if c != nil {
		c.libraryEntries.WithLabelValues("enqueued").Set(float64(enqueued))
	}
}

func (c *Collector) PlaylistLength(n int) {
	if c != nil {
		c.playlistLength.Set(float64(n))
	}
}
