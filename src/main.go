package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/features/controller"
	"github.com/contre95/soulplay/src/features/hosting"
	"github.com/contre95/soulplay/src/features/library"
	"github.com/contre95/soulplay/src/features/loading"
	"github.com/contre95/soulplay/src/features/logging"
	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/features/playback"
	"github.com/contre95/soulplay/src/features/playlists"
	"github.com/contre95/soulplay/src/infra/artwork"
	"github.com/contre95/soulplay/src/infra/database"
	"github.com/contre95/soulplay/src/infra/decoder"
	"github.com/contre95/soulplay/src/infra/output"
	"github.com/contre95/soulplay/src/infra/tag"
	"github.com/contre95/soulplay/src/infra/watcher"
	"github.com/contre95/soulplay/src/music"
	"github.com/gopxl/beep/v2"
	"github.com/spf13/cobra"
)

type Params struct {
	Paths    []string `pos:"true" optional:"true" help:"Files or directories to enqueue."`
	Config   string   `short:"c" optional:"true" help:"Path to the configuration file."`
	Library  string   `short:"l" optional:"true" help:"Library directory, overrides libraryPath."`
	Playlist string   `short:"p" optional:"true" help:"m3u playlist to start from."`
	NoCache  bool     `optional:"true" help:"Scan the library instead of reading the cache."`
	NoRemote bool     `optional:"true" help:"Do not start the remote control server."`
}

// trackInfo combines the tag and header readers for playlist export.
type trackInfo struct {
	*tag.TagReader
	*tag.PropertiesReader
}

func main() {
	boa.CmdT[Params]{
		Use:   "soulplay [paths...]",
		Short: "Terminal music player",
		Long:  "Plays a music library from the terminal with gapless preloading, a remote control API and m3u playlists.",
		ParamEnrich: boa.ParamEnricherCombine(
			boa.ParamEnricherBool,
			boa.ParamEnricherName,
		),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params); err != nil {
				fmt.Fprintln(os.Stderr, "soulplay:", err)
				os.Exit(1)
			}
		},
	}.Run()
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "soulplay", "config.yaml")
	}
	return "config.yaml"
}

func run(params *Params) error {
	if params.Config == "" {
		params.Config = defaultConfigPath()
	}
	cfgManager, err := config.Load(params.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override the file for this run only.
	cfg := *cfgManager.Get()
	if params.Library != "" {
		cfg.LibraryPath = params.Library
	}
	cfg.Library.Cache.Enabled = cfg.Library.Cache.Enabled && !params.NoCache
	cfg.Remote.Enabled = cfg.Remote.Enabled && !params.NoRemote
	cfgManager.Update(&cfg)

	// Setup default logger with slog
	logger, logFile := logging.SetupLogger(cfgManager)
	defer logFile.Close()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()

	// Audio output
	rate := beep.SampleRate(cfg.Playback.SampleRate)
	spk, err := output.NewSpeaker(rate, time.Duration(cfg.Playback.BufferMillis)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer spk.Close()
	if !output.AudioAvailable {
		slog.Warn("Built without an audio backend, playback is silent")
	}

	// Loading pipeline
	tagReader := tag.NewTagReader()
	propsReader := tag.NewPropertiesReader()
	loader := loading.NewLoader(tagReader, propsReader, artwork.NewService(cfgManager), decoder.DefaultOptions())
	pipeline := loading.NewPipeline(loader, decoder.DefaultOptions(), rate, spk, collector)
	defer pipeline.Close()
	spk.Play(pipeline.Streamer(), cfg.Playback.Volume)

	// Player
	repeat, err := playback.ParseRepeat(cfg.Playback.Repeat)
	if err != nil {
		return err
	}
	display := controller.NewDisplay(os.Stdout)
	player := playback.NewPlayer(pipeline, music.NewPlayList(), playback.Notifiers(playback.NewLogNotifier(), display), collector, playback.Options{
		SeekStep: time.Duration(cfg.Playback.SeekStepSeconds) * time.Second,
		Repeat:   repeat,
		Shuffle:  cfg.Playback.Shuffle,
	})

	// Library
	var treeCache music.TreeCache
	if cfg.Library.Cache.Enabled {
		db, err := database.NewSqliteTreeCache(cfg.Library.Cache.Path)
		if err != nil {
			slog.Warn("Library cache unavailable, scanning instead", "path", cfg.Library.Cache.Path, "error", err)
		} else {
			defer db.Close()
			treeCache = db
		}
	}
	libraryService := library.NewService(cfgManager, treeCache, player, collector)
	if err := libraryService.Load(ctx); err != nil {
		slog.Warn("Library not loaded", "path", cfg.LibraryPath, "error", err)
	} else if cfg.Library.Watch {
		events := make(chan watcher.FileEvent, 16)
		w, err := watcher.NewWatcher(events, cfg.Library.Extensions, watcher.DefaultDebounce)
		if err == nil {
			err = w.Start(ctx, cfg.LibraryPath)
		}
		if err != nil {
			slog.Warn("Library watcher not started", "error", err)
		} else {
			defer w.Stop()
			go libraryService.Watch(ctx, events)
		}
	}

	// Playlists
	playlistsService := playlists.NewService(cfgManager, libraryService, player, trackInfo{tagReader, propsReader})
	autoplay := false
	if params.Playlist != "" {
		if _, err := playlistsService.Load(ctx, params.Playlist); err != nil {
			return err
		}
		autoplay = true
	}
	if len(params.Paths) > 0 {
		if _, err := libraryService.EnqueuePaths(ctx, params.Paths); err != nil {
			return err
		}
		autoplay = true
	}

	// Remote control
	if cfg.Remote.Enabled {
		server := hosting.NewServer(cfgManager, collector, playback.NewHandler(player, spk, output.VolumeStep), libraryService, playlistsService)
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("Remote control stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("Failed to shut down remote control", "error", err)
			}
		}()
	}

	go player.Run(ctx, time.Duration(cfg.Playback.TickMillis)*time.Millisecond)
	if autoplay {
		if err := player.Play(ctx); err != nil && !errors.Is(err, playback.ErrEmptyPlaylist) {
			slog.Error("Failed to start playback", "error", err)
		}
	}

	keyboard := controller.NewKeyboard(player, spk, playlistsService, output.VolumeStep, os.Stdout)
	err = keyboard.Run(ctx, os.Stdin)
	cancel()
	player.Stop()
	slog.Info("Player stopped")
	return err
}
