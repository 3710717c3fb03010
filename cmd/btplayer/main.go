// Command btplayer is the button-operated Bluetooth music player daemon.
// Run with --mock to use simulated hardware (no GPIO, I2C or BlueZ required).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"periph.io/x/conn/v3"

	"github.com/micro-nova/btplayer/internal/api"
	"github.com/micro-nova/btplayer/internal/audio"
	"github.com/micro-nova/btplayer/internal/audio/otosink"
	"github.com/micro-nova/btplayer/internal/auth"
	"github.com/micro-nova/btplayer/internal/buttons"
	"github.com/micro-nova/btplayer/internal/config"
	"github.com/micro-nova/btplayer/internal/console"
	"github.com/micro-nova/btplayer/internal/display"
	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/hardware"
	"github.com/micro-nova/btplayer/internal/identity"
	"github.com/micro-nova/btplayer/internal/link"
	"github.com/micro-nova/btplayer/internal/playback"
	"github.com/micro-nova/btplayer/internal/player"
	"github.com/micro-nova/btplayer/internal/storage"
	"github.com/micro-nova/btplayer/internal/ui"
	"github.com/micro-nova/btplayer/internal/zeroconf"
)

// Output format of the sound device. Tracks are fed unresampled.
const (
	outputRate     = 44100
	outputChannels = 2
)

func main() {
	var (
		cfgPath     = flag.String("config", "/etc/btplayer/config.json", "config file")
		mock        = flag.Bool("mock", false, "use mock hardware (no GPIO, I2C or BlueZ required)")
		keyboard    = flag.Bool("keyboard", false, "drive the buttons from the terminal (a/s/d, q quits)")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		consoleDev  = flag.String("console", "", "mirror logs to this serial device")
		consoleBaud = flag.Int("console-baud", console.DefaultBaud, "serial console baud rate")
		writeConfig = flag.Bool("write-config", false, "write the effective config back to -config and exit")
	)
	flag.Parse()

	level := parseLevel(*logLevel)
	if *debug {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if *consoleDev != "" {
		port, err := console.Open(*consoleDev, *consoleBaud)
		if err != nil {
			slog.New(handler).Warn("console unavailable", "err", err)
		} else {
			defer port.Close()
			handler = console.Tee{handler, slog.NewTextHandler(port, &slog.HandlerOptions{Level: level})}
		}
	}
	slog.SetDefault(slog.New(handler))

	store := config.NewJSONStore(*cfgPath)
	cfg, err := store.Load()
	if err != nil {
		slog.Error("cannot read config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if *writeConfig {
		if err := os.MkdirAll(filepath.Dir(*cfgPath), 0755); err != nil {
			slog.Error("cannot create config directory", "err", err)
			os.Exit(1)
		}
		if err := store.Save(cfg); err != nil {
			slog.Error("save config", "err", err)
			os.Exit(1)
		}
		if err := store.Flush(); err != nil {
			slog.Error("write config", "err", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", *cfgPath)
		return
	}
	cfgDir := filepath.Dir(*cfgPath)

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ch := events.NewChannel(cfg.EventCapacity)
	bus := events.NewBus()

	// Display. Failure here leaves the player running headless.
	eng, closeDisplay := openDisplay(cfg, *mock)
	defer closeDisplay()

	// Storage
	lib := storage.NewDir(cfg.MusicDir, audio.Supported)
	if err := lib.Init(); err != nil {
		slog.Warn("music storage unavailable", "dir", cfg.MusicDir, "err", err)
		post(ch, events.Event{Kind: events.StorageNotFound})
	}
	go func() {
		if err := lib.Watch(ctx, ch, cfg.TrackLimit, storage.DefaultSettle); err != nil {
			slog.Warn("storage watch stopped", "err", err)
		}
	}()

	// Bluetooth link
	var lnk audio.Link
	if *mock {
		lnk = link.Static(true)
	} else {
		mon := link.NewMonitor(link.BlueZ{}, ch, cfg.BluetoothAddress, cfg.LinkPoll.D())
		go mon.Run(ctx)
		lnk = mon
	}

	// Audio output
	var out audio.Sink
	if *mock {
		out = audio.NewNullSink()
	} else if s, err := otosink.New(outputRate, outputChannels, ch); err != nil {
		slog.Warn("audio output unavailable, discarding samples", "err", err)
		out = audio.NewNullSink()
	} else {
		defer s.Close()
		out = s
	}
	post(ch, events.Event{Kind: events.AudioReady})

	// Playback
	next, _ := playback.ParseNextPolicy(cfg.NextPolicy)
	pos, _ := playback.ParsePositionSource(cfg.PositionSource)
	ctl := playback.New(playback.Config{
		Tick:         cfg.PlaybackTick.D(),
		Next:         next,
		Position:     pos,
		SinkRate:     outputRate,
		SinkChannels: outputChannels,
	}, audio.NewFileDecoder(lib), audio.NewLinkedSink(lnk, out), nil)
	if err := ctl.SetVolume(cfg.Volume); err != nil {
		slog.Warn("set volume", "err", err)
	}

	deps := player.Deps{
		Channel:    ch,
		Controller: ctl,
		Library:    lib,
		Link:       lnk,
		Bus:        bus,
	}
	if eng != nil {
		u := ui.New(eng, ctl, ui.Options{
			ErrorFor: cfg.ErrorBanner.D(),
			InfoFor:  cfg.InfoBanner.D(),
			Linked:   lnk.Connected,
		})
		ctl.SetObserver(u)
		u.ShowInfo("Ready")
		deps.UI = u
		deps.Display = eng
	}
	p := player.New(player.Config{
		Tick:           cfg.PlaybackTick.D(),
		RenderInterval: cfg.RenderInterval.D(),
		DisplayIdle:    cfg.DisplayIdle.D(),
		TrackLimit:     cfg.TrackLimit,
	}, deps)
	if n, err := p.LoadLibrary(); err != nil {
		slog.Warn("initial library scan failed", "err", err)
	} else {
		slog.Info("library loaded", "tracks", n)
	}

	// Buttons
	pins, closePins, err := openPins(ctx, cancel, cfg, *mock, *keyboard)
	if err != nil {
		slog.Error("button initialization failed", "err", err)
		os.Exit(1)
	}
	defer closePins()
	window := buttons.WindowTicks(cfg.Debounce.D(), cfg.DebounceTick.D())
	deb := buttons.New(pins, ch, window)
	go deb.Run(ctx, cfg.DebounceTick.D())

	// HTTP API
	authSvc, err := auth.NewService(cfgDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	srv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      api.NewRouter(p, ch, authSvc, bus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  120 * time.Second,
	}
	if cfg.APIAddr != "" {
		go func() {
			slog.Info("btplayer listening", "addr", cfg.APIAddr, "mock", *mock, "config", *cfgPath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "err", err)
			}
		}()

		if cfg.MDNS {
			id := identity.Get(cfgDir)
			zc := zeroconf.New(id.Hostname, apiPort(cfg.APIAddr), id.TXT()...)
			go func() {
				if err := zc.Start(ctx); err != nil {
					slog.Warn("zeroconf failed", "err", err)
				}
			}()
		}
	}

	if err := p.Run(ctx); err != nil {
		slog.Error("player loop failed", "err", err)
	}
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}
	slog.Info("shutdown complete", "dropped_events", ch.Dropped())
}

// openDisplay brings up the panel. It returns nil when no display could be
// initialized.
func openDisplay(cfg *config.Config, mock bool) (*display.Engine, func()) {
	var (
		bus    conn.Conn
		closer io.Closer
	)
	if mock {
		bus = hardware.NewMockConn()
	} else {
		if cfg.DisplayResetPin != "" {
			if err := hardware.PulseReset(cfg.DisplayResetPin); err != nil {
				slog.Warn("display reset failed", "err", err)
			}
		}
		c, cl, err := hardware.OpenI2C(cfg.I2CBus, cfg.DisplayAddr)
		if err != nil {
			slog.Warn("display unavailable, running headless", "err", err)
			return nil, func() {}
		}
		bus, closer = c, cl
	}

	eng := display.New(bus, display.Options{
		Contrast:           byte(cfg.Contrast),
		TransfersPerSecond: cfg.BusTransfersPerSec,
	})
	if err := eng.Init(); err != nil {
		slog.Warn("display init failed, running headless", "err", err)
		closeBus(closer)
		return nil, func() {}
	}
	return eng, func() {
		_ = eng.Sleep()
		closeBus(closer)
	}
}

// openPins returns the three button inputs in prev, play, next order.
func openPins(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mock, keyboard bool) ([buttons.NumButtons]hardware.Pin, func(), error) {
	var pins [buttons.NumButtons]hardware.Pin

	if keyboard {
		restore, err := hardware.RawStdin()
		if err != nil {
			return pins, nil, err
		}
		keys := hardware.NewKeyPins(hardware.DefaultKeyHold)
		for i := range pins {
			pins[i] = keys.Pin(i)
		}
		go func() {
			if err := keys.Run(ctx, os.Stdin); err != nil && !errors.Is(err, hardware.ErrQuit) {
				slog.Warn("keyboard stopped", "err", err)
			}
			cancel()
		}()
		return pins, restore, nil
	}

	if mock {
		for i := range pins {
			pins[i] = hardware.NewMockPin()
		}
		return pins, func() {}, nil
	}

	var opened []*hardware.GPIOPin
	closeAll := func() {
		for _, p := range opened {
			_ = p.Close()
		}
	}
	for i, name := range []string{cfg.Buttons.Prev, cfg.Buttons.Play, cfg.Buttons.Next} {
		p, err := hardware.OpenButtonPin(name)
		if err != nil {
			closeAll()
			return pins, nil, fmt.Errorf("button %s: %w", buttons.Button(i), err)
		}
		opened = append(opened, p)
		pins[i] = p
	}
	return pins, closeAll, nil
}

// post queues ev, logging it when the channel is full.
func post(out events.Poster, ev events.Event) {
	if err := out.Post(ev); err != nil {
		slog.Warn("event dropped", "event", ev, "err", err)
	}
}

func closeBus(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func apiPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return port
}
