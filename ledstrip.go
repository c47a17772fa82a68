package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/dispatch"
	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/hass"
	"lautenbacher.net/ledstrip/logging"
	"lautenbacher.net/ledstrip/nightlight"
	"lautenbacher.net/ledstrip/platform"
	"lautenbacher.net/ledstrip/pubsub"
	"lautenbacher.net/ledstrip/strip"
	"lautenbacher.net/ledstrip/web"
)

const (
	reloadDebounce = 500 * time.Millisecond
	redisRetry     = 5 * time.Second
)

// App owns one generation of the pipeline. A reload shuts it down and
// initialises it again from the config file.
type App struct {
	ossignal   chan os.Signal
	cfile      string
	realHW     bool
	logStarted bool

	conf       *config.Config
	platform   platform.Platform
	controller *controller.Controller
	animator   *strip.Animator
	queue      *dispatch.Queue
	redis      *redis.Client

	cancel     context.CancelFunc
	shutdownWg sync.WaitGroup
}

func NewApp(ossignal chan os.Signal, cfile string, realHW bool) *App {
	return &App{
		ossignal: ossignal,
		cfile:    cfile,
		realHW:   realHW,
	}
}

// lightControl hands the keyboard both the queue and the current state.
type lightControl struct {
	queue      *dispatch.Queue
	controller *controller.Controller
}

func (c lightControl) Submit(cmd controller.Command)      { c.queue.Submit(cmd) }
func (c lightControl) RenderState() controller.LightState { return c.controller.RenderState() }

// initialise builds and starts the pipeline. With restore set the light
// continues in that state, otherwise it starts switched off with the
// configured initial effect.
func (s *App) initialise(restore *controller.LightState) error {
	conf, err := config.ReadConfig(s.cfile)
	if err != nil {
		return err
	}
	if s.realHW {
		conf.Hardware.Platform = config.PlatformRPI
	}
	s.conf = conf
	s.initLogging()

	slog.Info("Initialising LED strip", "config", s.cfile, "platform", conf.Hardware.Platform, "leds", conf.Strip.LedsTotal)

	s.platform, err = platform.New(conf, s.ossignal)
	if err != nil {
		return err
	}
	if err := s.platform.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	<-s.platform.Ready()

	buffers := strip.NewBuffers(conf.Strip.LedsTotal)
	registry := effect.NewRegistry(nil)
	for name, tuning := range conf.Strip.Effects {
		registry.Tune(effect.Name(name), tuning.Apply)
	}
	s.controller = controller.New(buffers, registry, conf.Strip.DefaultBrightness)
	if restore != nil {
		s.controller.Restore(*restore)
	} else {
		s.controller.ApplyCommand(controller.Command{}.WithEffect(effect.Name(conf.Strip.InitialEffect)))
	}

	s.animator = strip.NewAnimator(buffers, s.platform, conf.Strip.TickDelay)
	s.queue = dispatch.New(s.controller, dispatch.DefaultLimit)
	if tui, ok := s.platform.(*platform.TUIPlatform); ok {
		tui.SetControl(lightControl{queue: s.queue, controller: s.controller})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.goRun(func() { s.animator.Run(ctx) })
	s.goRun(func() { s.queue.Run(ctx) })

	codec := hass.NewCodec(conf.Redis.Name, hass.Topics{Prefix: conf.Redis.DiscoveryPrefix, ClientID: conf.Redis.ClientID}, registry)

	if conf.Web.Enabled {
		server := web.NewServer(codec, s.queue, s.controller, registry, s.animator.Frames(), s.cfile).
			WithAllowedOrigins(conf.Web.AllowedOrigins...)
		s.goRun(func() {
			if err := server.ListenAndServe(ctx, conf.Web.Listen); err != nil {
				slog.Error("Web server failed", "error", err)
			}
		})
	}

	if conf.Redis.Enabled {
		s.startRedis(ctx, codec)
	}

	if conf.NightLight.Enabled {
		scheduler := nightlight.NewScheduler(s.queue, conf.NightLight.Latitude, conf.NightLight.Longitude,
			conf.NightLight.Brightness, effect.Name(conf.NightLight.Effect))
		s.goRun(func() { scheduler.Run(ctx) })
	}
	return nil
}

func (s *App) goRun(fn func()) {
	s.shutdownWg.Add(1)
	go func() {
		defer s.shutdownWg.Done()
		fn()
	}()
}

// initLogging configures logging once and afterwards only follows level
// and destination changes.
func (s *App) initLogging() {
	tui := s.conf.Hardware.Platform == config.PlatformTUI
	opts := s.conf.Logging.HW
	if tui {
		opts = s.conf.Logging.TUI
	}
	if !s.logStarted {
		if err := logging.Init(tui, logging.Options{Level: opts.Level, Format: opts.Format, File: opts.File}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
		}
		s.logStarted = true
		return
	}
	logging.SetLevel(opts.Level)
	if !tui && opts.File == "" {
		logging.SetOutput(os.Stderr)
	}
}

// startRedis keeps the transport running across broker restarts. An
// unreachable broker never blocks the light; the strip shows the
// connection state instead.
func (s *App) startRedis(ctx context.Context, codec *hass.Codec) {
	conf := s.conf.Redis
	indicator := s.controller
	indicator.ShowStatus(controller.StatusConnecting)
	client, err := pubsub.NewClient(ctx, conf.Addr, conf.Password, conf.DB)
	if err != nil {
		slog.Error("Redis unreachable, retrying in background", "error", err, "retry", redisRetry)
		s.goRun(func() {
			pubsub.FlashFailed(ctx, indicator)
			s.retryRedis(ctx, codec, indicator)
		})
		return
	}
	s.redis = client
	s.goRun(func() { s.runTransport(ctx, client, codec, indicator) })
}

// retryRedis connects in the background. Only the first failure is
// shown on the strip.
func (s *App) retryRedis(ctx context.Context, codec *hass.Codec, indicator pubsub.Indicator) {
	conf := s.conf.Redis
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(redisRetry):
		}
		client, err := pubsub.NewClient(ctx, conf.Addr, conf.Password, conf.DB)
		if err != nil {
			slog.Debug("Redis still unreachable", "error", err)
			continue
		}
		s.redis = client
		s.runTransport(ctx, client, codec, indicator)
		return
	}
}

func (s *App) runTransport(ctx context.Context, client *redis.Client, codec *hass.Codec, indicator pubsub.Indicator) {
	transport := pubsub.New(client, codec, s.queue, s.queue.States()).WithIndicator(indicator)
	for {
		err := transport.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Redis transport stopped, retrying", "error", err, "retry", redisRetry)
		pubsub.FlashFailed(ctx, indicator)
		select {
		case <-ctx.Done():
			return
		case <-time.After(redisRetry):
		}
	}
}

// shutdown stops the pipeline and returns the last light state.
func (s *App) shutdown() controller.LightState {
	var state controller.LightState
	if s.controller != nil {
		state = s.controller.RenderState()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.shutdownWg.Wait()
	if s.controller != nil {
		s.controller.Close()
		s.controller = nil
	}
	s.cancel = nil
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Warn("Error closing redis client", "error", err)
		}
		s.redis = nil
	}
	if s.platform != nil {
		s.platform.Stop()
		s.platform = nil
	}
	slog.Info("Pipeline stopped", "state", state)
	return state
}

// configWatcher turns writes to the config file into SIGHUP.
type configWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// watchConfig watches the directory so editors that replace the file
// are noticed too.
func watchConfig(cfile string, ossignal chan<- os.Signal) (*configWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(cfile)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfile, err)
	}
	w := &configWatcher{watcher: watcher, done: make(chan struct{})}
	target := filepath.Clean(cfile)

	go func() {
		defer close(w.done)
		var debounce <-chan time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == target && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					debounce = time.After(reloadDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			case <-debounce:
				debounce = nil
				slog.Info("Config file changed, reloading", "file", cfile)
				select {
				case ossignal <- syscall.SIGHUP:
				default:
				}
			}
		}
	}()
	return w, nil
}

func (w *configWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// run handles signals until the process should exit.
func (s *App) run() error {
	for sig := range s.ossignal {
		switch sig {
		case syscall.SIGHUP:
			slog.Info("Reloading configuration")
			state := s.shutdown()
			if err := s.initialise(&state); err != nil {
				s.shutdown()
				return fmt.Errorf("reload failed: %w", err)
			}
		default:
			slog.Info("Received signal, exiting", "signal", sig)
			s.shutdown()
			return nil
		}
	}
	return errors.New("signal channel closed")
}

func main() {
	cfile := flag.String("config", config.CONFILE, "Config file to use")
	realp := flag.Bool("real", false, "Set to true if program runs on real hardware")
	flag.Parse()

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	app := NewApp(ossignal, *cfile, *realp)
	if err := app.initialise(nil); err != nil {
		app.shutdown()
		logging.Close()
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	watcher, err := watchConfig(*cfile, ossignal)
	if err != nil {
		slog.Warn("Config reload on file change disabled", "error", err)
	}

	exitCode := 0
	if err := app.run(); err != nil {
		slog.Error("Exiting", "error", err)
		exitCode = 1
	}
	if watcher != nil {
		watcher.Close()
	}
	logging.Close()
	os.Exit(exitCode)
}
