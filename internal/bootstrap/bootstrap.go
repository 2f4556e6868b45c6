// Package bootstrap assembles the daemon: configuration, logging, the
// event bus, the domain services and the HTTP surface. Startup runs as
// an ordered step graph; shutdown drains the errgroup after SIGINT or
// SIGTERM with a hard timeout.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"audio-notify-server-go/internal/domain/eventbus"
	"audio-notify-server-go/internal/domain/notify"
	"audio-notify-server-go/internal/domain/process"
	"audio-notify-server-go/internal/domain/sound"
	"audio-notify-server-go/internal/domain/speech"
	platformconfig "audio-notify-server-go/internal/platform/config"
	platformerrors "audio-notify-server-go/internal/platform/errors"
	platformlogging "audio-notify-server-go/internal/platform/logging"
	httptransport "audio-notify-server-go/internal/transport/http"
	wstransport "audio-notify-server-go/internal/transport/ws"
)

const (
	shutdownTimeout     = 15 * time.Second
	httpShutdownTimeout = 10 * time.Second
)

// Options carries the command-line overrides into the init graph. Zero
// values mean "use the configured or built-in default".
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	SoundFile  string
	Debug      bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts       Options
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	bus        *eventbus.Bus
	dispatcher *notify.Dispatcher
	synth      *speech.Synthesizer
	wsService  *wstransport.Service
}

// Run starts the daemon and blocks until shutdown completes.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	defer logger.Close()
	defer state.bus.Stop()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph describes the startup steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "domain:init",
			Title:     "Initialise notification services",
			DependsOn: []string{"logging:init", "eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initDomainStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader()
	if state.opts.ConfigPath != "" {
		loader = loader.WithPath(state.opts.ConfigPath)
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}

	cfg := result.Config
	if state.opts.Host != "" {
		cfg.Server.Host = state.opts.Host
	}
	if state.opts.Port > 0 {
		cfg.Server.Port = state.opts.Port
	}
	if state.opts.SoundFile != "" {
		cfg.Notify.SoundFile = state.opts.SoundFile
	}
	if state.opts.Debug {
		cfg.Log.Level = "debug"
	}

	state.config = cfg
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}
	state.logger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, source)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New(state.config.Web.EventWorkers)
	state.bus.Start()
	return nil
}

func initDomainStep(_ context.Context, state *appState) error {
	logger := state.logger

	allowlist := append([]string{}, sound.TrustedPlayers...)
	allowlist = append(allowlist, speech.TrustedEngines...)
	runner := process.NewExecutor(allowlist, logger)

	player := sound.NewPlayer(runner, logger)

	resolver := platformconfig.NewSpeechResolver(logger)
	if path := state.config.Notify.SpeechUserConfig; path != "" {
		resolver.UserPath = path
	}
	if path := state.config.Notify.SpeechSystemConfig; path != "" {
		resolver.SystemPath = path
	}

	state.synth = speech.NewSynthesizer(runner, player, resolver, logger)
	state.dispatcher = notify.NewDispatcher(player, state.synth, resolver, state.bus, logger, state.config.Notify.SoundFile)
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	config := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	notifyService := httptransport.NewService(groupCtx, state.dispatcher, logger)
	notifyService.Register(router)

	var wsService *wstransport.Service
	if config.Web.EventStream {
		wsService = wstransport.NewService(state.bus, logger)
		if err := wsService.Subscribe(); err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "ws:subscribe", "failed to subscribe event stream", err)
		}
		wsService.Register(router.Engine)
		state.wsService = wsService
	}

	addr := net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", addr)
		if !isLoopback(config.Server.Host) {
			logger.WarnTag("HTTP", "binding to non-loopback address %s: the endpoint is reachable from the network", config.Server.Host)
		}

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()

			if wsService != nil {
				wsService.Shutdown()
			}
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "serve failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	// A service can fail before any signal arrives, e.g. the listen
	// port is already taken. That must terminate the process too.
	select {
	case <-ctx.Done():
		logger.InfoTag("BOOT", "shutdown signal received, draining services")
	case err := <-done:
		cancel()
		if err != nil {
			logger.ErrorTag("BOOT", "service failed: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
		return nil
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(shutdownTimeout):
		logger.ErrorTag("BOOT", "shutdown timed out, exiting anyway")
		return errors.New("shutdown timed out")
	}
	return nil
}
