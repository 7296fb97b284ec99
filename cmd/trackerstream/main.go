// Package main implements trackerstream, a command that subscribes to Solana
// Tracker datastream rooms and prints or forwards the received events.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a6b8/trackerAPI/config"
	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/health"
	"github.com/a6b8/trackerAPI/metric"
	"github.com/a6b8/trackerAPI/natsclient"
	"github.com/a6b8/trackerAPI/pkg/retry"
	"github.com/a6b8/trackerAPI/sink"
	"github.com/a6b8/trackerAPI/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "trackerstream"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cli, err := parseFlags(args, os.Stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(cli, nil)
	if err != nil {
		for _, msg := range errors.Messages(err) {
			_, _ = fmt.Fprintln(os.Stderr, msg)
		}
		return fmt.Errorf("load config: %w", err)
	}

	logOut := os.Stdout
	if cli.Print {
		logOut = os.Stderr
	}
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, logOut)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config", cfg.String())
		return nil
	}

	logger.Info("Starting trackerstream",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cli.ConfigPath,
		"channels", cfg.Websocket.SocketNames,
		"rooms", len(cfg.Rooms))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var printer stream.Sink
	if cli.Print {
		printer = newPrinter(os.Stdout)
	}

	a, err := newApp(ctx, cfg, logger, printer)
	if err != nil {
		return err
	}
	return a.run(ctx, cli.ShutdownTimeout)
}

// loadConfig layers the config file (if any) over the defaults and the
// TRACKER_* environment, then applies the command-line overrides.
func loadConfig(cli *CLIConfig, loader *config.Loader) (*config.Config, error) {
	if loader == nil {
		loader = config.NewLoader()
	}
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}
	loader.EnableValidation(false)

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	cfg.Rooms = append(cfg.Rooms, cli.Rooms...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app wires the stream client to its sinks and HTTP endpoints.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor
	client   *stream.Client
	bridges  []*sink.Bridge
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, printer stream.Sink) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(),
	}

	var sinks sink.Multi
	if printer != nil {
		sinks = append(sinks, printer)
	}

	if err := a.setupBridges(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	for _, b := range a.bridges {
		sinks = append(sinks, b)
	}
	if len(sinks) == 0 {
		logger.Warn("No sink configured; events are only counted. Use -print or configure a bridge")
	}

	client, err := stream.New(cfg.Stream(),
		stream.WithSink(sinks),
		stream.WithLogger(logger),
		stream.WithMetrics(a.registry),
	)
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("create stream client: %w", err)
	}
	a.client = client
	a.monitor.Register("stream", client.Health)

	return a, nil
}

func (a *app) setupBridges(ctx context.Context) error {
	bc := a.cfg.Bridge
	codec, err := sink.CodecByName(bc.Codec)
	if err != nil {
		return err
	}
	opts := []sink.Option{
		sink.WithCodec(codec),
		sink.WithLogger(a.logger),
		sink.WithMetrics(a.registry),
	}

	if bc.NATS.URL != "" {
		nc, err := natsclient.NewClient(bc.NATS.URL,
			natsclient.WithLogger(a.logger),
			natsclient.WithName(appName),
		)
		if err != nil {
			return fmt.Errorf("create NATS client: %w", err)
		}
		err = retry.Do(ctx, retry.Quick(), func() error {
			err := nc.Connect(ctx)
			if stderrors.Is(err, natsclient.ErrCircuitOpen) {
				return retry.NonRetryable(err)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.closers = append(a.closers, nc.Close)
		a.monitor.Register("nats", nc.Health)

		bridge, err := sink.NewNATS(nc, bc.NATS.SubjectPrefix, opts...)
		if err != nil {
			return err
		}
		a.bridges = append(a.bridges, bridge)
	}

	if bc.Redis.Addr != "" {
		rdb, err := retry.DoWithResult(ctx, retry.Quick(), func() (*sink.RedisPublisher, error) {
			client, err := sink.ConnectRedis(ctx, bc.Redis.Addr, bc.Redis.Password, bc.Redis.DB)
			if err != nil {
				return nil, err
			}
			return sink.NewRedisPublisher(client), nil
		})
		if err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.monitor.Register("redis", func() health.Status {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Health(ctx)
		})

		bridge, err := sink.NewRedis(rdb, bc.Redis.ChannelPrefix, opts...)
		if err != nil {
			return err
		}
		a.bridges = append(a.bridges, bridge)
	}
	return nil
}

func (a *app) health() health.Status {
	return a.monitor.AggregateHealth(appName)
}

func (a *app) run(ctx context.Context, shutdownTimeout time.Duration) error {
	for _, b := range a.bridges {
		// Bridges get their own context so queued events drain on shutdown.
		if err := b.Start(context.Background()); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		srv := metric.NewServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path, a.registry)
		if a.cfg.Health.Port == 0 {
			srv.Handle("/health", health.Handler(a.health))
		}
		srv.Handle("/diagnostics", a.diagnosticsHandler())
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return a.shutdownServer(srv.Shutdown, shutdownTimeout)
		})
		a.logger.Info("Serving metrics", "address", srv.Address())
	}

	if a.cfg.Health.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle("/health", health.Handler(a.health))
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Health.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return errors.WrapFatal(err, "trackerstream", "run", "serve health endpoint")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return a.shutdownServer(srv.Shutdown, shutdownTimeout)
		})
	}

	g.Go(func() error {
		if err := a.client.Connect(gctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		a.joinRooms()
		a.logger.Info("trackerstream started")
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	a.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if derr := a.client.Disconnect(); derr != nil {
		a.logger.Warn("Disconnect failed", "error", derr)
	}
	a.close(shutdownCtx)

	if err != nil {
		return err
	}
	a.logger.Info("trackerstream shutdown complete")
	return nil
}

// diagnosticsHandler serves the newest diagnostics as JSON; ?n= limits the count.
func (a *app) diagnosticsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := stream.DefaultDiagnosticHistory
		if v := r.URL.Query().Get("n"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
				return
			}
			n = parsed
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.client.Diagnostics().Recent(n))
	})
}

func (a *app) shutdownServer(shutdown func(context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return shutdown(ctx)
}

func (a *app) joinRooms() {
	for _, room := range a.cfg.Rooms {
		var opts []stream.JoinOption
		if room.Strategy != "" {
			opts = append(opts, stream.WithStrategy(room.Strategy))
		}
		outcome, err := a.client.Join(room.RoomID, room.Params, opts...)
		if err != nil {
			a.logger.Error("Cannot join room", "room", room.RoomID, "messages", errors.Messages(err))
			continue
		}
		a.logger.Info("Joining room", "room", room.RoomID, "outcome", outcome.String())
	}
}

// close stops the bridges first so their queues drain into still-open
// broker connections.
func (a *app) close(ctx context.Context) {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	for _, b := range a.bridges {
		if err := b.Close(timeout); err != nil {
			a.logger.Warn("Bridge did not drain", "bridge", b.Name(), "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Close failed", "error", err)
		}
	}
}
