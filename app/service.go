// Package app assembles the stores, the reconciliation engine and its outer
// surfaces from the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kilianp07/evslot/api/vehicles"
	"github.com/kilianp07/evslot/config"
	"github.com/kilianp07/evslot/core/completion"
	"github.com/kilianp07/evslot/core/events"
	"github.com/kilianp07/evslot/core/ledger"
	coremetrics "github.com/kilianp07/evslot/core/metrics"
	coremon "github.com/kilianp07/evslot/core/monitoring"
	"github.com/kilianp07/evslot/core/reconcile"
	"github.com/kilianp07/evslot/infra/logger"
	inframetrics "github.com/kilianp07/evslot/infra/metrics"
	"github.com/kilianp07/evslot/infra/monitoring"
	"github.com/kilianp07/evslot/infra/mqtt"
	"github.com/kilianp07/evslot/infra/source"
	"github.com/kilianp07/evslot/internal/eventbus"

	// store backends register themselves
	_ "github.com/kilianp07/evslot/infra/redisindex"
	_ "github.com/kilianp07/evslot/infra/sqlledger"
)

// Service owns the engine and everything wired around it.
type Service struct {
	Engine *reconcile.Engine

	cfg      *config.Config
	files    *source.Opener
	bus      *eventbus.TypedBus[events.VehicleEvent]
	notifier *mqtt.Notifier
	sink     coremetrics.Sink
	handler  http.Handler
	log      logger.Logger
}

// New creates a Service from the configuration. Both stores are opened and
// reachable when New returns.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Setup(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	led, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	idx, err := completion.Open(cfg.Completion)
	if err != nil {
		_ = led.Close()
		return nil, fmt.Errorf("completion index: %w", err)
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.SinkConfig(), inframetrics.Combine)
	if err != nil {
		_ = errors.Join(idx.Close(), led.Close())
		return nil, fmt.Errorf("metrics: %w", err)
	}

	svc := &Service{
		cfg:  cfg,
		bus:  eventbus.NewTyped[events.VehicleEvent](eventbus.DefaultBuffer),
		sink: sink,
		log:  log,
	}
	if cfg.MQTT.Enabled {
		n, err := mqtt.NewNotifier(cfg.MQTT)
		if err != nil {
			_ = errors.Join(idx.Close(), led.Close(), closeSink(sink))
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		svc.notifier = n
	}

	timeout := time.Duration(cfg.Import.TimeoutSeconds) * time.Second
	svc.files = source.New(timeout)
	// ImportURL is reachable from the HTTP API
	remote := source.New(timeout, source.RemoteOnly())
	svc.Engine = reconcile.New(led, idx, logger.New("reconcile"),
		reconcile.WithSource(remote.Open),
		reconcile.WithMaxLineBytes(cfg.Import.MaxLineBytes),
		reconcile.WithMetrics(sink),
		reconcile.WithPublisher(svc.bus),
	)
	svc.handler = vehicles.NewRouter(svc.Engine, logger.New("api"))
	log.Infof("ledger %s, completion index %s", cfg.Ledger.Type, cfg.Completion.Type)
	return svc, nil
}

// Import reads src, an http(s) URL, a file:// URL or a local path, and
// imports it. Local sources are for operators only; the HTTP API goes through
// Engine.ImportURL, which accepts remote URLs alone.
func (s *Service) Import(ctx context.Context, src string) (int, error) {
	rc, err := s.files.Open(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", reconcile.ErrTransport, err)
	}
	defer func() { _ = rc.Close() }()
	return s.Engine.ImportBatch(ctx, rc)
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves the API on the configured address and blocks until ctx is
// cancelled or the listener fails.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTP.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.notifier != nil {
		sub := s.bus.Subscribe()
		go s.notifier.Run(ctx, sub)
	}
	if s.cfg.Metrics.HasSink("prometheus") {
		go func() {
			if err := inframetrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if iv := s.cfg.Refresh.IntervalSeconds; iv > 0 {
		go s.refreshLoop(ctx, time.Duration(iv)*time.Second)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Duration(s.cfg.HTTP.ShutdownTimeoutSeconds)*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// refreshLoop periodically accrues charge so ready notifications go out
// without a client polling GET /data.
func (s *Service) refreshLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	ready, err := s.Engine.ListReady(ctx)
	if err != nil {
		s.log.Errorf("scheduled refresh: %v", err)
		return
	}
	s.log.Debugf("scheduled refresh: %d vehicles ready", len(ready))
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	err := errors.Join(s.Engine.Close(), closeSink(s.sink))
	coremon.Flush(2 * time.Second)
	return errors.Join(err, logger.Close())
}

func closeSink(s coremetrics.Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
