package bootstrap

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/config"
)

// MetricsService serves a prometheus gatherer over HTTP.
type MetricsService struct {
	address  string
	path     string
	gatherer prom.Gatherer
	log      *logrus.Entry

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	serveErr chan error
}

// NewMetricsService creates the service; nothing listens before Start.
func NewMetricsService(cfg config.MetricsConfig, gatherer prom.Gatherer, log *logrus.Entry) *MetricsService {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	return &MetricsService{
		address:  cfg.Address,
		path:     path,
		gatherer: gatherer,
		log:      log.WithField("service", "metrics"),
	}
}

// Name implements Service.
func (s *MetricsService) Name() string { return "metrics" }

// Start implements Service.
func (s *MetricsService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.address)
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.server = &http.Server{Handler: mux}
	s.listener = ln
	s.serveErr = make(chan error, 1)

	go func(server *http.Server, errc chan<- error) {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("metrics server failed")
			errc <- err
		}
		close(errc)
	}(s.server, s.serveErr)

	s.log.WithField("address", ln.Addr().String()+s.path).Info("serving metrics")
	return nil
}

// Stop implements Service.
func (s *MetricsService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server, s.listener = nil, nil
	return err
}

// Health implements Service.
func (s *MetricsService) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return HealthStatus{State: HealthStopped}, nil
	}
	select {
	case err, ok := <-s.serveErr:
		if ok {
			return HealthStatus{State: HealthUnhealthy, Message: err.Error()}, nil
		}
	default:
	}
	return HealthStatus{
		State: HealthHealthy,
		Data:  map[string]interface{}{"address": s.listener.Addr().String()},
	}, nil
}

// Addr returns the listening address once started.
func (s *MetricsService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// WatcherService runs a configuration watcher.
type WatcherService struct {
	watcher *config.Watcher

	mu      sync.Mutex
	running bool
}

// NewWatcherService wraps w.
func NewWatcherService(w *config.Watcher) *WatcherService {
	return &WatcherService{watcher: w}
}

// Name implements Service.
func (s *WatcherService) Name() string { return "config-watcher" }

// Start implements Service.
func (s *WatcherService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.watcher.Start(); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop implements Service.
func (s *WatcherService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.watcher.Stop()
}

// Health implements Service.
func (s *WatcherService) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return HealthStatus{State: HealthStopped}, nil
	}
	return HealthStatus{
		State: HealthHealthy,
		Data:  map[string]interface{}{"file": s.watcher.File()},
	}, nil
}
