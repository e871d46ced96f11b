package bootstrap

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/config"
)

// ErrChecksFailed is returned when every run completed but at least one
// failed its correctness checks.
var ErrChecksFailed = errors.New("benchmark checks failed")

// Options configure an App.
type Options struct {
	// ConfigFile is watched when Watch is set.
	ConfigFile string
	Watch      bool

	Logger *logrus.Entry
	Sink   bench.Sink

	// LogCloser releases the current log output. The App takes ownership
	// and replaces it whenever a reload switches the output.
	LogCloser io.Closer
}

// App runs benchmark suites with the managed services the configuration
// asks for.
type App struct {
	registry  *bench.Registry
	metrics   *prom.Registry
	lifecycle *LifecycleManager
	log       *logrus.Entry
	sink      bench.Sink

	cfgMu sync.RWMutex
	cfg   *config.Config

	watcher *config.Watcher
	reloads chan *config.Config

	logMu     sync.Mutex
	logCloser io.Closer

	metricsService *MetricsService
}

// NewApp builds an application around cfg and the workloads of registry.
func NewApp(cfg *config.Config, registry *bench.Registry, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Sink == nil {
		opts.Sink = bench.NewLogSink(opts.Logger)
	}

	app := &App{
		registry:  registry,
		metrics:   prom.NewRegistry(),
		lifecycle: NewLifecycleManager(),
		log:       opts.Logger,
		sink:      opts.Sink,
		cfg:       cfg,
		reloads:   make(chan *config.Config, 1),
		logCloser: opts.LogCloser,
	}
	app.lifecycle.AddListener(LogEvents(app.log))

	if cfg.Metrics.Enabled {
		app.metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.metricsService = NewMetricsService(cfg.Metrics, app.metrics, app.log)
		if err := app.lifecycle.Register("metrics", app.metricsService); err != nil {
			return nil, err
		}
	}

	if opts.Watch {
		if opts.ConfigFile == "" {
			return nil, errors.New("watching requires a configuration file")
		}
		w, err := config.NewWatcher(opts.ConfigFile, config.NewLoader())
		if err != nil {
			return nil, err
		}
		w.SetLogger(app.log.WithField("component", "config-watcher"))
		w.OnConfigChange(app.onReload)
		app.watcher = w
		if err := app.lifecycle.Register("config-watcher", NewWatcherService(w)); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Lifecycle returns the service manager.
func (a *App) Lifecycle() *LifecycleManager {
	return a.lifecycle
}

// MetricsAddr is the metrics listener address, empty when disabled or not
// started.
func (a *App) MetricsAddr() string {
	if a.metricsService == nil {
		return ""
	}
	if addr := a.metricsService.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (a *App) onReload(_, newConfig *config.Config) {
	a.cfgMu.Lock()
	a.cfg = newConfig
	a.cfgMu.Unlock()

	a.swapLogOutput(newConfig)

	// Only the latest reload matters.
	select {
	case <-a.reloads:
	default:
	}
	a.reloads <- newConfig
}

func (a *App) swapLogOutput(cfg *config.Config) {
	a.logMu.Lock()
	defer a.logMu.Unlock()

	closer, err := config.SetLogrus(cfg.LogSettings())
	if err != nil {
		a.log.WithError(err).Warn("keeping previous log settings")
		return
	}
	prev := a.logCloser
	a.logCloser = closer
	if prev != nil {
		if err := prev.Close(); err != nil {
			a.log.WithError(err).Warn("closing previous log output")
		}
	}
}

// Close releases the log output owned by the App.
func (a *App) Close() error {
	a.logMu.Lock()
	defer a.logMu.Unlock()
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

// Jobs returns the jobs configured in cfg, or every registered workload with
// its defaults when cfg lists none.
func (a *App) Jobs(cfg *config.Config) ([]bench.Job, error) {
	if len(cfg.Benchmarks) == 0 {
		var jobs []bench.Job
		for _, name := range a.registry.Names() {
			w, _ := a.registry.Get(name)
			jobs = append(jobs, bench.Job{Workload: w})
		}
		return jobs, nil
	}

	jobs := make([]bench.Job, 0, len(cfg.Benchmarks))
	for _, b := range cfg.Benchmarks {
		job, err := a.Job(b.Name, strings.Fields(b.Args))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Job resolves a workload by name and decodes its command line parameters.
func (a *App) Job(name string, args []string) (bench.Job, error) {
	w, err := a.registry.Get(name)
	if err != nil {
		return bench.Job{}, err
	}
	values, err := ParseArgs(args, len(w.Fields()))
	if err != nil {
		return bench.Job{}, errors.Wrap(err, name)
	}
	return bench.Job{Workload: w, Args: values}, nil
}

// RunOnce runs jobs with the current runtime settings.
func (a *App) RunOnce(ctx context.Context, jobs []bench.Job) ([]bench.Report, error) {
	cfg := a.Config()
	runner := bench.NewRunner(bench.RunnerOptions{
		Workers:     cfg.Runtime.Workers,
		Throughput:  cfg.Runtime.Throughput,
		Parallelism: cfg.Runtime.Parallelism,
		Timeout:     cfg.Runtime.Timeout,
		Registerer:  a.metrics,
		Logger:      a.log,
		Sink:        a.sink,
	})

	start := time.Now()
	reports, err := runner.Run(ctx, jobs)
	if err != nil {
		return reports, err
	}

	failed := 0
	for _, rep := range reports {
		if !rep.OK() {
			failed++
		}
	}
	a.log.WithFields(logrus.Fields{
		"runs":    len(reports),
		"failed":  failed,
		"elapsed": time.Since(start).String(),
	}).Info("suite finished")
	if failed > 0 {
		return reports, errors.Wrapf(ErrChecksFailed, "%d of %d runs", failed, len(reports))
	}
	return reports, nil
}

// Run starts the services, runs the suite and, when watching, runs it again
// after every configuration reload until ctx is done. A nil jobs slice takes
// the jobs from the configuration each time. Reports of every pass are
// handed to report, which may be nil.
func (a *App) Run(ctx context.Context, jobs []bench.Job, report func([]bench.Report)) (err error) {
	if err := a.lifecycle.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if stopErr := a.lifecycle.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	pass := func(cfg *config.Config) error {
		current := jobs
		if current == nil {
			var err error
			if current, err = a.Jobs(cfg); err != nil {
				return err
			}
		}
		reports, err := a.RunOnce(ctx, current)
		if report != nil {
			report(reports)
		}
		return err
	}

	err = pass(a.Config())
	if a.watcher == nil {
		return err
	}
	if err != nil {
		a.log.WithError(err).Error("suite failed; waiting for configuration changes")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-a.reloads:
			if err := pass(cfg); err != nil {
				a.log.WithError(err).Error("suite failed; waiting for configuration changes")
			}
		}
	}
}
