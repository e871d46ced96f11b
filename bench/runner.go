package bench

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/najoast/actorbench/core"
)

const shutdownTimeout = 10 * time.Second

// Job is one workload invocation. Empty Args means the workload defaults.
type Job struct {
	Workload Workload
	Args     []int64
}

// Report describes a finished job.
type Report struct {
	RunID    string
	Workload string
	Args     []int64
	Elapsed  time.Duration
	Stats    core.Stats
	Result   Result
	Err      error
}

// OK reports whether the run completed and passed its checks.
func (r Report) OK() bool {
	return r.Err == nil && r.Result != nil && r.Result.OK()
}

// Fields returns the summary fields of the report.
func (r Report) Fields() logrus.Fields {
	fields := logrus.Fields{
		"workload":  r.Workload,
		"run":       r.RunID,
		"args":      r.Args,
		"elapsed":   r.Elapsed.String(),
		"spawned":   r.Stats.Spawned,
		"destroyed": r.Stats.Destroyed,
		"delivered": r.Stats.Delivered,
		"dropped":   r.Stats.Dropped,
		"ok":        r.OK(),
	}
	if r.Result != nil {
		for k, v := range r.Result.Fields() {
			fields[k] = v
		}
	}
	return fields
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Workers and Throughput are passed to every runtime.
	Workers    int
	Throughput int

	// Parallelism bounds how many jobs run at once; values below 2 run the
	// jobs one after the other.
	Parallelism int

	// Timeout bounds a single run; zero means no limit.
	Timeout time.Duration

	Registerer prom.Registerer
	Logger     *logrus.Entry
	Sink       Sink
}

// Runner executes jobs, each on its own runtime.
type Runner struct {
	opts RunnerOptions
	log  *logrus.Entry
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Sink == nil {
		opts.Sink = NewLogSink(opts.Logger)
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Runner{opts: opts, log: opts.Logger}
}

// Run executes jobs and returns one report per job, in job order. The error
// aggregates every failed run; runs that merely fail their checks are only
// visible through Report.OK.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Report, error) {
	reports := make([]Report, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.opts.Parallelism)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			reports[i] = r.runOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, rep := range reports {
		if rep.Err != nil {
			result = multierror.Append(result, errors.Wrapf(rep.Err, "%s (run %s)", rep.Workload, rep.RunID))
		}
	}
	return reports, result.ErrorOrNil()
}

func (r *Runner) runOne(ctx context.Context, job Job) Report {
	args := job.Args
	if len(args) == 0 {
		args = job.Workload.Defaults()
	}

	rep := Report{
		RunID:    uuid.New().String(),
		Workload: job.Workload.Name(),
		Args:     args,
	}
	log := r.log.WithFields(logrus.Fields{"workload": rep.Workload, "run": rep.RunID})

	if err := ctx.Err(); err != nil {
		rep.Err = err
		return rep
	}
	if err := CheckArity(job.Workload, args); err != nil {
		rep.Err = err
		log.WithError(err).Error("invalid parameters")
		return rep
	}

	rt := core.New(core.Options{
		ID:         rep.RunID,
		Workers:    r.opts.Workers,
		Throughput: r.opts.Throughput,
		Logger:     log,
		Registerer: r.opts.Registerer,
	})

	runCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	log.WithField("args", args).Info("run started")
	start := time.Now()
	rep.Result, rep.Err = job.Workload.Run(runCtx, rt, args, r.opts.Sink)
	rep.Elapsed = time.Since(start)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil && rep.Err == nil {
		rep.Err = errors.Wrap(err, "shutting down runtime")
	}
	rep.Stats = rt.Stats()

	switch entry := log.WithFields(rep.Fields()); {
	case rep.Err != nil:
		entry.WithError(rep.Err).Error("run failed")
	case !rep.OK():
		entry.Warn("run finished with failed checks")
	default:
		entry.Info("run finished")
	}
	return rep
}
