package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/bench/creation"
	"github.com/najoast/actorbench/bench/mailbox"
	"github.com/najoast/actorbench/bench/mixed"
	"github.com/najoast/actorbench/config"
)

var version = "dev"

type options struct {
	configFile  string
	level       string
	color       bool
	parallel    int
	watch       bool
	metricsAddr string
	retainNodes bool

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "actorbench",
		Short:         "benchmarks for the actor runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "",
		"configuration file (default: actorbench.yaml or config.yaml in the search paths)")
	flags.StringVar(&opts.level, "level", "",
		"set the logging level (can be one of: trace, debug, info, warn, error, or fatal)")
	flags.BoolVar(&opts.color, "color", false, "enable colored output")
	flags.IntVarP(&opts.parallel, "parallel", "p", 0, "number of benchmarks running at the same time")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "run again whenever the configuration file changes")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "",
		"serve prometheus metrics on this address (empty disables)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load reads the configuration, applies the flags that were set and
// configures logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().Load(o.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("level") {
		cfg.Log.Level = config.LogLevel(o.level)
	}
	if flags.Changed("color") {
		cfg.Log.Color = o.color
	}
	if flags.Changed("parallel") {
		cfg.Runtime.Parallelism = o.parallel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = o.metricsAddr != ""
		cfg.Metrics.Address = o.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "command-line arguments specify illegal configuration")
	}

	closer, err := config.SetLogrus(cfg.LogSettings())
	if err != nil {
		return err
	}
	o.cfg, o.logCloser = cfg, closer
	return nil
}

func (o *options) registry() *bench.Registry {
	return bench.NewRegistry(
		&creation.Workload{RetainNodes: o.retainNodes},
		mailbox.New(),
		mixed.New(),
	)
}
