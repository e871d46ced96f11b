package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/bootstrap"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [workload [params...]]",
		Short: "run one workload or the configured suite",
		Long: `Run one workload or, without arguments, every benchmark listed in the
configuration (all workloads with their defaults if none are listed).

Parameters are either one underscore string or separate integers:

  actorbench run mailbox_performance _20_1000000_
  actorbench run mixed_case 20 50 10000 5`,
		Args: cobra.ArbitraryArgs,
	}

	cmd.Flags().BoolVar(&opts.retainNodes, "retain-nodes", false,
		"keep actor_creation nodes alive after they reported")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.WithFields(log.Fields{
			"app":         opts.cfg.App.Name,
			"environment": opts.cfg.App.Environment,
		})
		app, err := bootstrap.NewApp(opts.cfg, opts.registry(), bootstrap.Options{
			ConfigFile: opts.configFile,
			Watch:      opts.watch,
			Logger:     logger,
			LogCloser:  opts.logCloser,
		})
		if err != nil {
			return err
		}
		opts.logCloser = nil
		defer app.Close()

		var jobs []bench.Job
		if len(args) > 0 {
			job, err := app.Job(args[0], args[1:])
			if err != nil {
				return err
			}
			jobs = []bench.Job{job}
		}

		return app.Run(ctx, jobs, func(reports []bench.Report) {
			printReports(cmd.OutOrStdout(), reports)
		})
	}
	return cmd
}
