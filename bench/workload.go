// Package bench runs actor workloads on fresh runtimes and reports their
// results.
package bench

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/core"
)

// Workload is a benchmark driver built purely on runtime primitives.
type Workload interface {
	// Name is the identifier used on the command line and in configuration.
	Name() string

	// Fields names the decoded integer parameters, in order.
	Fields() []string

	// Defaults returns the parameters used when none are given.
	Defaults() []int64

	// Run executes one run on rt and blocks until it completes, fails, or ctx
	// is done. Diagnostics are emitted to sink.
	Run(ctx context.Context, rt *core.Runtime, args []int64, sink Sink) (Result, error)
}

// Result is the outcome of one workload run.
type Result interface {
	// OK reports whether every correctness check of the run passed.
	OK() bool

	// Fields returns the values worth logging in the run summary.
	Fields() logrus.Fields
}

// ErrArity is returned when a workload gets the wrong number of parameters.
var ErrArity = errors.New("wrong number of parameters")

// CheckArity verifies that args has one value per field of w.
func CheckArity(w Workload, args []int64) error {
	if fields := w.Fields(); len(args) != len(fields) {
		return errors.Wrapf(ErrArity, "%s takes %d (%s), got %d",
			w.Name(), len(fields), strings.Join(fields, ", "), len(args))
	}
	return nil
}
