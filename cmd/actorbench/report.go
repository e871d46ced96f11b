package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/najoast/actorbench/bench"
)

// formatArgs renders parameters in the underscore form.
func formatArgs(args []int64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.FormatInt(a, 10)
	}
	return "_" + strings.Join(parts, "_") + "_"
}

func printReports(out io.Writer, reports []bench.Report) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORKLOAD\tPARAMETERS\tELAPSED\tACTORS\tMESSAGES\tSTATUS")
	for _, rep := range reports {
		status := "OK"
		switch {
		case rep.Err != nil:
			status = "FAILED: " + rep.Err.Error()
		case !rep.OK():
			status = "CHECKS FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			rep.Workload, formatArgs(rep.Args), rep.Elapsed.Round(time.Microsecond),
			rep.Stats.Spawned, rep.Stats.Delivered, status)
	}
	_ = w.Flush()
}
