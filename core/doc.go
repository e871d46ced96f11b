// Package core implements the minimal actor runtime used by the benchmarks.
//
// This package provides the Handle, Mailbox and Runtime building blocks:
// actors are created with Spawn, addressed by opaque Handles, and driven by a
// pool of workers that deliver messages one at a time per actor.
package core
