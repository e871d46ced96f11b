package bench

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink receives the human-readable diagnostic lines emitted by workloads,
// e.g. "expected: 8 found: 6" or "OKAY". Emit may be called concurrently.
type Sink interface {
	Emit(line string)
}

// LogSink writes every diagnostic as an info entry.
type LogSink struct {
	log *logrus.Entry
}

// NewLogSink creates a LogSink on top of log.
func NewLogSink(log *logrus.Entry) *LogSink {
	return &LogSink{log: log.WithField("component", "diagnostics")}
}

// Emit implements Sink.
func (s *LogSink) Emit(line string) {
	s.log.Info(line)
}

// Lines is a Sink that keeps every line in memory.
type Lines struct {
	mu    sync.Mutex
	lines []string
}

// Emit implements Sink.
func (l *Lines) Emit(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

// All returns a copy of the emitted lines in emission order.
func (l *Lines) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Count returns how many times line was emitted.
func (l *Lines) Count(line string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.lines {
		if s == line {
			n++
		}
	}
	return n
}

type multiSink []Sink

// Tee returns a Sink that forwards every line to each of sinks.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Emit(line string) {
	for _, s := range m {
		s.Emit(line)
	}
}
