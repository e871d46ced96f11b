package mixed

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/core"
)

var cheapTask = Task{N: 288, Factors: []uint64{2, 2, 2, 2, 2, 3, 3}}

func newRuntime(t *testing.T) *core.Runtime {
	logger, _ := test.NewNullLogger()
	rt := core.New(core.Options{ID: t.Name(), Workers: 4, Throughput: 8, Logger: logrus.NewEntry(logger)})
	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown(context.Background()))
	})
	return rt
}

func execute(t *testing.T, rt *core.Runtime, p Params, sink bench.Sink) *Result {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	res, err := Execute(ctx, rt, p, sink)
	require.NoError(t, err)
	return res
}

func TestExecute(t *testing.T) {
	cases := []Params{
		{NumRings: 1, RingSize: 1, InitialToken: 0, Repetitions: 1},
		{NumRings: 1, RingSize: 1, InitialToken: 5, Repetitions: 3},
		{NumRings: 2, RingSize: 10, InitialToken: 30, Repetitions: 1},
		{NumRings: 4, RingSize: 7, InitialToken: 11, Repetitions: 5},
		{NumRings: 8, RingSize: 3, InitialToken: 0, Repetitions: 2},
	}
	for _, p := range cases {
		p.Task = cheapTask
		rt := newRuntime(t)
		lines := &bench.Lines{}

		res := execute(t, rt, p, lines)
		assert.True(t, res.OK(), "%+v: %+v", p, res)
		assert.Equal(t, p.NumRings*p.Repetitions, res.Loops)
		assert.Equal(t, p.NumRings*p.Repetitions*p.RingSize*(p.InitialToken+1), res.Hops)
		assert.Equal(t, int(p.NumRings*p.Repetitions), res.Okay)
		assert.Equal(t, int(p.NumRings*p.Repetitions), lines.Count(Okay))
		assert.Zero(t, lines.Count(Error))
		assert.Equal(t, 1, res.Transitions)
		assert.Equal(t, int64(0), res.Left)

		stats := rt.Stats()
		links := p.NumRings * p.Repetitions * (p.RingSize - 1)
		assert.Equal(t, uint64(2+2*p.NumRings+links), stats.Spawned)
		assert.Equal(t, 0, stats.Alive)
		assert.Equal(t, uint64(0), stats.Dropped)
	}
}

func TestExecute_DefaultTask(t *testing.T) {
	lines := &bench.Lines{}
	res := execute(t, newRuntime(t), Params{NumRings: 1, RingSize: 4, InitialToken: 3, Repetitions: 1}, lines)
	assert.True(t, res.OK())
	assert.Equal(t, []string{Okay}, lines.All())
}

func TestExecute_WrongFactors(t *testing.T) {
	lines := &bench.Lines{}
	p := Params{
		NumRings: 2, RingSize: 3, InitialToken: 2, Repetitions: 2,
		Task: Task{N: 24, Factors: []uint64{2, 3, 4}},
	}
	res := execute(t, newRuntime(t), p, lines)

	assert.False(t, res.OK())
	assert.Equal(t, 4, res.Errors)
	assert.Equal(t, 4, lines.Count(Error))
	assert.Equal(t, 1, res.Transitions)
}

func TestSupervisor_CountDown(t *testing.T) {
	rt := newRuntime(t)
	lines := &bench.Lines{}
	r := &run{params: Params{}, task: cheapTask, sink: lines}

	sv := rt.Spawn(&supervisor{run: r})
	rt.Send(sv, supervisorInit{left: 3})
	rt.Send(sv, masterDone{})
	rt.Send(sv, factors{values: []uint64{2, 2, 2, 2, 2, 3, 3}})
	require.NoError(t, rt.Wait(context.Background()))

	res := r.result()
	assert.Equal(t, int64(1), res.Left)
	assert.Equal(t, 0, res.Transitions)
	assert.Equal(t, 1, rt.Stats().Alive)

	rt.Send(sv, factors{values: []uint64{288}})
	require.NoError(t, rt.Wait(context.Background()))

	res = r.result()
	assert.Equal(t, int64(0), res.Left)
	assert.Equal(t, 1, res.Transitions)
	assert.Equal(t, 0, rt.Stats().Alive)
	assert.Equal(t, []string{Okay, Error}, lines.All())

	// The supervisor is gone; further completions are dropped.
	rt.Send(sv, masterDone{})
	require.NoError(t, rt.Wait(context.Background()))
	assert.Equal(t, 1, r.result().Transitions)
	assert.Equal(t, uint64(1), rt.Stats().Dropped)
}

func TestSupervisor_Underflow(t *testing.T) {
	rt := newRuntime(t)
	lines := &bench.Lines{}
	r := &run{task: cheapTask, sink: lines}

	sv := rt.Spawn(&supervisor{run: r})
	rt.Send(sv, supervisorInit{left: 0})
	rt.Send(sv, masterDone{})
	require.NoError(t, rt.Wait(context.Background()))

	res := r.result()
	assert.Equal(t, 1, res.Underflows)
	assert.Equal(t, 0, res.Transitions)
	assert.Equal(t, []string{Underflow}, lines.All())
	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Fields()["underflows"])
}

func TestParams(t *testing.T) {
	p := Params{NumRings: 20, RingSize: 50, InitialToken: 10000, Repetitions: 5}
	require.NoError(t, p.Validate())
	assert.Equal(t, int64(120), p.Messages())
	assert.Equal(t, int64(100), p.ExpectedLoops())
	assert.Equal(t, int64(100*50*10001), p.ExpectedHops())
	assert.Equal(t, DefaultTask, p.task())

	assert.Error(t, Params{NumRings: 0, RingSize: 1, Repetitions: 1}.Validate())
	assert.Error(t, Params{NumRings: 1, RingSize: 0, Repetitions: 1}.Validate())
	assert.Error(t, Params{NumRings: 1, RingSize: 1, InitialToken: -1, Repetitions: 1}.Validate())
	assert.Error(t, Params{NumRings: 1, RingSize: 1, Repetitions: 0}.Validate())
}

func TestWorkload(t *testing.T) {
	w := &Workload{Task: cheapTask}
	assert.Equal(t, Name, w.Name())
	assert.Len(t, w.Defaults(), len(w.Fields()))

	_, err := w.Run(context.Background(), newRuntime(t), []int64{1, 2, 3}, &bench.Lines{})
	assert.True(t, errors.Is(err, bench.ErrArity))

	_, err = w.Run(context.Background(), newRuntime(t), []int64{1, 0, 3, 1}, &bench.Lines{})
	assert.Error(t, err)

	res, err := w.Run(context.Background(), newRuntime(t), []int64{3, 5, 7, 2}, &bench.Lines{})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, int64(6), res.Fields()["loops"])
}
