package mailbox

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

func newRuntime(t *testing.T, workers, throughput int) *core.Runtime {
	logger, _ := test.NewNullLogger()
	rt := core.New(core.Options{
		ID:         t.Name(),
		Workers:    workers,
		Throughput: throughput,
		Logger:     logrus.NewEntry(logger),
	})
	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown(context.Background()))
	})
	return rt
}

func TestExecute(t *testing.T) {
	rt := newRuntime(t, 4, 16)
	lines := &bench.Lines{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := Execute(ctx, rt, Params{Senders: 5, Messages: 100}, lines)
	require.NoError(t, err)

	assert.Equal(t, &Result{Expected: 500, Received: 500, Transitions: 1}, res)
	assert.True(t, res.OK())
	assert.Empty(t, lines.All())

	stats := rt.Stats()
	assert.Equal(t, uint64(7), stats.Spawned)
	assert.Equal(t, uint64(7), stats.Destroyed)
	assert.Equal(t, uint64(0), stats.Dropped)
	// boot + 5 run + 500 msg
	assert.Equal(t, uint64(506), stats.Delivered)
}

func TestExecute_Interleavings(t *testing.T) {
	cases := []struct {
		workers, throughput int
		params              Params
	}{
		{1, 1, Params{Senders: 1, Messages: 1}},
		{1, 64, Params{Senders: 20, Messages: 50}},
		{8, 1, Params{Senders: 20, Messages: 50}},
		{8, 3, Params{Senders: 3, Messages: 1000}},
	}
	for _, tc := range cases {
		rt := newRuntime(t, tc.workers, tc.throughput)
		res, err := Execute(context.Background(), rt, tc.params, &bench.Lines{})
		require.NoError(t, err)
		assert.Equal(t, tc.params.Total(), res.Received)
		assert.Equal(t, 1, res.Transitions)
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, Params{Senders: 20, Messages: 1000000}.Validate())
	assert.Error(t, Params{Senders: 0, Messages: 1}.Validate())
	assert.Error(t, Params{Senders: 1, Messages: 0}.Validate())
	assert.Error(t, Params{Senders: 1 << 40, Messages: 1 << 40}.Validate())
}

func TestWorkload(t *testing.T) {
	w := New()
	assert.Equal(t, []string{"num_senders", "num_msgs"}, w.Fields())

	_, err := w.Run(context.Background(), newRuntime(t, 2, 8), []int64{5}, &bench.Lines{})
	assert.True(t, errors.Is(err, bench.ErrArity))

	res, err := w.Run(context.Background(), newRuntime(t, 2, 8), []int64{4, 25}, &bench.Lines{})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, int64(100), res.Fields()["received"])
}
