package port_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/port"
	fstest "github.com/roach88/formsync/internal/testutil"
)

type doc struct {
	Name string `json:"name"`
}

func TestMemory_MissingKeyIsNil(t *testing.T) {
	m := port.NewMemory()
	v, err := m.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemory_PutReplaces(t *testing.T) {
	ctx := context.Background()
	m := port.NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("one")))
	require.NoError(t, m.Put(ctx, "k", []byte("two")))

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(v))
	assert.Equal(t, 1, m.Keys())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := port.NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", buf))
	buf[0] = 'X'

	v, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := port.NewMemory()

	_, found, err := port.GetJSON[doc](ctx, m, "d")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, port.PutJSON(ctx, m, "d", doc{Name: "x"}))
	got, found, err := port.GetJSON[doc](ctx, m, "d")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", got.Name)

	require.NoError(t, m.Put(ctx, "bad", []byte("{")))
	_, _, err = port.GetJSON[doc](ctx, m, "bad")
	assert.Error(t, err)
}

func TestStorageError(t *testing.T) {
	err := error(&port.StorageError{Op: "put", Key: "forms", Err: port.ErrInjectedFailure})
	assert.Equal(t, `storage put "forms": failed to save data`, err.Error())
	assert.True(t, errors.Is(err, port.ErrInjectedFailure))
	assert.True(t, port.IsStorageError(err))
	assert.False(t, port.IsStorageError(errors.New("other")))
}

func TestSimulated_NoFailuresAtZeroRate(t *testing.T) {
	ctx := context.Background()
	s := port.NewSimulated(port.NewMemory(),
		port.WithWriteLatency(0, 0),
		port.WithReadLatency(0, 0),
		port.WithFailureRate(0),
		port.WithLogger(fstest.DiscardLogger()),
	)
	for range 100 {
		require.NoError(t, s.Put(ctx, "k", []byte("v")))
	}
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestSimulated_AlwaysFailsAtFullRate(t *testing.T) {
	ctx := context.Background()
	backend := port.NewMemory()
	s := port.NewSimulated(backend,
		port.WithWriteLatency(0, 0),
		port.WithFailureRate(1),
		port.WithLogger(fstest.DiscardLogger()),
	)

	err := s.Put(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, port.ErrInjectedFailure)

	var se *port.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.Equal(t, 0, backend.Keys())
}

func TestSimulated_FailureRateIsApproximate(t *testing.T) {
	ctx := context.Background()
	s := port.NewSimulated(port.NewMemory(),
		port.WithWriteLatency(0, 0),
		port.WithSeed(7),
		port.WithLogger(fstest.DiscardLogger()),
	)

	failures := 0
	const n = 2000
	for range n {
		if s.Put(ctx, "k", nil) != nil {
			failures++
		}
	}
	assert.InDelta(t, 0.10, float64(failures)/n, 0.03)
}

func TestSimulated_WaitsOnClock(t *testing.T) {
	ctx := context.Background()
	clk := fstest.NewManualClock()
	s := port.NewSimulated(port.NewMemory(),
		port.WithWriteLatency(time.Second, time.Second),
		port.WithFailureRate(0),
		port.WithClock(clk),
	)

	done := make(chan error, 1)
	go func() { done <- s.Put(ctx, "k", []byte("v")) }()

	clk.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("put returned before latency elapsed")
	default:
	}

	clk.Advance(time.Second)
	require.NoError(t, <-done)
}

func TestSimulated_CancelDuringLatency(t *testing.T) {
	clk := fstest.NewManualClock()
	s := port.NewSimulated(port.NewMemory(),
		port.WithReadLatency(time.Second, 2*time.Second),
		port.WithClock(clk),
	)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Get(ctx, "k")
		done <- err
	}()

	clk.BlockUntil(1)
	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, port.IsStorageError(err))
}

func TestInstrumented_CountsResults(t *testing.T) {
	ctx := context.Background()
	rec := fstest.NewRecordingPort()
	p := port.Instrument(rec)

	counter := func(op, result string) float64 {
		return testutil.ToFloat64(port.OperationsTotal().WithLabelValues(op, result))
	}
	okBefore := counter("put", "ok")
	errBefore := counter("put", "error")
	missBefore := counter("get", "miss")
	hitBefore := counter("get", "ok")

	require.NoError(t, p.Put(ctx, "k", []byte("v")))
	rec.FailPuts(1)
	require.Error(t, p.Put(ctx, "k", []byte("v")))
	_, _ = p.Get(ctx, "missing")
	_, _ = p.Get(ctx, "k")

	assert.Equal(t, okBefore+1, counter("put", "ok"))
	assert.Equal(t, errBefore+1, counter("put", "error"))
	assert.Equal(t, missBefore+1, counter("get", "miss"))
	assert.Equal(t, hitBefore+1, counter("get", "ok"))
}
