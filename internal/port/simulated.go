package port

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/formsync/internal/clock"
)

// Default simulation parameters.
const (
	DefaultWriteLatencyMin = 1000 * time.Millisecond
	DefaultWriteLatencyMax = 3000 * time.Millisecond
	DefaultReadLatencyMin  = 500 * time.Millisecond
	DefaultReadLatencyMax  = 1500 * time.Millisecond
	DefaultFailureRate     = 0.10
)

// Simulated wraps a Port with network-like behavior: every operation waits
// a latency drawn uniformly from a configured interval, and writes fail at a
// configured rate with ErrInjectedFailure. Reads never fail by injection.
//
// Latency waits honor context cancellation.
type Simulated struct {
	backend Port
	clock   clock.Clock
	logger  *slog.Logger

	writeMin, writeMax time.Duration
	readMin, readMax   time.Duration
	failureRate        float64

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulatedOption configures a Simulated port.
type SimulatedOption func(*Simulated)

// WithWriteLatency sets the write latency interval.
func WithWriteLatency(lo, hi time.Duration) SimulatedOption {
	return func(s *Simulated) {
		s.writeMin, s.writeMax = lo, hi
	}
}

// WithReadLatency sets the read latency interval.
func WithReadLatency(lo, hi time.Duration) SimulatedOption {
	return func(s *Simulated) {
		s.readMin, s.readMax = lo, hi
	}
}

// WithFailureRate sets the probability in [0,1] that a write fails.
func WithFailureRate(rate float64) SimulatedOption {
	return func(s *Simulated) {
		s.failureRate = rate
	}
}

// WithSeed makes latency and failure draws reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithClock sets the clock used for latency waits.
func WithClock(c clock.Clock) SimulatedOption {
	return func(s *Simulated) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SimulatedOption {
	return func(s *Simulated) {
		s.logger = l
	}
}

// NewSimulated wraps backend. Without options the defaults above apply.
func NewSimulated(backend Port, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		backend:     backend,
		clock:       clock.Real{},
		logger:      slog.Default(),
		writeMin:    DefaultWriteLatencyMin,
		writeMax:    DefaultWriteLatencyMax,
		readMin:     DefaultReadLatencyMin,
		readMax:     DefaultReadLatencyMax,
		failureRate: DefaultFailureRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Put implements Port.
func (s *Simulated) Put(ctx context.Context, key string, value []byte) error {
	delay, fail := s.draw(s.writeMin, s.writeMax, s.failureRate)
	if err := s.clock.Sleep(ctx, delay); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	if fail {
		s.logger.Debug("injecting write failure", "key", key, "delay", delay)
		return &StorageError{Op: "put", Key: key, Err: ErrInjectedFailure}
	}
	return s.backend.Put(ctx, key, value)
}

// Get implements Port.
func (s *Simulated) Get(ctx context.Context, key string) ([]byte, error) {
	delay, _ := s.draw(s.readMin, s.readMax, 0)
	if err := s.clock.Sleep(ctx, delay); err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return s.backend.Get(ctx, key)
}

func (s *Simulated) draw(lo, hi time.Duration, rate float64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := lo
	if span := hi - lo; span > 0 {
		delay += time.Duration(s.rng.Int64N(int64(span) + 1))
	}
	fail := rate > 0 && s.rng.Float64() < rate
	return delay, fail
}
