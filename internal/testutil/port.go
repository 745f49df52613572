package testutil

import (
	"bytes"
	"context"
	"sync"

	"github.com/roach88/formsync/internal/port"
)

// Write is one recorded Put.
type Write struct {
	Key   string
	Value []byte
}

// RecordingPort is an in-memory port.Port that records every write and can
// be told to fail upcoming operations.
//
// Thread-safety: safe for concurrent use.
type RecordingPort struct {
	mem *port.Memory

	mu         sync.Mutex
	writes     []Write
	reads      int
	failPuts   int
	failGets   int
	failAlways bool
}

// NewRecordingPort creates an empty recording port.
func NewRecordingPort() *RecordingPort {
	return &RecordingPort{mem: port.NewMemory()}
}

var _ port.Port = (*RecordingPort)(nil)

// Put implements port.Port. A failed put is not recorded and leaves the
// stored value unchanged.
func (p *RecordingPort) Put(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	if p.failAlways || p.failPuts > 0 {
		if p.failPuts > 0 {
			p.failPuts--
		}
		p.mu.Unlock()
		return &port.StorageError{Op: "put", Key: key, Err: port.ErrInjectedFailure}
	}
	p.writes = append(p.writes, Write{Key: key, Value: bytes.Clone(value)})
	p.mu.Unlock()

	return p.mem.Put(ctx, key, value)
}

// Get implements port.Port.
func (p *RecordingPort) Get(ctx context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	p.reads++
	if p.failGets > 0 {
		p.failGets--
		p.mu.Unlock()
		return nil, &port.StorageError{Op: "get", Key: key, Err: port.ErrInjectedFailure}
	}
	p.mu.Unlock()

	return p.mem.Get(ctx, key)
}

// FailPuts makes the next n puts fail with port.ErrInjectedFailure.
func (p *RecordingPort) FailPuts(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPuts = n
}

// FailAllPuts makes every put fail until called again with false.
func (p *RecordingPort) FailAllPuts(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAlways = fail
}

// FailGets makes the next n gets fail.
func (p *RecordingPort) FailGets(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failGets = n
}

// Writes returns a copy of the recorded writes in order.
func (p *RecordingPort) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Write, len(p.writes))
	copy(out, p.writes)
	return out
}

// WriteCount returns the number of successful puts.
func (p *RecordingPort) WriteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

// ReadCount returns the number of gets, failed ones included.
func (p *RecordingPort) ReadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// Peek returns the value stored under key without counting a read.
func (p *RecordingPort) Peek(key string) []byte {
	v, _ := p.mem.Get(context.Background(), key)
	return v
}

// Seed stores value under key without recording a write.
func (p *RecordingPort) Seed(key string, value []byte) {
	_ = p.mem.Put(context.Background(), key, value)
}
