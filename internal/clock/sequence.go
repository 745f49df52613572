package clock

import "sync/atomic"

// Sequence is a monotonic logical clock for write ordering.
//
// Every call to Next returns a unique, strictly increasing value. It is safe
// for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0. The first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence resuming after start. Durable stores use
// it to continue from the last persisted revision.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number without advancing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
