package stt

import (
	"context"
	"sync"
)

// PassiveSource is a [Source] with no recognizer behind it. It backs sessions
// whose transcripts arrive from the client over the gateway channel: the
// snapshot stream stays silent, and the gateway feeds the coaching core
// directly.
type PassiveSource struct {
	mu        sync.Mutex
	snapshots chan Snapshot
	closed    bool
}

// NewPassiveSource returns a PassiveSource whose snapshot channel stays open
// and silent until Stop.
func NewPassiveSource() *PassiveSource {
	return &PassiveSource{snapshots: make(chan Snapshot)}
}

// Start implements [Source]. No session is established; it never fails.
func (s *PassiveSource) Start(context.Context, Config) error { return nil }

// Stop implements [Source], closing the snapshot channel once.
func (s *PassiveSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.snapshots)
	}
	return nil
}

// Abort implements [Source]. There is nothing buffered to discard.
func (s *PassiveSource) Abort() error { return nil }

// Snapshots implements [Source].
func (s *PassiveSource) Snapshots() <-chan Snapshot { return s.snapshots }

var _ Source = (*PassiveSource)(nil)
