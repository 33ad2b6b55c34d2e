// Package mock provides test doubles for the stt package interfaces.
//
// Use Source to feed controlled snapshots into a consumer and inspect which
// lifecycle calls it made:
//
//	src := mock.NewSource()
//	// hand src to the consumer, then drive it:
//	src.Push("the quick", false)
//	src.Push("the quick brown fox", true)
package mock

import (
	"context"
	"sync"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
)

// Source is a mock implementation of stt.Source.
type Source struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// StartCalls records the Config passed to every Start call.
	StartCalls []stt.Config

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	// AbortCallCount is the number of times Abort was called.
	AbortCallCount int

	snapshots chan stt.Snapshot
	closed    bool
}

// NewSource returns a Source with a buffered snapshot channel.
func NewSource() *Source {
	return &Source{snapshots: make(chan stt.Snapshot, 64)}
}

// Start records the call and returns StartErr.
func (s *Source) Start(_ context.Context, cfg stt.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCalls = append(s.StartCalls, cfg)
	return s.StartErr
}

// Stop records the call and closes the snapshot channel once.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCallCount++
	if !s.closed {
		s.closed = true
		close(s.snapshots)
	}
	return nil
}

// Abort records the call and drops buffered snapshots.
func (s *Source) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AbortCallCount++
	for {
		select {
		case <-s.snapshots:
		default:
			return nil
		}
	}
}

// Snapshots returns the snapshot channel.
func (s *Source) Snapshots() <-chan stt.Snapshot {
	return s.snapshots
}

// Push delivers a snapshot to the consumer. No-op after Stop.
func (s *Source) Push(text string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.snapshots <- stt.Snapshot{Text: text, Final: final}
}

// Ensure Source implements stt.Source at compile time.
var _ stt.Source = (*Source)(nil)
