package resilience

import (
	"context"
	"errors"
	"sync"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
)

// SourceFallback is an [stt.Source] that fails over across recognition
// backends. Start picks the first backend that establishes a session; all
// later calls delegate to that active backend for the lifetime of the
// session.
type SourceFallback struct {
	group *FallbackGroup[stt.Source]

	mu     sync.Mutex
	active stt.Source
}

var (
	_ stt.Source    = (*SourceFallback)(nil)
	_ stt.AudioSink = (*SourceFallback)(nil)
)

// NewSourceFallback creates a SourceFallback preferring primary.
func NewSourceFallback(primary stt.Source, name string, breakerOpts ...BreakerOption) *SourceFallback {
	return &SourceFallback{
		group: NewFallbackGroup(primary, name, breakerOpts...),
	}
}

// AddFallback registers an additional recognition backend.
func (f *SourceFallback) AddFallback(name string, source stt.Source) {
	f.group.AddFallback(name, source)
}

// Start establishes a session against the first healthy backend.
func (f *SourceFallback) Start(ctx context.Context, cfg stt.Config) error {
	active, err := ExecuteWithResult(f.group, func(s stt.Source) (stt.Source, error) {
		return s, s.Start(ctx, cfg)
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
	return nil
}

// Stop ends the active session. Safe before Start and when called twice.
func (f *SourceFallback) Stop() error {
	if s := f.activeSource(); s != nil {
		return s.Stop()
	}
	return nil
}

// Abort discards buffered results on the active backend.
func (f *SourceFallback) Abort() error {
	if s := f.activeSource(); s != nil {
		return s.Abort()
	}
	return nil
}

// Snapshots returns the active backend's snapshot stream. Before a
// successful Start it returns nil, which blocks receivers forever; callers
// must Start first.
func (f *SourceFallback) Snapshots() <-chan stt.Snapshot {
	if s := f.activeSource(); s != nil {
		return s.Snapshots()
	}
	return nil
}

// SendAudio forwards raw audio when the active backend accepts it.
func (f *SourceFallback) SendAudio(chunk []byte) error {
	s := f.activeSource()
	if s == nil {
		return errors.New("resilience: no active source")
	}
	sink, ok := s.(stt.AudioSink)
	if !ok {
		return nil
	}
	return sink.SendAudio(chunk)
}

func (f *SourceFallback) activeSource() stt.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}
