package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeDevices hands out LiveTracks and counts how many are still open.
type fakeDevices struct {
	mu   sync.Mutex
	open int

	micErr       error
	micNoAudio   bool
	displayErr   error
	displayAudio bool

	micCalls     int
	displayCalls int
	order        []string
	lastAudio    AudioConstraints

	mic          *LiveTrack
	displayVideo *LiveTrack
	displayTrack *LiveTrack
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{displayAudio: true}
}

func (f *fakeDevices) track(id string, kind Kind) *LiveTrack {
	f.mu.Lock()
	f.open++
	f.mu.Unlock()
	return NewLiveTrack(id, kind, func() {
		f.mu.Lock()
		f.open--
		f.mu.Unlock()
	})
}

func (f *fakeDevices) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeDevices) GetUserMedia(_ context.Context, c AudioConstraints) (*Stream, error) {
	f.mu.Lock()
	f.micCalls++
	f.order = append(f.order, "mic")
	f.lastAudio = c
	f.mu.Unlock()

	if f.micErr != nil {
		return nil, f.micErr
	}
	if f.micNoAudio {
		return NewStream("mic", f.track("mic-video", KindVideo)), nil
	}
	f.mic = f.track("mic-audio", KindAudio)
	return NewStream("mic", f.mic), nil
}

func (f *fakeDevices) GetDisplayMedia(_ context.Context, _ DisplayConstraints) (*Stream, error) {
	f.mu.Lock()
	f.displayCalls++
	f.order = append(f.order, "display")
	f.mu.Unlock()

	if f.displayErr != nil {
		return nil, f.displayErr
	}
	f.displayVideo = f.track("display-video", KindVideo)
	tracks := []Track{f.displayVideo}
	if f.displayAudio {
		f.displayTrack = f.track("display-audio", KindAudio)
		tracks = append(tracks, f.displayTrack)
	}
	return NewStream("display", tracks...), nil
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// errorSink collects OnError notifications.
type errorSink struct {
	mu   sync.Mutex
	errs []error
	ch   chan error
}

func newErrorSink() *errorSink {
	return &errorSink{ch: make(chan error, 8)}
}

func (s *errorSink) record(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.ch <- err
}

func (s *errorSink) wait(timeout time.Duration) (error, error) {
	select {
	case err := <-s.ch:
		return err, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no notification within %s", timeout)
	}
}

func (s *errorSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
