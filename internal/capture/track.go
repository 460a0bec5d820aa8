package capture

import "sync"

const trackBuffer = 64

// LiveTrack is a channel-backed Track used by runtimes and by the mixer's output.
type LiveTrack struct {
	id     string
	kind   Kind
	frames chan []float32
	ended  chan struct{}

	endOnce  sync.Once
	stopOnce sync.Once
	onStop   func()
}

var _ AudioTrack = (*LiveTrack)(nil)

// NewLiveTrack creates a running track. onStop, if set, runs once on the first Stop.
func NewLiveTrack(id string, kind Kind, onStop func()) *LiveTrack {
	return &LiveTrack{
		id:     id,
		kind:   kind,
		frames: make(chan []float32, trackBuffer),
		ended:  make(chan struct{}),
		onStop: onStop,
	}
}

func (t *LiveTrack) ID() string               { return t.id }
func (t *LiveTrack) Kind() Kind               { return t.kind }
func (t *LiveTrack) Frames() <-chan []float32 { return t.frames }
func (t *LiveTrack) Ended() <-chan struct{}   { return t.ended }

// Push delivers a frame, blocking while the buffer is full.
// Returns false once the track has ended.
func (t *LiveTrack) Push(frame []float32) bool {
	select {
	case <-t.ended:
		return false
	default:
	}
	select {
	case t.frames <- frame:
		return true
	case <-t.ended:
		return false
	}
}

// Offer delivers a frame without blocking, dropping it when the buffer is full.
// Audio callbacks use this so a slow consumer never stalls the device thread.
func (t *LiveTrack) Offer(frame []float32) bool {
	select {
	case <-t.ended:
		return false
	default:
	}
	select {
	case t.frames <- frame:
		return true
	default:
		return false
	}
}

// End marks the track ended without running onStop. Runtimes call it when the
// source goes away on its own.
func (t *LiveTrack) End() {
	t.endOnce.Do(func() { close(t.ended) })
}

// Stop ends the track and releases the source.
func (t *LiveTrack) Stop() {
	t.End()
	t.stopOnce.Do(func() {
		if t.onStop != nil {
			t.onStop()
		}
	})
}

// drain reads whatever is already buffered on frames without waiting.
func drain(frames <-chan []float32, fn func([]float32)) {
	for {
		select {
		case f := <-frames:
			fn(f)
		default:
			return
		}
	}
}
