package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
)

// Clock returns the current time. time.Now carries a monotonic reading, so
// durations computed from it are immune to wall-clock jumps.
type Clock func() time.Time

// Hooks are the notifications a StreamRecorder sends. All are optional and
// run on the recorder's goroutine.
type Hooks struct {
	// OnStart fires once encoding has begun.
	OnStart func()
	// OnData receives each PCM16 chunk, one per second of audio.
	OnData func(chunk []byte)
	// OnError fires when encoding fails, such as the input track ending mid-record.
	OnError func(error)
}

// Blob is a finalized recording.
type Blob struct {
	MIMEType   string
	Data       []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
}

type encoderState int

const (
	encoderIdle encoderState = iota
	encoderRecording
	encoderStopped
)

// StreamRecorder encodes the first audio track of one stream into buffered
// one-second chunks and finalizes them into a WAV blob.
type StreamRecorder struct {
	sampleRate int
	channels   int
	now        Clock

	mu        sync.Mutex
	state     encoderState
	chunks    [][]byte
	startedAt time.Time
	stoppedAt time.Time
	failErr   error
	quit      chan struct{}
	done      chan struct{}
}

// NewStreamRecorder creates an idle recorder. A nil clock uses time.Now.
func NewStreamRecorder(sampleRate, channels int, now Clock) *StreamRecorder {
	if now == nil {
		now = time.Now
	}
	return &StreamRecorder{sampleRate: sampleRate, channels: channels, now: now}
}

// Start begins encoding s and returns once the encoder is running.
func (r *StreamRecorder) Start(s *Stream, hooks Hooks) error {
	r.mu.Lock()
	if r.state == encoderRecording {
		r.mu.Unlock()
		return errors.NewRecordingInProgress()
	}
	if r.sampleRate <= 0 || r.channels <= 0 {
		r.mu.Unlock()
		return errors.NewNotSupported(fmt.Sprintf("encoding at %d Hz with %d channels", r.sampleRate, r.channels), nil)
	}
	tracks := s.AudioTracks()
	if len(tracks) == 0 {
		r.mu.Unlock()
		return errors.NewEncoderFailure(fmt.Errorf("stream %s has no audio track", s.ID))
	}

	r.state = encoderRecording
	r.chunks = nil
	r.failErr = nil
	r.startedAt = time.Time{}
	r.stoppedAt = time.Time{}
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()

	started := make(chan struct{})
	go r.loop(tracks[0], hooks, started)
	<-started
	return nil
}

func (r *StreamRecorder) loop(track AudioTrack, hooks Hooks, started chan<- struct{}) {
	defer close(r.done)

	chunkSamples := r.sampleRate * r.channels
	var pending []float32

	emit := func(samples []float32) {
		b := pcm16(samples)
		r.mu.Lock()
		r.chunks = append(r.chunks, b)
		r.mu.Unlock()
		if hooks.OnData != nil {
			hooks.OnData(b)
		}
	}
	consume := func(f []float32) {
		pending = append(pending, f...)
		for len(pending) >= chunkSamples {
			emit(pending[:chunkSamples])
			pending = pending[chunkSamples:]
		}
	}
	flush := func() {
		if len(pending) > 0 {
			emit(pending)
			pending = nil
		}
	}

	r.mu.Lock()
	r.startedAt = r.now()
	r.mu.Unlock()
	if hooks.OnStart != nil {
		hooks.OnStart()
	}
	close(started)

	for {
		select {
		case f := <-track.Frames():
			consume(f)
		case <-r.quit:
			drain(track.Frames(), consume)
			flush()
			return
		case <-track.Ended():
			drain(track.Frames(), consume)
			flush()
			select {
			case <-r.quit:
				return
			default:
			}
			err := errors.NewEncoderFailure(fmt.Errorf("audio track %s ended while recording", track.ID()))
			r.mu.Lock()
			r.failErr = err
			r.mu.Unlock()
			if hooks.OnError != nil {
				hooks.OnError(err)
			}
			return
		}
	}
}

// Stop finalizes the recording and returns the blob.
// Fails with NO_ACTIVE_RECORDING when not recording, or with the encoder
// failure that ended the recording early.
func (r *StreamRecorder) Stop() (*Blob, error) {
	r.mu.Lock()
	if r.state != encoderRecording {
		r.mu.Unlock()
		return nil, errors.NewNoActiveRecording()
	}
	r.state = encoderStopped
	close(r.quit)
	done := r.done
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	r.stoppedAt = r.now()
	chunks := r.chunks
	failErr := r.failErr
	duration := r.stoppedAt.Sub(r.startedAt)
	r.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	data, err := encodeWAV(chunks, r.sampleRate, r.channels)
	if err != nil {
		return nil, errors.NewEncoderFailure(err)
	}
	return &Blob{
		MIMEType:   MIMETypeWAV,
		Data:       data,
		SampleRate: r.sampleRate,
		Channels:   r.channels,
		Duration:   duration,
	}, nil
}

// Recording reports whether Start has been called without a matching Stop.
func (r *StreamRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == encoderRecording
}

// StartedAt returns when encoding began; zero before the first Start.
func (r *StreamRecorder) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// StoppedAt returns when the last Stop finalized; zero while recording.
func (r *StreamRecorder) StoppedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stoppedAt
}

// ChunkCount returns the number of chunks buffered so far.
func (r *StreamRecorder) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}
