package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/logging"
)

// Mode selects which sources a recording captures.
type Mode string

const (
	// ModeMicrophone records the microphone alone.
	ModeMicrophone Mode = "microphone"
	// ModeMeeting mixes the microphone with shared-screen audio.
	ModeMeeting Mode = "meeting"
)

// ParseMode validates a mode name. Empty means microphone.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMicrophone:
		return ModeMicrophone, nil
	case ModeMeeting:
		return ModeMeeting, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown recording mode %q (want microphone or meeting)", s))
}

// State is the facade's lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
	StateStopped    State = "stopped"
	StateErrored    State = "errored"
)

// Options configure a Recorder.
type Options struct {
	Mode       Mode
	SampleRate int
	Channels   int

	// Clock defaults to time.Now.
	Clock Clock
	Log   *logging.Logger

	// OnStart fires when encoding begins.
	OnStart func()
	// OnData receives each encoded chunk.
	OnData func(chunk []byte)
	// OnError receives encoder failures and the SCREEN_SHARE_ENDED
	// notification. It runs on a background goroutine.
	OnError func(error)
}

// session holds everything acquired for one recording.
type session struct {
	mic     *Stream
	display *Stream
	graph   *Graph
	rec     *StreamRecorder

	watchStop chan struct{}
	watchDone chan struct{}

	releaseOnce sync.Once
	// failErr is an encoder failure that arrived before the session was installed.
	failErr error
}

// Recorder composes acquisition, mixing and encoding into one recording
// lifecycle. One recording runs at a time per Recorder.
type Recorder struct {
	acq  *Acquirer
	opts Options
	now  Clock
	log  *logging.Logger

	mu           sync.Mutex
	state        State
	sess         *session
	started      bool
	startedAt    time.Time
	stoppedAt    time.Time
	retained     *Blob
	displayAudio bool
	lastErr      error
}

// NewRecorder creates an idle Recorder over devices.
func NewRecorder(devices MediaDevices, opts Options) *Recorder {
	if opts.Mode == "" {
		opts.Mode = ModeMicrophone
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		acq:   NewAcquirer(devices, opts.SampleRate, opts.Channels),
		opts:  opts,
		now:   now,
		log:   opts.Log,
		state: StateIdle,
	}
}

// Mode returns the configured recording mode.
func (r *Recorder) Mode() Mode { return r.opts.Mode }

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// DisplayAudio reports whether the current or last recording mixed in
// shared-screen audio.
func (r *Recorder) DisplayAudio() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayAudio
}

// Err returns the error that moved the recorder to StateErrored, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Start acquires sources and begins recording. The microphone is always
// acquired first. In meeting mode a denied or failed display request falls
// back to microphone-only recording with a warning.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateAcquiring, StateRecording, StateFinalizing:
		r.mu.Unlock()
		return errors.NewRecordingInProgress()
	}
	r.state = StateAcquiring
	r.retained = nil
	r.displayAudio = false
	r.lastErr = nil
	r.mu.Unlock()

	sess, err := r.open(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil && sess.failErr != nil {
		r.release(sess)
		err = sess.failErr
	}
	if err != nil {
		r.state = StateErrored
		r.lastErr = err
		return err
	}

	r.sess = sess
	r.state = StateRecording
	r.started = true
	r.startedAt = sess.rec.StartedAt()
	r.stoppedAt = time.Time{}
	r.displayAudio = sess.graph != nil && len(sess.display.AudioTracks()) > 0

	if sess.display != nil {
		if video := sess.display.VideoTracks(); len(video) > 0 {
			sess.watchStop = make(chan struct{})
			sess.watchDone = make(chan struct{})
			go r.watch(sess, video[0].Ended())
		}
	}
	return nil
}

// open acquires and wires the sources for one session. Anything acquired is
// released before an error is returned.
func (r *Recorder) open(ctx context.Context) (*session, error) {
	mic, err := r.acq.AcquireMicrophone(ctx)
	if err != nil {
		return nil, err
	}
	sess := &session{mic: mic}
	input := mic

	if r.opts.Mode == ModeMeeting {
		display, err := r.acq.AcquireDisplayWithAudio(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			r.release(sess)
			return nil, err
		case err != nil:
			r.log.Warnf("display capture unavailable, recording microphone only: %v", err)
		default:
			sess.display = display
			if len(display.AudioTracks()) == 0 {
				r.log.Warnf("shared display has no audio track, recording microphone only")
			}
			graph, err := Mix(mic, display)
			if err != nil {
				r.release(sess)
				return nil, err
			}
			sess.graph = graph
			input = graph.Stream()
		}
	}

	rec := NewStreamRecorder(r.opts.SampleRate, r.opts.Channels, r.now)
	hooks := Hooks{
		OnStart: r.opts.OnStart,
		OnData:  r.opts.OnData,
		OnError: func(err error) { go r.abort(sess, err) },
	}
	if err := rec.Start(input, hooks); err != nil {
		r.release(sess)
		return nil, err
	}
	sess.rec = rec
	return sess, nil
}

// Stop finalizes the recording, releases every source and returns the blob.
// After an automatic stop the retained blob is returned once.
func (r *Recorder) Stop() (*Blob, error) {
	r.mu.Lock()
	if r.state == StateStopped && r.retained != nil {
		blob := r.retained
		r.retained = nil
		r.mu.Unlock()
		return blob, nil
	}
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, errors.NewNoActiveRecording()
	}
	sess := r.sess
	r.state = StateFinalizing
	r.mu.Unlock()

	blob, err := r.finalize(sess, false)
	if sess.watchDone != nil {
		<-sess.watchDone
	}
	return blob, err
}

// finalize flushes the mix, stops the encoder and releases the session, then
// publishes the outcome. The state must already be StateFinalizing and r.mu
// must not be held: the encoder's hooks may call back into r while it drains.
func (r *Recorder) finalize(sess *session, retain bool) (*Blob, error) {
	if sess.graph != nil {
		sess.graph.Flush()
	}
	blob, err := sess.rec.Stop()
	r.release(sess)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stoppedAt = sess.rec.StoppedAt()
	if r.stoppedAt.IsZero() {
		r.stoppedAt = r.now()
	}
	r.sess = nil
	if err != nil {
		r.state = StateErrored
		r.lastErr = err
		return nil, err
	}
	r.state = StateStopped
	if retain {
		r.retained = blob
	}
	return blob, nil
}

// watch stops the recording when the shared display's video track ends.
func (r *Recorder) watch(sess *session, ended <-chan struct{}) {
	defer close(sess.watchDone)

	select {
	case <-sess.watchStop:
		return
	case <-ended:
	}

	r.mu.Lock()
	if r.sess != sess || r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.state = StateFinalizing
	onError := r.opts.OnError
	r.mu.Unlock()

	_, err := r.finalize(sess, true)

	if err != nil {
		r.log.Errorf("finalize after screen share ended: %v", err)
	} else {
		r.log.Infof("screen sharing ended, recording stopped")
	}
	if onError != nil {
		onError(errors.NewScreenShareEnded())
	}
}

// abort handles an encoder failure reported by the StreamRecorder.
func (r *Recorder) abort(sess *session, cause error) {
	r.mu.Lock()
	if r.sess != sess {
		if r.state == StateAcquiring {
			sess.failErr = cause
		}
		r.mu.Unlock()
		return
	}
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.state = StateFinalizing
	r.mu.Unlock()

	_, _ = sess.rec.Stop()
	r.release(sess)

	r.mu.Lock()
	r.stoppedAt = r.now()
	r.sess = nil
	r.state = StateErrored
	r.lastErr = cause
	onError := r.opts.OnError
	r.mu.Unlock()

	r.log.Errorf("recording aborted: %v", cause)
	if onError != nil {
		onError(cause)
	}
}

// release tears down the watcher, encoder, graph and every hardware source,
// in reverse acquisition order. Runs at most once per session.
func (r *Recorder) release(sess *session) {
	sess.releaseOnce.Do(func() {
		if sess.watchStop != nil {
			close(sess.watchStop)
		}
		if sess.rec != nil && sess.rec.Recording() {
			_, _ = sess.rec.Stop()
		}
		if sess.graph != nil {
			sess.graph.Close()
		}
		sess.display.Stop()
		sess.mic.Stop()
	})
}

// DurationMs returns elapsed recording time; it keeps growing while recording.
// Zero before the first successful Start.
func (r *Recorder) DurationMs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return 0
	}
	end := r.stoppedAt
	if r.state == StateRecording || r.state == StateFinalizing || end.IsZero() {
		end = r.now()
	}
	return end.Sub(r.startedAt).Milliseconds()
}

// DurationMinutes returns the duration in minutes, see RoundMinutes.
func (r *Recorder) DurationMinutes() float64 {
	return RoundMinutes(r.DurationMs())
}

// FormattedDuration returns the duration as m:ss.
func (r *Recorder) FormattedDuration() string {
	return FormatDuration(r.DurationMs())
}

// RoundMinutes converts milliseconds to minutes with one decimal place.
// Any non-zero duration reports at least 0.1.
func RoundMinutes(ms int64) float64 {
	if ms <= 0 {
		return 0
	}
	minutes := math.Round(float64(ms)/60000*10) / 10
	if minutes < 0.1 {
		return 0.1
	}
	return minutes
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
