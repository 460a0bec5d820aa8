// Package capture records microphone and shared-screen audio into a single
// encoded blob. It runs against an abstract media runtime so the lifecycle
// can be driven by fakes in tests and by miniaudio in the CLI.
package capture

import (
	"context"
	stderrors "errors"
)

// Kind is the media type of a track.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Sentinel causes a media runtime returns. The Acquirer maps them to
// PERMISSION_DENIED, DEVICE_UNAVAILABLE and NOT_SUPPORTED.
var (
	ErrPermission  = stderrors.New("permission denied")
	ErrNoDevice    = stderrors.New("no capture device")
	ErrUnsupported = stderrors.New("capture not supported")
)

// Track is one live hardware source.
type Track interface {
	ID() string
	Kind() Kind

	// Stop releases the underlying source. Safe to call more than once.
	Stop()

	// Ended is closed when the track stops, whether through Stop or because
	// the runtime ended it (device unplugged, user stopped sharing).
	Ended() <-chan struct{}
}

// AudioTrack delivers interleaved float32 samples in [-1, 1].
type AudioTrack interface {
	Track
	Frames() <-chan []float32
}

// Stream groups the tracks returned by one acquisition.
type Stream struct {
	ID     string
	tracks []Track
}

// NewStream creates a stream over tracks.
func NewStream(id string, tracks ...Track) *Stream {
	return &Stream{ID: id, tracks: tracks}
}

// Tracks returns every track in acquisition order.
func (s *Stream) Tracks() []Track {
	return s.tracks
}

// AudioTracks returns the tracks that carry samples.
func (s *Stream) AudioTracks() []AudioTrack {
	var out []AudioTrack
	for _, t := range s.tracks {
		if at, ok := t.(AudioTrack); ok && t.Kind() == KindAudio {
			out = append(out, at)
		}
	}
	return out
}

// VideoTracks returns the non-audio tracks.
func (s *Stream) VideoTracks() []Track {
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == KindVideo {
			out = append(out, t)
		}
	}
	return out
}

// Stop stops every track. A nil stream is a no-op.
func (s *Stream) Stop() {
	if s == nil {
		return
	}
	for _, t := range s.tracks {
		t.Stop()
	}
}

// AudioConstraints are the processing and format hints for an audio request.
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	Channels         int
}

// DisplayConstraints request a screen, window or tab with its audio.
type DisplayConstraints struct {
	Video bool
	Audio AudioConstraints
}

// MediaDevices is the runtime's capture entry point. Both calls may block
// while the user answers a permission prompt.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c AudioConstraints) (*Stream, error)
	GetDisplayMedia(ctx context.Context, c DisplayConstraints) (*Stream, error)
}
