package capture

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/hpungsan/murmur/internal/errors"
)

const (
	sourceMicrophone = "microphone"
	sourceDisplay    = "display"
)

// Acquirer requests microphone and display sources from a media runtime.
type Acquirer struct {
	devices    MediaDevices
	sampleRate int
	channels   int
}

// NewAcquirer creates an Acquirer requesting the given capture format.
func NewAcquirer(devices MediaDevices, sampleRate, channels int) *Acquirer {
	return &Acquirer{devices: devices, sampleRate: sampleRate, channels: channels}
}

func (a *Acquirer) audioConstraints() AudioConstraints {
	return AudioConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SampleRate:       a.sampleRate,
		Channels:         a.channels,
	}
}

// AcquireMicrophone requests an audio-only capture with echo cancellation,
// noise suppression and gain control enabled.
// A stream without an audio track is stopped and reported as DEVICE_UNAVAILABLE.
func (a *Acquirer) AcquireMicrophone(ctx context.Context) (*Stream, error) {
	s, err := a.devices.GetUserMedia(ctx, a.audioConstraints())
	if err != nil {
		return nil, classify(sourceMicrophone, err)
	}
	if len(s.AudioTracks()) == 0 {
		s.Stop()
		return nil, errors.NewDeviceUnavailable(sourceMicrophone, fmt.Errorf("stream %s has no audio track", s.ID))
	}
	return s, nil
}

// AcquireDisplayWithAudio requests a user-chosen screen, window or tab with
// its audio. A stream with zero audio tracks is returned as is; callers treat
// that as degraded, not failed.
func (a *Acquirer) AcquireDisplayWithAudio(ctx context.Context) (*Stream, error) {
	s, err := a.devices.GetDisplayMedia(ctx, DisplayConstraints{Video: true, Audio: a.audioConstraints()})
	if err != nil {
		return nil, classify(sourceDisplay, err)
	}
	return s, nil
}

// classify maps runtime failures onto the capture error codes.
// Context errors pass through untouched.
func classify(source string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	case stderrors.Is(err, ErrPermission):
		return errors.NewPermissionDenied(source, err)
	case stderrors.Is(err, ErrUnsupported):
		return errors.NewNotSupported(source+" capture", err)
	default:
		return errors.NewDeviceUnavailable(source, err)
	}
}
