// Package native provides a capture.MediaDevices backed by miniaudio.
//
// Microphone capture works on every miniaudio backend. Display audio uses
// loopback capture, which miniaudio supports only through WASAPI, so it is
// reported as unsupported elsewhere. There is no screen video; the display
// stream carries a video track that ends when the loopback device stops.
// Echo cancellation, noise suppression and gain control are not available
// from miniaudio and are ignored.
package native

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/hpungsan/murmur/internal/capture"
	"github.com/hpungsan/murmur/internal/logging"
)

// Devices opens miniaudio devices on demand. Call Close when done.
type Devices struct {
	ctx *malgo.AllocatedContext
	log *logging.Logger

	mu     sync.Mutex
	nextID atomic.Int64
}

var _ capture.MediaDevices = (*Devices)(nil)

// Open initializes the audio context.
func Open(log *logging.Logger) (*Devices, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &Devices{ctx: ctx, log: log}, nil
}

// Close releases the audio context. Streams must be stopped first.
func (d *Devices) Close() error {
	if d.ctx == nil {
		return nil
	}
	if err := d.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	d.ctx.Free()
	d.ctx = nil
	return nil
}

// GetUserMedia opens the default capture device.
func (d *Devices) GetUserMedia(ctx context.Context, c capture.AudioConstraints) (*capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("mic-%d", d.nextID.Add(1))
	track, err := d.open(malgo.Capture, id, c, nil)
	if err != nil {
		return nil, err
	}
	return capture.NewStream(id, track), nil
}

// GetDisplayMedia opens a loopback device over the default output.
func (d *Devices) GetDisplayMedia(ctx context.Context, c capture.DisplayConstraints) (*capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if runtime.GOOS != "windows" {
		return nil, fmt.Errorf("loopback capture on %s: %w", runtime.GOOS, capture.ErrUnsupported)
	}

	id := fmt.Sprintf("display-%d", d.nextID.Add(1))
	video := capture.NewLiveTrack(id+"-video", capture.KindVideo, nil)
	track, err := d.open(malgo.Loopback, id+"-audio", c.Audio, video.End)
	if err != nil {
		return nil, err
	}
	return capture.NewStream(id, video, track), nil
}

// open starts a device whose samples feed a LiveTrack. onDeviceStop runs when
// the device stops on its own.
func (d *Devices) open(kind malgo.DeviceType, id string, c capture.AudioConstraints, onDeviceStop func()) (*capture.LiveTrack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return nil, fmt.Errorf("audio context closed: %w", capture.ErrNoDevice)
	}

	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(c.Channels)
	cfg.SampleRate = uint32(c.SampleRate)

	var (
		device  *malgo.Device
		track   *capture.LiveTrack
		dropped atomic.Int64
	)
	track = capture.NewLiveTrack(id, capture.KindAudio, func() {
		if device != nil {
			device.Uninit()
		}
		if n := dropped.Load(); n > 0 {
			d.log.Warnf("%s dropped %d frames", id, n)
		}
	})

	channels := uint32(c.Channels)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, frameCount uint32) {
			if !track.Offer(bytesToFloat32(in, frameCount*channels)) {
				dropped.Add(1)
			}
		},
		Stop: func() {
			track.End()
			if onDeviceStop != nil {
				onDeviceStop()
			}
		},
	}

	var err error
	device, err = malgo.InitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("initializing %s device: %v: %w", id, err, capture.ErrNoDevice)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("starting %s device: %v: %w", id, err, capture.ErrNoDevice)
	}
	d.log.Debugf("opened %s at %d Hz x %d", id, c.SampleRate, c.Channels)
	return track, nil
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
