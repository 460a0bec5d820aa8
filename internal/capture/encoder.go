package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// MIMETypeWAV is the container type of every finalized Blob.
	MIMETypeWAV = "audio/wav"

	bitDepth      = 16
	wavFormatPCM  = 1
	bytesPerFrame = bitDepth / 8
)

// pcm16 converts float samples to little-endian signed 16-bit PCM.
func pcm16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerFrame)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(s)))
	}
	return out
}

func toInt16(s float32) int16 {
	v := float64(clip(s)) * math.MaxInt16
	return int16(math.Round(v))
}

// encodeWAV wraps concatenated PCM16 chunks in a WAV container.
func encodeWAV(chunks [][]byte, sampleRate, channels int) ([]byte, error) {
	var n int
	for _, c := range chunks {
		n += len(c) / bytesPerFrame
	}
	data := make([]int, 0, n)
	for _, c := range chunks {
		for i := 0; i+1 < len(c); i += 2 {
			data = append(data, int(int16(binary.LittleEndian.Uint16(c[i:]))))
		}
	}

	f := &memFile{}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	// Write even when empty so the header and data chunk exist.
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return f.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	m.pos = int(next)
	return next, nil
}
