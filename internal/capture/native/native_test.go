package native

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"runtime"
	"testing"

	"github.com/hpungsan/murmur/internal/capture"
)

func TestBytesToFloat32(t *testing.T) {
	want := []float32{0, 0.5, -1}
	data := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	if got := bytesToFloat32(data, 3); !reflect.DeepEqual(got, want) {
		t.Errorf("bytesToFloat32 = %v, want %v", got, want)
	}
	if got := bytesToFloat32(data[:10], 3); !reflect.DeepEqual(got, want[:2]) {
		t.Errorf("partial trailing sample should be dropped: got %v", got)
	}
	if got := bytesToFloat32(nil, 4); len(got) != 0 {
		t.Errorf("bytesToFloat32(nil) = %v, want empty", got)
	}
}

func TestGetDisplayMedia_UnsupportedOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("loopback is available on windows")
	}
	d := &Devices{}
	_, err := d.GetDisplayMedia(context.Background(), capture.DisplayConstraints{})
	if !errors.Is(err, capture.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
