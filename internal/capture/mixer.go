package capture

import (
	"sync"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
)

// Graph mixes several live audio tracks into one output track.
// It owns only the mixing goroutines; the source tracks stay owned by their
// streams and may be stopped before or after Close.
//
// Inputs are summed sample by sample. An input that delivers nothing for a
// whole stallInterval is padded with silence so the others keep flowing, and
// no input may run more than maxBuffered samples ahead of the rest.
type Graph struct {
	out    *LiveTrack
	tracks []AudioTrack

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// forwarders is the subset of wg reading the source tracks.
	forwarders sync.WaitGroup
	flushReq   chan struct{}
	flushOnce  sync.Once
	flushed    chan struct{}
	finished   chan struct{}
}

const maxBuffered = 1 << 17

var stallInterval = 100 * time.Millisecond

type mixMsg struct {
	idx   int
	frame []float32
	ended bool
}

type mixInput struct {
	buf   []float32
	ended bool
	// fresh is set when a frame arrived since the last stall check.
	fresh bool
}

// Mix connects every audio track of sources to a single output.
// Streams with no audio track are skipped. Fails with NOT_SUPPORTED when no
// source has audio at all.
func Mix(sources ...*Stream) (*Graph, error) {
	var tracks []AudioTrack
	for _, s := range sources {
		if s == nil {
			continue
		}
		tracks = append(tracks, s.AudioTracks()...)
	}
	if len(tracks) == 0 {
		return nil, errors.NewNotSupported("mixing streams without audio", nil)
	}

	g := &Graph{
		tracks:   tracks,
		done:     make(chan struct{}),
		flushReq: make(chan struct{}),
		flushed:  make(chan struct{}),
		finished: make(chan struct{}),
	}
	g.out = NewLiveTrack("mix", KindAudio, g.Close)

	msgs := make(chan mixMsg)
	for i, t := range tracks {
		g.wg.Add(1)
		g.forwarders.Add(1)
		go g.forward(i, t, msgs)
	}
	g.wg.Add(1)
	go g.run(msgs)

	return g, nil
}

// Inputs reports how many audio tracks feed the mix.
func (g *Graph) Inputs() int { return len(g.tracks) }

// Output returns the mixed track.
func (g *Graph) Output() AudioTrack { return g.out }

// Stream wraps the mixed track as a single-track stream.
func (g *Graph) Stream() *Stream { return NewStream("mix", g.out) }

// Close tears down the graph and ends the output track. Safe to call more than once.
func (g *Graph) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
		g.out.End()
	})
	g.wg.Wait()
}

// Flush stops reading the sources and delivers everything they have produced
// to the output, padding shorter inputs with silence. The output stays open so
// a consumer can drain it before Close. Safe to call more than once.
func (g *Graph) Flush() {
	g.flushOnce.Do(func() { close(g.flushReq) })
	select {
	case <-g.flushed:
	case <-g.finished:
	}
}

func (g *Graph) forward(idx int, t AudioTrack, msgs chan<- mixMsg) {
	defer g.wg.Done()
	defer g.forwarders.Done()

	send := func(m mixMsg) bool {
		select {
		case msgs <- m:
			return true
		case <-g.done:
			return false
		}
	}

	for {
		select {
		case f := <-t.Frames():
			if !send(mixMsg{idx: idx, frame: f}) {
				return
			}
		case <-t.Ended():
			ok := true
			drain(t.Frames(), func(f []float32) {
				if ok {
					ok = send(mixMsg{idx: idx, frame: f})
				}
			})
			if ok {
				send(mixMsg{idx: idx, ended: true})
			}
			return
		case <-g.flushReq:
			return
		case <-g.done:
			return
		}
	}
}

func (g *Graph) run(msgs <-chan mixMsg) {
	defer g.wg.Done()
	defer close(g.finished)
	defer g.out.End()

	ticker := time.NewTicker(stallInterval)
	defer ticker.Stop()

	inputs := make([]mixInput, len(g.tracks))
	apply := func(m mixMsg) {
		in := &inputs[m.idx]
		if m.ended {
			in.ended = true
			return
		}
		in.buf = append(in.buf, m.frame...)
		in.fresh = true
	}
	emit := func() bool {
		for {
			frame := mixReady(inputs)
			if frame == nil {
				return true
			}
			select {
			case g.out.frames <- frame:
			case <-g.done:
				return false
			}
		}
	}

	for {
		select {
		case m := <-msgs:
			apply(m)
			if len(inputs[m.idx].buf) > maxBuffered {
				padLagging(inputs, true)
			}
		case <-ticker.C:
			padLagging(inputs, false)
			for i := range inputs {
				inputs[i].fresh = false
			}
		case <-g.flushReq:
			g.flush(msgs, inputs, apply, emit)
			return
		case <-g.done:
			return
		}

		if !emit() {
			return
		}
		if exhausted(inputs) {
			return
		}
	}
}

// flush collects what the forwarders still hold and what sits unread on the
// source tracks, emits it all, then waits for Close.
func (g *Graph) flush(msgs <-chan mixMsg, inputs []mixInput, apply func(mixMsg), emit func() bool) {
	stopped := make(chan struct{})
	go func() {
		g.forwarders.Wait()
		close(stopped)
	}()
collect:
	for {
		select {
		case m := <-msgs:
			apply(m)
		case <-stopped:
			break collect
		}
	}
	for i, t := range g.tracks {
		drain(t.Frames(), func(f []float32) {
			inputs[i].buf = append(inputs[i].buf, f...)
		})
	}

	padLagging(inputs, true)
	if !emit() {
		return
	}
	close(g.flushed)
	<-g.done
}

// mixReady sums the samples every input can contribute, or returns nil while
// a live input has nothing buffered. Ended inputs with empty buffers drop out.
func mixReady(inputs []mixInput) []float32 {
	n := -1
	for _, in := range inputs {
		if len(in.buf) == 0 {
			if !in.ended {
				return nil
			}
			continue
		}
		if n < 0 || len(in.buf) < n {
			n = len(in.buf)
		}
	}
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	for i := range inputs {
		if len(inputs[i].buf) == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			out[j] += inputs[i].buf[j]
		}
		inputs[i].buf = inputs[i].buf[n:]
	}
	for j, v := range out {
		out[j] = clip(v)
	}
	return out
}

// padLagging fills live inputs with silence up to the longest buffer.
// Without force only stalled inputs are padded: empty, and silent since the
// last check.
func padLagging(inputs []mixInput, force bool) {
	longest := 0
	for _, in := range inputs {
		if len(in.buf) > longest {
			longest = len(in.buf)
		}
	}
	if longest == 0 {
		return
	}
	for i := range inputs {
		in := &inputs[i]
		if in.ended || len(in.buf) >= longest {
			continue
		}
		if !force && (len(in.buf) > 0 || in.fresh) {
			continue
		}
		in.buf = append(in.buf, make([]float32, longest-len(in.buf))...)
	}
}

func exhausted(inputs []mixInput) bool {
	for _, in := range inputs {
		if !in.ended || len(in.buf) > 0 {
			return false
		}
	}
	return true
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
