package pcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// readStallTimeout bounds how long a period read waits for the pulse server
// before the stream is declared dead. Normal delivery cadence is one period
// (~50 ms), so hitting this means the server stopped feeding us.
const readStallTimeout = 2 * time.Second

// PulseDriver opens capture handles backed by a PulseAudio record stream.
// Input and Fallback are device-selection preferences (see SelectDevice).
type PulseDriver struct {
	Input    string
	Fallback string
}

// Open resolves the capture source and starts a record stream at the fixed
// format. Pulse resamples server-side to the requested spec, so the actual
// configuration matches the requested one.
func (d *PulseDriver) Open(cfg DeviceConfig) (Handle, error) {
	selection, err := SelectDevice(context.Background(), d.Input, d.Fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voicekey"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", ErrOpenFailed, err)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrOpenFailed, selection.Device.ID, err)
	}

	periods := cfg.BufferFrames / cfg.PeriodFrames
	if periods < 1 {
		periods = 1
	}
	handle := &pulseHandle{
		cfg:    cfg,
		device: selection.Device,
		client: client,
		chunks: make(chan []byte, periods),
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(handle.push), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(cfg.SampleRateHz),
		pulse.RecordBufferFragmentSize(uint32(cfg.PeriodBytes())),
		pulse.RecordMediaName("voicekey capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create record stream: %v", ErrConfigRejected, err)
	}

	handle.stream = stream
	stream.Start()
	return handle, nil
}

// pulseHandle adapts the push-style pulse record stream to the blocking
// period-read contract. Incoming fragments queue on a bounded channel sized
// to the configured buffer; when the reader falls behind, fragments are
// dropped and the next Read reports ErrOverrun.
type pulseHandle struct {
	cfg    DeviceConfig
	device Device
	client *pulse.Client
	stream *pulse.RecordStream

	chunks  chan []byte
	stopCh  chan struct{}
	overrun atomic.Bool

	// pending is touched only by the Read goroutine.
	pending []byte

	mu     sync.Mutex
	closed bool
}

// push receives raw fragments on the pulse client goroutine.
func (h *pulseHandle) push(buf []byte) (int, error) {
	select {
	case <-h.stopCh:
		return 0, io.EOF
	default:
	}
	if len(buf) == 0 {
		return 0, nil
	}

	chunk := make([]byte, len(buf))
	copy(chunk, buf)

	select {
	case h.chunks <- chunk:
	default:
		// Consumer fell behind the producer; the fragment is lost.
		h.overrun.Store(true)
	}
	return len(buf), nil
}

func (h *pulseHandle) Read(frames int) ([]byte, error) {
	want := frames * BytesPerFrame

	timer := time.NewTimer(readStallTimeout)
	defer timer.Stop()

	for len(h.pending) < want {
		if h.overrun.Load() {
			return nil, ErrOverrun
		}
		select {
		case chunk := <-h.chunks:
			h.pending = append(h.pending, chunk...)
		case <-h.stopCh:
			return nil, errors.New("capture stream closed")
		case <-timer.C:
			return nil, errors.New("capture stalled: no data from pulse server")
		}
	}
	if h.overrun.Load() {
		return nil, ErrOverrun
	}

	out := make([]byte, want)
	copy(out, h.pending[:want])
	h.pending = h.pending[want:]
	return out, nil
}

// Prepare discards buffered fragments and clears the overrun condition so
// reads can resume on fresh data.
func (h *pulseHandle) Prepare() error {
	h.pending = h.pending[:0]
	for {
		select {
		case <-h.chunks:
		default:
			h.overrun.Store(false)
			return nil
		}
	}
}

func (h *pulseHandle) ActualConfig() DeviceConfig {
	return h.cfg
}

func (h *pulseHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.stopCh)
	h.mu.Unlock()

	if h.stream != nil {
		h.stream.Stop()
		h.stream.Close()
	}
	if h.client != nil {
		h.client.Close()
	}
	return nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
