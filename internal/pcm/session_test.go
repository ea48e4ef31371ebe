package pcm

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubOutcome scripts one Read result from the stub handle.
type stubOutcome struct {
	data []byte
	err  error
}

type stubHandle struct {
	actual   DeviceConfig
	outcomes []stubOutcome
	reads    int

	prepares   atomic.Int32
	closes     atomic.Int32
	closeErr   error
	prepareErr error
}

func (h *stubHandle) Read(frames int) ([]byte, error) {
	if h.reads >= len(h.outcomes) {
		return make([]byte, frames*BytesPerFrame), nil
	}
	out := h.outcomes[h.reads]
	h.reads++
	return out.data, out.err
}

func (h *stubHandle) Prepare() error {
	h.prepares.Add(1)
	return h.prepareErr
}

func (h *stubHandle) ActualConfig() DeviceConfig {
	return h.actual
}

func (h *stubHandle) Close() error {
	h.closes.Add(1)
	return h.closeErr
}

type stubDriver struct {
	handle  *stubHandle
	openErr error
	opens   atomic.Int32
}

func (d *stubDriver) Open(cfg DeviceConfig) (Handle, error) {
	d.opens.Add(1)
	if d.openErr != nil {
		return nil, d.openErr
	}
	if d.handle.actual == (DeviceConfig{}) {
		d.handle.actual = cfg
	}
	return d.handle, nil
}

func fullPeriod(cfg DeviceConfig) []byte {
	return make([]byte, cfg.PeriodBytes())
}

func TestSessionOpenReportsActualConfig(t *testing.T) {
	requested := DefaultDeviceConfig()
	negotiated := requested
	negotiated.PeriodFrames = 1024

	driver := &stubDriver{handle: &stubHandle{actual: negotiated}}
	session := NewSession(driver, nil)

	actual, err := session.Open(requested)
	require.NoError(t, err)
	require.Equal(t, negotiated, actual)
	require.True(t, session.IsOpen())
}

func TestSessionOpenFailurePropagates(t *testing.T) {
	driver := &stubDriver{openErr: fmt.Errorf("%w: no device", ErrOpenFailed)}
	session := NewSession(driver, nil)

	_, err := session.Open(DefaultDeviceConfig())
	require.ErrorIs(t, err, ErrOpenFailed)
	require.False(t, session.IsOpen())
}

func TestSessionDoubleOpenRejected(t *testing.T) {
	driver := &stubDriver{handle: &stubHandle{}}
	session := NewSession(driver, nil)

	_, err := session.Open(DefaultDeviceConfig())
	require.NoError(t, err)

	_, err = session.Open(DefaultDeviceConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already open")
	require.Equal(t, int32(1), driver.opens.Load())
}

func TestReadBlockBeforeOpen(t *testing.T) {
	session := NewSession(&stubDriver{handle: &stubHandle{}}, nil)
	_, err := session.ReadBlock()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestReadBlockRecoversOverrun(t *testing.T) {
	cfg := DefaultDeviceConfig()
	handle := &stubHandle{outcomes: []stubOutcome{
		{err: ErrOverrun},
		{data: fullPeriod(cfg)},
	}}
	session := NewSession(&stubDriver{handle: handle}, nil)

	_, err := session.Open(cfg)
	require.NoError(t, err)

	_, err = session.ReadBlock()
	require.ErrorIs(t, err, ErrOverrun)
	require.Equal(t, int32(1), handle.prepares.Load())
	require.Equal(t, int64(1), session.Overruns())

	// The stream was re-prepared; the next period reads cleanly.
	block, err := session.ReadBlock()
	require.NoError(t, err)
	require.Len(t, block, cfg.PeriodBytes())
}

func TestReadBlockOverrunRecoveryFailureIsFatal(t *testing.T) {
	handle := &stubHandle{
		outcomes:   []stubOutcome{{err: ErrOverrun}},
		prepareErr: errors.New("device vanished"),
	}
	session := NewSession(&stubDriver{handle: handle}, nil)

	_, err := session.Open(DefaultDeviceConfig())
	require.NoError(t, err)

	_, err = session.ReadBlock()
	require.ErrorIs(t, err, ErrReadFailed)
}

func TestReadBlockAcceptsShortRead(t *testing.T) {
	cfg := DefaultDeviceConfig()
	handle := &stubHandle{outcomes: []stubOutcome{
		{data: make([]byte, 600)},
	}}
	session := NewSession(&stubDriver{handle: handle}, nil)

	_, err := session.Open(cfg)
	require.NoError(t, err)

	block, err := session.ReadBlock()
	require.NoError(t, err)
	require.Len(t, block, 600)
	require.Equal(t, int64(1), session.ShortReads())
}

func TestReadBlockFatalError(t *testing.T) {
	handle := &stubHandle{outcomes: []stubOutcome{
		{err: errors.New("device unplugged")},
	}}
	session := NewSession(&stubDriver{handle: handle}, nil)

	_, err := session.Open(DefaultDeviceConfig())
	require.NoError(t, err)

	_, err = session.ReadBlock()
	require.ErrorIs(t, err, ErrReadFailed)
	require.NotErrorIs(t, err, ErrOverrun)
}

func TestCloseIdempotentAndSwallowsErrors(t *testing.T) {
	handle := &stubHandle{closeErr: errors.New("close failed")}
	session := NewSession(&stubDriver{handle: handle}, nil)

	// Close before open is a safe no-op.
	session.Close()
	require.Equal(t, int32(0), handle.closes.Load())

	_, err := session.Open(DefaultDeviceConfig())
	require.NoError(t, err)

	session.Close()
	session.Close()
	require.Equal(t, int32(1), handle.closes.Load())
	require.False(t, session.IsOpen())
}

func TestOverrunLogThrottle(t *testing.T) {
	cfg := DefaultDeviceConfig()
	handle := &stubHandle{outcomes: []stubOutcome{
		{err: ErrOverrun},
		{err: ErrOverrun},
		{err: ErrOverrun},
	}}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	session := NewSession(&stubDriver{handle: handle}, logger)
	session.SetOverrunLogInterval(time.Hour)

	_, err := session.Open(cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = session.ReadBlock()
		require.ErrorIs(t, err, ErrOverrun)
	}

	// Every overrun is counted, but only the first one inside the
	// interval is logged.
	require.Equal(t, int64(3), session.Overruns())
	require.Equal(t, 1, strings.Count(logBuf.String(), "capture overrun"))
}

func TestOverrunLogUnthrottled(t *testing.T) {
	cfg := DefaultDeviceConfig()
	handle := &stubHandle{outcomes: []stubOutcome{
		{err: ErrOverrun},
		{err: ErrOverrun},
	}}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	session := NewSession(&stubDriver{handle: handle}, logger)
	session.SetOverrunLogInterval(0)

	_, err := session.Open(cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = session.ReadBlock()
		require.ErrorIs(t, err, ErrOverrun)
	}

	require.Equal(t, 2, strings.Count(logBuf.String(), "capture overrun"))
}
