package pcm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// CaptureSession owns one device handle and performs fixed-format period
// reads on it. Lifecycle: NewSession -> Open -> ReadBlock (repeatedly, from
// a single goroutine) -> Close. Close is idempotent and safe when not open.
type CaptureSession struct {
	driver Driver
	logger *slog.Logger

	handle Handle
	actual DeviceConfig

	overruns   atomic.Int64
	shortReads atomic.Int64

	overrunLogEvery time.Duration
	lastOverrunLog  time.Time
}

func NewSession(driver Driver, logger *slog.Logger) *CaptureSession {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CaptureSession{driver: driver, logger: logger, overrunLogEvery: time.Second}
}

// SetOverrunLogInterval throttles overrun log lines to at most one per
// interval. Zero logs every overrun. Counters are unaffected.
func (s *CaptureSession) SetOverrunLogInterval(interval time.Duration) {
	s.overrunLogEvery = interval
}

// Open acquires and configures the device, returning the configuration the
// driver actually applied.
func (s *CaptureSession) Open(cfg DeviceConfig) (DeviceConfig, error) {
	if s.handle != nil {
		return DeviceConfig{}, errors.New("capture session already open")
	}

	handle, err := s.driver.Open(cfg)
	if err != nil {
		return DeviceConfig{}, err
	}

	s.handle = handle
	s.actual = handle.ActualConfig()
	if s.actual != cfg {
		s.logger.Info("driver negotiated different capture parameters",
			"requested_rate", cfg.SampleRateHz, "actual_rate", s.actual.SampleRateHz,
			"requested_period", cfg.PeriodFrames, "actual_period", s.actual.PeriodFrames)
	}
	return s.actual, nil
}

// ReadBlock reads one period of audio. Overruns are recovered in place: the
// stream is re-prepared and ErrOverrun is returned so the caller can simply
// continue its loop. Short reads are counted and the partial buffer is
// returned as-is. Any other failure wraps ErrReadFailed and ends the session.
func (s *CaptureSession) ReadBlock() ([]byte, error) {
	if s.handle == nil {
		return nil, ErrNotOpen
	}

	buf, err := s.handle.Read(s.actual.PeriodFrames)
	switch {
	case errors.Is(err, ErrOverrun):
		s.overruns.Add(1)
		if now := time.Now(); now.Sub(s.lastOverrunLog) >= s.overrunLogEvery {
			s.lastOverrunLog = now
			s.logger.Warn("capture overrun; re-preparing stream", "overruns", s.overruns.Load())
		}
		if perr := s.handle.Prepare(); perr != nil {
			return nil, fmt.Errorf("%w: recover from overrun: %v", ErrReadFailed, perr)
		}
		return nil, ErrOverrun
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	if len(buf) < s.actual.PeriodBytes() {
		s.shortReads.Add(1)
		s.logger.Debug("short capture read",
			"want_bytes", s.actual.PeriodBytes(), "got_bytes", len(buf))
	}
	return buf, nil
}

// Close releases the device handle if open. Driver close errors are logged
// and swallowed; the session is being torn down regardless.
func (s *CaptureSession) Close() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("closing capture device failed", "error", err.Error())
	}
	s.handle = nil
}

// IsOpen reports whether the session currently holds a device handle.
func (s *CaptureSession) IsOpen() bool {
	return s.handle != nil
}

// Overruns reports how many buffer overruns this session recovered from.
func (s *CaptureSession) Overruns() int64 {
	return s.overruns.Load()
}

// ShortReads reports how many partial period reads this session accepted.
func (s *CaptureSession) ShortReads() int64 {
	return s.shortReads.Load()
}
