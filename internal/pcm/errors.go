package pcm

import "errors"

var (
	// ErrOpenFailed indicates no capture device is available or it is held
	// exclusively by another process.
	ErrOpenFailed = errors.New("open capture device failed")

	// ErrConfigRejected indicates the driver refused the negotiated
	// parameter set.
	ErrConfigRejected = errors.New("capture device rejected configuration")

	// ErrOverrun indicates the driver dropped capture data because the
	// consumer fell behind. The stream has been re-prepared; the next read
	// may proceed.
	ErrOverrun = errors.New("capture overrun")

	// ErrReadFailed indicates a fatal device read error. The session cannot
	// continue; the capture loop must terminate.
	ErrReadFailed = errors.New("capture read failed")

	// ErrNotOpen indicates a read was attempted on a session without an
	// open device handle.
	ErrNotOpen = errors.New("capture session not open")
)
