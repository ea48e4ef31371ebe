package pcm

// Driver abstracts the audio capture backend. The production implementation
// is PulseDriver; tests substitute stubs with scripted fault sequences.
type Driver interface {
	// Open acquires a capture handle configured near cfg and leaves it
	// ready for reads. Errors wrap ErrOpenFailed or ErrConfigRejected.
	Open(cfg DeviceConfig) (Handle, error)
}

// Handle is one open capture stream. Exactly one goroutine reads from a
// handle at a time; Close must not be called while a Read is in flight.
type Handle interface {
	// Read blocks until up to frames frames are available and returns the
	// raw interleaved S16LE bytes. A short result (fewer bytes than
	// requested) with a nil error matches the driver's actual transfer and
	// is valid. Read returns ErrOverrun when capture data was dropped;
	// the caller must Prepare before reading again. Any other error is
	// fatal for the stream.
	Read(frames int) ([]byte, error)

	// Prepare resets the stream after an overrun without closing it.
	Prepare() error

	// ActualConfig reports the configuration the driver actually applied,
	// which may differ from the requested one.
	ActualConfig() DeviceConfig

	// Close releases the handle. Safe to call more than once.
	Close() error
}
