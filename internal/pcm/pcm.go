// Package pcm manages audio capture: the device driver contract, fixed-format
// frame reads, and recovery from transient capture faults.
package pcm

// The capture format is pinned to what the recognizer consumes. It is set
// once here and never renegotiated per call.
const (
	SampleRateHz   = 16000
	Channels       = 1
	BytesPerSample = 2 // S16LE
	BytesPerFrame  = Channels * BytesPerSample
)

// DeviceConfig describes the capture stream geometry requested from the
// driver. The driver may negotiate nearby values; CaptureSession reports the
// actual result from Open rather than assuming the request was honored.
type DeviceConfig struct {
	SampleRateHz int
	Channels     int
	PeriodFrames int
	BufferFrames int
}

// DefaultDeviceConfig returns the fixed capture geometry: 16 kHz mono S16LE,
// 800-frame periods (~50 ms) and a 4000-frame buffer (~250 ms).
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRateHz: SampleRateHz,
		Channels:     Channels,
		PeriodFrames: 800,
		BufferFrames: 4000,
	}
}

// PeriodBytes is the byte size of one full period read.
func (c DeviceConfig) PeriodBytes() int {
	return c.PeriodFrames * BytesPerFrame
}

// BufferBytes is the byte size of the driver-side capture buffer.
func (c DeviceConfig) BufferBytes() int {
	return c.BufferFrames * BytesPerFrame
}
