package pipeline

import "errors"

var (
	// ErrModelLoad indicates the recognizer model path is missing or the
	// model failed to load.
	ErrModelLoad = errors.New("recognizer model load failed")

	// ErrDeviceUnavailable indicates the capture device could not be
	// opened or configured for a new session.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrRecognizerInit indicates a recognizer instance could not be
	// created for a new session.
	ErrRecognizerInit = errors.New("recognizer initialization failed")
)
