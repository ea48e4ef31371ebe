package recognizer

import (
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

var silenceVoskLogs sync.Once

// Model is a loaded Vosk model. Loading is expensive and happens once; the
// model is read-only afterwards and shared by every engine instance created
// from it.
type Model struct {
	inner *vosk.VoskModel
}

// LoadModel loads the Vosk model rooted at path.
func LoadModel(path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model path %q: %w", path, err)
	}

	silenceVoskLogs.Do(func() {
		vosk.SetLogLevel(-1)
	})

	inner, err := vosk.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", path, err)
	}
	return &Model{inner: inner}, nil
}

// NewEngine creates a fresh recognizer instance at the given sample rate.
func (m *Model) NewEngine(sampleRate float64) (Engine, error) {
	rec, err := vosk.NewRecognizer(m.inner, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("create recognizer: %w", err)
	}
	return &voskEngine{inner: rec}, nil
}

// Close frees the underlying model. No engine created from it may be used
// afterwards.
func (m *Model) Close() {
	if m.inner != nil {
		m.inner.Free()
		m.inner = nil
	}
}

type voskEngine struct {
	inner *vosk.VoskRecognizer
}

var _ Engine = (*voskEngine)(nil)

func (e *voskEngine) AcceptWaveform(pcm []byte) int {
	return e.inner.AcceptWaveform(pcm)
}

// The binding returns result documents as strings; the Engine contract
// hands raw JSON bytes to the parser.

func (e *voskEngine) Result() []byte {
	return []byte(e.inner.Result())
}

func (e *voskEngine) PartialResult() []byte {
	return []byte(e.inner.PartialResult())
}

func (e *voskEngine) FinalResult() []byte {
	return []byte(e.inner.FinalResult())
}

func (e *voskEngine) Close() {
	e.inner.Free()
}
