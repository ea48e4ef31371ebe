// Package recognizer wraps the streaming speech engine behind a narrow
// feed/result contract. The production engine is Vosk; tests use stubs.
package recognizer

// AcceptWaveform return values, matching the Vosk API.
const (
	// Buffering means the utterance is still in progress; a partial
	// result is available.
	Buffering = 0
	// Finalized means the engine judged an utterance boundary reached;
	// Result holds the final payload.
	Finalized = 1
)

// Engine is one live recognizer instance. An instance is created per
// listening session and must be closed when the session ends; the model it
// was created from stays loaded across sessions.
//
// Payloads are JSON documents: Result and FinalResult carry a "text" field,
// PartialResult a "partial" field. Partial results must be consumed after
// each Buffering feed to keep the decoder state consistent, even when the
// caller discards them.
type Engine interface {
	AcceptWaveform(pcm []byte) int
	Result() []byte
	PartialResult() []byte
	// FinalResult flushes whatever speech the engine has buffered as one
	// last final payload. Called once, at session end.
	FinalResult() []byte
	Close()
}

// Factory creates engine instances from a loaded model.
type Factory interface {
	NewEngine(sampleRate float64) (Engine, error)
}
