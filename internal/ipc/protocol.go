// Package ipc provides the unix-socket control protocol between the
// voicekey daemon and its client commands.
package ipc

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// Capture diagnostics, populated by the status command.
	Overruns   int64 `json:"overruns,omitempty"`
	ShortReads int64 `json:"short_reads,omitempty"`
	Sessions   int64 `json:"sessions,omitempty"`
}
