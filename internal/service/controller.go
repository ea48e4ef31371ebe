// Package service coordinates the dictation daemon: it owns the pipeline
// across IPC commands and routes finalized transcripts to the commit sink.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voicekey/voicekey/internal/fsm"
	"github.com/voicekey/voicekey/internal/ipc"
	"github.com/voicekey/voicekey/internal/output"
	"github.com/voicekey/voicekey/internal/pipeline"
	"github.com/voicekey/voicekey/internal/transcript"
)

const commitTimeout = 3 * time.Second

// Pipeline is the controller-facing subset of pipeline behavior.
type Pipeline interface {
	Start() error
	Stop()
	IsListening() bool
	Stats() pipeline.Stats
}

// Controller serves IPC commands against the speech pipeline and keeps the
// service state machine in step with it.
type Controller struct {
	logger *slog.Logger
	pipe   Pipeline
	sink   output.Sink
	format transcript.Options

	mu    sync.Mutex
	state fsm.State
}

// NewController constructs a controller with safe default fallbacks.
func NewController(logger *slog.Logger, pipe Pipeline, sink output.Sink, format transcript.Options) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sink == nil {
		sink = output.SinkFunc(func(context.Context, string) error { return nil })
	}
	return &Controller{
		logger: logger,
		pipe:   pipe,
		sink:   sink,
		format: format,
		state:  fsm.StateIdle,
	}
}

// State returns the current service state after reconciling against the
// pipeline, which may have ended its session on a fatal capture error.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
	return c.state
}

// OnTranscript receives finalized utterances from the pipeline dispatcher
// and forwards them to the commit sink. Errors are logged, never raised:
// nothing may cross the callback boundary.
func (c *Controller) OnTranscript(text string) {
	normalized := transcript.Normalize(text, c.format)
	if normalized == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := c.sink.Commit(ctx, normalized); err != nil {
		c.logger.Error("transcript commit failed", "error", err.Error())
		return
	}
	c.logger.Info("transcript committed", "chars", len(normalized))
}

// Handle serves one IPC command.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()

	switch req.Command {
	case "status":
		stats := c.pipe.Stats()
		return ipc.Response{
			OK:         true,
			State:      string(c.state),
			Message:    "status",
			Overruns:   stats.Overruns,
			ShortReads: stats.ShortReads,
			Sessions:   stats.Sessions,
		}
	case "start":
		return c.startLocked()
	case "stop":
		return c.stopLocked()
	case "toggle":
		if c.state == fsm.StateListening {
			return c.stopLocked()
		}
		return c.startLocked()
	default:
		return ipc.Response{OK: false, State: string(c.state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// startLocked transitions to listening and starts the pipeline. Callers
// hold c.mu.
func (c *Controller) startLocked() ipc.Response {
	if c.state == fsm.StateListening {
		// Starting an already-listening service succeeds without effect.
		return ipc.Response{OK: true, State: string(c.state), Message: "already listening"}
	}
	if c.state == fsm.StateError {
		c.transitionLocked(fsm.EventReset)
	}

	if err := c.pipe.Start(); err != nil {
		c.logger.Error("start listening failed", "error", err.Error())
		c.transitionLocked(fsm.EventFatal)
		c.transitionLocked(fsm.EventReset)
		return ipc.Response{OK: false, State: string(c.state), Error: err.Error()}
	}

	c.transitionLocked(fsm.EventStart)
	return ipc.Response{OK: true, State: string(c.state), Message: "listening started"}
}

// stopLocked stops the pipeline and transitions to idle. Callers hold c.mu.
func (c *Controller) stopLocked() ipc.Response {
	if c.state != fsm.StateListening {
		return ipc.Response{OK: true, State: string(c.state), Message: "not listening"}
	}

	c.pipe.Stop()
	c.transitionLocked(fsm.EventStop)
	return ipc.Response{OK: true, State: string(c.state), Message: "listening stopped"}
}

// Shutdown stops any active session on daemon exit.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipe.Stop()
	if c.state == fsm.StateListening {
		c.transitionLocked(fsm.EventStop)
	}
}

// reconcileLocked folds asynchronous pipeline state into the FSM: a session
// that died on a fatal capture error clears IsListening without an IPC
// command having been issued. Callers hold c.mu.
func (c *Controller) reconcileLocked() {
	if c.state == fsm.StateListening && !c.pipe.IsListening() {
		c.logger.Warn("capture session ended unexpectedly")
		c.transitionLocked(fsm.EventFatal)
		c.transitionLocked(fsm.EventReset)
	}
}

// transitionLocked applies one FSM event, logging invalid transitions
// rather than failing: the FSM is the service's bookkeeping, not a gate on
// the pipeline's own state machine.
func (c *Controller) transitionLocked(event fsm.Event) {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.logger.Warn("state transition rejected", "state", string(c.state), "event", string(event))
		return
	}
	c.state = next
}
