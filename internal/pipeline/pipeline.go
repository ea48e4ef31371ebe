// Package pipeline drives the speech capture and recognition loop: it owns
// the session lifecycle, feeds captured audio to the recognizer on a worker
// goroutine, and hands finalized utterances to the consumer.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicekey/voicekey/internal/pcm"
	"github.com/voicekey/voicekey/internal/recognizer"
	"github.com/voicekey/voicekey/internal/transcript"
)

// TranscriptFunc receives one finalized utterance. It is invoked from the
// pipeline's dispatcher goroutine (never from the capture worker) and is
// never called with blank text. It must not call back into the pipeline.
type TranscriptFunc func(text string)

// Options configures a Pipeline.
type Options struct {
	Driver       pcm.Driver
	Factory      recognizer.Factory
	OnTranscript TranscriptFunc
	Logger       *slog.Logger

	// Config defaults to pcm.DefaultDeviceConfig when zero.
	Config pcm.DeviceConfig

	// OverrunLogInterval throttles overrun log lines per session.
	// Zero keeps the session default.
	OverrunLogInterval time.Duration
}

// Stats are cumulative capture diagnostics across all sessions.
type Stats struct {
	Sessions   int64
	Overruns   int64
	ShortReads int64
}

// Pipeline owns the start/stop state machine around one capture-and-
// recognize session at a time. All methods are safe for concurrent use;
// IsListening is lock-free.
//
// Two flags cross the worker boundary: shouldRun is the cooperative
// cancellation signal, observed between period reads (so cancellation
// latency is about one read period, not instant), and listening is the
// observable state. The worker goroutine is always joined before the
// recognizer is released or the device is closed.
type Pipeline struct {
	cfg             pcm.DeviceConfig
	driver          pcm.Driver
	factory         recognizer.Factory
	logger          *slog.Logger
	overrunLogEvery time.Duration

	model *recognizer.Model // set by Init; freed on Close

	mu      sync.Mutex
	session *pcm.CaptureSession
	engine  recognizer.Engine
	done    chan struct{} // closed by the worker on exit; nil when reaped

	listening atomic.Bool
	shouldRun atomic.Bool

	sessions   atomic.Int64
	overruns   atomic.Int64
	shortReads atomic.Int64

	events       chan string
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// New builds a pipeline and starts its transcript dispatcher.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := opts.Config
	if cfg == (pcm.DeviceConfig{}) {
		cfg = pcm.DefaultDeviceConfig()
	}
	deliver := opts.OnTranscript
	if deliver == nil {
		deliver = func(string) {}
	}

	p := &Pipeline{
		cfg:             cfg,
		driver:          opts.Driver,
		factory:         opts.Factory,
		logger:          logger,
		overrunLogEvery: opts.OverrunLogInterval,
		events:          make(chan string, 16),
		dispatchDone:    make(chan struct{}),
	}

	go func() {
		defer close(p.dispatchDone)
		for text := range p.events {
			deliver(text)
		}
	}()

	return p
}

// Init loads the recognizer model at modelPath and builds a pipeline that
// owns it. The model stays loaded across any number of start/stop cycles
// and is freed by Close.
func Init(modelPath string, opts Options) (*Pipeline, error) {
	model, err := recognizer.LoadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	opts.Factory = model
	p := New(opts)
	p.model = model
	return p, nil
}

// Start opens a capture session, creates a fresh recognizer instance, and
// spawns the worker. Calling Start while already listening is a no-op
// returning nil. On failure the pipeline stays idle and holds no resources.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listening.Load() {
		return nil
	}

	// A previous session may have ended on a fatal read error without an
	// intervening Stop; release its resources before starting anew.
	p.reapLocked()

	session := pcm.NewSession(p.driver, p.logger)
	if p.overrunLogEvery > 0 {
		session.SetOverrunLogInterval(p.overrunLogEvery)
	}
	actual, err := session.Open(p.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	engine, err := p.factory.NewEngine(float64(actual.SampleRateHz))
	if err != nil {
		session.Close()
		return fmt.Errorf("%w: %v", ErrRecognizerInit, err)
	}

	p.session = session
	p.engine = engine
	p.done = make(chan struct{})
	p.sessions.Add(1)

	p.shouldRun.Store(true)
	p.listening.Store(true)
	go p.run(session, engine, p.done)

	p.logger.Info("listening started", "device_rate", actual.SampleRateHz, "period_frames", actual.PeriodFrames)
	return nil
}

// Stop signals the worker to exit, joins it, flushes the recognizer's final
// result, and releases the session. Stopping an idle pipeline is a no-op.
// When the worker already exited on a fatal read error, Stop completes the
// deferred cleanup.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()
}

// reapLocked tears down the current session, if any. Callers hold p.mu.
func (p *Pipeline) reapLocked() {
	if p.done == nil {
		return
	}

	p.shouldRun.Store(false)
	<-p.done
	p.done = nil

	if p.engine != nil {
		// Drain trailing speech before the recognizer is released.
		text := recognizer.TextFromResult(p.engine.FinalResult())
		if !transcript.Blank(text) {
			p.emitNonBlocking(text)
		}
		p.engine.Close()
		p.engine = nil
	}

	if p.session != nil {
		p.overruns.Add(p.session.Overruns())
		p.shortReads.Add(p.session.ShortReads())
		p.session.Close()
		p.session = nil
	}

	p.listening.Store(false)
	p.logger.Info("listening stopped")
}

// run is the capture worker. It owns all device reads and recognizer feeds
// for one session and exits when shouldRun clears or a read fails fatally.
func (p *Pipeline) run(session *pcm.CaptureSession, engine recognizer.Engine, done chan struct{}) {
	defer close(done)

	for p.shouldRun.Load() {
		block, err := session.ReadBlock()
		if err != nil {
			if errors.Is(err, pcm.ErrOverrun) {
				// Session already re-prepared the stream; keep reading.
				continue
			}
			p.logger.Error("capture read failed; ending session", "error", err.Error())
			p.listening.Store(false)
			return
		}
		if len(block) == 0 {
			continue
		}

		if engine.AcceptWaveform(block) == recognizer.Finalized {
			text := recognizer.TextFromResult(engine.Result())
			if !transcript.Blank(text) {
				p.events <- text
			}
		} else {
			// The engine requires partials to be consumed to keep its
			// internal state consistent; they are never forwarded.
			_ = engine.PartialResult()
		}
	}
}

// emitNonBlocking delivers flush text without risking a deadlock against a
// consumer callback that is slow mid-shutdown.
func (p *Pipeline) emitNonBlocking(text string) {
	select {
	case p.events <- text:
	default:
		p.logger.Warn("transcript dropped: dispatcher backlog full", "chars", len(text))
	}
}

// IsListening reports the observable state. Safe from any goroutine; used
// by UI-style polling.
func (p *Pipeline) IsListening() bool {
	return p.listening.Load()
}

// Stats reports cumulative capture diagnostics, including the live session.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{
		Sessions:   p.sessions.Load(),
		Overruns:   p.overruns.Load(),
		ShortReads: p.shortReads.Load(),
	}
	if p.session != nil {
		s.Overruns += p.session.Overruns()
		s.ShortReads += p.session.ShortReads()
	}
	return s
}

// Close stops any active session, drains the dispatcher, and frees the
// model when the pipeline owns one. The pipeline is unusable afterwards.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.Stop()
		close(p.events)
		<-p.dispatchDone
		if p.model != nil {
			p.model.Close()
			p.model = nil
		}
	})
}
