// Package output delivers finalized transcripts to the configured consumer.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// Sink receives one finalized transcript per call.
type Sink interface {
	Commit(ctx context.Context, text string) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, text string) error

func (f SinkFunc) Commit(ctx context.Context, text string) error {
	return f(ctx, text)
}

// WriterSink appends each transcript as one line to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Commit(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, text); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// CommandSink pipes each transcript to a configured command's stdin.
type CommandSink struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

func NewCommandSink(argv []string, logger *slog.Logger) *CommandSink {
	return &CommandSink{argv: argv, timeout: 2 * time.Second, logger: logger}
}

func (s *CommandSink) Commit(ctx context.Context, text string) error {
	if len(s.argv) == 0 {
		return fmt.Errorf("commit command argv cannot be empty")
	}
	if text == "" {
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := runCommandWithInput(runCtx, s.argv, text); err != nil {
		return fmt.Errorf("dispatch transcript: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("transcript dispatched", "command", s.argv[0], "chars", len(text))
	}
	return nil
}

// runCommandWithInput executes argv and writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
