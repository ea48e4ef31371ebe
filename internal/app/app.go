// Package app dispatches CLI commands: it runs the dictation daemon and
// forwards control commands to it over the unix socket.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/voicekey/voicekey/internal/cli"
	"github.com/voicekey/voicekey/internal/config"
	"github.com/voicekey/voicekey/internal/doctor"
	"github.com/voicekey/voicekey/internal/ipc"
	"github.com/voicekey/voicekey/internal/logging"
	"github.com/voicekey/voicekey/internal/output"
	"github.com/voicekey/voicekey/internal/pcm"
	"github.com/voicekey/voicekey/internal/pipeline"
	"github.com/voicekey/voicekey/internal/service"
	"github.com/voicekey/voicekey/internal/transcript"
	"github.com/voicekey/voicekey/internal/version"
)

const forwardTimeout = 500 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voicekey"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voicekey"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
	}

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart, cli.CommandStop, cli.CommandToggle:
		return r.forwardOrFail(ctx, string(parsed.Command))
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandRun starts the long-lived daemon: model load, capture driver,
// commit sink, IPC server, and signal-driven shutdown.
func (r Runner) commandRun(ctx context.Context, cfgLoaded config.Loaded) int {
	logRuntime, err := logging.New(logging.ParseLevel(cfgLoaded.Config.Log.Level))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}
	for _, w := range cfgLoaded.Warnings {
		logger.Warn("config warning", "message", w.Message)
	}
	logger.Info("daemon start", "config", cfgLoaded.Path, "log", logRuntime.Path)

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 200*time.Millisecond, 4)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: voicekey daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	sink := r.buildSink(cfgLoaded.Config, logger)
	format := transcript.Options{TrailingSpace: cfgLoaded.Config.Commit.TrailingSpace}

	var controller *service.Controller

	pipe, err := pipeline.Init(cfgLoaded.Config.Model.Path, pipeline.Options{
		Driver: &pcm.PulseDriver{
			Input:    cfgLoaded.Config.Audio.Input,
			Fallback: cfgLoaded.Config.Audio.Fallback,
		},
		OnTranscript:       func(text string) { controller.OnTranscript(text) },
		Logger:             logger,
		OverrunLogInterval: cfgLoaded.Config.Log.Throttle,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("pipeline init failed", "error", err.Error())
		return 1
	}
	defer pipe.Close()

	controller = service.NewController(logger, pipe, sink, format)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	fmt.Fprintf(r.Stdout, "voicekey daemon listening on %s\n", socketPath)
	<-ctx.Done()

	logger.Info("daemon shutdown")
	controller.Shutdown()
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	return 0
}

// buildSink picks the configured commit command, or stdout when none is set.
func (r Runner) buildSink(cfg config.Config, logger *slog.Logger) output.Sink {
	if len(cfg.Commit.Argv) > 0 {
		return output.NewCommandSink(cfg.Commit.Argv, logger)
	}
	return output.NewWriterSink(r.Stdout)
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := pcm.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %s\n", defaultMark, device.Describe())
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := resp.State
		if state == "" {
			state = "idle"
		}
		fmt.Fprintf(r.Stdout, "%s (sessions=%d overruns=%d short_reads=%d)\n",
			state, resp.Sessions, resp.Overruns, resp.ShortReads)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: voicekey daemon is not running (start it with `voicekey run`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends one command to the daemon. handled is false when no
// daemon is reachable on the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
