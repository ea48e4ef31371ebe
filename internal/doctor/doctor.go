// Package doctor runs runtime readiness diagnostics for config, the
// recognizer model, the commit command, audio capture, and the daemon.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/voicekey/voicekey/internal/config"
	"github.com/voicekey/voicekey/internal/ipc"
	"github.com/voicekey/voicekey/internal/pcm"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("%q not found, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkModel(cfg.Config.Model.Path))

	if len(cfg.Config.Commit.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Commit.Argv, "commit_cmd"))
	} else {
		checks = append(checks, Check{Name: "commit_cmd", Pass: true, Message: "not set, transcripts go to stdout"})
	}

	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkDaemon())

	return Report{Checks: checks}
}

// checkModel validates that the recognizer model path points at an
// existing directory.
func checkModel(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "model.path", Pass: false, Message: "model.path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "model.path", Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "model.path", Pass: false, Message: fmt.Sprintf("%q is not a directory", path)}
	}
	return Check{Name: "model.path", Pass: true, Message: fmt.Sprintf("found %q", path)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := pcm.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkDaemon probes the control socket. A daemon that is not running is
// fine; a socket nobody answers on is not.
func checkDaemon() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	alive, probeErr := ipc.Probe(ctx, path, 2*time.Second)
	if probeErr != nil {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("socket %s is unresponsive: %v", path, probeErr)}
	}
	if alive {
		return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("running at %s", path)}
	}
	return Check{Name: "daemon", Pass: true, Message: "not running"}
}
