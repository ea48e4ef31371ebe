package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate normalizes the parsed config in place and returns non-fatal warnings.
func Validate(cfg *Config) ([]Warning, error) {
	var warnings []Warning

	cfg.Model.Path = strings.TrimSpace(cfg.Model.Path)
	cfg.Audio.Input = strings.TrimSpace(cfg.Audio.Input)
	cfg.Audio.Fallback = strings.TrimSpace(cfg.Audio.Fallback)

	if cfg.Audio.Input == "" {
		cfg.Audio.Input = "default"
	}
	if cfg.Audio.Fallback == "" {
		cfg.Audio.Fallback = "default"
	}

	argv, err := parseArgv(cfg.Commit.Command)
	if err != nil {
		return warnings, fmt.Errorf("commit.command: %w", err)
	}
	cfg.Commit.Argv = argv

	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if level == "" {
		level = "info"
	}
	if _, ok := validLogLevels[level]; !ok {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("log.level %q is not recognized; using %q", cfg.Log.Level, "info"),
		})
		level = "info"
	}
	cfg.Log.Level = level

	throttleRaw := strings.TrimSpace(cfg.Log.OverrunThrottle)
	if throttleRaw == "" {
		throttleRaw = "1s"
	}
	throttle, terr := time.ParseDuration(throttleRaw)
	if terr != nil || throttle < 0 {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("log.overrun_throttle %q is not a valid duration; using 1s", cfg.Log.OverrunThrottle),
		})
		throttle = time.Second
		throttleRaw = "1s"
	}
	cfg.Log.OverrunThrottle = throttleRaw
	cfg.Log.Throttle = throttle

	return warnings, nil
}
