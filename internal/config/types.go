// Package config resolves, parses, validates, and defaults voicekey configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by voicekey.
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Audio  AudioConfig  `yaml:"audio"`
	Commit CommitConfig `yaml:"commit"`
	Log    LogConfig    `yaml:"log"`
}

// ModelConfig locates the offline recognizer model on disk.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// CommitConfig controls where finalized transcripts are delivered.
// When Command is empty, transcripts are written to the daemon's stdout.
type CommitConfig struct {
	Command       string `yaml:"command"`
	TrailingSpace bool   `yaml:"trailing_space"`

	// Argv is the parsed form of Command, filled during validation.
	Argv []string `yaml:"-"`
}

// LogConfig controls daemon log output.
type LogConfig struct {
	Level string `yaml:"level"`

	// OverrunThrottle limits how often recovered capture overruns are
	// logged. Overruns are still counted individually.
	OverrunThrottle string `yaml:"overrun_throttle"`

	// Throttle is the parsed form of OverrunThrottle, filled during
	// validation.
	Throttle time.Duration `yaml:"-"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
