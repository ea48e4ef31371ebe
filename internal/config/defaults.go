package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Path: "",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Commit: CommitConfig{
			Command:       "",
			TrailingSpace: true,
		},
		Log: LogConfig{
			Level:           "info",
			OverrunThrottle: "1s",
		},
	}
}
