package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultPort is deliberately high and unregistered; the daemon binds
	// loopback unless told otherwise.
	DefaultPort = 51515
	DefaultHost = "127.0.0.1"

	// DefaultMaxMessageLength caps the TTS message accepted by /notify.
	DefaultMaxMessageLength = 500

	// ElevenLabs voice "Rachel" and the monolingual english model.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModelID = "eleven_monolingual_v1"

	appDirName = "audio-notify-server"
)

// DefaultConfig returns the built-in configuration used when no config
// file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   defaultLogDir(),
			File:  "notify-server.log",
		},
		Notify: NotifyConfig{
			SpeechUserConfig:   DefaultUserSpeechConfigPath(),
			SpeechSystemConfig: DefaultSystemSpeechConfigPath(),
		},
		Web: WebConfig{
			StaticDir:    "./web",
			EventStream:  true,
			EventWorkers: 4,
		},
	}
}

// defaultLogDir follows the XDG state convention: ~/.local/state/<app>/.
func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", "logs")
	}
	return filepath.Join(home, ".local", "state", appDirName)
}

// DefaultUserSpeechConfigPath is the user-level speech config location.
func DefaultUserSpeechConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDirName, "config.json")
}

// DefaultSystemSpeechConfigPath is the system-level speech config location.
func DefaultSystemSpeechConfigPath() string {
	return filepath.Join("/etc", appDirName, "config.json")
}
