package config

import (
	"os"

	"github.com/bytedance/sonic"

	"audio-notify-server-go/internal/platform/logging"
)

// SpeechConfig is the per-request snapshot deciding how speech synthesis runs.
// It is resolved fresh on every request; concurrent resolutions race harmlessly.
type SpeechConfig struct {
	ElevenLabs       ElevenLabsConfig
	Edge             EdgeConfig
	MaxMessageLength int
}

type ElevenLabsConfig struct {
	Enabled bool
	APIKey  string
	VoiceID string
	ModelID string
}

type EdgeConfig struct {
	Enabled bool
	Voice   string
}

// speechFile mirrors the on-disk JSON layout shared with the original deployment:
//
//	{
//	  "max_message_length": 500,
//	  "elevenlabs": {"api_key": "...", "voice_id": "...", "model_id": "...", "enabled": true},
//	  "edge": {"enabled": true, "voice": "en-US-AriaNeural"}
//	}
type speechFile struct {
	MaxMessageLength *int             `json:"max_message_length"`
	ElevenLabs       *elevenLabsBlock `json:"elevenlabs"`
	Edge             *edgeBlock       `json:"edge"`
}

type elevenLabsBlock struct {
	APIKey  string `json:"api_key"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`
	Enabled *bool  `json:"enabled"`
}

type edgeBlock struct {
	Enabled bool   `json:"enabled"`
	Voice   string `json:"voice"`
}

// ResolveSpeech merges the given config file sources with environment
// lookups. Sources are tried in order and the first parseable one wins;
// they are never merged with each other. Environment values override
// whatever the file provides. The function touches no global state and
// no filesystem, so precedence is fully unit-testable.
func ResolveSpeech(getenv func(string) string, sources ...[]byte) SpeechConfig {
	cfg := SpeechConfig{
		ElevenLabs: ElevenLabsConfig{
			VoiceID: DefaultVoiceID,
			ModelID: DefaultModelID,
		},
		MaxMessageLength: DefaultMaxMessageLength,
	}

	explicitlyDisabled := false

	for _, src := range sources {
		if len(src) == 0 {
			continue
		}
		var file speechFile
		if err := sonic.Unmarshal(src, &file); err != nil {
			// malformed file: treated as absent, next source gets a chance
			continue
		}
		if file.MaxMessageLength != nil && *file.MaxMessageLength > 0 {
			cfg.MaxMessageLength = *file.MaxMessageLength
		}
		if el := file.ElevenLabs; el != nil {
			if el.APIKey != "" {
				cfg.ElevenLabs.APIKey = el.APIKey
			}
			if el.VoiceID != "" {
				cfg.ElevenLabs.VoiceID = el.VoiceID
			}
			if el.ModelID != "" {
				cfg.ElevenLabs.ModelID = el.ModelID
			}
			if el.Enabled != nil && !*el.Enabled {
				explicitlyDisabled = true
			}
		}
		if ed := file.Edge; ed != nil {
			cfg.Edge.Enabled = ed.Enabled
			cfg.Edge.Voice = ed.Voice
		}
		break
	}

	if getenv != nil {
		if v := getenv("ELEVENLABS_API_KEY"); v != "" {
			cfg.ElevenLabs.APIKey = v
		}
		if v := getenv("ELEVENLABS_VOICE_ID"); v != "" {
			cfg.ElevenLabs.VoiceID = v
		}
		if v := getenv("ELEVENLABS_MODEL_ID"); v != "" {
			cfg.ElevenLabs.ModelID = v
		}
	}

	cfg.ElevenLabs.Enabled = cfg.ElevenLabs.APIKey != "" && !explicitlyDisabled

	return cfg
}

// SpeechResolver reads the layered speech config from disk. The user-level
// file takes precedence over the system-level one.
type SpeechResolver struct {
	UserPath   string
	SystemPath string
	Logger     *logging.Logger
}

// NewSpeechResolver builds a resolver over the default file locations.
func NewSpeechResolver(logger *logging.Logger) *SpeechResolver {
	return &SpeechResolver{
		UserPath:   DefaultUserSpeechConfigPath(),
		SystemPath: DefaultSystemSpeechConfigPath(),
		Logger:     logger,
	}
}

// Resolve returns a fresh SpeechConfig snapshot. Read failures are logged
// and treated as absent configuration, never fatal.
func (r *SpeechResolver) Resolve() SpeechConfig {
	return ResolveSpeech(os.Getenv, r.readFile(r.UserPath), r.readFile(r.SystemPath))
}

func (r *SpeechResolver) readFile(path string) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.Logger.WarnTag("CONFIG", "cannot read speech config %s: %v", path, err)
		}
		return nil
	}
	return data
}
