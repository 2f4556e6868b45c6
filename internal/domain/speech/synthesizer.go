// Package speech turns a notification message into audible speech.
// Cloud tiers (ElevenLabs, then Edge TTS) give better voices when
// configured; local command-line engines guarantee functionality with
// no network and no credentials.
package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"audio-notify-server-go/internal/domain/process"
	"audio-notify-server-go/internal/platform/config"
	"audio-notify-server-go/internal/platform/logging"
)

// SoundPlayer plays a file through the audio player chain.
type SoundPlayer interface {
	Play(ctx context.Context, path string) bool
}

// ConfigSource yields a fresh speech config snapshot per request.
type ConfigSource interface {
	Resolve() config.SpeechConfig
}

// Synthesizer composes the cloud and local speech tiers.
type Synthesizer struct {
	runner   process.Runner
	player   SoundPlayer
	resolver ConfigSource
	cloud    *ElevenLabsClient
	edgeFn   func(voice, message string) ([]byte, error)
	logger   *logging.Logger
	tempDir  string
}

// NewSynthesizer wires the speech tiers together.
func NewSynthesizer(
	runner process.Runner,
	player SoundPlayer,
	resolver ConfigSource,
	logger *logging.Logger,
) *Synthesizer {
	return &Synthesizer{
		runner:   runner,
		player:   player,
		resolver: resolver,
		cloud:    NewElevenLabsClient(),
		edgeFn:   synthesizeEdge,
		logger:   logger,
		tempDir:  os.TempDir(),
	}
}

// WithCloudClient swaps the ElevenLabs client, used by tests.
func (s *Synthesizer) WithCloudClient(client *ElevenLabsClient) *Synthesizer {
	s.cloud = client
	return s
}

// WithEdgeFn swaps the Edge TTS synthesis function, used by tests.
func (s *Synthesizer) WithEdgeFn(fn func(voice, message string) ([]byte, error)) *Synthesizer {
	s.edgeFn = fn
	return s
}

// Speak voices the message, returning whether any tier succeeded.
// An empty message is an immediate failure with no side effect.
func (s *Synthesizer) Speak(ctx context.Context, message string) bool {
	if message == "" {
		return false
	}

	cfg := s.resolver.Resolve()

	if cfg.ElevenLabs.Enabled {
		if s.speakElevenLabs(ctx, message, cfg.ElevenLabs) {
			return true
		}
		s.logger.DebugTag("TTS", "ElevenLabs failed, falling back")
	}

	if cfg.Edge.Enabled {
		if s.speakEdge(ctx, message, cfg.Edge) {
			return true
		}
		s.logger.DebugTag("TTS", "Edge TTS failed, falling back")
	}

	return s.speakLocal(ctx, message)
}

// speakElevenLabs synthesizes through the cloud API and plays the result.
// Every HTTP or playback failure is contained here; the temp file is
// removed on all paths.
func (s *Synthesizer) speakElevenLabs(ctx context.Context, message string, cfg config.ElevenLabsConfig) bool {
	audio, err := s.cloud.Synthesize(ctx, message, cfg)
	if err != nil {
		s.logger.WarnTag("TTS", "ElevenLabs synthesis failed: %v", err)
		return false
	}
	return s.playAudioBytes(ctx, audio)
}

// speakEdge synthesizes through the Edge TTS service and plays the result.
func (s *Synthesizer) speakEdge(ctx context.Context, message string, cfg config.EdgeConfig) bool {
	audio, err := s.edgeFn(cfg.Voice, message)
	if err != nil {
		s.logger.WarnTag("TTS", "Edge TTS synthesis failed: %v", err)
		return false
	}
	return s.playAudioBytes(ctx, audio)
}

// playAudioBytes persists synthesized audio to a uniquely named temp file,
// plays it, and deletes the file regardless of playback outcome.
func (s *Synthesizer) playAudioBytes(ctx context.Context, audio []byte) bool {
	path := filepath.Join(s.tempDir, fmt.Sprintf("notify-tts-%s.mp3", uuid.NewString()))
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		s.logger.WarnTag("TTS", "cannot write temp audio file: %v", err)
		return false
	}
	defer os.Remove(path)

	return s.player.Play(ctx, path)
}

// ListVoices exposes the ElevenLabs voice catalogue for the CLI.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]Voice, error) {
	cfg := s.resolver.Resolve()
	if !cfg.ElevenLabs.Enabled {
		return nil, fmt.Errorf("elevenlabs is not configured")
	}
	return s.cloud.ListVoices(ctx, cfg.ElevenLabs.APIKey)
}
