// Package sound plays the notification chime through whichever audio
// player the host happens to have, falling back to the terminal bell so
// a notification always produces some observable signal.
package sound

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"audio-notify-server-go/internal/domain/process"
	"audio-notify-server-go/internal/platform/logging"
)

// PlaybackTimeout bounds a single player invocation.
const PlaybackTimeout = 10 * time.Second

// TrustedPlayers is the fixed allowlist of audio player executables.
// Never extended from user input.
var TrustedPlayers = []string{"paplay", "pw-play", "aplay", "ffplay", "mpv"}

// Candidate is one entry in the ordered player fallback chain.
type Candidate struct {
	Name string
	Args func(path string) []string
}

var playerCandidates = []Candidate{
	{Name: "paplay", Args: func(path string) []string { return []string{path} }},
	{Name: "pw-play", Args: func(path string) []string { return []string{path} }},
	{Name: "aplay", Args: func(path string) []string { return []string{path} }},
	{Name: "ffplay", Args: func(path string) []string {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	}},
	{Name: "mpv", Args: func(path string) []string {
		return []string{"--no-video", "--really-quiet", path}
	}},
}

// defaultSoundPaths are well-known notification sound locations on Linux,
// probed in order when no explicit sound file is configured.
var defaultSoundPaths = []string{
	"/usr/share/sounds/freedesktop/stereo/complete.oga",
	"/usr/share/sounds/freedesktop/stereo/message.oga",
	"/usr/share/sounds/gnome/default/alerts/drip.ogg",
	"/usr/share/sounds/ubuntu/stereo/message.ogg",
	"/usr/share/sounds/sound-icons/prompt.wav",
}

// Player selects an audio player and plays notification sounds.
type Player struct {
	runner       process.Runner
	logger       *logging.Logger
	bell         io.Writer
	defaultPaths []string
}

// Option customizes a Player; used by tests to capture the bell.
type Option func(*Player)

// WithBellWriter redirects the terminal bell output.
func WithBellWriter(w io.Writer) Option {
	return func(p *Player) { p.bell = w }
}

// WithDefaultPaths overrides the default sound probe list.
func WithDefaultPaths(paths []string) Option {
	return func(p *Player) { p.defaultPaths = paths }
}

// NewPlayer builds a Player over the given process runner.
func NewPlayer(runner process.Runner, logger *logging.Logger, opts ...Option) *Player {
	p := &Player{
		runner:       runner,
		logger:       logger,
		bell:         os.Stdout,
		defaultPaths: defaultSoundPaths,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play plays the sound at path, or a system default when path is empty.
// The terminal bell is the final fallback and counts as success, except
// when an explicitly requested file is missing: the bell still rings but
// the action is reported failed.
func (p *Player) Play(ctx context.Context, path string) bool {
	if path == "" {
		path = p.findDefaultSound()
	}

	if path == "" {
		// no preference and nothing found: the bell is the notification
		p.ringBell()
		return true
	}

	if _, err := os.Stat(path); err != nil {
		p.logger.WarnTag("SOUND", "requested sound file missing: %s", path)
		p.ringBell()
		return false
	}

	timeout := p.playbackTimeout(path)

	for _, candidate := range playerCandidates {
		if !p.runner.Available(candidate.Name) {
			continue
		}
		err := p.runner.Run(ctx, process.Command{
			Name: candidate.Name,
			Args: candidate.Args(path),
		}, timeout)
		if err != nil {
			p.logger.DebugTag("SOUND", "%s failed: %v", candidate.Name, err)
			continue
		}
		p.logger.DebugTag("SOUND", "played %s via %s", filepath.Base(path), candidate.Name)
		return true
	}

	// every player missing or failed: last resort bell, still a signal
	p.ringBell()
	return true
}

func (p *Player) findDefaultSound() string {
	for _, path := range p.defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (p *Player) ringBell() {
	_, _ = p.bell.Write([]byte("\a"))
}

// playbackTimeout extends the fixed timeout for long MP3 files so a
// synthesized message is not cut off mid-sentence.
func (p *Player) playbackTimeout(path string) time.Duration {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return PlaybackTimeout
	}
	duration, err := probeMP3Duration(path)
	if err != nil {
		p.logger.DebugTag("SOUND", "mp3 probe failed for %s: %v", filepath.Base(path), err)
		return PlaybackTimeout
	}
	if extended := duration + 5*time.Second; extended > PlaybackTimeout {
		return extended
	}
	return PlaybackTimeout
}

// probeMP3Duration decodes the mp3 header to compute playback length.
func probeMP3Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return 0, err
	}

	// Length is the PCM byte count: 16-bit stereo samples
	seconds := float64(decoder.Length()) / float64(decoder.SampleRate()*4)
	return time.Duration(seconds * float64(time.Second)), nil
}
