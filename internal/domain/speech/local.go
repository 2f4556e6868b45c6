package speech

import (
	"context"
	"time"

	"audio-notify-server-go/internal/domain/process"
)

// LocalSynthesisTimeout bounds one local engine invocation; speech can
// legitimately take a while for long messages.
const LocalSynthesisTimeout = 30 * time.Second

// TrustedEngines is the fixed allowlist of local speech programs.
var TrustedEngines = []string{"espeak", "espeak-ng", "spd-say", "festival"}

// engineCandidate is one entry in the ordered local engine chain.
// festival is the only engine that takes its text over stdin.
type engineCandidate struct {
	Name     string
	Args     func(message string) []string
	UseStdin bool
}

var engineCandidates = []engineCandidate{
	{Name: "espeak", Args: func(message string) []string { return []string{message} }},
	{Name: "espeak-ng", Args: func(message string) []string { return []string{message} }},
	{Name: "spd-say", Args: func(message string) []string { return []string{message} }},
	{Name: "festival", Args: func(string) []string { return []string{"--tts"} }, UseStdin: true},
}

// speakLocal tries the local engines in order, first success wins.
func (s *Synthesizer) speakLocal(ctx context.Context, message string) bool {
	for _, candidate := range engineCandidates {
		if !s.runner.Available(candidate.Name) {
			continue
		}

		cmd := process.Command{
			Name: candidate.Name,
			Args: candidate.Args(message),
		}
		if candidate.UseStdin {
			cmd.Stdin = []byte(message)
		}

		if err := s.runner.Run(ctx, cmd, LocalSynthesisTimeout); err != nil {
			s.logger.DebugTag("TTS", "%s failed: %v", candidate.Name, err)
			continue
		}

		s.logger.DebugTag("TTS", "spoke via %s", candidate.Name)
		return true
	}
	return false
}
