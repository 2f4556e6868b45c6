package speech

import (
	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

// DefaultEdgeVoice is used when the config names no Edge voice.
const DefaultEdgeVoice = "en-US-AriaNeural"

// synthesizeEdge renders the message through the Microsoft Edge TTS
// service, returning mp3 bytes. No credentials required.
func synthesizeEdge(voice, message string) ([]byte, error) {
	if voice == "" {
		voice = DefaultEdgeVoice
	}

	communicate, err := edge_tts.NewCommunicate(message, edge_tts.SetVoice(voice))
	if err != nil {
		return nil, err
	}

	return communicate.Stream()
}
