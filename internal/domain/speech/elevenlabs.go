package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"audio-notify-server-go/internal/platform/config"
)

// ElevenLabsTimeout bounds every call to the ElevenLabs API.
const ElevenLabsTimeout = 30 * time.Second

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// outputFormat requests compressed audio so the temp file stays small.
const outputFormat = "mp3_44100_128"

// ElevenLabsClient talks to the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient builds a client against the public API endpoint.
func NewElevenLabsClient() *ElevenLabsClient {
	return &ElevenLabsClient{
		baseURL: elevenLabsBaseURL,
		httpClient: &http.Client{
			Timeout: ElevenLabsTimeout,
		},
	}
}

// WithBaseURL redirects the client, used by tests against httptest servers.
func (c *ElevenLabsClient) WithBaseURL(baseURL string) *ElevenLabsClient {
	c.baseURL = baseURL
	return c
}

type synthesisPayload struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize posts the message for the configured voice and returns the
// synthesized audio bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, message string, cfg config.ElevenLabsConfig) ([]byte, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: api key not configured")
	}

	payload, err := sonic.Marshal(synthesisPayload{
		Text:    message,
		ModelID: cfg.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?%s",
		c.baseURL, url.PathEscape(cfg.VoiceID),
		url.Values{"output_format": []string{outputFormat}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

// Voice is one entry from the ElevenLabs voice catalogue.
type Voice struct {
	VoiceID string            `json:"voice_id"`
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// ListVoices fetches the voices available to the given API key.
func (c *ElevenLabsClient) ListVoices(ctx context.Context, apiKey string) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}

	var parsed voicesResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs: invalid response: %w", err)
	}
	return parsed.Voices, nil
}
