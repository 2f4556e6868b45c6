// Package notify coordinates one notification request: validate the
// message, play the alert sound, speak the message, and report per
// action how things went. Infrastructure failures degrade to the bell
// or to silence; the caller only ever sees validation errors.
package notify

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"audio-notify-server-go/internal/domain/eventbus"
	"audio-notify-server-go/internal/platform/config"
	"audio-notify-server-go/internal/platform/logging"
)

// Action type tags in responses and events.
const (
	ActionSound = "sound"
	ActionTTS   = "tts"
)

// Request is one notification to dispatch.
type Request struct {
	Message string `json:"message"`
	Sound   bool   `json:"sound"`
	Speak   bool   `json:"speak"`
}

// ActionResult reports the outcome of a single requested action.
type ActionResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Response summarizes a dispatched notification.
type Response struct {
	Success bool           `json:"success"`
	Actions []ActionResult `json:"actions"`
}

// MessageTooLongError rejects oversized messages before any side
// effect runs.
type MessageTooLongError struct {
	Length int
	Max    int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("Message too long (%d characters). Maximum allowed length is %d characters. Please summarize your message.", e.Length, e.Max)
}

// SoundPlayer plays the alert sound, falling back to the terminal bell.
type SoundPlayer interface {
	Play(ctx context.Context, path string) bool
}

// Speaker converts the message to audio through the synthesis tiers.
type Speaker interface {
	Speak(ctx context.Context, message string) bool
}

// ConfigSource yields the current speech configuration, including the
// message length limit.
type ConfigSource interface {
	Resolve() config.SpeechConfig
}

// Dispatcher fans a request out to the sound and speech services.
type Dispatcher struct {
	player    SoundPlayer
	speaker   Speaker
	resolver  ConfigSource
	bus       *eventbus.Bus
	logger    *logging.Logger
	soundFile string
}

// NewDispatcher wires the dispatcher. soundFile overrides the default
// alert sound lookup when non-empty. bus may be nil in tests.
func NewDispatcher(player SoundPlayer, speaker Speaker, resolver ConfigSource, bus *eventbus.Bus, logger *logging.Logger, soundFile string) *Dispatcher {
	return &Dispatcher{
		player:    player,
		speaker:   speaker,
		resolver:  resolver,
		bus:       bus,
		logger:    logger,
		soundFile: soundFile,
	}
}

// Dispatch validates and executes the request. Actions run in order,
// sound before speech. The returned error is non-nil only for
// validation failures; action failures surface in the per-action
// results instead.
//
// The context should derive from the server lifetime, not from the
// client connection: a client that disconnects mid-request must not
// cut off playback.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, client string) (Response, error) {
	speechCfg := d.resolver.Resolve()
	maxLen := speechCfg.MaxMessageLength
	if maxLen <= 0 {
		maxLen = config.DefaultMaxMessageLength
	}
	// The limit is in characters, not bytes: multibyte messages must
	// not be rejected early.
	msgLen := utf8.RuneCountInString(req.Message)
	if msgLen > maxLen {
		d.logger.WarnTag("NOTIFY", "rejected oversized message from %s: %d > %d chars", client, msgLen, maxLen)
		return Response{}, &MessageTooLongError{Length: msgLen, Max: maxLen}
	}

	d.logger.InfoTag("NOTIFY", "request from %s: sound=%v speak=%v message=%q", client, req.Sound, req.Speak, req.Message)

	resp := Response{Success: true, Actions: []ActionResult{}}

	if req.Sound {
		ok := d.player.Play(ctx, d.soundFile)
		resp.Actions = append(resp.Actions, ActionResult{Type: ActionSound, Success: ok})
	}

	if req.Speak && req.Message != "" {
		ok := d.speaker.Speak(ctx, req.Message)
		resp.Actions = append(resp.Actions, ActionResult{
			Type:    ActionTTS,
			Success: ok,
			Message: req.Message,
		})
	}

	d.publishEvent(req, client, resp)
	return resp, nil
}

func (d *Dispatcher) publishEvent(req Request, client string, resp Response) {
	if d.bus == nil {
		return
	}
	event := eventbus.NotificationEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Client:    client,
		Message:   req.Message,
		Sound:     req.Sound,
		Speak:     req.Speak,
		Success:   resp.Success,
	}
	for _, action := range resp.Actions {
		event.Actions = append(event.Actions, eventbus.ActionRecord{
			Type:    action.Type,
			Success: action.Success,
			Message: action.Message,
		})
	}
	d.bus.PublishAsync(eventbus.TopicNotificationDispatched, event)
}
