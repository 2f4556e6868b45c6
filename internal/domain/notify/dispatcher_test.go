package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"audio-notify-server-go/internal/domain/eventbus"
	"audio-notify-server-go/internal/platform/config"
	platformtesting "audio-notify-server-go/internal/platform/testing"
)

type fakePlayer struct {
	played []string
	result bool
}

func (f *fakePlayer) Play(_ context.Context, path string) bool {
	f.played = append(f.played, path)
	return f.result
}

type fakeSpeaker struct {
	spoken []string
	result bool
}

func (f *fakeSpeaker) Speak(_ context.Context, message string) bool {
	f.spoken = append(f.spoken, message)
	return f.result
}

type fixedResolver struct {
	cfg config.SpeechConfig
}

func (f fixedResolver) Resolve() config.SpeechConfig { return f.cfg }

func newTestDispatcher(t *testing.T, player *fakePlayer, speaker *fakeSpeaker, maxLen int) *Dispatcher {
	t.Helper()
	logger := platformtesting.SetupTestLogger(t)
	resolver := fixedResolver{cfg: config.SpeechConfig{MaxMessageLength: maxLen}}
	return NewDispatcher(player, speaker, resolver, nil, logger, "")
}

func TestDispatchSoundOnly(t *testing.T) {
	player := &fakePlayer{result: true}
	speaker := &fakeSpeaker{result: true}
	d := newTestDispatcher(t, player, speaker, 500)

	resp, err := d.Dispatch(context.Background(), Request{Message: "hi", Sound: true}, "127.0.0.1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Type != ActionSound || !resp.Actions[0].Success {
		t.Errorf("unexpected actions: %+v", resp.Actions)
	}
	if len(player.played) != 1 {
		t.Errorf("player invoked %d times, want 1", len(player.played))
	}
	if len(speaker.spoken) != 0 {
		t.Errorf("speaker invoked without speak flag: %v", speaker.spoken)
	}
}

func TestDispatchSoundThenSpeech(t *testing.T) {
	player := &fakePlayer{result: true}
	speaker := &fakeSpeaker{result: false}
	d := newTestDispatcher(t, player, speaker, 500)

	resp, err := d.Dispatch(context.Background(), Request{Message: "build done", Sound: true, Speak: true}, "client")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(resp.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(resp.Actions))
	}
	if resp.Actions[0].Type != ActionSound || resp.Actions[1].Type != ActionTTS {
		t.Errorf("wrong action order: %+v", resp.Actions)
	}
	if resp.Actions[1].Success {
		t.Error("tts action should report failure")
	}
	if resp.Actions[1].Message != "build done" {
		t.Errorf("tts action message = %q", resp.Actions[1].Message)
	}
	if !resp.Success {
		t.Error("response success should be true even when an action fails")
	}
}

func TestDispatchSkipsSpeechOnEmptyMessage(t *testing.T) {
	player := &fakePlayer{result: true}
	speaker := &fakeSpeaker{result: true}
	d := newTestDispatcher(t, player, speaker, 500)

	resp, err := d.Dispatch(context.Background(), Request{Sound: true, Speak: true}, "client")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Type != ActionSound {
		t.Errorf("expected only the sound action, got %+v", resp.Actions)
	}
	if len(speaker.spoken) != 0 {
		t.Error("speaker must not run for an empty message")
	}
}

func TestDispatchRejectsOversizedMessage(t *testing.T) {
	player := &fakePlayer{result: true}
	speaker := &fakeSpeaker{result: true}
	d := newTestDispatcher(t, player, speaker, 10)

	msg := strings.Repeat("x", 11)
	_, err := d.Dispatch(context.Background(), Request{Message: msg, Sound: true, Speak: true}, "client")

	var tooLong *MessageTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("expected MessageTooLongError, got %v", err)
	}
	if tooLong.Length != 11 || tooLong.Max != 10 {
		t.Errorf("error carries %d/%d, want 11/10", tooLong.Length, tooLong.Max)
	}
	want := "Message too long (11 characters). Maximum allowed length is 10 characters. Please summarize your message."
	if tooLong.Error() != want {
		t.Errorf("detail = %q, want %q", tooLong.Error(), want)
	}
	if len(player.played) != 0 || len(speaker.spoken) != 0 {
		t.Error("validation failure must not trigger any action")
	}
}

func TestDispatchLengthCountsCharactersNotBytes(t *testing.T) {
	player := &fakePlayer{result: true}
	speaker := &fakeSpeaker{result: true}
	d := newTestDispatcher(t, player, speaker, 300)

	// 250 two-byte runes: 500 bytes but only 250 characters.
	msg := strings.Repeat("é", 250)
	resp, err := d.Dispatch(context.Background(), Request{Message: msg, Speak: true}, "client")
	if err != nil {
		t.Fatalf("multibyte message within the limit was rejected: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if len(speaker.spoken) != 1 {
		t.Errorf("speaker invoked %d times, want 1", len(speaker.spoken))
	}

	_, err = d.Dispatch(context.Background(), Request{Message: strings.Repeat("é", 301), Speak: true}, "client")
	var tooLong *MessageTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("expected MessageTooLongError, got %v", err)
	}
	if tooLong.Length != 301 {
		t.Errorf("error reports %d characters, want the rune count 301", tooLong.Length)
	}
}

func TestDispatchCustomSoundFile(t *testing.T) {
	player := &fakePlayer{result: true}
	logger := platformtesting.SetupTestLogger(t)
	resolver := fixedResolver{cfg: config.SpeechConfig{MaxMessageLength: 500}}
	d := NewDispatcher(player, &fakeSpeaker{}, resolver, nil, logger, "/tmp/custom.wav")

	if _, err := d.Dispatch(context.Background(), Request{Sound: true}, "client"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(player.played) != 1 || player.played[0] != "/tmp/custom.wav" {
		t.Errorf("played %v, want the custom sound path", player.played)
	}
}

func TestDispatchPublishesEvent(t *testing.T) {
	bus := eventbus.New(1)
	bus.Start()
	t.Cleanup(bus.Stop)

	received := make(chan eventbus.NotificationEvent, 1)
	if err := bus.Subscribe(eventbus.TopicNotificationDispatched, func(ev eventbus.NotificationEvent) {
		received <- ev
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	player := &fakePlayer{result: true}
	logger := platformtesting.SetupTestLogger(t)
	resolver := fixedResolver{cfg: config.SpeechConfig{MaxMessageLength: 500}}
	d := NewDispatcher(player, &fakeSpeaker{result: true}, resolver, bus, logger, "")

	if _, err := d.Dispatch(context.Background(), Request{Message: "done", Sound: true, Speak: true}, "10.0.0.2"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	select {
	case ev := <-received:
		if ev.ID == "" {
			t.Error("event ID should be set")
		}
		if ev.Client != "10.0.0.2" || ev.Message != "done" || !ev.Sound || !ev.Speak {
			t.Errorf("unexpected event: %+v", ev)
		}
		if len(ev.Actions) != 2 {
			t.Errorf("event carries %d actions, want 2", len(ev.Actions))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}
