package sound

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audio-notify-server-go/internal/domain/process"
	platformtesting "audio-notify-server-go/internal/platform/testing"
)

// fakeRunner records invocations and answers from a script of results.
type fakeRunner struct {
	available map[string]bool
	results   map[string]error
	calls     []string
}

func (f *fakeRunner) Available(name string) bool {
	return f.available[name]
}

func (f *fakeRunner) Run(ctx context.Context, cmd process.Command, timeout time.Duration) error {
	f.calls = append(f.calls, cmd.Name)
	if err, ok := f.results[cmd.Name]; ok {
		return err
	}
	return nil
}

func tempSoundFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chime.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav"), 0o644); err != nil {
		t.Fatalf("failed to write temp sound: %v", err)
	}
	return path
}

func TestPlayer_FirstAvailablePlayerWins(t *testing.T) {
	runner := &fakeRunner{available: map[string]bool{"paplay": true, "aplay": true}}
	var bell bytes.Buffer
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t), WithBellWriter(&bell))

	ok := player.Play(context.Background(), tempSoundFile(t))

	if !ok {
		t.Fatal("expected playback success")
	}
	if len(runner.calls) != 1 || runner.calls[0] != "paplay" {
		t.Errorf("expected single paplay call, got %v", runner.calls)
	}
	if bell.Len() != 0 {
		t.Error("bell must not ring when a player succeeds")
	}
}

func TestPlayer_FallsThroughFailedCandidates(t *testing.T) {
	runner := &fakeRunner{
		available: map[string]bool{"paplay": true, "pw-play": true, "aplay": true},
		results: map[string]error{
			"paplay":  process.ErrCommandFailed,
			"pw-play": process.ErrCommandTimeout,
		},
	}
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t), WithBellWriter(&bytes.Buffer{}))

	ok := player.Play(context.Background(), tempSoundFile(t))

	if !ok {
		t.Fatal("expected success via aplay")
	}
	want := []string{"paplay", "pw-play", "aplay"}
	if len(runner.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, runner.calls)
	}
	for i, name := range want {
		if runner.calls[i] != name {
			t.Errorf("call %d: expected %s, got %s", i, name, runner.calls[i])
		}
	}
}

func TestPlayer_AllPlayersFailBellStillSuccess(t *testing.T) {
	failAll := errors.New("broken audio stack")
	runner := &fakeRunner{
		available: map[string]bool{"paplay": true, "pw-play": true, "aplay": true, "ffplay": true, "mpv": true},
		results: map[string]error{
			"paplay": failAll, "pw-play": failAll, "aplay": failAll, "ffplay": failAll, "mpv": failAll,
		},
	}
	var bell bytes.Buffer
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t), WithBellWriter(&bell))

	ok := player.Play(context.Background(), tempSoundFile(t))

	if !ok {
		t.Fatal("bell fallback counts as success")
	}
	if bell.String() != "\a" {
		t.Errorf("expected bell character, got %q", bell.String())
	}
}

func TestPlayer_MissingExplicitFileIsFailure(t *testing.T) {
	runner := &fakeRunner{available: map[string]bool{"paplay": true}}
	var bell bytes.Buffer
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t), WithBellWriter(&bell))

	ok := player.Play(context.Background(), "/nonexistent/chime.oga")

	if ok {
		t.Fatal("missing explicit file must report failure")
	}
	if bell.String() != "\a" {
		t.Error("bell must still ring for a missing explicit file")
	}
	if len(runner.calls) != 0 {
		t.Errorf("no player should run for a missing file, got %v", runner.calls)
	}
}

func TestPlayer_NoDefaultSoundUsesBell(t *testing.T) {
	runner := &fakeRunner{}
	var bell bytes.Buffer
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t),
		WithBellWriter(&bell),
		WithDefaultPaths([]string{"/nonexistent/a.oga", "/nonexistent/b.oga"}))

	ok := player.Play(context.Background(), "")

	if !ok {
		t.Fatal("bell without a preference counts as success")
	}
	if bell.String() != "\a" {
		t.Error("expected bell character")
	}
}

func TestPlayer_EmptyPathUsesFirstExistingDefault(t *testing.T) {
	existing := tempSoundFile(t)
	runner := &fakeRunner{available: map[string]bool{"mpv": true}}
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t),
		WithBellWriter(&bytes.Buffer{}),
		WithDefaultPaths([]string{"/nonexistent/a.oga", existing}))

	ok := player.Play(context.Background(), "")

	if !ok {
		t.Fatal("expected playback success")
	}
	if len(runner.calls) != 1 || runner.calls[0] != "mpv" {
		t.Errorf("expected mpv to play the default sound, got %v", runner.calls)
	}
}

func TestPlayer_NoPlayersAvailableBell(t *testing.T) {
	runner := &fakeRunner{available: map[string]bool{}}
	var bell bytes.Buffer
	player := NewPlayer(runner, platformtesting.SetupTestLogger(t), WithBellWriter(&bell))

	ok := player.Play(context.Background(), tempSoundFile(t))

	if !ok {
		t.Fatal("expected bell fallback success")
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no runner calls, got %v", runner.calls)
	}
}
