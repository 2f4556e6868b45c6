// Package process spawns external programs for the audio and speech
// fallback chains. Executables must appear on a fixed allowlist and are
// resolved to absolute paths before spawning; arguments are passed as a
// vector and never concatenated into a shell string.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"audio-notify-server-go/internal/platform/logging"
)

var (
	ErrUntrustedExecutable = errors.New("untrusted executable")
	ErrExecutableNotFound  = errors.New("executable not found")
	ErrCommandFailed       = errors.New("command failed")
	ErrCommandTimeout      = errors.New("command timed out")
	ErrPipeWrite           = errors.New("stdin pipe write failed")
)

const (
	// killGracePeriod separates SIGTERM from SIGKILL on timeout.
	killGracePeriod = 100 * time.Millisecond

	// StdinWriteTimeout bounds the stdin pipe write independently of
	// the overall command timeout.
	StdinWriteTimeout = 5 * time.Second
)

// Command describes one external program invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin []byte
}

// Runner is the spawn contract consumed by the sound and speech chains.
type Runner interface {
	Available(name string) bool
	Run(ctx context.Context, cmd Command, timeout time.Duration) error
}

// Executor runs allowlisted executables with null-redirected stdio.
// Each call spawns and fully reaps exactly one process; no zombies
// survive any exit path.
type Executor struct {
	allowlist map[string]struct{}
	logger    *logging.Logger
	lookPath  func(string) (string, error)
}

// NewExecutor builds an executor permitting only the named programs.
func NewExecutor(allowlist []string, logger *logging.Logger) *Executor {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = struct{}{}
	}
	return &Executor{
		allowlist: allowed,
		logger:    logger,
		lookPath:  exec.LookPath,
	}
}

// Available reports whether the named program is allowlisted and on PATH.
func (e *Executor) Available(name string) bool {
	if _, ok := e.allowlist[name]; !ok {
		return false
	}
	_, err := e.lookPath(name)
	return err == nil
}

// Run spawns the command and waits for it to exit, up to timeout.
// Standard output and error are discarded. When the timeout elapses the
// process receives SIGTERM, then SIGKILL after a short grace interval,
// and is reaped before Run returns ErrCommandTimeout.
func (e *Executor) Run(ctx context.Context, cmd Command, timeout time.Duration) error {
	if _, ok := e.allowlist[cmd.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrUntrustedExecutable, cmd.Name)
	}

	fullPath, err := e.lookPath(cmd.Name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, cmd.Name)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	proc := exec.Command(fullPath, cmd.Args...)
	proc.Stdout = devNull
	proc.Stderr = devNull

	var stdinWriter *os.File
	if cmd.Stdin != nil {
		reader, writer, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("create stdin pipe: %w", err)
		}
		proc.Stdin = reader
		stdinWriter = writer
		defer reader.Close()
	} else {
		proc.Stdin = devNull
	}

	e.logger.DebugTag("PROCESS", "spawning %s (timeout %s)", fullPath, timeout)

	if err := proc.Start(); err != nil {
		if stdinWriter != nil {
			stdinWriter.Close()
		}
		return fmt.Errorf("%w: start %s: %v", ErrCommandFailed, cmd.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	if stdinWriter != nil {
		if err := writeStdin(stdinWriter, cmd.Stdin); err != nil {
			e.kill(proc)
			<-done
			return err
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return exitResult(cmd.Name, err)
	case <-ctx.Done():
		e.kill(proc)
		<-done
		return fmt.Errorf("%w: %s: %v", ErrCommandTimeout, cmd.Name, ctx.Err())
	case <-timer.C:
		e.kill(proc)
		<-done
		e.logger.WarnTag("PROCESS", "%s exceeded %s timeout, killed", cmd.Name, timeout)
		return fmt.Errorf("%w: %s after %s", ErrCommandTimeout, cmd.Name, timeout)
	}
}

// writeStdin delivers the payload through the pipe under a write deadline,
// so a stalled consumer cannot block the request past StdinWriteTimeout.
func writeStdin(writer *os.File, data []byte) error {
	defer writer.Close()

	if err := writer.SetWriteDeadline(time.Now().Add(StdinWriteTimeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %v", ErrPipeWrite, err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrPipeWrite, err)
	}
	return nil
}

// kill sends the graceful-then-forceful signal pair. The caller must
// still drain Wait so the child is reaped.
func (e *Executor) kill(proc *exec.Cmd) {
	if proc.Process == nil {
		return
	}
	_ = proc.Process.Signal(syscall.SIGTERM)
	time.Sleep(killGracePeriod)
	_ = proc.Process.Kill()
}

func exitResult(name string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d", ErrCommandFailed, name, exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %s: %v", ErrCommandFailed, name, err)
}
