// Package tracker supervises the external hand tracker process that streams
// keypoint datagrams to the receiver.
package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ScriptName is the tracker script looked up when no command is configured.
const ScriptName = "hand_reader.py"

// DefaultStopTimeout is how long Stop waits after interrupting the process
// before killing it.
const DefaultStopTimeout = 3 * time.Second

var (
	// ErrRunning is returned by Start while the process is alive.
	ErrRunning = errors.New("tracker already running")
	// ErrNoScript is returned when no command is configured and the tracker
	// script cannot be found.
	ErrNoScript = errors.New(ScriptName + " not found")
)

// Config describes how to launch the tracker.
type Config struct {
	// Command is the executable. When empty the tracker script is
	// discovered and run with the virtualenv python, or python3.
	Command string
	Args    []string
	Dir     string
	// Port is passed to a discovered script as its first argument.
	Port        int
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// Supervisor starts, watches and stops the tracker process.
type Supervisor struct {
	config Config
	logger *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// New creates a new Supervisor.
func New(config Config) *Supervisor {
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Supervisor{
		config: config,
		logger: config.Logger.With("component", "tracker"),
	}
}

// command resolves the executable and arguments to run.
func (s *Supervisor) command() (string, []string, error) {
	if s.config.Command != "" {
		return s.config.Command, s.config.Args, nil
	}

	script := findScript()
	if script == "" {
		return "", nil, ErrNoScript
	}
	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	args := []string{script}
	if s.config.Port > 0 {
		args = append(args, strconv.Itoa(s.config.Port))
	}
	return python, append(args, s.config.Args...), nil
}

// Start launches the tracker. The process is killed when ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrRunning
	}

	name, args, err := s.command()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = s.config.Dir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = s.config.StopTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	var pipes sync.WaitGroup
	pipes.Add(2)
	go s.relay(&pipes, stdout, slog.LevelDebug)
	go s.relay(&pipes, stderr, slog.LevelWarn)

	done := make(chan struct{})
	s.cmd, s.done, s.err = cmd, done, nil
	s.logger.Info("tracker started", "command", name, "args", args, "pid", cmd.Process.Pid)

	go func() {
		pipes.Wait()
		err := cmd.Wait()

		s.mu.Lock()
		s.cmd, s.err = nil, err
		s.mu.Unlock()
		close(done)

		if err != nil && ctx.Err() == nil {
			s.logger.Warn("tracker exited", "error", err)
		} else {
			s.logger.Info("tracker exited")
		}
	}()

	return nil
}

// relay logs each output line of the tracker at level.
func (s *Supervisor) relay(wg *sync.WaitGroup, r io.Reader, level slog.Level) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Log(context.Background(), level, "tracker output", "line", scanner.Text())
	}
}

// Stop interrupts the tracker and waits for it to exit, killing it after
// the stop timeout. It is a no-op when the tracker is not running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		// Interrupt is unsupported on some platforms.
		cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(s.config.StopTimeout):
		s.logger.Warn("tracker did not exit, killing", "timeout", s.config.StopTimeout)
		cmd.Process.Kill()
		<-done
	}
	return nil
}

// Running reports whether the tracker process is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Done returns a channel closed when the current process exits, or nil when
// nothing was started.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the exit error of the last process.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// findScript looks for the tracker script next to the working directory,
// the executable and the data directory.
func findScript() string {
	return firstExisting(searchPaths(filepath.Join("scripts", ScriptName)))
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	return firstExisting(searchPaths(filepath.Join("venv", "bin", "python")))
}

func searchPaths(rel string) []string {
	candidates := []string{
		rel,
		filepath.Join("..", rel),
		filepath.Join("..", "..", rel),
	}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".fingerspell", rel))
	}
	return candidates
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
