// Package supervisor runs the display process as a child of the controller
// and lets the child follow its parent's lifetime.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// PortInUse reports whether something is already listening on port.
func PortInUse(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// Supervisor starts, restarts and stops a display process.
type Supervisor struct {
	Binary string
	Port   int
	Args   []string
	Log    zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New returns a supervisor for binary serving on port.
func New(binary string, port int, log zerolog.Logger, extra ...string) *Supervisor {
	return &Supervisor{Binary: binary, Port: port, Args: extra, Log: log}
}

// ErrPortInUse is returned by Start when the port is already taken.
var ErrPortInUse = errors.New("port in use")

// Start launches the display process unless one is running already.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return nil
	}
	if PortInUse(s.Port) {
		return fmt.Errorf("port %d: %w", s.Port, ErrPortInUse)
	}

	args := append([]string{
		"-port", strconv.Itoa(s.Port),
		"-parent-pid", strconv.Itoa(os.Getpid()),
	}, s.Args...)
	cmd := exec.Command(s.Binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.Binary, err)
	}
	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		s.Log.Info().Int("pid", cmd.Process.Pid).AnErr("exit", err).Msg("display process exited")
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
		close(done)
	}()
	s.cmd, s.done = cmd, done
	s.Log.Info().Int("pid", cmd.Process.Pid).Int("port", s.Port).Msg("display process started")
	return nil
}

// Running reports whether a child is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Done is closed when the most recently started child exits. Nil before
// the first Start.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop kills the child and waits up to timeout for it to go away.
func (s *Supervisor) Stop(timeout time.Duration) error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("display process %d did not exit", cmd.Process.Pid)
	}
}

// Restart stops the running child and starts a fresh one.
func (s *Supervisor) Restart(timeout time.Duration) error {
	if err := s.Stop(timeout); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for PortInUse(s.Port) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	return s.Start()
}

// WatchParent returns once process pid is gone or ctx is done. A pid of
// zero or less disables the watch.
func WatchParent(ctx context.Context, pid int, interval time.Duration) error {
	if pid <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		alive, err := process.PidExistsWithContext(ctx, int32(pid))
		if err == nil && !alive {
			return fmt.Errorf("parent process %d exited", pid)
		}
		if err == nil {
			// PIDs get reused; a zombie parent counts as gone.
			if p, perr := process.NewProcessWithContext(ctx, int32(pid)); perr == nil {
				if st, serr := p.StatusWithContext(ctx); serr == nil && len(st) > 0 && st[0] == process.Zombie {
					return fmt.Errorf("parent process %d exited", pid)
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
