package dispatch

import (
	"context"
	"log/slog"
	"os/exec"
)

// SpawnSpec describes the process to start for a new PTY session.
type SpawnSpec struct {
	Command string
	Args    []string
	Dir     string
	// Env is the complete child environment in "KEY=VALUE" form.
	Env  []string
	Cols int
	Rows int
}

// Process is a started child process.
type Process interface {
	Pid() int
}

// Spawner starts child processes. The PTY implementation lives behind it.
type Spawner interface {
	Spawn(ctx context.Context, spec SpawnSpec) (Process, error)
}

// ExecSpawner starts plain child processes with os/exec and reaps them in the background.
// It does not allocate a pseudo-terminal.
type ExecSpawner struct {
	logger *slog.Logger
}

// NewExecSpawner creates an ExecSpawner. If logger is nil, slog.Default() is used.
func NewExecSpawner(logger *slog.Logger) *ExecSpawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSpawner{logger: logger}
}

type execProcess struct {
	pid int
}

func (p execProcess) Pid() int { return p.pid }

// Spawn starts spec.Command with exactly spec.Env as its environment.
func (s *ExecSpawner) Spawn(_ context.Context, spec SpawnSpec) (Process, error) {
	// #nosec G204 - the command comes from host configuration, not from the UI
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = spec.Env
	if cmd.Env == nil {
		// A nil Env would make os/exec inherit the host environment.
		cmd.Env = []string{}
	}
	cmd.Dir = spec.Dir

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		s.logger.Debug("Child process exited", "pid", pid, "error", err)
	}()

	return execProcess{pid: pid}, nil
}
