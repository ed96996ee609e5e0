package trainer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// LocalExecutor runs the trainer as a subprocess of this process.
type LocalExecutor struct {
	Python  string
	Env     map[string]string
	Timeout time.Duration
}

func (e *LocalExecutor) Run(ctx context.Context, inv *Invocation) (*Outcome, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.Python, inv.Argv()...)
	cmd.Env = os.Environ()
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children that inherit the pipes must not hold Run open after a kill.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	outcome := &Outcome{Output: out.Bytes(), Duration: time.Since(start)}
	if err == nil {
		return outcome, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome.ExitCode = TimeoutExitCode
		outcome.TimedOut = true
		return outcome, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("running %s: %w", inv.Module, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, nil
	}
	return nil, fmt.Errorf("running %s: %w", inv.Module, err)
}
