package trainer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/signalnine/sweep/internal/docker"
)

// ContainerExecutor runs the trainer inside an image. Mounts are bound at
// their host paths so argv paths stay valid inside the container.
type ContainerExecutor struct {
	Image       string
	Python      string
	Env         map[string]string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
}

func (e *ContainerExecutor) Run(ctx context.Context, inv *Invocation) (*Outcome, error) {
	mounts := make([]docker.Mount, 0, len(inv.Mounts))
	for _, p := range inv.Mounts {
		mounts = append(mounts, docker.Mount{Source: p, Target: p})
	}
	workDir := ""
	if len(inv.Mounts) > 0 {
		workDir = inv.Mounts[0]
	}
	res, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:       e.Image,
		Command:     append([]string{e.Python}, inv.Argv()...),
		WorkDir:     workDir,
		Env:         e.Env,
		Timeout:     e.Timeout,
		Mounts:      mounts,
		CPULimit:    e.CPULimit,
		MemoryLimit: e.MemoryLimit,
		UserID:      fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	})
	if err != nil {
		return nil, fmt.Errorf("running %s in %s: %w", inv.Module, e.Image, err)
	}
	return &Outcome{
		ExitCode: res.ExitCode,
		Output:   res.Logs,
		Duration: res.Duration,
		TimedOut: res.TimedOut,
	}, nil
}
