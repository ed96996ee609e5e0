package trainer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/statepoint"
	"github.com/signalnine/sweep/internal/trainer"
)

func TestTrainArgsFlags(t *testing.T) {
	args := trainer.TrainArgs{
		Statepoint: statepoint.Statepoint{NumEpochs: 5, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.5, FGSMEpsilon: 0.05, Seed: 2},
		LogPath:    "/p/workspace/abc",
		ResultPath: "/p/workspace/abc",
		DataDir:    "/data",
		ExtraFlags: []string{"--no_dhash", "--no_fgsm"},
	}
	want := []string{
		"--num_epochs", "5",
		"--log_path", "/p/workspace/abc",
		"--result_path", "/p/workspace/abc",
		"--data_dir", "/data",
		"--batch_size", "128",
		"--hidden_size", "64",
		"--learning_rate", "0.0002",
		"--dropout_prob", "0.5",
		"--seed", "2",
		"--fgsm_epsilon", "0.05",
		"--no_dhash", "--no_fgsm",
	}
	if diff := cmp.Diff(want, args.Flags()); diff != "" {
		t.Errorf("Flags() mismatch (-want +got):\n%s", diff)
	}
}

func TestAttackAndDownloadFlags(t *testing.T) {
	attack := trainer.AttackArgs{Seed: 3, ResultPath: "/job", FGSMEpsilon: 0.1}
	if diff := cmp.Diff([]string{"--seed", "3", "--result_path", "/job", "--fgsm_epsilon", "0.1"}, attack.Flags()); diff != "" {
		t.Errorf("AttackArgs mismatch (-want +got):\n%s", diff)
	}
	inv := &trainer.Invocation{Module: "plmnist.download", Args: trainer.DownloadArgs{DataDir: "/data"}}
	if diff := cmp.Diff([]string{"-m", "plmnist.download", "--data_dir", "/data"}, inv.Argv()); diff != "" {
		t.Errorf("Argv mismatch (-want +got):\n%s", diff)
	}
}

// fakePython writes a shell script that stands in for the interpreter.
func fakePython(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocalExecutorSuccess(t *testing.T) {
	exec := &trainer.LocalExecutor{
		Python: fakePython(t, `echo "args: $@ token=$TOKEN"`),
		Env:    map[string]string{"TOKEN": "xyz"},
	}
	out, err := exec.Run(context.Background(), &trainer.Invocation{
		Module: "plmnist.fgsm",
		Args:   trainer.AttackArgs{Seed: 1, ResultPath: "/job", FGSMEpsilon: 0.05},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Success() {
		t.Errorf("expected success, got exit %d", out.ExitCode)
	}
	got := strings.TrimSpace(string(out.Output))
	want := "args: -m plmnist.fgsm --seed 1 --result_path /job --fgsm_epsilon 0.05 token=xyz"
	if got != want {
		t.Errorf("output: got %q, want %q", got, want)
	}
}

func TestLocalExecutorExitCode(t *testing.T) {
	exec := &trainer.LocalExecutor{Python: fakePython(t, "echo boom >&2; exit 3")}
	out, err := exec.Run(context.Background(), &trainer.Invocation{Module: "plmnist"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ExitCode != 3 || out.Success() {
		t.Errorf("exit code: got %d, want 3", out.ExitCode)
	}
	if !strings.Contains(string(out.Output), "boom") {
		t.Errorf("expected stderr in output, got %q", out.Output)
	}
}

func TestLocalExecutorTimeout(t *testing.T) {
	exec := &trainer.LocalExecutor{
		Python:  fakePython(t, "exec sleep 30"),
		Timeout: 200 * time.Millisecond,
	}
	out, err := exec.Run(context.Background(), &trainer.Invocation{Module: "plmnist"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.TimedOut || out.ExitCode != trainer.TimeoutExitCode {
		t.Errorf("expected timeout, got %+v", out)
	}
}

func TestLocalExecutorMissingInterpreter(t *testing.T) {
	exec := &trainer.LocalExecutor{Python: filepath.Join(t.TempDir(), "nope")}
	if _, err := exec.Run(context.Background(), &trainer.Invocation{Module: "plmnist"}); err == nil {
		t.Error("expected error for missing interpreter")
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	os.WriteFile(path, []byte("# comment\nWANDB_API_KEY=abc\nEXPORTED=\"quoted value\"\n"), 0o644)
	env, err := trainer.LoadEnv(path)
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env["WANDB_API_KEY"] != "abc" || env["EXPORTED"] != "quoted value" {
		t.Errorf("unexpected env %v", env)
	}
	if env, err := trainer.LoadEnv(""); err != nil || len(env) != 0 {
		t.Errorf("empty path: got %v, %v", env, err)
	}
	if _, err := trainer.LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing env file")
	}
}

func TestNewSelectsExecutor(t *testing.T) {
	local, err := trainer.New(config.Trainer{Python: "python", TimeoutMinutes: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := local.(*trainer.LocalExecutor); !ok {
		t.Errorf("expected LocalExecutor, got %T", local)
	}
	ctr, err := trainer.New(config.Trainer{Python: "python", Image: "img", MemoryLimitMB: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c, ok := ctr.(*trainer.ContainerExecutor)
	if !ok {
		t.Fatalf("expected ContainerExecutor, got %T", ctr)
	}
	if c.MemoryLimit != 2*1024*1024 {
		t.Errorf("memory limit: got %d", c.MemoryLimit)
	}
}
