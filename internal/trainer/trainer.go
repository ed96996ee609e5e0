// Package trainer invokes the external training program through typed
// argument sets. No shell is involved: arguments are passed as argv.
package trainer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/signalnine/sweep/internal/statepoint"
)

// TimeoutExitCode is reported when an invocation exceeds its deadline.
const TimeoutExitCode = 124

// Args renders a typed argument set as command-line flags.
type Args interface {
	Flags() []string
}

// TrainArgs runs training and testing for one statepoint.
type TrainArgs struct {
	Statepoint statepoint.Statepoint
	LogPath    string
	ResultPath string
	DataDir    string
	ExtraFlags []string
}

func (a TrainArgs) Flags() []string {
	sp := a.Statepoint
	flags := []string{
		"--num_epochs", strconv.Itoa(sp.NumEpochs),
		"--log_path", a.LogPath,
		"--result_path", a.ResultPath,
		"--data_dir", a.DataDir,
		"--batch_size", strconv.Itoa(sp.BatchSize),
		"--hidden_size", strconv.Itoa(sp.HiddenSize),
		"--learning_rate", formatFloat(sp.LearningRate),
		"--dropout_prob", formatFloat(sp.DropoutProb),
		"--seed", strconv.Itoa(sp.Seed),
		"--fgsm_epsilon", formatFloat(sp.FGSMEpsilon),
	}
	return append(flags, a.ExtraFlags...)
}

// AttackArgs runs the FGSM attack against a trained job.
type AttackArgs struct {
	Seed        int
	ResultPath  string
	FGSMEpsilon float64
}

func (a AttackArgs) Flags() []string {
	return []string{
		"--seed", strconv.Itoa(a.Seed),
		"--result_path", a.ResultPath,
		"--fgsm_epsilon", formatFloat(a.FGSMEpsilon),
	}
}

// DownloadArgs fetches the dataset.
type DownloadArgs struct {
	DataDir string
}

func (a DownloadArgs) Flags() []string {
	return []string{"--data_dir", a.DataDir}
}

// Invocation is one run of `python -m <Module> <Args>`.
type Invocation struct {
	Module string
	Args   Args
	// Mounts lists host paths the program reads or writes. Container
	// executors bind them at the same path.
	Mounts []string
}

// Argv returns the full module invocation after the interpreter.
func (inv *Invocation) Argv() []string {
	argv := []string{"-m", inv.Module}
	if inv.Args != nil {
		argv = append(argv, inv.Args.Flags()...)
	}
	return argv
}

func (inv *Invocation) String() string {
	return fmt.Sprintf("%s %v", inv.Module, inv.Argv()[2:])
}

// Outcome is the result of an invocation that ran to completion or timed out.
type Outcome struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
	TimedOut bool
}

// Success reports a zero exit within the deadline.
func (o *Outcome) Success() bool {
	return o.ExitCode == 0 && !o.TimedOut
}

// Executor runs invocations. An error means the program could not be run at
// all; a non-zero exit is reported through the Outcome.
type Executor interface {
	Run(ctx context.Context, inv *Invocation) (*Outcome, error)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
