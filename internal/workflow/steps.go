package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/sweep/internal/aggregate"
	"github.com/signalnine/sweep/internal/gitops"
	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/trainer"
	"github.com/signalnine/sweep/internal/workspace"
	"go.uber.org/zap"
)

// StartTimeLayout formats the job document start time.
const StartTimeLayout = "2006-01-02 15:04:05.000000"

// datasetDir is the directory the download module creates under the data dir.
const datasetDir = "MNIST"

// ExitError reports a trainer invocation that ran but did not succeed.
type ExitError struct {
	Invocation string
	Outcome    *trainer.Outcome
	LogPath    string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Invocation, e.Outcome.ExitCode)
	if e.Outcome.TimedOut {
		msg = fmt.Sprintf("%s timed out after %s", e.Invocation, e.Outcome.Duration.Round(time.Second))
	}
	if e.LogPath != "" {
		msg += " (see " + e.LogPath + ")"
	}
	return msg
}

func (w *Workflow) initialize(_ context.Context, j *workspace.Job) error {
	doc := &workspace.Document{
		StartTime: w.now().Format(StartTimeLayout),
		Seed:      j.Statepoint().Seed,
	}
	if rev, err := gitops.Current(w.cfg.ProjectDir); err == nil {
		doc.GitCommit = rev.Commit
		doc.GitBranch = rev.Branch
		if rev.Dirty {
			w.log.Debug("project checkout has uncommitted changes", zap.String("job", j.ID))
		}
	} else {
		w.log.Debug("no git revision for job document", zap.Error(err))
	}
	return j.WriteDocument(doc)
}

func (w *Workflow) datasetPresent() bool {
	info, err := os.Stat(filepath.Join(w.cfg.DataDir, datasetDir))
	return err == nil && info.IsDir()
}

// download fetches the dataset once and marks every job that can see it.
func (w *Workflow) download(ctx context.Context, jobs []*workspace.Job) error {
	log := w.log.With(zap.String("action", ActionDownload), zap.String("data_dir", w.cfg.DataDir))
	if !w.datasetPresent() {
		if err := os.MkdirAll(w.cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		inv := &trainer.Invocation{
			Module: w.cfg.Trainer.DownloadModule,
			Args:   trainer.DownloadArgs{DataDir: w.cfg.DataDir},
			Mounts: []string{w.cfg.DataDir},
		}
		log.Info("downloading dataset", zap.Stringer("invocation", inv))
		out, err := w.executor.Run(ctx, inv)
		if err != nil {
			return err
		}
		if !out.Success() {
			log.Debug("download output", zap.ByteString("output", out.Output))
			return &ExitError{Invocation: inv.String(), Outcome: out}
		}
	}
	if !w.datasetPresent() {
		return fmt.Errorf("dataset not found in %s after download", w.cfg.DataDir)
	}

	var errs []error
	for _, j := range jobs {
		err := w.record(j, ActionDownload, func() error { return j.Touch(workspace.DownloadMarker) })
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", ActionDownload, j.ID, err))
		}
	}
	return errors.Join(errs...)
}

// invoke runs inv and keeps its combined output next to the job's results.
func (w *Workflow) invoke(ctx context.Context, j *workspace.Job, action string, inv *trainer.Invocation) error {
	w.log.Info("running trainer",
		zap.String("action", action),
		zap.String("job", j.ID),
		zap.Stringer("invocation", inv),
	)
	out, err := w.executor.Run(ctx, inv)
	if err != nil {
		return err
	}
	logPath := j.Fn(action + ".log")
	if werr := os.WriteFile(logPath, out.Output, 0o644); werr != nil {
		w.log.Warn("writing action log", zap.String("path", logPath), zap.Error(werr))
		logPath = ""
	}
	w.log.Debug("trainer finished",
		zap.String("job", j.ID),
		zap.Int("exit_code", out.ExitCode),
		zap.Duration("duration", out.Duration),
	)
	if !out.Success() {
		return &ExitError{Invocation: inv.String(), Outcome: out, LogPath: logPath}
	}
	return nil
}

func (w *Workflow) train(ctx context.Context, j *workspace.Job) error {
	// A result from an earlier run must not satisfy later steps.
	if err := j.Remove(result.FileName); err != nil {
		return err
	}
	if err := j.Remove(workspace.AttackMarker); err != nil {
		return err
	}
	inv := &trainer.Invocation{
		Module: w.cfg.Trainer.Module,
		Args: trainer.TrainArgs{
			Statepoint: j.Statepoint(),
			LogPath:    j.Dir,
			ResultPath: j.Dir,
			DataDir:    w.cfg.DataDir,
			ExtraFlags: w.cfg.Trainer.ExtraFlags,
		},
		Mounts: []string{j.Dir, w.cfg.DataDir},
	}
	if err := w.invoke(ctx, j, ActionTrain, inv); err != nil {
		return err
	}
	if !j.IsFile(result.FileName) {
		return fmt.Errorf("%w: trainer wrote no %s", result.ErrMissing, result.FileName)
	}
	return nil
}

// fgsm runs the attack and marks the job only once its results carry every
// metric seed analysis needs.
func (w *Workflow) fgsm(ctx context.Context, j *workspace.Job) error {
	sp := j.Statepoint()
	inv := &trainer.Invocation{
		Module: w.cfg.Trainer.AttackModule,
		Args: trainer.AttackArgs{
			Seed:        sp.Seed,
			ResultPath:  j.Dir,
			FGSMEpsilon: sp.FGSMEpsilon,
		},
		Mounts: []string{j.Dir, w.cfg.DataDir},
	}
	if err := w.invoke(ctx, j, ActionFGSM, inv); err != nil {
		return err
	}
	if _, err := result.Read(j.ResultPath()); err != nil {
		return err
	}
	return j.Touch(workspace.AttackMarker)
}

// analyzeGroup aggregates one seed group and marks every member once the
// report checks out.
func (w *Workflow) analyzeGroup(ctx context.Context, g *workspace.Group) error {
	outcome, err := aggregate.Aggregate(ctx, aggregate.Options{
		ReportPath:  w.cfg.ReportPath(),
		LockTimeout: reportLockTimeout,
	}, g.Jobs)

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, j := range g.Jobs {
		stepErr := err
		if stepErr == nil {
			stepErr = j.Touch(workspace.AnalysisMarker)
			if stepErr != nil {
				errs = append(errs, stepErr)
			}
		}
		w.record(j, ActionAnalyze, func() error { return stepErr })
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s %v: %w", ActionAnalyze, g.Key, errors.Join(errs...))
	}
	w.log.Info("seed group aggregated",
		zap.Stringer("group", g.Key),
		zap.Int("seeds", len(g.Jobs)),
		zap.Bool("appended", outcome.Appended),
		zap.Int("report_rows", outcome.Check.Rows),
	)
	return nil
}
