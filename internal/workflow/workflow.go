// Package workflow drives jobs through initialize, download, train, fgsm and
// seed analysis, using marker files in each job directory to decide what is
// left to do.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/ledger"
	"github.com/signalnine/sweep/internal/runner"
	"github.com/signalnine/sweep/internal/trainer"
	"github.com/signalnine/sweep/internal/workspace"
	"go.uber.org/zap"
)

// reportLockTimeout bounds how long seed analysis waits for another writer.
const reportLockTimeout = 2 * time.Minute

type Workflow struct {
	cfg      *config.Config
	project  *workspace.Project
	executor trainer.Executor
	ledger   *ledger.Ledger
	log      *zap.Logger
	now      func() time.Time
}

// New assembles a workflow. The ledger may be nil, in which case executions
// are not recorded.
func New(cfg *config.Config, project *workspace.Project, exec trainer.Executor, l *ledger.Ledger, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{
		cfg:      cfg,
		project:  project,
		executor: exec,
		ledger:   l,
		log:      log,
		now:      time.Now,
	}
}

// Batch is the eligible work for one action.
type Batch struct {
	Action *Action
	Jobs   []*workspace.Job
	// Groups is set for per-group actions; Jobs then holds their members.
	Groups []*workspace.Group
}

func (b *Batch) Empty() bool { return len(b.Jobs) == 0 }

// Plan collects the jobs for which action a is ready.
func (w *Workflow) Plan(a *Action) (*Batch, error) {
	jobs, err := w.project.Jobs()
	if err != nil {
		return nil, err
	}
	b := &Batch{Action: a}
	if a.Scope == PerGroup {
		for _, g := range workspace.Groups(jobs) {
			if ClassifyGroup(a, g) == Ready {
				b.Groups = append(b.Groups, g)
				b.Jobs = append(b.Jobs, g.Jobs...)
			}
		}
		return b, nil
	}
	for _, j := range jobs {
		if Classify(a, j) == Ready {
			b.Jobs = append(b.Jobs, j)
		}
	}
	return b, nil
}

// Select builds a batch of named jobs regardless of whether a is already
// complete for them. Every job must have its previous actions complete. For
// per-group actions the whole seed group of each named job is selected.
// Repeated IDs are selected once.
func (w *Workflow) Select(a *Action, ids []string) (*Batch, error) {
	b := &Batch{Action: a}
	var picked []*workspace.Job
	for _, id := range ids {
		if slices.ContainsFunc(picked, func(p *workspace.Job) bool { return p.ID == id }) {
			continue
		}
		j, err := w.project.OpenJob(id)
		if err != nil {
			return nil, err
		}
		if Classify(a, j) == Waiting {
			return nil, fmt.Errorf("job %s is not ready for %s", id, a.Name)
		}
		picked = append(picked, j)
	}
	if a.Scope != PerGroup {
		b.Jobs = picked
		return b, nil
	}

	all, err := w.project.Jobs()
	if err != nil {
		return nil, err
	}
	for _, g := range workspace.Groups(all) {
		if !slices.ContainsFunc(g.Jobs, func(j *workspace.Job) bool {
			return slices.ContainsFunc(picked, func(p *workspace.Job) bool { return p.ID == j.ID })
		}) {
			continue
		}
		if ClassifyGroup(a, g) == Waiting {
			return nil, fmt.Errorf("seed group %v is not ready for %s", g.Key, a.Name)
		}
		b.Groups = append(b.Groups, g)
		b.Jobs = append(b.Jobs, g.Jobs...)
	}
	return b, nil
}

// Execute runs a batch. Per-job failures do not stop the remaining jobs; all
// errors are joined.
func (w *Workflow) Execute(ctx context.Context, b *Batch, parallel int) error {
	if b.Empty() {
		return nil
	}
	log := w.log.With(zap.String("action", b.Action.Name))
	log.Info("executing action", zap.Int("jobs", len(b.Jobs)))

	if b.Action.Invalidates {
		if err := w.project.InvalidateReport(w.cfg.ReportPath()); err != nil {
			return err
		}
	}

	switch b.Action.Scope {
	case Shared:
		return w.download(ctx, b.Jobs)
	case PerGroup:
		var errs []error
		for _, g := range b.Groups {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			if err := w.analyzeGroup(ctx, g); err != nil {
				log.Error("seed analysis failed", zap.Stringer("group", g.Key), zap.Error(err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	step := w.step(b.Action.Name)
	jobs := make([]runner.Job, len(b.Jobs))
	for i, j := range b.Jobs {
		jobs[i] = func(ctx context.Context) error {
			err := w.record(j, b.Action.Name, func() error { return step(ctx, j) })
			if err != nil {
				log.Error("action failed", zap.String("job", j.ID), zap.Error(err))
				return fmt.Errorf("%s %s: %w", b.Action.Name, j.ID, err)
			}
			log.Debug("action complete", zap.String("job", j.ID))
			return nil
		}
	}
	return errors.Join(runner.RunPool(ctx, parallel, jobs)...)
}

// Run plans and executes each action in order, or only the named one. Later
// actions see the products of earlier ones.
func (w *Workflow) Run(ctx context.Context, only string, parallel int) error {
	actions := Actions
	if only != "" {
		a, err := Lookup(only)
		if err != nil {
			return err
		}
		actions = []*Action{a}
	}
	var errs []error
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		b, err := w.Plan(a)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := w.Execute(ctx, b, parallel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Workflow) step(action string) func(context.Context, *workspace.Job) error {
	switch action {
	case ActionInitialize:
		return w.initialize
	case ActionTrain:
		return w.train
	case ActionFGSM:
		return w.fgsm
	}
	return func(context.Context, *workspace.Job) error {
		return fmt.Errorf("action %s is not a per-job action", action)
	}
}

// record wraps fn with a ledger entry for job j.
func (w *Workflow) record(j *workspace.Job, action string, fn func() error) error {
	if w.ledger == nil {
		return fn()
	}
	id, err := w.ledger.Begin(j.ID, action)
	if err != nil {
		w.log.Warn("ledger unavailable", zap.Error(err))
		return fn()
	}
	runErr := fn()
	status, code := ledger.StatusCompleted, 0
	if runErr != nil {
		status, code = ledger.StatusFailed, 1
		var exitErr *ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.Outcome.ExitCode
		}
	}
	if err := w.ledger.Finish(id, status, code, runErr); err != nil {
		w.log.Warn("recording action result", zap.String("job", j.ID), zap.Error(err))
	}
	return runErr
}

// Count holds per-state job counts for one action.
type Count struct {
	Action   string
	Complete int
	Ready    int
	Waiting  int
}

// Status classifies every job against every action.
func (w *Workflow) Status() ([]Count, error) {
	jobs, err := w.project.Jobs()
	if err != nil {
		return nil, err
	}
	groups := workspace.Groups(jobs)
	counts := make([]Count, len(Actions))
	for i, a := range Actions {
		counts[i].Action = a.Name
		if a.Scope == PerGroup {
			for _, g := range groups {
				counts[i].add(ClassifyGroup(a, g), len(g.Jobs))
			}
			continue
		}
		for _, j := range jobs {
			counts[i].add(Classify(a, j), 1)
		}
	}
	return counts, nil
}

func (c *Count) add(s State, n int) {
	switch s {
	case Complete:
		c.Complete += n
	case Ready:
		c.Ready += n
	default:
		c.Waiting += n
	}
}
