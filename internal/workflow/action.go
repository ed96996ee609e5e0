package workflow

import (
	"fmt"

	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/workspace"
)

// Scope controls how an action is dispatched over its jobs.
type Scope int

const (
	// PerJob actions run once per job on the worker pool.
	PerJob Scope = iota
	// Shared actions run once for every eligible job together.
	Shared
	// PerGroup actions run once per seed group, sequentially.
	PerGroup
)

// Action is one step of the sweep workflow.
type Action struct {
	Name string
	// Products are the files whose presence marks the action complete.
	Products []string
	// Previous names actions that must be complete first.
	Previous []string
	Scope    Scope
	// Invalidates is set for actions that change results, which makes the
	// aggregate report stale.
	Invalidates bool
}

const (
	ActionInitialize = "initialize"
	ActionDownload   = "download"
	ActionTrain      = "train"
	ActionFGSM       = "fgsm"
	ActionAnalyze    = "analyze"
)

// Actions lists the workflow in execution order.
var Actions = []*Action{
	{Name: ActionInitialize, Products: []string{workspace.DocumentFile}, Scope: PerJob, Invalidates: true},
	{Name: ActionDownload, Products: []string{workspace.DownloadMarker}, Previous: []string{ActionInitialize}, Scope: Shared},
	{Name: ActionTrain, Products: []string{result.FileName}, Previous: []string{ActionDownload}, Scope: PerJob, Invalidates: true},
	{Name: ActionFGSM, Products: []string{workspace.AttackMarker}, Previous: []string{ActionTrain}, Scope: PerJob, Invalidates: true},
	{Name: ActionAnalyze, Products: []string{workspace.AnalysisMarker}, Previous: []string{ActionFGSM}, Scope: PerGroup},
}

func Lookup(name string) (*Action, error) {
	for _, a := range Actions {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown action %q", name)
}

// Names returns the action names in execution order.
func Names() []string {
	names := make([]string, len(Actions))
	for i, a := range Actions {
		names[i] = a.Name
	}
	return names
}

type State int

const (
	Waiting State = iota
	Ready
	Complete
)

func (s State) String() string {
	switch s {
	case Complete:
		return "complete"
	case Ready:
		return "ready"
	default:
		return "waiting"
	}
}

// Done reports whether every product of a exists for j.
func (a *Action) Done(j *workspace.Job) bool {
	for _, p := range a.Products {
		if !j.IsFile(p) {
			return false
		}
	}
	return true
}

// Classify reports the state of action a for job j.
func Classify(a *Action, j *workspace.Job) State {
	if a.Done(j) {
		return Complete
	}
	for _, name := range a.Previous {
		prev, err := Lookup(name)
		if err != nil || !prev.Done(j) {
			return Waiting
		}
	}
	return Ready
}

// ClassifyGroup reports the state of a per-group action for a whole seed
// group: complete when every member is, ready when every member is at least
// ready.
func ClassifyGroup(a *Action, g *workspace.Group) State {
	state := Complete
	for _, j := range g.Jobs {
		if s := Classify(a, j); s < state {
			state = s
		}
	}
	if len(g.Jobs) == 0 {
		return Waiting
	}
	return state
}
