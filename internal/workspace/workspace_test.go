package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/sweep/internal/statepoint"
	"github.com/signalnine/sweep/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid() statepoint.Grid {
	return statepoint.Grid{
		NumEpochs:    []int{1, 5},
		BatchSize:    []int{128},
		HiddenSize:   []int{64},
		LearningRate: []float64{2e-4},
		DropoutProb:  []float64{0.1},
		FGSMEpsilon:  []float64{0.05},
		Seed:         []int{2, 1, 3},
	}
}

func initProject(t *testing.T) (*workspace.Project, []*workspace.Job) {
	t.Helper()
	p, err := workspace.Open(t.TempDir())
	require.NoError(t, err)
	var jobs []*workspace.Job
	for _, sp := range grid().Expand() {
		j, err := p.InitJob(sp)
		require.NoError(t, err)
		jobs = append(jobs, j)
	}
	return p, jobs
}

func TestInitJobIdempotent(t *testing.T) {
	p, jobs := initProject(t)
	again, err := p.InitJob(jobs[0].Statepoint())
	require.NoError(t, err)
	assert.Equal(t, jobs[0].ID, again.ID)
	assert.FileExists(t, again.Fn(workspace.StatepointFile))

	all, err := p.Jobs()
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestInitJobRejectsInvalid(t *testing.T) {
	p, err := workspace.Open(t.TempDir())
	require.NoError(t, err)
	_, err = p.InitJob(statepoint.Statepoint{})
	assert.Error(t, err)
}

func TestJobsSorted(t *testing.T) {
	p, _ := initProject(t)
	jobs, err := p.Jobs()
	require.NoError(t, err)
	for i := 1; i < len(jobs); i++ {
		assert.True(t, statepoint.Less(jobs[i-1].Statepoint(), jobs[i].Statepoint()),
			"jobs %d and %d out of order", i-1, i)
	}
}

func TestJobsEmptyProject(t *testing.T) {
	p, err := workspace.Open(t.TempDir())
	require.NoError(t, err)
	jobs, err := p.Jobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestOpenJob(t *testing.T) {
	p, jobs := initProject(t)
	j, err := p.OpenJob(jobs[2].ID)
	require.NoError(t, err)
	assert.Equal(t, jobs[2].Statepoint(), j.Statepoint())

	_, err = p.OpenJob("deadbeef")
	assert.True(t, errors.Is(err, workspace.ErrJobNotFound))
}

func TestMarkers(t *testing.T) {
	_, jobs := initProject(t)
	j := jobs[0]
	assert.False(t, j.IsFile(workspace.AttackMarker))
	require.NoError(t, j.Touch(workspace.AttackMarker))
	assert.True(t, j.IsFile(workspace.AttackMarker))
	require.NoError(t, j.Touch(workspace.AttackMarker))
	require.NoError(t, j.Remove(workspace.AttackMarker))
	assert.False(t, j.IsFile(workspace.AttackMarker))
	require.NoError(t, j.Remove(workspace.AttackMarker))
}

func TestDocumentRoundTrip(t *testing.T) {
	_, jobs := initProject(t)
	doc := &workspace.Document{StartTime: "2026-01-02 03:04:05.000000", Seed: 2, GitCommit: "abc123"}
	require.NoError(t, jobs[0].WriteDocument(doc))
	got, err := jobs[0].ReadDocument()
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestGroups(t *testing.T) {
	_, jobs := initProject(t)
	groups := workspace.Groups(jobs)
	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Key.NumEpochs)
	assert.Equal(t, 5, groups[1].Key.NumEpochs)
	for _, g := range groups {
		require.Len(t, g.Jobs, 3)
		assert.Equal(t, 0, g.Key.Seed)
		for i, j := range g.Jobs {
			assert.Equal(t, i+1, j.Statepoint().Seed)
			assert.Equal(t, g.Key, j.Statepoint().Key())
		}
	}
	assert.Equal(t, 3, workspace.DistinctSeeds(jobs))
}

func TestGroupAllHave(t *testing.T) {
	_, jobs := initProject(t)
	g := workspace.Groups(jobs)[0]
	assert.False(t, g.AllHave(workspace.AttackMarker))
	for _, j := range g.Jobs {
		require.NoError(t, j.Touch(workspace.AttackMarker))
	}
	assert.True(t, g.AllHave(workspace.AttackMarker))
	assert.False(t, (&workspace.Group{}).AllHave(workspace.AttackMarker))
}

func TestResetAnalysis(t *testing.T) {
	p, jobs := initProject(t)
	analysis := filepath.Join(p.Root, "analysis")
	require.NoError(t, os.MkdirAll(analysis, 0o755))
	report := filepath.Join(analysis, "output.txt")
	require.NoError(t, os.WriteFile(report, []byte("header\n"), 0o644))
	for _, j := range jobs {
		require.NoError(t, j.Touch(workspace.AnalysisMarker))
	}

	require.NoError(t, p.InvalidateReport(report))
	assert.NoFileExists(t, report)
	assert.DirExists(t, analysis)
	for _, j := range jobs {
		assert.False(t, j.IsFile(workspace.AnalysisMarker))
	}

	require.NoError(t, jobs[0].Touch(workspace.AnalysisMarker))
	require.NoError(t, p.ResetAnalysis(analysis))
	assert.NoDirExists(t, analysis)
	assert.False(t, jobs[0].IsFile(workspace.AnalysisMarker))
}
