// Package workspace stores one directory per statepoint and the marker files
// that record which workflow steps have completed for it.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/statepoint"
)

const (
	StatepointFile = "statepoint.json"
	DocumentFile   = "job_document.json"
	DownloadMarker = "data_download_complete.txt"
	AttackMarker   = "fgsm_attack_complete.txt"
	AnalysisMarker = "avg_std_dev_calculated.txt"
)

var ErrJobNotFound = errors.New("job not found")

// Project is a directory holding a workspace/ of job directories.
type Project struct {
	Root string
}

func Open(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}
	return &Project{Root: abs}, nil
}

func (p *Project) WorkspaceDir() string {
	return filepath.Join(p.Root, "workspace")
}

// Job is a single statepoint and its directory.
type Job struct {
	ID  string
	Dir string
	sp  statepoint.Statepoint
}

func (j *Job) Statepoint() statepoint.Statepoint { return j.sp }

func (j *Job) Fn(name string) string { return filepath.Join(j.Dir, name) }

func (j *Job) ResultPath() string { return j.Fn(result.FileName) }

func (j *Job) IsFile(name string) bool {
	info, err := os.Stat(j.Fn(name))
	return err == nil && !info.IsDir()
}

// Touch creates an empty marker file, leaving an existing one untouched.
func (j *Job) Touch(name string) error {
	f, err := os.OpenFile(j.Fn(name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("touching %s: %w", name, err)
	}
	return f.Close()
}

// Remove deletes a file from the job directory. A missing file is not an error.
func (j *Job) Remove(name string) error {
	if err := os.Remove(j.Fn(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

func (j *Job) String() string { return j.ID }

// InitJob creates the job directory for sp. Re-initializing an existing job
// is a no-op.
func (p *Project) InitJob(sp statepoint.Statepoint) (*Job, error) {
	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statepoint: %w", err)
	}
	id := sp.ID()
	job := &Job{ID: id, Dir: filepath.Join(p.WorkspaceDir(), id), sp: sp}
	if err := os.MkdirAll(job.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating job dir: %w", err)
	}
	if existing, err := readStatepoint(job.Fn(StatepointFile)); err == nil {
		if existing != sp {
			return nil, fmt.Errorf("job %s: stored statepoint %v does not match %v", id, existing, sp)
		}
		return job, nil
	}
	data, err := json.MarshalIndent(sp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling statepoint: %w", err)
	}
	if err := writeFileAtomic(job.Fn(StatepointFile), data); err != nil {
		return nil, fmt.Errorf("writing statepoint: %w", err)
	}
	return job, nil
}

// OpenJob loads an initialized job by ID.
func (p *Project) OpenJob(id string) (*Job, error) {
	dir := filepath.Join(p.WorkspaceDir(), id)
	sp, err := readStatepoint(filepath.Join(dir, StatepointFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, err
	}
	if sp.ID() != id {
		return nil, fmt.Errorf("job %s: statepoint hashes to %s", id, sp.ID())
	}
	return &Job{ID: id, Dir: dir, sp: sp}, nil
}

// Jobs returns every initialized job ordered by statepoint.
func (p *Project) Jobs() ([]*Job, error) {
	entries, err := os.ReadDir(p.WorkspaceDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading workspace: %w", err)
	}
	var jobs []*Job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		job, err := p.OpenJob(e.Name())
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return statepoint.Less(jobs[i].sp, jobs[k].sp)
	})
	return jobs, nil
}

// ResetAnalysis removes the analysis directory and every job's analysis
// marker so that seed analysis runs again from scratch.
func (p *Project) ResetAnalysis(analysisDir string) error {
	if err := os.RemoveAll(analysisDir); err != nil {
		return fmt.Errorf("removing analysis dir: %w", err)
	}
	return p.clearAnalysisMarkers()
}

// InvalidateReport removes the aggregate report and every analysis marker.
// Called whenever a job's results change.
func (p *Project) InvalidateReport(reportPath string) error {
	if err := os.Remove(reportPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing report: %w", err)
	}
	return p.clearAnalysisMarkers()
}

func (p *Project) clearAnalysisMarkers() error {
	jobs, err := p.Jobs()
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := j.Remove(AnalysisMarker); err != nil {
			return err
		}
	}
	return nil
}

func readStatepoint(path string) (statepoint.Statepoint, error) {
	var sp statepoint.Statepoint
	data, err := os.ReadFile(path)
	if err != nil {
		return sp, err
	}
	if err := json.Unmarshal(data, &sp); err != nil {
		return sp, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sp, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
