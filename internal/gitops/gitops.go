package gitops

import (
	"fmt"
	"os/exec"
	"strings"
)

// Revision describes the checkout a sweep was launched from.
type Revision struct {
	Commit string
	Branch string
	Dirty  bool
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Current reports HEAD of the repository containing dir. A detached HEAD
// yields the branch "HEAD".
func Current(dir string) (*Revision, error) {
	commit, err := git(dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	branch, err := git(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	status, err := git(dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return &Revision{Commit: commit, Branch: branch, Dirty: status != ""}, nil
}
