package gitops_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/signalnine/sweep/internal/gitops"
)

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	c := exec.Command(args[0], args[1:]...)
	c.Dir = dir
	out, err := c.CombinedOutput()
	if err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	return string(out)
}

func createTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"git", "init", "-b", "main"},
		{"git", "config", "user.email", "test@test.com"},
		{"git", "config", "user.name", "Test"},
	} {
		run(t, dir, args...)
	}
	os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello"), 0o644)
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "initial")
	return dir
}

func TestCurrent(t *testing.T) {
	repo := createTestRepo(t)
	rev, err := gitops.Current(repo)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(rev.Commit) != 40 {
		t.Errorf("commit: got %q", rev.Commit)
	}
	if rev.Branch != "main" {
		t.Errorf("branch: got %q, want main", rev.Branch)
	}
	if rev.Dirty {
		t.Error("fresh repo reported dirty")
	}
}

func TestCurrentDirty(t *testing.T) {
	repo := createTestRepo(t)
	os.WriteFile(filepath.Join(repo, "new.txt"), []byte("new file"), 0o644)
	rev, err := gitops.Current(repo)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !rev.Dirty {
		t.Error("expected dirty repo")
	}
}

func TestCurrentSubdirectory(t *testing.T) {
	repo := createTestRepo(t)
	sub := filepath.Join(repo, "project")
	os.MkdirAll(sub, 0o755)
	rev, err := gitops.Current(sub)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if rev.Branch != "main" {
		t.Errorf("branch: got %q", rev.Branch)
	}
}

func TestCurrentOutsideRepo(t *testing.T) {
	if _, err := gitops.Current(t.TempDir()); err == nil {
		t.Fatal("expected error outside a repository")
	}
}
