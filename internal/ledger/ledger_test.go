package ledger_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/signalnine/sweep/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), ".sweep", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBeginFinish(t *testing.T) {
	l := openLedger(t)
	id, err := l.Begin("job1", "train")
	require.NoError(t, err)

	latest, err := l.Latest("job1")
	require.NoError(t, err)
	require.Contains(t, latest, "train")
	assert.Equal(t, ledger.StatusRunning, latest["train"].Status)
	assert.True(t, latest["train"].FinishedAt.IsZero())

	require.NoError(t, l.Finish(id, ledger.StatusFailed, 2, errors.New("exit status 2")))
	latest, err = l.Latest("job1")
	require.NoError(t, err)
	rec := latest["train"]
	assert.Equal(t, ledger.StatusFailed, rec.Status)
	assert.Equal(t, 2, rec.ExitCode)
	assert.Equal(t, "exit status 2", rec.Error)
	assert.False(t, rec.FinishedAt.IsZero())
	assert.False(t, rec.StartedAt.After(rec.FinishedAt))
}

func TestLatestPrefersNewest(t *testing.T) {
	l := openLedger(t)
	first, err := l.Begin("job1", "fgsm")
	require.NoError(t, err)
	require.NoError(t, l.Finish(first, ledger.StatusFailed, 1, nil))
	second, err := l.Begin("job1", "fgsm")
	require.NoError(t, err)
	require.NoError(t, l.Finish(second, ledger.StatusCompleted, 0, nil))
	other, err := l.Begin("job2", "fgsm")
	require.NoError(t, err)
	require.NoError(t, l.Finish(other, ledger.StatusFailed, 1, nil))

	latest, err := l.Latest("job1")
	require.NoError(t, err)
	assert.Equal(t, second, latest["fgsm"].ID)
	assert.Equal(t, ledger.StatusCompleted, latest["fgsm"].Status)
	assert.Empty(t, latest["fgsm"].Error)

	history, err := l.History("job1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestFinishUnknown(t *testing.T) {
	l := openLedger(t)
	assert.Error(t, l.Finish(42, ledger.StatusCompleted, 0, nil))
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := ledger.Open(path)
	require.NoError(t, err)
	id, err := l.Begin("job1", "initialize")
	require.NoError(t, err)
	require.NoError(t, l.Finish(id, ledger.StatusCompleted, 0, nil))
	require.NoError(t, l.Close())

	l, err = ledger.Open(path)
	require.NoError(t, err)
	defer l.Close()
	latest, err := l.Latest("job1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, latest["initialize"].Status)
}
