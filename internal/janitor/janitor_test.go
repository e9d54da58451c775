package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedforge/embedforge/internal/imagestore"
)

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	images, err := imagestore.New(nil, t.TempDir())
	require.NoError(t, err)

	j := New(nil, images, "not a schedule", time.Hour)
	assert.Error(t, j.Start())
}

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	images, err := imagestore.New(nil, root)
	require.NoError(t, err)

	oldFile := filepath.Join(root, "pictures", "old.png")
	freshFile := filepath.Join(root, "pictures", "fresh.png")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	j := New(nil, images, "* * * * *", time.Hour)
	j.sweep()

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshFile)
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	images, err := imagestore.New(nil, t.TempDir())
	require.NoError(t, err)

	j := New(nil, images, "*/10 * * * *", time.Hour)
	require.NoError(t, j.Start())
	j.Stop()
}
