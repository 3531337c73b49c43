package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/filesystem"
)

func Test_FileLockfileRepository(t *testing.T) {
	ctx := context.Background()

	newLockfile := func(t *testing.T) *entities.Lockfile {
		t.Helper()
		lock := entities.NewLockfile()
		err := lock.AddPlugin("dice", entities.PluginLock{
			Requested: "^1.0",
			Resolved:  "1.2.0",
			Source:    "ghcr.io/smarttavern/tavern-plugins/dice:1.2.0",
			Digest:    "sha256:abc123",
			Fetched:   time.Now().UTC(),
		})
		require.NoError(t, err)
		return lock
	}

	t.Run("save then load round trip", func(t *testing.T) {
		repo := filesystem.NewFileLockfileRepository()
		path := filepath.Join(t.TempDir(), "tavern.lock")

		require.NoError(t, repo.Save(ctx, newLockfile(t), path))

		loaded, err := repo.Load(ctx, path)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, entities.LockfileVersion, loaded.Version)
		require.NotNil(t, loaded.GetPlugin("dice"))
		assert.Equal(t, "1.2.0", loaded.GetPlugin("dice").Resolved)
		assert.Equal(t, "sha256:abc123", loaded.GetPlugin("dice").Digest)
	})

	t.Run("missing lockfile loads as nil", func(t *testing.T) {
		repo := filesystem.NewFileLockfileRepository()

		loaded, err := repo.Load(ctx, filepath.Join(t.TempDir(), "absent.lock"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("missing directory loads as nil", func(t *testing.T) {
		repo := filesystem.NewFileLockfileRepository()

		loaded, err := repo.Load(ctx, filepath.Join(t.TempDir(), "nope", "absent.lock"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("entry without digest is rejected on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tavern.lock")
		raw := "lockfile_version: 1\ngenerated: 2026-01-02T03:04:05Z\nplugins:\n  dice:\n    requested: \"^1.0\"\n    resolved: \"1.2.0\"\n    source: \"ghcr.io/smarttavern/tavern-plugins/dice:1.2.0\"\n    digest: \"\"\n"
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		repo := filesystem.NewFileLockfileRepository()
		_, err := repo.Load(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "digest")
	})

	t.Run("save creates missing directories", func(t *testing.T) {
		repo := filesystem.NewFileLockfileRepository()
		path := filepath.Join(t.TempDir(), "nested", "dir", "tavern.lock")

		require.NoError(t, repo.Save(ctx, newLockfile(t), path))

		exists, err := repo.Exists(ctx, path)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("exists is false for absent files", func(t *testing.T) {
		repo := filesystem.NewFileLockfileRepository()

		exists, err := repo.Exists(ctx, filepath.Join(t.TempDir(), "absent.lock"))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
