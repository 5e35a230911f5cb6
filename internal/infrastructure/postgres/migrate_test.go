package postgres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	files, err := migrationFiles(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "001_init.sql"),
		filepath.Join(dir, "002_more.sql"),
	}, files)
}

func TestMigrationFiles_MissingDir(t *testing.T) {
	_, err := migrationFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPendingSkipsApplied(t *testing.T) {
	files := []string{"m/001_init.sql", "m/002_more.sql", "m/003_last.sql"}

	got := pending(files, map[string]bool{"001_init.sql": true, "003_last.sql": true})

	assert.Equal(t, []string{"m/002_more.sql"}, got)
	assert.Len(t, pending(files, nil), 3)
}

func TestRepoMigrationsPresent(t *testing.T) {
	files, err := migrationFiles("../../migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}

func TestAddWhere(t *testing.T) {
	q := "SELECT * FROM complaints"
	q += addWhere(q) + " status=$" + itoa(1)
	q += addWhere(q) + " agency=$" + itoa(2)
	assert.Equal(t, "SELECT * FROM complaints WHERE status=$1 AND agency=$2", q)
}
