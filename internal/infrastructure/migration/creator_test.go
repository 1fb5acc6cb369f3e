package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add stores table", "add_stores_table"},
		{"Add-Stores-Table", "add_stores_table"},
		{"ADD_STORES_TABLE", "add_stores_table"},
		{"add__stores__table", "add_stores_table"},
		{"Add Cost 123", "add_cost_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add settlement index", "Speed up settlement listing")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.Equal(t, mf.Version+"_add_settlement_index.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, mf.Version+"_add_settlement_index.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add settlement index")
	assert.Contains(t, string(up), "Speed up settlement listing")
	assert.Contains(t, string(up), "UP migration")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	names, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")}, names)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	mf, err := CreateMigration(dir, "same", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mf.UpPath, []byte("CREATE TABLE x (id INT);"), 0o644))

	// a second call in the same second collides and must fail
	if _, err := CreateMigration(dir, "same", ""); err == nil {
		t.Skip("clock moved to the next second")
	}
	content, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE x (id INT);", string(content))
}

func TestListMigrations(t *testing.T) {
	files := fstest.MapFS{
		"000002_add_stores.up.sql":   {Data: []byte("--")},
		"000002_add_stores.down.sql": {Data: []byte("--")},
		"000001_init.up.sql":         {Data: []byte("--")},
		"000001_init.down.sql":       {Data: []byte("--")},
		"README.md":                  {Data: []byte("docs")},
		"subdir.up.sql/keep":         {Data: []byte("")},
	}

	names, err := ListMigrations(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_stores"}, names)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	files := Source("")
	names, err := ListMigrations(files)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := files.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}
