package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_indexes.sql", "CREATE INDEX x ON y (z);")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE y (z INT);")
	writeMigration(t, dir, "0010_audit.sql", "CREATE TABLE audit_log (id INT);")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	require.NoError(t, err)

	require.Len(t, migrations, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{migrations[0].Version, migrations[1].Version, migrations[2].Version})
	assert.Equal(t, "0001_init.sql", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE y")
}

func TestLoadMigrationsSkipsUnversionedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.sql", "SELECT 1;")
	writeMigration(t, dir, "README.sql", "not a migration")
	writeMigration(t, dir, "notes.txt", "ignored")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	require.NoError(t, err)

	require.Len(t, migrations, 1)
	assert.Equal(t, "0001_init.sql", migrations[0].Name)
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "absent"))
	_, err := m.LoadMigrations()
	assert.Error(t, err)
}
