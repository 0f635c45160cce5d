package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manga.db")

	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	cols, err := Columns(db, "mangas")
	require.NoError(t, err)
	for _, c := range []string{"id", "title", "chapter", "url", "cover_image", "synopsis", "source", "created_at", "updated_at"} {
		assert.True(t, cols[c], c)
	}

	require.NoError(t, Migrate(db), "migrate is idempotent")
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE mangas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		chapter TEXT NOT NULL DEFAULT '1',
		url TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	cols, err := Columns(db, "mangas")
	require.NoError(t, err)
	assert.True(t, cols["cover_image"])
	assert.True(t, cols["synopsis"])
	assert.True(t, cols["source"])
}
