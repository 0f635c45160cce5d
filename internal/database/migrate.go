package database

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT     NOT NULL,
	chapter     TEXT     NOT NULL DEFAULT '1',
	url         TEXT     NOT NULL,
	cover_image TEXT,
	synopsis    TEXT,
	source      TEXT,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_mangas_updated_at ON mangas(updated_at);
`

// columns added after the first release; older files get them on open
var optionalColumns = []struct{ name, ddl string }{
	{"cover_image", "ALTER TABLE mangas ADD COLUMN cover_image TEXT"},
	{"synopsis", "ALTER TABLE mangas ADD COLUMN synopsis TEXT"},
	{"source", "ALTER TABLE mangas ADD COLUMN source TEXT"},
}

// Migrate creates the schema and adds any missing optional column. It is
// safe to run on every start.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	have, err := Columns(db, "mangas")
	if err != nil {
		return err
	}

	for _, c := range optionalColumns {
		if have[c.name] {
			continue
		}
		if _, err := db.Exec(c.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", c.name, err)
		}
	}

	return nil
}

// Columns lists the column names of table.
func Columns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		out[name] = true
	}

	return out, rows.Err()
}
