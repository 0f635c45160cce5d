package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Store struct {
	DB  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

const entryColumns = `id, title, chapter, url, cover_image, synopsis, source, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                        Entry
		cover, synopsis, source sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Chapter, &e.URL, &cover, &synopsis, &source, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	e.CoverImage = cover.String
	e.Synopsis = synopsis.String
	e.Source = source.String

	return e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts e and fills in its ID and timestamps.
func (s *Store) Create(ctx context.Context, e *Entry) error {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO mangas (title, chapter, url, cover_image, synopsis, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Title, e.Chapter, e.URL, nullable(e.CoverImage), nullable(e.Synopsis), nullable(e.Source), now, now)
	if err != nil {
		return fmt.Errorf("insert manga: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert manga id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now

	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM mangas WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get manga %d: %w", id, err)
	}

	return e, nil
}

// List returns entries whose title contains query (case-insensitive),
// most recently updated first. An empty query lists everything.
func (s *Store) List(ctx context.Context, query string) ([]Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM mangas`
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		q += ` WHERE title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(query)+"%")
	}
	q += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list mangas: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manga: %w", err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Update stores every mutable field of e and bumps its updated_at.
func (s *Store) Update(ctx context.Context, e *Entry) error {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE mangas
		SET title = ?, chapter = ?, url = ?, cover_image = ?, synopsis = ?, source = ?, updated_at = ?
		WHERE id = ?
	`, e.Title, e.Chapter, e.URL, nullable(e.CoverImage), nullable(e.Synopsis), nullable(e.Source), now, e.ID)
	if err != nil {
		return fmt.Errorf("update manga %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	e.UpdatedAt = now

	return nil
}

func (s *Store) SetChapter(ctx context.Context, id int64, chapter string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE mangas SET chapter = ?, updated_at = ? WHERE id = ?
	`, chapter, s.now(), id)
	if err != nil {
		return fmt.Errorf("set chapter %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM mangas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete manga %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
