package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no render matches the given id.
var ErrNotFound = errors.New("render not found")

const schema = `
CREATE TABLE IF NOT EXISTS renders (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    template_path TEXT NOT NULL,
    output_path TEXT NOT NULL,
    size TEXT,
    quality TEXT,
    aspect TEXT,
    crop_mode TEXT,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT 'USD'
);

CREATE INDEX IF NOT EXISTS idx_renders_created_at ON renders(created_at);
`

const columns = `id, created_at, provider, model, template_path, output_path, size, quality, aspect, crop_mode, width, height, cost, currency`

// Render is one completed slide render.
type Render struct {
	ID           string
	CreatedAt    time.Time
	Provider     string
	Model        string
	TemplatePath string
	OutputPath   string
	Size         string
	Quality      string
	Aspect       string
	CropMode     string
	Width        int
	Height       int
	Cost         float64
	Currency     string
}

type Store struct {
	db *sql.DB
}

// DBPath returns the history database location inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "history.db")
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts r, assigning an id and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, r *Render) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renders (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC(), r.Provider, r.Model, r.TemplatePath, r.OutputPath,
		nullString(r.Size), nullString(r.Quality), nullString(r.Aspect), nullString(r.CropMode),
		r.Width, r.Height, r.Cost, r.Currency)
	if err != nil {
		return fmt.Errorf("failed to record render: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Render, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM renders WHERE id = ?`, id)

	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the most recent renders first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Render, error) {
	query := `SELECT ` + columns + ` FROM renders ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renders []*Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		renders = append(renders, r)
	}
	return renders, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every render and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renders`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRender(row scanner) (*Render, error) {
	r := &Render{}
	var size, quality, aspect, cropMode sql.NullString
	err := row.Scan(&r.ID, &r.CreatedAt, &r.Provider, &r.Model, &r.TemplatePath, &r.OutputPath,
		&size, &quality, &aspect, &cropMode, &r.Width, &r.Height, &r.Cost, &r.Currency)
	if err != nil {
		return nil, err
	}
	r.Size = size.String
	r.Quality = quality.String
	r.Aspect = aspect.String
	r.CropMode = cropMode.String
	return r, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
