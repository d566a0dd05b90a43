package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const templateColumns = `id, name, file_name, storage_key, mime_type, size_bytes, placeholders, preview_key, enabled, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a template. The unique index on name maps to ErrDuplicateName.
func (r *PGRepo) Create(ctx context.Context, t Template) error {
	const query = `
INSERT INTO templates (
    id, name, file_name, storage_key, mime_type, size_bytes, placeholders, preview_key, enabled, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	placeholders, err := json.Marshal(nonNil(t.Placeholders))
	if err != nil {
		return err
	}
	var previewKey sql.NullString
	if t.PreviewKey != "" {
		previewKey = sql.NullString{String: t.PreviewKey, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.FileName,
		t.StorageKey,
		t.MimeType,
		t.SizeBytes,
		string(placeholders),
		previewKey,
		t.Enabled,
		t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

// List returns all templates newest first.
func (r *PGRepo) List(ctx context.Context) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetEnabled(ctx context.Context, id string, enabled bool) (Template, error) {
	query := `UPDATE templates SET enabled = $1 WHERE id = $2 RETURNING ` + templateColumns
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, enabled, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

func (r *PGRepo) SetPreview(ctx context.Context, id, previewKey string) error {
	const query = `UPDATE templates SET preview_key = $1 WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, previewKey, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var t Template
	var placeholders []byte
	var previewKey sql.NullString
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.FileName,
		&t.StorageKey,
		&t.MimeType,
		&t.SizeBytes,
		&placeholders,
		&previewKey,
		&t.Enabled,
		&t.CreatedAt,
	); err != nil {
		return Template{}, err
	}
	if len(placeholders) > 0 {
		if err := json.Unmarshal(placeholders, &t.Placeholders); err != nil {
			return Template{}, err
		}
	}
	if previewKey.Valid {
		t.PreviewKey = previewKey.String
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
