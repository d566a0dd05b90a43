package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

const documentColumns = `id, template_id, data, storage_key, file_name, size_bytes, batch_id, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, template_id, data, storage_key, file_name, size_bytes, batch_id, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	data, err := json.Marshal(doc.Data)
	if err != nil {
		return err
	}
	var batchID sql.NullString
	if doc.BatchID != "" {
		batchID = sql.NullString{String: doc.BatchID, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.TemplateID,
		string(data),
		doc.StorageKey,
		doc.FileName,
		doc.SizeBytes,
		batchID,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// List lists documents ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	limit, offset = normalizePage(limit, offset)
	query := `SELECT ` + documentColumns + `
FROM documents
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var data []byte
	var batchID sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.TemplateID,
		&data,
		&doc.StorageKey,
		&doc.FileName,
		&doc.SizeBytes,
		&batchID,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc.Data); err != nil {
			return Document{}, err
		}
	}
	if batchID.Valid {
		doc.BatchID = batchID.String
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
