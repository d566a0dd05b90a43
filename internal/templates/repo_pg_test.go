package templates

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var columns = []string{"id", "name", "file_name", "storage_key", "mime_type", "size_bytes", "placeholders", "preview_key", "enabled", "created_at"}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	tpl := Template{
		ID:           "11111111-1111-1111-1111-111111111111",
		Name:         "Course",
		FileName:     "course.docx",
		StorageKey:   "templates/abc_course.docx",
		MimeType:     "application/zip",
		SizeBytes:    42,
		Placeholders: []string{"NAME", "COURSE"},
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO templates").
		WithArgs(tpl.ID, tpl.Name, tpl.FileName, tpl.StorageKey, tpl.MimeType, tpl.SizeBytes,
			`["NAME","COURSE"]`, nil, true, tpl.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(t.Context(), tpl))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoCreateDuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO templates").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "templates_name_key"})

	err := repo.Create(t.Context(), Template{ID: "x", Name: "Course"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestPGRepoGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM templates WHERE id").
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("tpl-1", "Course", "course.docx", "templates/k", "application/zip", int64(10), []byte(`["NAME"]`), "previews/p.pdf", false, created))

	got, err := repo.Get(t.Context(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"NAME"}, got.Placeholders)
	assert.Equal(t, "previews/p.pdf", got.PreviewKey)
	assert.False(t, got.Enabled)
	assert.Equal(t, created, got.CreatedAt)
}

func TestPGRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM templates WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGRepoList(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM templates ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b", "B", "b.docx", "k2", "m", int64(1), []byte(`["X"]`), nil, true, now).
			AddRow("a", "A", "a.docx", "k1", "m", int64(1), []byte(`["Y"]`), nil, true, now.Add(-time.Hour)))

	items, err := repo.List(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Empty(t, items[0].PreviewKey)
}

func TestPGRepoSetEnabled(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("UPDATE templates SET enabled").
		WithArgs(false, "a").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a", "A", "a.docx", "k", "m", int64(1), []byte(`["X"]`), nil, false, time.Now().UTC()))

	got, err := repo.SetEnabled(t.Context(), "a", false)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	mock.ExpectQuery("UPDATE templates SET enabled").
		WithArgs(true, "missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.SetEnabled(t.Context(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGRepoSetPreviewNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE templates SET preview_key").
		WithArgs("k", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SetPreview(t.Context(), "missing", "k"), ErrNotFound)
}

func TestPGRepoCount(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
