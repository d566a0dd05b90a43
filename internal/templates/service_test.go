package templates

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/docxtest"
	"verifycert-backend/internal/shared/storage/object"
	"verifycert-backend/internal/shared/storage/object/local"
)

type failingConverter struct{}

func (failingConverter) Convert(context.Context, string, string) (string, error) {
	return "", convert.ErrConverterNotFound
}

func newService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Repo:    NewMemoryRepo(),
		Store:   local.New(t.TempDir()),
		WorkDir: t.TempDir(),
	}
}

func certificateDocx(t *testing.T) []byte {
	return docxtest.Simple(t,
		"This certifies that {{ NAME }} completed {{COURSE}}",
		"Again {{NAME}}, id {{CERTIFICATE_ID}} {{QR_CODE}} {{lower}}")
}

// malformedDocx declares a placeholder before markup that does not decode.
func malformedDocx(t *testing.T) []byte {
	return docxtest.Build(t, map[string]string{
		"word/document.xml": docxtest.Document(
			docxtest.Paragraph("{{NAME}}"),
			"<w:p><w:r><w:t>broken</w:r></w:p>",
		),
	})
}

func TestUploadRecordsPlaceholders(t *testing.T) {
	svc := newService(t)

	res, err := svc.Upload(t.Context(), "  Course completion  ", "course.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)

	tpl := res.Template
	assert.Equal(t, "Course completion", tpl.Name)
	assert.Equal(t, []string{"NAME", "COURSE"}, tpl.Placeholders)
	assert.Equal(t, []string{"NAME"}, res.Duplicates)
	assert.True(t, tpl.Enabled)
	assert.Empty(t, tpl.PreviewKey)

	stored, err := svc.Get(t.Context(), tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.StorageKey, stored.StorageKey)

	path := t.TempDir() + "/copy.docx"
	require.NoError(t, svc.CopyTo(t.Context(), stored, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, certificateDocx(t), data)
}

func TestUploadRejections(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	_, err := svc.Upload(ctx, "", "a.docx", bytes.NewReader(certificateDocx(t)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, string(make([]byte, 201)), "a.docx", bytes.NewReader(certificateDocx(t)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, "Text", "a.txt", bytes.NewReader([]byte("{{NAME}}")))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, "Empty", "a.docx", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, "Traversal", "../a.docx", bytes.NewReader(certificateDocx(t)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, "Static", "a.docx", bytes.NewReader(docxtest.Simple(t, "No tokens {{CERTIFICATE_ID}} {{Name}}")))
	assert.ErrorIs(t, err, extract.ErrNoPlaceholders)

	_, err = svc.Upload(ctx, "Broken", "a.docx", bytes.NewReader(malformedDocx(t)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err := svc.Repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUploadDuplicateNameRemovesStoredFile(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	_, err := svc.Upload(ctx, "Course", "a.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)

	store := &recordingStore{ObjectStore: svc.Store}
	svc.Store = store
	_, err = svc.Upload(ctx, "Course", "b.docx", bytes.NewReader(certificateDocx(t)))
	require.ErrorIs(t, err, ErrDuplicateName)
	require.Len(t, store.saved, 1)
	assert.Equal(t, store.saved, store.deleted)
}

func TestUploadBuildsPreview(t *testing.T) {
	svc := newService(t)
	svc.Previewer = convert.NewBuiltin()

	res, err := svc.Upload(t.Context(), "Course", "a.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)
	require.NotEmpty(t, res.Template.PreviewKey)

	tpl, rc, err := svc.OpenPreview(t.Context(), res.Template.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, res.Template.ID, tpl.ID)

	entries, err := os.ReadDir(svc.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadPreviewFailureIsNotFatal(t *testing.T) {
	svc := newService(t)
	svc.Previewer = failingConverter{}

	res, err := svc.Upload(t.Context(), "Course", "a.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)
	assert.Empty(t, res.Template.PreviewKey)

	_, _, err = svc.OpenPreview(t.Context(), res.Template.ID)
	assert.ErrorIs(t, err, ErrNoPreview)
}

func TestUsableAndSetEnabled(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()
	res, err := svc.Upload(ctx, "Course", "a.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)

	_, err = svc.Usable(ctx, res.Template.ID)
	require.NoError(t, err)

	_, err = svc.SetEnabled(ctx, res.Template.ID, false)
	require.NoError(t, err)
	_, err = svc.Usable(ctx, res.Template.ID)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetEnabled(ctx, "not-a-uuid", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSample(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()
	res, err := svc.Upload(ctx, "Course", "a.docx", bytes.NewReader(certificateDocx(t)))
	require.NoError(t, err)
	id := res.Template.ID

	csvFile, err := svc.Sample(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, "sample_"+id+".csv", csvFile.FileName)
	assert.Equal(t, "NAME,COURSE\n", string(csvFile.Data))

	xlsxFile, err := svc.Sample(ctx, id, "XLSX")
	require.NoError(t, err)
	assert.Equal(t, "sample_"+id+".xlsx", xlsxFile.FileName)

	book, err := excelize.OpenReader(bytes.NewReader(xlsxFile.Data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(sampleSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"NAME", "COURSE"}, rows[0])

	_, err = svc.Sample(ctx, id, "pdf")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type recordingStore struct {
	object.ObjectStore
	saved   []string
	deleted []string
}

func (s *recordingStore) Save(ctx context.Context, ns, name string, r io.Reader) (string, int64, string, error) {
	key, size, mime, err := s.ObjectStore.Save(ctx, ns, name, r)
	if err == nil {
		s.saved = append(s.saved, key)
	}
	return key, size, mime, err
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.ObjectStore.Delete(ctx, key)
}
