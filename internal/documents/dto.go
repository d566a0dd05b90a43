package documents

import (
	"time"

	"verifycert-backend/certificate/stamp"
)

type qrPosition struct {
	X *float64 `json:"x" validate:"required,gte=0"`
	Y *float64 `json:"y" validate:"required,gte=0"`
}

type generateRequest struct {
	Values map[string]string `json:"values" validate:"required"`
	QR     *qrPosition       `json:"qr" validate:"omitempty"`
}

func (p *qrPosition) position() *stamp.Position {
	if p == nil {
		return nil
	}
	return &stamp.Position{X: *p.X, Y: *p.Y}
}

// GenerateResponse is returned after issuing a certificate.
type GenerateResponse struct {
	DocumentID string `json:"documentId"`
	FileURL    string `json:"fileUrl"`
	VerifyURL  string `json:"verifyUrl"`
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID         string            `json:"id"`
	TemplateID string            `json:"templateId"`
	BatchID    string            `json:"batchId,omitempty"`
	FileName   string            `json:"fileName"`
	SizeBytes  int64             `json:"sizeBytes"`
	Data       map[string]string `json:"data"`
	FileURL    string            `json:"fileUrl"`
	VerifyURL  string            `json:"verifyUrl"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type listResponse struct {
	Items  []DocumentResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// FileURL is the API path serving a document's PDF.
func FileURL(id string) string {
	return "/api/v1/documents/" + id + "/file"
}

func toResponse(doc Document, baseURL string) DocumentResponse {
	data := doc.Data
	if data == nil {
		data = map[string]string{}
	}
	return DocumentResponse{
		ID:         doc.ID,
		TemplateID: doc.TemplateID,
		BatchID:    doc.BatchID,
		FileName:   doc.FileName,
		SizeBytes:  doc.SizeBytes,
		Data:       data,
		FileURL:    FileURL(doc.ID),
		VerifyURL:  stamp.VerifyURL(baseURL, doc.ID),
		CreatedAt:  doc.CreatedAt,
	}
}
