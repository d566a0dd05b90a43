package documents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/certificate/render"
)

func newTestRouter(t *testing.T) (*gin.Engine, fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	router := gin.New()
	NewHandler(f.svc, "https://certs.example.org").RegisterRoutes(router.Group("/api/v1"))
	return router, f
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestGenerateEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	resp := postJSON(router, "/api/v1/templates/"+f.template.ID+"/generate",
		`{"values":{"NAME":"Ada","COURSE":"Go"},"qr":{"x":10,"y":12}}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created GenerateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "/api/v1/documents/"+created.DocumentID+"/file", created.FileURL)
	assert.Equal(t, "https://certs.example.org/verify/"+created.DocumentID, created.VerifyURL)
	require.NotNil(t, f.pipe.inputs[0].QR)
	assert.Equal(t, 10.0, f.pipe.inputs[0].QR.X)

	resp = get(router, "/api/v1/documents/"+created.DocumentID)
	require.Equal(t, http.StatusOK, resp.Code)
	var doc DocumentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	assert.Equal(t, "Ada", doc.Data["NAME"])
	assert.Equal(t, f.template.ID, doc.TemplateID)
	assert.NotContains(t, resp.Body.String(), "storage")

	resp = get(router, "/api/v1/documents/"+created.DocumentID+"/file")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(resp.Body.String(), "%PDF-"))

	resp = get(router, "/api/v1/documents?limit=500")
	require.Equal(t, http.StatusOK, resp.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 100, list.Limit)
	assert.Len(t, list.Items, 1)
}

func TestGenerateEndpointErrors(t *testing.T) {
	router, f := newTestRouter(t)
	path := "/api/v1/templates/" + f.template.ID + "/generate"

	resp := postJSON(router, path, `{"values":{"NAME":"Ada"}}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, "missing values for field(s): COURSE", body.Error.Message)
	assert.JSONEq(t, `{"missing":["COURSE"]}`, string(body.Error.Details))

	resp = postJSON(router, path, `{"values":{"NAME":"Ada","COURSE":"Go"},"qr":{"x":-1,"y":0}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postJSON(router, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postJSON(router, "/api/v1/templates/00000000-0000-0000-0000-000000000000/generate", `{"values":{}}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	f.pipe.err = render.ErrTemplateFormat
	resp = postJSON(router, path, `{"values":{"NAME":"Ada","COURSE":"Go"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "template_format_error", decodeError(t, resp).Error.Code)

	f.pipe.err = &convert.ToolError{Tool: "soffice", Err: assert.AnError, Output: "source file could not be loaded"}
	resp = postJSON(router, path, `{"values":{"NAME":"Ada","COURSE":"Go"}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	body = decodeError(t, resp)
	assert.Equal(t, "conversion_failed", body.Error.Code)
	assert.JSONEq(t, `{"output":"source file could not be loaded"}`, string(body.Error.Details))

	f.pipe.err = convert.ErrOutputMissing
	resp = postJSON(router, path, `{"values":{"NAME":"Ada","COURSE":"Go"}}`)
	assert.Equal(t, "conversion_output_missing", decodeError(t, resp).Error.Code)
}

func TestDocumentNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/documents/00000000-0000-0000-0000-000000000000").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/documents/garbage/file").Code)
}
