package respond

import (
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	Attachment = "attachment"
	Inline     = "inline"
)

// ContentDisposition formats the header value; non-ASCII names are encoded per RFC 2231.
func ContentDisposition(disposition, fileName string) string {
	if fileName == "" {
		return disposition
	}
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return disposition
}

// Stream copies r to the client with a 200. Copy errors after the headers are
// sent can only be recorded on the context.
func Stream(c *gin.Context, contentType, disposition, fileName string, r io.Reader) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", ContentDisposition(disposition, fileName))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		_ = c.Error(err)
	}
}

// Bytes writes an in-memory file with a 200.
func Bytes(c *gin.Context, contentType, disposition, fileName string, data []byte) {
	c.Header("Content-Disposition", ContentDisposition(disposition, fileName))
	c.Data(http.StatusOK, contentType, data)
}
