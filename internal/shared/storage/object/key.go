package object

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"verifycert-backend/internal/shared/util"
)

// NewKey builds "<namespace>/<random>_<sanitized file name>".
func NewKey(namespace, fileName string) (string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.SafeSegment(namespace), randomID()+"_"+sanitizedName), nil
}

// Sniff reads up to 512 bytes to detect the content type and returns a reader
// that replays them ahead of the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head := append([]byte(nil), sniff[:n]...)
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
