// Package stamp places a verification QR code on the first page of a PDF.
package stamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	qrcode "github.com/skip2/go-qrcode"
)

var ErrStampFailed = errors.New("qr stamping failed")

// qrPixels is the raster size of the generated code; the watermark is scaled to Size points.
const qrPixels = 256

// Position is the QR offset in points from the bottom-left corner of the page.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stamper struct {
	Size    float64
	Default Position
}

func New(size float64, def Position) *Stamper {
	if size <= 0 {
		size = 100
	}
	return &Stamper{Size: size, Default: def}
}

// VerifyURL is the address encoded into a certificate's QR code.
func VerifyURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + id
}

// Stamp overlays a QR code for verifyURL on page one of pdfPath. The file is
// replaced only when stamping succeeds. A nil pos uses the stamper default.
func (s *Stamper) Stamp(ctx context.Context, pdfPath, verifyURL string, pos *Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	at := s.Default
	if pos != nil {
		at = *pos
	}
	if at.X < 0 || at.Y < 0 {
		return fmt.Errorf("%w: negative position (%g, %g)", ErrStampFailed, at.X, at.Y)
	}

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, qrPixels)
	if err != nil {
		return fmt.Errorf("%w: encode qr: %v", ErrStampFailed, err)
	}
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(png), s.description(at), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}

	in, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(pdfPath), ".stamp-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.AddWatermarks(in, tmp, []string{"1"}, wm, conf); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}
	in.Close()
	if err := os.Rename(tmpPath, pdfPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStampFailed, err)
	}
	committed = true
	return nil
}

func (s *Stamper) description(at Position) string {
	scale := s.Size / qrPixels
	return fmt.Sprintf("pos:bl, off:%s %s, scalefactor:%s abs, rot:0, op:1",
		num(at.X), num(at.Y), num(scale))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
