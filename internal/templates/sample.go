package templates

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	SampleCSV  = "csv"
	SampleXLSX = "xlsx"

	sampleSheet = "Recipients"
)

// SampleFile is a header-only bulk input sheet for a template.
type SampleFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Sample builds an empty bulk sheet whose header row lists the template placeholders.
func (s *Service) Sample(ctx context.Context, id, format string) (SampleFile, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return SampleFile{}, err
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = SampleCSV
	}
	base := "sample_" + t.ID

	switch format {
	case SampleCSV:
		data, err := sampleCSV(t.Placeholders)
		if err != nil {
			return SampleFile{}, err
		}
		return SampleFile{FileName: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case SampleXLSX:
		data, err := sampleXLSX(t.Placeholders)
		if err != nil {
			return SampleFile{}, err
		}
		return SampleFile{
			FileName:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return SampleFile{}, fmt.Errorf("%w: format must be csv or xlsx", ErrInvalidInput)
	}
}

func sampleCSV(header []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sampleXLSX(header []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sampleSheet); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sampleSheet, cell, name); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sampleSheet, cell, cell, style); err != nil {
			return nil, err
		}
	}
	if len(header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := f.SetColWidth(sampleSheet, "A", last, 24); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(sampleSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
