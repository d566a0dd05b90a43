package batches

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"verifycert-backend/internal/extract"
)

// Row is one data record of a bulk file. Number is the row's line in the
// sheet, with the header on row 1.
type Row struct {
	Number int
	Data   map[string]string
}

// ParseRows reads a CSV or XLSX bulk file. The header row names the fields.
func ParseRows(fileName string, r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	var rows []Row
	if isXLSX(fileName, data) {
		rows, err = parseXLSX(data)
	} else {
		rows, err = parseCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has a header but no data rows", ErrInvalidInput)
	}
	return rows, nil
}

func isXLSX(fileName string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return true
	}
	return extract.DetectMimeType("", fileName, data) == extract.MimeXLSX
}

func parseCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: malformed CSV: %v", ErrInvalidInput, err)
	}
	fields, err := headerFields(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for number := 2; ; number++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed CSV: %v", ErrInvalidInput, err)
		}
		rows = append(rows, Row{Number: number, Data: zipRecord(fields, record)})
	}
	return rows, nil
}

func parseXLSX(data []byte) ([]Row, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", ErrInvalidInput, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidInput)
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable sheet: %v", ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	fields, err := headerFields(records[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, Row{Number: i + 2, Data: zipRecord(fields, record)})
	}
	return rows, nil
}

func headerFields(header []string) ([]string, error) {
	fields := make([]string, len(header))
	named := 0
	for i, h := range header {
		fields[i] = strings.TrimSpace(h)
		if fields[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, fmt.Errorf("%w: header row is empty", ErrInvalidInput)
	}
	return fields, nil
}

// zipRecord maps cells to header names. Short records leave fields empty and
// cells beyond the header are dropped.
func zipRecord(fields, record []string) map[string]string {
	out := make(map[string]string, len(fields))
	for i, name := range fields {
		if name == "" {
			continue
		}
		if i < len(record) {
			out[name] = record[i]
		} else {
			out[name] = ""
		}
	}
	return out
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
