// Package csvutil reads header-keyed CSV files.
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// Required lists header columns that must be present
	Required []string

	// SkipInvalid logs and skips records the parser rejects instead of failing.
	SkipInvalid bool
}

// Record is one CSV row addressed by header name.
type Record struct {
	// Line is the 1-based line number of the row in the file
	Line   int
	fields map[string]string
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r.fields[strings.ToLower(column)])
}

// ProcessCSV reads the file at filename and parses each row into T.
func ProcessCSV[T any](filename string, parser func(Record) (T, error), opts ProcessorOptions) ([]T, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	return Process(csvFile, parser, opts)
}

// Process reads CSV from r. Header names are matched case-insensitively and
// rows shorter or longer than the header are accepted.
func Process[T any](r io.Reader, parser func(Record) (T, error), opts ProcessorOptions) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	}
	for _, col := range opts.Required {
		if !containsColumn(header, col) {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var items []T
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("Error reading record", "error", err)
			continue
		}
		line, _ := reader.FieldPos(0)

		rec := Record{Line: line, fields: make(map[string]string, len(header))}
		for i, value := range row {
			if i < len(header) {
				rec.fields[header[i]] = value
			}
		}

		item, err := parser(rec)
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}
		items = append(items, item)
	}

	return items, nil
}

func containsColumn(header []string, col string) bool {
	col = strings.ToLower(col)
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}
