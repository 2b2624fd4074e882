package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yurifrl/edenwallet/pkg/models"
)

// Header is the first line of every batch file.
const Header = "date,note,amount,expense"

// fileNameLayout has minute granularity: a second export in the same minute
// overwrites the first.
const fileNameLayout = "2006-01-02T15-04"

type FilterFunc func(*models.Transaction) bool

// Create renders records as a batch file. Records rejected by filter are
// left out; a nil filter keeps everything.
func Create(records []*models.Transaction, filter FilterFunc) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Header + "\n")

	w := csv.NewWriter(&buf)
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		row := []string{r.Date, r.Note, r.Inflow().String(), r.Outflow().String()}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName names a batch file after its creation time.
func FileName(t time.Time) string {
	return t.Format(fileNameLayout) + ".csv"
}

// WriteFile writes records to dir/FileName(now), creating dir when missing.
func WriteFile(dir string, now time.Time, records []*models.Transaction) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := Create(records, nil)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write batch file: %w", err)
	}
	return path, nil
}
