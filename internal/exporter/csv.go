package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"issuepulse/internal/config"
	"issuepulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV streams table as CSV with a UTF-8 BOM so spreadsheet tools detect
// the encoding.
func WriteCSV(w io.Writer, table *domain.IssueTable) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header(table)); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, 0, len(table.Columns)+2)
	for i, issue := range table.Issues {
		record = record[:0]
		for _, c := range cells(issue, table.Columns) {
			record = append(record, c.String())
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// FileWriter writes exports to disk under the configured exports directory
type FileWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewFileWriter creates a writer rooted at paths.ExportsDir.
func NewFileWriter(paths *config.Paths, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWriter{paths: paths, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteFile exports table to filePath, picking the format from its extension.
// Relative paths resolve against the exports directory. It returns the
// absolute path written.
func (w *FileWriter) WriteFile(filePath string, table *domain.IssueTable) (string, error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return "", err
	}

	fullPath := w.resolvePath(filePath)
	w.logger.Info("Writing export file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.String("format", string(format)),
		slog.Int("record_count", table.Len()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	buf := bufio.NewWriter(file)
	if err := Write(buf, table, format); err != nil {
		file.Close()
		return "", err
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close export: %w", err)
	}
	return fullPath, nil
}

func (w *FileWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
