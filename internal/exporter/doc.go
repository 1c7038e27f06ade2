// Package exporter writes issue tables back out as CSV or XLSX files.
//
// Both formats carry the original columns in upload order followed by the
// derived "Resolution Time (days)" and "Completion Status" columns. CSV output
// starts with a UTF-8 BOM and renders timestamps as RFC 3339; XLSX output uses
// a single "Issues" sheet with date cells, an auto filter and a frozen header.
//
// Example usage:
//
//	var buf bytes.Buffer
//	if err := exporter.Write(&buf, filtered, exporter.FormatXLSX); err != nil {
//		return err
//	}
//
//	fw := exporter.NewFileWriter(paths, logger)
//	path, err := fw.WriteFile("report.csv", filtered)
package exporter
