package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"issuepulse/pkg/contracts/domain"
)

// Format is a supported upload format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// utf8BOM is stripped from delimited uploads; spreadsheet tools add it on export.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat infers the upload format from the filename extension.
// Tab-separated exports arrive as .txt from the tracker, so both .txt and .tsv map to TSV.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "csv":
		return FormatCSV, nil
	case "txt", "tsv":
		return FormatTSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	}
	return "", &FormatError{Filename: filename, Extension: ext}
}

// ParseUpload reads an uploaded export, validates its schema and drops
// duplicate issue keys. The filename only selects the format.
func ParseUpload(r io.Reader, filename string) (*domain.IssueTable, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	return Parse(r, format, filepath.Base(filename))
}

// Parse reads content in the given format. source labels the resulting table.
func Parse(r io.Reader, format Format, source string) (*domain.IssueTable, error) {
	var (
		header  []string
		rows    [][]string
		numeric numericTime
		err     error
	)

	switch format {
	case FormatCSV:
		header, rows, err = readDelimited(r, ',', format)
	case FormatTSV:
		header, rows, err = readDelimited(r, '\t', format)
	case FormatXLSX:
		header, rows, err = readWorkbook(r)
		numeric = excelSerial
	case FormatJSON:
		header, rows, err = readJSON(r)
		numeric = epochMillis
	default:
		return nil, &FormatError{Filename: source, Extension: string(format)}
	}
	if err != nil {
		return nil, err
	}

	table, err := buildTable(format, source, header, rows, numeric)
	if err != nil {
		return nil, err
	}

	slog.Debug("Parsed upload",
		slog.String("source", source),
		slog.String("format", string(format)),
		slog.Int("rows", len(table.Issues)),
		slog.Int("duplicates_dropped", table.DuplicatesDropped))

	return table, nil
}

// readDelimited reads comma- or tab-separated content. Rows shorter than the
// header are padded later; longer rows are a parse error.
func readDelimited(r io.Reader, sep rune, format Format) ([]string, [][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &ParseError{Format: format, Err: err}
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sep
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &ParseError{Format: format, Err: err}
	}
	if len(records) == 0 {
		return nil, nil, &ParseError{Format: format, Err: errors.New("file is empty")}
	}

	header := records[0]
	for i, rec := range records[1:] {
		if len(rec) > len(header) {
			return nil, nil, &ParseError{
				Format: format,
				Row:    i + 1,
				Err:    fmt.Errorf("expected %d fields, saw %d", len(header), len(rec)),
			}
		}
	}
	return header, records[1:], nil
}

// readWorkbook reads the first sheet of an XLSX workbook with raw cell values,
// so date cells arrive as serial numbers instead of locale-formatted text.
func readWorkbook(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ParseError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil, &ParseError{Format: FormatXLSX, Err: fmt.Errorf("sheet %q is empty", sheets[0])}
	}
	return rows[0], rows[1:], nil
}

// jsonField is one key/value pair of a JSON object, kept in document order
type jsonField struct {
	key   string
	value string
}

// readJSON accepts records orientation ([{col: v}, ...]) and column
// orientation ({col: {index: v}}). Column order follows first appearance.
func readJSON(r io.Reader) ([]string, [][]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, &ParseError{Format: FormatJSON, Err: err}
	}

	var header []string
	var rows [][]string

	switch tok {
	case json.Delim('['):
		header, rows, err = readJSONRecords(dec)
	case json.Delim('{'):
		header, rows, err = readJSONColumns(dec)
	default:
		err = fmt.Errorf("expected an array of records, got %v", tok)
	}
	if err != nil {
		return nil, nil, &ParseError{Format: FormatJSON, Err: err}
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, &ParseError{Format: FormatJSON, Err: err}
	}
	return header, rows, nil
}

func readJSONRecords(dec *json.Decoder) ([]string, [][]string, error) {
	var header []string
	index := make(map[string]int)
	var records [][]jsonField

	for dec.More() {
		fields, err := readJSONObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		for _, f := range fields {
			if _, ok := index[f.key]; !ok {
				index[f.key] = len(header)
				header = append(header, f.key)
			}
		}
		records = append(records, fields)
	}

	rows := make([][]string, len(records))
	for i, fields := range records {
		row := make([]string, len(header))
		for _, f := range fields {
			row[index[f.key]] = f.value
		}
		rows[i] = row
	}
	return header, rows, nil
}

func readJSONColumns(dec *json.Decoder) ([]string, [][]string, error) {
	var header []string
	columns := make(map[string]map[string]string)
	var rowKeys []string
	seenRow := make(map[string]bool)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		col, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected column name, got %v", tok)
		}
		cells, err := readJSONObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", col, err)
		}
		values := make(map[string]string, len(cells))
		for _, c := range cells {
			values[c.key] = c.value
			if !seenRow[c.key] {
				seenRow[c.key] = true
				rowKeys = append(rowKeys, c.key)
			}
		}
		header = append(header, col)
		columns[col] = values
	}

	sortRowKeys(rowKeys)

	rows := make([][]string, len(rowKeys))
	for i, key := range rowKeys {
		row := make([]string, len(header))
		for j, col := range header {
			row[j] = columns[col][key]
		}
		rows[i] = row
	}
	return header, rows, nil
}

// sortRowKeys orders column-oriented row labels numerically when they are all
// integers, and leaves them in document order otherwise.
func sortRowKeys(keys []string) {
	nums := make(map[string]int, len(keys))
	for _, k := range keys {
		n, err := strconv.Atoi(k)
		if err != nil {
			return
		}
		nums[k] = n
	}
	sort.SliceStable(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

func readJSONObject(dec *json.Decoder) ([]jsonField, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []jsonField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		value, err := jsonCell(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, jsonField{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// jsonCell flattens a JSON value to the text form the row builder expects.
func jsonCell(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(trimmed), nil
	}
}

// buildTable validates the header and converts raw rows into typed issues.
func buildTable(format Format, source string, header []string, rows [][]string, numeric numericTime) (*domain.IssueTable, error) {
	columns := normalizeHeader(header)

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range domain.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	required := make(map[int]bool, len(domain.RequiredColumns))
	for _, col := range domain.RequiredColumns {
		required[index[col]] = true
	}

	issues := make([]domain.Issue, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}

		cell := func(col string) string {
			idx := index[col]
			if idx >= len(row) {
				return ""
			}
			v := strings.TrimSpace(row[idx])
			if missingValue(v) {
				return ""
			}
			return v
		}

		issue := domain.Issue{
			Key:       cell(domain.ColumnIssueKey),
			Status:    cell(domain.ColumnStatus),
			Assignee:  cell(domain.ColumnAssignee),
			IssueType: cell(domain.ColumnIssueType),
			Priority:  cell(domain.ColumnPriority),
		}

		targets := map[string]**time.Time{
			domain.ColumnCreated: &issue.Created,
			domain.ColumnUpdated: &issue.Updated,
			domain.ColumnDueDate: &issue.DueDate,
		}
		for _, col := range domain.TimestampColumns {
			t, err := parseTimestamp(cell(col), numeric)
			if err != nil {
				return nil, &ParseError{Format: format, Row: i + 1, Column: col, Err: err}
			}
			*targets[col] = t
		}

		if len(columns) > len(required) {
			issue.Extra = make(map[string]string, len(columns)-len(required))
			for j, name := range columns {
				if required[j] {
					continue
				}
				if j < len(row) {
					issue.Extra[name] = row[j]
				} else {
					issue.Extra[name] = ""
				}
			}
		}

		issues = append(issues, issue)
	}

	deduped, dropped := Dedupe(issues)
	return &domain.IssueTable{
		Source:            source,
		Columns:           columns,
		Issues:            deduped,
		DuplicatesDropped: dropped,
	}, nil
}

// normalizeHeader trims names and disambiguates repeated names with a
// numeric suffix ("Labels", "Labels.1") so every column stays addressable.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}
	return columns
}

// missingTokens are the spellings dataframe tools write for an absent value.
// Matching is exact, so "Na" or "none" stay ordinary values.
var missingTokens = map[string]struct{}{
	"NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NA": {}, "N/A": {}, "n/a": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
	"NULL": {}, "null": {}, "None": {},
}

// missingValue reports whether a trimmed cell stands for no value
func missingValue(s string) bool {
	if s == "" {
		return true
	}
	_, ok := missingTokens[s]
	return ok
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
