package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"issuepulse/pkg/contracts/domain"
)

// SheetName is the worksheet holding exported issues.
const SheetName = "Issues"

// WriteXLSX writes table as a single-sheet workbook. Timestamps are stored as
// date cells.
func WriteXLSX(w io.Writer, table *domain.IssueTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := Header(table)
	if err := setRow(f, 1, toAny(header)); err != nil {
		return err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	for i, issue := range table.Issues {
		rowNum := i + 2
		row := cells(issue, table.Columns)
		values := make([]any, len(row))
		for j, c := range row {
			switch {
			case c.time != nil:
				values[j] = c.time.UTC()
			case c.num != nil:
				values[j] = *c.num
			default:
				values[j] = c.text
			}
		}
		if err := setRow(f, rowNum, values); err != nil {
			return err
		}
		for j, c := range row {
			if c.time == nil {
				continue
			}
			ref, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			if err := f.SetCellStyle(SheetName, ref, ref, dateStyle); err != nil {
				return fmt.Errorf("failed to style %s: %w", ref, err)
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(header), table.Len()+1)
	if err != nil {
		return fmt.Errorf("failed to size sheet: %w", err)
	}
	if err := f.AutoFilter(SheetName, "A1:"+last, nil); err != nil {
		return fmt.Errorf("failed to add auto filter: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, values []any) error {
	ref, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, ref, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
