package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/packlist/internal/extract"
)

// SheetName is the worksheet the records are written to
const SheetName = "Packing List"

// WriteXLSX writes the record set as a single-sheet workbook
func WriteXLSX(w io.Writer, rs *extract.RecordSet) error {
	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet rather than adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range extract.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range rs.Records {
		rowNum := i + 2
		values := []any{r.PackageBundle, r.LotJobNum, r.QtyShip, r.UOM, r.NetWeightLb, r.NetWeightKg}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", rowNum, err)
			}
		}
	}

	if n := len(rs.Records); n > 0 {
		// built-in number format 2 is "0.00"
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(3, n+1)
		if err := f.SetCellStyle(SheetName, "C2", last, style); err != nil {
			return fmt.Errorf("style quantity column: %w", err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "B", 16)
	_ = f.SetColWidth(SheetName, "C", "F", 14)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
