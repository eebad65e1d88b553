package report

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Price Compare"

var priceHeaders = []string{"Register", "Renew", "Transfer"}

// WriteXLSX renders m as a workbook: one row per TLD and three price columns per registrar.
// The cheapest register price of each row is highlighted.
func WriteXLSX(m Matrix, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	best, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := setCell(f, 1, 1, "TLD"); err != nil {
		return err
	}
	for i, r := range m.Registrars {
		first := 2 + i*len(priceHeaders)
		label := r.Name
		if r.Currency != "" {
			label += " (" + r.Currency + ")"
		}
		if err := setCell(f, first, 1, label); err != nil {
			return err
		}
		start, _ := excelize.CoordinatesToCellName(first, 1)
		end, _ := excelize.CoordinatesToCellName(first+len(priceHeaders)-1, 1)
		if err := f.MergeCell(sheetName, start, end); err != nil {
			return err
		}
		for j, h := range priceHeaders {
			if err := setCell(f, first+j, 2, h); err != nil {
				return err
			}
		}
	}
	lastCol := 1 + len(m.Registrars)*len(priceHeaders)
	headerEnd, _ := excelize.CoordinatesToCellName(lastCol, 2)
	if err := f.SetCellStyle(sheetName, "A1", headerEnd, bold); err != nil {
		return err
	}

	for i, row := range m.Rows {
		line := 3 + i
		if err := setCell(f, 1, line, "."+row.TLD); err != nil {
			return err
		}
		for j, cell := range row.Cells {
			if cell == nil {
				continue
			}
			first := 2 + j*len(priceHeaders)
			for k, v := range []*float64{cell.Register, cell.Renew, cell.Transfer} {
				if v == nil {
					continue
				}
				if err := setCell(f, first+k, line, *v); err != nil {
					return err
				}
			}
			if j == row.Cheapest {
				name, _ := excelize.CoordinatesToCellName(first, line)
				if err := f.SetCellStyle(sheetName, name, name, best); err != nil {
					return err
				}
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      2,
		TopLeftCell: "B3",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 14); err != nil {
		return err
	}
	return f.Write(w)
}

func setCell(f *excelize.File, col, row int, value any) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, name, value)
}
