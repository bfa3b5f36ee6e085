package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column headers of the import sheet.
const (
	ColCode               = "货号"
	ColName               = "名称"
	ColDescription        = "描述"
	ColSeries             = "系列"
	ColSex                = "性别"
	ColSire               = "父本"
	ColDam                = "母本"
	ColMate               = "配偶"
	ColPrice              = "价格"
	ColOffspringUnitPrice = "子代单价"
)

// Columns lists every recognised header in template order.
var Columns = []string{
	ColCode, ColName, ColDescription, ColSeries, ColSex,
	ColSire, ColDam, ColMate, ColPrice, ColOffspringUnitPrice,
}

var columnHelp = map[string]string{
	ColCode:               "Required. Breeder code, unique, stored uppercase.",
	ColName:               "Display name. Defaults to the code.",
	ColDescription:        "Free text description.",
	ColSeries:             "Series name. Created when it does not exist.",
	ColSex:                "公/male or 母/female.",
	ColSire:               "Father code.",
	ColDam:                "Mother code.",
	ColMate:               "Current mate code (females).",
	ColPrice:              "Price (number). Empty means 0.",
	ColOffspringUnitPrice: "Offspring unit price (number, females only).",
}

// sheet is the first worksheet read into rows keyed by header.
type sheet struct {
	header map[string]int
	rows   [][]string
}

func (s *sheet) has(col string) bool {
	_, ok := s.header[col]
	return ok
}

// cell returns the trimmed value of col in row i, or "" when the column or
// cell is absent.
func (s *sheet) cell(i int, col string) string {
	idx, ok := s.header[col]
	if !ok || idx >= len(s.rows[i]) {
		return ""
	}
	return strings.TrimSpace(s.rows[i][idx])
}

func (s *sheet) blank(i int) bool {
	for _, v := range s.rows[i] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readSheet(r io.Reader) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading excel file: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, ColCode)
	}
	rows, err := f.GetRows(names[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", names[0], err)
	}

	s := &sheet{header: map[string]int{}}
	if len(rows) > 0 {
		for i, h := range rows[0] {
			h = strings.TrimSpace(h)
			if _, dup := s.header[h]; h != "" && !dup {
				s.header[h] = i
			}
		}
		s.rows = rows[1:]
	}
	if !s.has(ColCode) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, ColCode)
	}
	return s, nil
}

// WriteTemplate writes an import workbook with the headers, one sample row
// and an instructions sheet.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Breeders"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	sample := []any{"F-1", "F-1", "Sample female", "Albino", "母", "M-1", "F-0", "M-2", 1200, 300}
	if err := f.SetSheetRow(sheetName, "A2", &sample); err != nil {
		return fmt.Errorf("writing sample row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	lastCol := strings.TrimSuffix(last, "1")
	if err := f.SetColWidth(sheetName, "A", lastCol, 16); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	const help = "Instructions"
	if _, err := f.NewSheet(help); err != nil {
		return fmt.Errorf("adding instructions sheet: %w", err)
	}
	if err := f.SetSheetRow(help, "A1", &[]any{"Column", "Description"}); err != nil {
		return err
	}
	for i, c := range Columns {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(help, cell, &[]any{c, columnHelp[c]}); err != nil {
			return fmt.Errorf("writing instructions: %w", err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return nil
}
