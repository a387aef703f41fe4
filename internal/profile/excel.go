package profile

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes one Excel bulk import.
type ImportResult struct {
	Imported []string `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportExcel reads account rows from the first sheet of an .xlsx file and
// creates a profile per row. Expected columns, header row included:
// email | password | proxy | 2fa_secret. Rows without an email and rows
// whose derived name already exists are skipped.
func (s *Store) ImportExcel(path string) (ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("excel import: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("excel import: no sheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, fmt.Errorf("excel import: read rows: %w", err)
	}

	var res ImportResult
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		email := cell(row, 0)
		if email == "" {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: missing email", rowNum))
			continue
		}

		name := SanitizeName(email)
		if name == "" {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: email %q yields empty profile name", rowNum, email))
			continue
		}
		if _, err := s.Get(name); err == nil {
			res.Skipped++
			continue
		}

		p := Profile{
			Name:        name,
			Email:       email,
			Password:    cell(row, 1),
			Proxy:       ParseProxy(cell(row, 2)),
			TwoFASecret: strings.ReplaceAll(cell(row, 3), " ", ""),
		}
		if err := s.Create(p); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		res.Imported = append(res.Imported, name)
	}
	return res, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
