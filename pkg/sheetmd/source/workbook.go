package source

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook reads worksheets from a local .xlsx file, for use when the
// checklist spreadsheet has been downloaded instead of fetched over HTTP.
type Workbook struct {
	path string
}

// OpenWorkbook wraps a local workbook path. The file is opened per read so a
// Workbook holds no file handle between calls.
func OpenWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Rows returns the cell rows of the named worksheet. The lookup is exact
// first, then case-insensitive. Rows are returned as excelize produces them,
// ragged, and are normalized downstream.
func (w *Workbook) Rows(tabName string) ([][]string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	name := ""
	for _, s := range sheets {
		if s == tabName {
			name = s
			break
		}
	}
	if name == "" {
		for _, s := range sheets {
			if strings.EqualFold(s, tabName) {
				name = s
				break
			}
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %q (workbook has: %s)",
			ErrSheetNotFound, tabName, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return rows, nil
}
