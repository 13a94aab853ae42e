package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	File *excelize.File
}

// NewWorkbook — книга из листов; первый лист занимает место Sheet1.
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()
	for i, s := range sheets {
		name := SheetName(s.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}
		if err := writeSheet(f, name, s); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := formatSheet(f, name, s); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("format sheet %s: %w", name, err)
		}
	}
	return &Workbook{File: f}, nil
}

func writeSheet(f *excelize.File, name string, s SheetSpec) error {
	for col, h := range s.Header {
		cell := cellName(col+1, 1)
		if err := f.SetCellStr(name, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	for r, row := range s.Rows {
		for c, val := range row {
			if val == "" {
				continue
			}
			cell := cellName(c+1, r+2)
			if err := f.SetCellStr(name, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// SaveAs пишет книгу по пути, создавая каталог.
func (w *Workbook) SaveAs(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return w.File.SaveAs(path)
}

// SaveTemp пишет книгу во временный каталог ОС: <prefix>_<дата>.xlsx.
func (w *Workbook) SaveTemp(prefix string) (string, error) {
	name := sanitizeFileName(fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("2006-01-02_150405")))
	path := filepath.Join(os.TempDir(), name)
	return path, w.File.SaveAs(path)
}

func (w *Workbook) Close() error { return w.File.Close() }
