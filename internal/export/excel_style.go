package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8
	maxColWidth = 48
)

// formatSheet — жирная закреплённая шапка, автофильтр и ширина колонок
// по самому длинному значению в колонке.
func formatSheet(f *excelize.File, sheet string, s SheetSpec) error {
	cols := len(s.Header)
	for _, row := range s.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil
	}
	last := cellName(cols, 1)

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7EEF7"}},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	for c := 0; c < cols; c++ {
		w := minColWidth
		if c < len(s.Header) {
			// место под кнопку фильтра
			w = max(w, textWidth(s.Header[c])+3)
		}
		for _, row := range s.Rows {
			if c < len(row) {
				w = max(w, textWidth(row[c])+1)
			}
		}
		col := columnName(c + 1)
		if err := f.SetColWidth(sheet, col, col, float64(min(w, maxColWidth))); err != nil {
			return err
		}
	}
	return nil
}

// BuildAttendanceReportFilename — человекочитаемое имя файла отчёта.
func BuildAttendanceReportFilename(className, periodTitle string) string {
	base := fmt.Sprintf("Frequência — %s — %s.xlsx", orDash(className), orDash(periodTitle))
	return sanitizeFileName(base)
}

// SheetName — имя листа, допустимое для Excel: без []:*?/\ и не длиннее 31 символа.
func SheetName(title string) string {
	title = invalidSheetRe.ReplaceAllString(strings.TrimSpace(title), " ")
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "Sheet1"
	}
	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	return title
}

// columnName: 1 -> A, 27 -> AA.
func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnName(col), row)
}

// textWidth — ширина в символах; акценты считаются одним символом.
func textWidth(s string) int {
	return utf8.RuneCountInString(s)
}

var (
	invalidFileRe  = regexp.MustCompile(`[\\/:*?"<>|]+`)
	invalidSheetRe = regexp.MustCompile(`[\\/:*?\[\]]+`)
)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "—"
	}
	return s
}
