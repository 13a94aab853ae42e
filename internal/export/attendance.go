package export

import (
	"fmt"
	"strconv"

	"github.com/Spok95/school-attendance/internal/stats"
)

var attendanceHeader = []string{
	"Protagonista", "Matrícula", "Turma", "Situação",
	"Total", "P", "F", "J", "-", "Frequência %", "Nível",
}

// AttendanceReport — лист с отчётом по ученикам в порядке строк rows.
func AttendanceReport(rows []stats.Row, title string) (*Workbook, error) {
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		body = append(body, []string{
			r.Student.Name,
			r.Student.Registration,
			r.ClassName,
			string(r.Student.Situation),
			strconv.Itoa(r.Stats.TotalDays),
			strconv.Itoa(r.Stats.Present),
			strconv.Itoa(r.Stats.Absent),
			strconv.Itoa(r.Stats.Justified),
			strconv.Itoa(r.Stats.NoLesson),
			fmt.Sprintf("%.1f", r.Stats.AttendanceRate),
			string(r.Level),
		})
	}
	if title == "" {
		title = "Frequência"
	}
	return NewWorkbook([]SheetSpec{{Title: title, Header: attendanceHeader, Rows: body}})
}
