// Package sheetstore — удалённое хранилище: листы таблицы с фиксированными
// столбцами за HTTP-интерфейсом getData / saveAll / saveAttendance /
// saveBatchAttendance. Хранение — файл XLSX или Postgres.
package sheetstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/school-attendance/internal/models"
)

// Row — строка листа: заголовок -> значение ячейки.
type Row map[string]any

// Data — ответ getData.
type Data struct {
	Classes    []Row `json:"classes"`
	Students   []Row `json:"students"`
	Attendance []Row `json:"attendance"`
	Bimesters  []Row `json:"bimesters"`
	Holidays   []Row `json:"holidays"`
}

// SaveAllRequest — тело saveAll. nil — лист не передан и не трогается,
// пустой срез — лист очищается.
type SaveAllRequest struct {
	Classes    []Row `json:"classes"`
	Students   []Row `json:"students"`
	Attendance []Row `json:"attendance"`
	Bimesters  []Row `json:"bimesters"`
	Holidays   []Row `json:"holidays"`
}

type Backend interface {
	GetData(ctx context.Context) (Data, error)
	// SaveAll перезаписывает переданные листы; отметки идут через upsert.
	SaveAll(ctx context.Context, req SaveAllRequest) error
	SaveAttendance(ctx context.Context, row Row) error
	SaveBatch(ctx context.Context, rows []Row) error
	Ping(ctx context.Context) error
	Close() error
}

// Sheet — лист и порядок его столбцов.
type Sheet struct {
	Key     string // ключ в JSON и имя таблицы
	Title   string // имя листа в книге
	Headers []string
}

var (
	SheetClasses    = Sheet{Key: "classes", Title: "Turmas", Headers: []string{"id", "name", "year", "period", "lessonsPerDay", "schedule", "createdAt"}}
	SheetStudents   = Sheet{Key: "students", Title: "Protagonistas", Headers: []string{"id", "name", "registration", "classId", "situation", "photoUrl", "createdAt"}}
	SheetAttendance = Sheet{Key: "attendance", Title: "Frequencia", Headers: []string{"id", "studentId", "date", "lessonIndex", "status", "subject", "notes"}}
	SheetBimesters  = Sheet{Key: "bimesters", Title: "Bimestres", Headers: []string{"id", "name", "start", "end"}}
	SheetHolidays   = Sheet{Key: "holidays", Title: "Feriados", Headers: []string{"id", "date", "description", "type"}}

	// порядок листов в книге
	allSheets = []Sheet{SheetClasses, SheetStudents, SheetAttendance, SheetBimesters, SheetHolidays}
)

type sheetRows struct {
	sheet Sheet
	rows  []Row
}

// plain — листы, которые saveAll перезаписывает целиком.
func (r SaveAllRequest) plain() []sheetRows {
	return []sheetRows{
		{SheetClasses, r.Classes},
		{SheetStudents, r.Students},
		{SheetBimesters, r.Bimesters},
		{SheetHolidays, r.Holidays},
	}
}

func (d *Data) set(key string, rows []Row) {
	switch key {
	case SheetClasses.Key:
		d.Classes = rows
	case SheetStudents.Key:
		d.Students = rows
	case SheetAttendance.Key:
		d.Attendance = rows
	case SheetBimesters.Key:
		d.Bimesters = rows
	case SheetHolidays.Key:
		d.Holidays = rows
	}
}

// project оставляет только столбцы листа; вложенные объекты хранятся
// JSON-строкой, отсутствующие значения — пустой строкой.
func project(sh Sheet, row Row) Row {
	out := make(Row, len(sh.Headers))
	for _, h := range sh.Headers {
		out[h] = cellValue(row[h])
	}
	return out
}

func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return x
	}
}

func cellString(v any) string {
	switch x := cellValue(v).(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// expand — обратное к project при чтении: schedule, похожий на объект,
// отдаётся объектом.
func expand(row Row) Row {
	if s, ok := row["schedule"].(string); ok && strings.HasPrefix(s, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			row["schedule"] = obj
		}
	}
	return row
}

// attendanceRow — нормализованная строка листа отметок.
type attendanceRow struct {
	ID          string
	StudentID   string
	Date        string
	LessonIndex int
	Status      string
	Subject     string
	Notes       string
}

func attendanceFrom(row Row) attendanceRow {
	a := attendanceRow{
		ID:        cellString(row["id"]),
		StudentID: cellString(row["studentId"]),
		Date:      models.NormalizeDate(cellString(row["date"])),
		Status:    cellString(row["status"]),
		Subject:   cellString(row["subject"]),
		Notes:     cellString(row["notes"]),
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(cellString(row["lessonIndex"])), 64); err == nil {
		a.LessonIndex = int(f)
	}
	if a.ID == "" {
		a.ID = models.AttendanceID(a.StudentID, a.Date, a.LessonIndex)
	}
	return a
}

func (a attendanceRow) key() models.AttendanceKey {
	return models.AttendanceKey{StudentID: a.StudentID, Date: a.Date, LessonIndex: a.LessonIndex}
}

func (a attendanceRow) row() Row {
	return Row{
		"id":          a.ID,
		"studentId":   a.StudentID,
		"date":        a.Date,
		"lessonIndex": a.LessonIndex,
		"status":      a.Status,
		"subject":     a.Subject,
		"notes":       a.Notes,
	}
}

// dedupe — повторы ключа в одном пакете: побеждает последний.
func dedupe(rows []Row) []attendanceRow {
	out := make([]attendanceRow, 0, len(rows))
	pos := make(map[models.AttendanceKey]int, len(rows))
	for _, r := range rows {
		a := attendanceFrom(r)
		if i, ok := pos[a.key()]; ok {
			out[i] = a
			continue
		}
		pos[a.key()] = len(out)
		out = append(out, a)
	}
	return out
}
