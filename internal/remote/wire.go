package remote

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Spok95/school-attendance/internal/models"
)

// Таблица отдаёт плоские строки: числа вместо строк (id, регистрационный
// номер), даты в виде ISO-таймстампов, расписание — JSON-строкой. Поэтому
// ответ разбирается в map и приводится к моделям вручную.
type wireData struct {
	Classes    []map[string]any `json:"classes"`
	Students   []map[string]any `json:"students"`
	Attendance []map[string]any `json:"attendance"`
	Bimesters  []map[string]any `json:"bimesters"`
	Holidays   []map[string]any `json:"holidays"`
}

func decodeSnapshot(r io.Reader) (models.Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var w wireData
	if err := dec.Decode(&w); err != nil {
		return models.Snapshot{}, err
	}
	snap := models.Snapshot{
		Classes:    mapRows(w.Classes, classFromRow),
		Students:   mapRows(w.Students, studentFromRow),
		Attendance: mapRows(w.Attendance, attendanceFromRow),
		Bimesters:  mapRows(w.Bimesters, bimesterFromRow),
		Holidays:   mapRows(w.Holidays, holidayFromRow),
	}
	snap.Normalize()
	return snap, nil
}

func mapRows[T any](rows []map[string]any, conv func(map[string]any) T) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, conv(row))
	}
	return out
}

func classFromRow(row map[string]any) models.ClassGroup {
	return models.ClassGroup{
		ID:            str(row["id"]),
		Name:          str(row["name"]),
		Year:          str(row["year"]),
		Period:        models.Period(str(row["period"])),
		LessonsPerDay: integer(row["lessonsPerDay"]),
		Schedule:      schedule(row["schedule"]),
		CreatedAt:     str(row["createdAt"]),
	}
}

func studentFromRow(row map[string]any) models.Student {
	return models.Student{
		ID:           str(row["id"]),
		Name:         str(row["name"]),
		Registration: str(row["registration"]),
		ClassID:      str(row["classId"]),
		Situation:    models.Situation(str(row["situation"])),
		PhotoURL:     str(row["photoUrl"]),
		CreatedAt:    str(row["createdAt"]),
	}
}

func attendanceFromRow(row map[string]any) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:          str(row["id"]),
		StudentID:   str(row["studentId"]),
		Date:        models.NormalizeDate(str(row["date"])),
		LessonIndex: integer(row["lessonIndex"]),
		Status:      models.Status(str(row["status"])),
		Subject:     str(row["subject"]),
		Notes:       str(row["notes"]),
	}
}

func bimesterFromRow(row map[string]any) models.Bimester {
	return models.Bimester{
		ID:    integer(row["id"]),
		Name:  str(row["name"]),
		Start: models.NormalizeDate(str(row["start"])),
		End:   models.NormalizeDate(str(row["end"])),
	}
}

func holidayFromRow(row map[string]any) models.Holiday {
	return models.Holiday{
		ID:          str(row["id"]),
		Date:        models.NormalizeDate(str(row["date"])),
		Description: str(row["description"]),
		Type:        models.HolidayType(str(row["type"])),
	}
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func integer(v any) int {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil && !math.IsNaN(f) {
			return int(f)
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	case float64:
		return int(x)
	}
	return 0
}

// schedule — объект принимается как есть, строка разбирается, если похожа на
// JSON-объект; неразборчивая строка сохраняется без изменений.
func schedule(v any) *models.WeeklySchedule {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return models.ParseSchedule(x)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		var w models.WeeklySchedule
		if err := json.Unmarshal(b, &w); err != nil {
			return &models.WeeklySchedule{Raw: string(b)}
		}
		return &w
	default:
		return &models.WeeklySchedule{Raw: str(x)}
	}
}
