// Package stats — чистые функции подсчёта посещаемости. Никакого состояния,
// никакой сети: на вход — срезы, взятые из локального хранилища.
package stats

import "github.com/Spok95/school-attendance/internal/models"

type Stats struct {
	TotalDays      int     `json:"totalDays"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Justified      int     `json:"justified"`
	NoLesson       int     `json:"noClass"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// Count раскладывает записи по статусам и считает процент.
func Count(records []models.AttendanceRecord) Stats {
	var st Stats
	for _, r := range records {
		st.TotalDays++
		switch r.Status {
		case models.StatusPresent:
			st.Present++
		case models.StatusAbsent:
			st.Absent++
		case models.StatusJustified:
			st.Justified++
		case models.StatusNoLesson:
			st.NoLesson++
		}
	}
	st.AttendanceRate = Rate(st)
	return st
}

// Rate = (P + J) / (всего - "нет урока") * 100.
// Знаменатель 0 даёт 0: ученик только с "нет урока" показывает 0%, а не NaN.
func Rate(st Stats) float64 {
	valid := st.TotalDays - st.NoLesson
	if valid <= 0 {
		return 0
	}
	return float64(st.Present+st.Justified) / float64(valid) * 100
}

// StudentStats — статистика ученика в границах [from, to] включительно;
// пустая граница не ограничивает.
func StudentStats(records []models.AttendanceRecord, studentID, from, to string) Stats {
	from, to = models.NormalizeDate(from), models.NormalizeDate(to)
	picked := make([]models.AttendanceRecord, 0, 32)
	for _, r := range records {
		if r.StudentID != studentID {
			continue
		}
		if !models.InRange(models.NormalizeDate(r.Date), from, to) {
			continue
		}
		picked = append(picked, r)
	}
	return Count(picked)
}

type DayStats struct {
	Present   int `json:"present"`
	Absent    int `json:"absent"`
	Justified int `json:"justified"`
	NoLesson  int `json:"noClass"`
	Total     int `json:"total"`
}

// ClassDayStats — сводка по классу за день. Total — число учеников класса;
// ученик без отметки за день не попадает ни в одну корзину. Если уроков
// несколько, считается первая найденная отметка ученика.
func ClassDayStats(students []models.Student, records []models.AttendanceRecord, classID, date string) DayStats {
	date = models.NormalizeDate(date)

	first := make(map[string]models.Status)
	for _, r := range records {
		if models.NormalizeDate(r.Date) != date {
			continue
		}
		if _, ok := first[r.StudentID]; !ok {
			first[r.StudentID] = r.Status
		}
	}

	var ds DayStats
	for _, st := range students {
		if st.ClassID != classID {
			continue
		}
		ds.Total++
		status, ok := first[st.ID]
		if !ok {
			continue
		}
		switch status {
		case models.StatusPresent:
			ds.Present++
		case models.StatusAbsent:
			ds.Absent++
		case models.StatusJustified:
			ds.Justified++
		case models.StatusNoLesson:
			ds.NoLesson++
		}
	}
	return ds
}
