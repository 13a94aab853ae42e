package stats

import (
	"sort"

	"github.com/Spok95/school-attendance/internal/models"
)

// Level — уровень посещаемости.
type Level string

const (
	LevelExcellent Level = "excelente" // >= 90
	LevelRegular   Level = "regular"   // 75..89
	LevelCritical  Level = "critico"   // < 75
)

func LevelOf(rate float64) Level {
	switch {
	case rate >= 90:
		return LevelExcellent
	case rate >= 75:
		return LevelRegular
	default:
		return LevelCritical
	}
}

// NoClassName — подпись для ученика, чей класс удалён или не найден.
const NoClassName = "Sem turma"

type Row struct {
	Student   models.Student `json:"student"`
	ClassName string         `json:"className"`
	Stats     Stats          `json:"stats"`
	Level     Level          `json:"level"`
}

// Filter — пустые поля не фильтруют. BimesterID 0 — весь год.
type Filter struct {
	ClassID    string
	Situation  models.Situation
	BimesterID int
	Level      Level
}

// Input — данные, на которых строятся отчёты.
type Input struct {
	Classes    []models.ClassGroup
	Students   []models.Student
	Attendance []models.AttendanceRecord
	Bimesters  []models.Bimester
}

// Report — строки отчёта по ученикам, по убыванию процента.
func Report(in Input, f Filter) []Row {
	from, to := bimesterRange(in.Bimesters, f.BimesterID)
	names := classNames(in.Classes)
	byStudent := groupByStudent(in.Attendance)

	rows := make([]Row, 0, len(in.Students))
	for _, st := range in.Students {
		if f.ClassID != "" && st.ClassID != f.ClassID {
			continue
		}
		if f.Situation != "" && st.Situation != f.Situation {
			continue
		}
		s := StudentStats(byStudent[st.ID], st.ID, from, to)
		lvl := LevelOf(s.AttendanceRate)
		if f.Level != "" && lvl != f.Level {
			continue
		}
		name, ok := names[st.ClassID]
		if !ok {
			name = NoClassName
		}
		rows = append(rows, Row{Student: st, ClassName: name, Stats: s, Level: lvl})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Stats.AttendanceRate > rows[j].Stats.AttendanceRate
	})
	return rows
}

type ClassAverage struct {
	ClassID       string  `json:"classId"`
	ClassName     string  `json:"className"`
	TotalStudents int     `json:"totalStudents"`
	AverageRate   float64 `json:"averageRate"`
	Stats         Stats   `json:"stats"`
}

// ClassAverages — средний процент по классам (среди учеников с отметками)
// и суммарные счётчики класса. BimesterID 0 — весь год.
func ClassAverages(in Input, bimesterID int) []ClassAverage {
	from, to := bimesterRange(in.Bimesters, bimesterID)
	byStudent := groupByStudent(in.Attendance)

	out := make([]ClassAverage, 0, len(in.Classes))
	for _, c := range in.Classes {
		ca := ClassAverage{ClassID: c.ID, ClassName: c.Name}
		var sum float64
		var counted int
		var all []models.AttendanceRecord
		for _, st := range in.Students {
			if st.ClassID != c.ID {
				continue
			}
			ca.TotalStudents++
			recs := byStudent[st.ID]
			s := StudentStats(recs, st.ID, from, to)
			if s.TotalDays > 0 {
				sum += s.AttendanceRate
				counted++
			}
			for _, r := range recs {
				if models.InRange(models.NormalizeDate(r.Date), from, to) {
					all = append(all, r)
				}
			}
		}
		if counted > 0 {
			ca.AverageRate = sum / float64(counted)
		}
		ca.Stats = Count(all)
		out = append(out, ca)
	}
	return out
}

type TrendPoint struct {
	BimesterID  int     `json:"bimesterId"`
	Name        string  `json:"name"`
	AverageRate float64 `json:"averageRate"`
	Records     int     `json:"records"`
}

// BimesterTrend — средний процент учеников (с отметками) по каждому биместру.
// classID "" — вся школа.
func BimesterTrend(in Input, classID string) []TrendPoint {
	byStudent := groupByStudent(in.Attendance)
	out := make([]TrendPoint, 0, len(in.Bimesters))
	for _, b := range in.Bimesters {
		p := TrendPoint{BimesterID: b.ID, Name: b.Name}
		var sum float64
		var counted int
		for _, st := range in.Students {
			if classID != "" && st.ClassID != classID {
				continue
			}
			s := StudentStats(byStudent[st.ID], st.ID, b.Start, b.End)
			if s.TotalDays == 0 {
				continue
			}
			sum += s.AttendanceRate
			counted++
			p.Records += s.TotalDays
		}
		if counted > 0 {
			p.AverageRate = sum / float64(counted)
		}
		out = append(out, p)
	}
	return out
}

type Summary struct {
	TotalClasses      int     `json:"totalClasses"`
	TotalStudents     int     `json:"totalStudents"`
	AverageAttendance float64 `json:"averageAttendance"`
	TotalRecords      int     `json:"totalRecords"`
}

// Summarize — сводка для главного экрана: средний процент берётся только по
// ученикам, у которых есть хотя бы одна отметка.
func Summarize(in Input) Summary {
	byStudent := groupByStudent(in.Attendance)
	var sum float64
	var counted int
	for _, st := range in.Students {
		s := StudentStats(byStudent[st.ID], st.ID, "", "")
		if s.TotalDays > 0 {
			sum += s.AttendanceRate
			counted++
		}
	}
	sm := Summary{
		TotalClasses:  len(in.Classes),
		TotalStudents: len(in.Students),
		TotalRecords:  len(in.Attendance),
	}
	if counted > 0 {
		sm.AverageAttendance = sum / float64(counted)
	}
	return sm
}

func bimesterRange(bimesters []models.Bimester, id int) (string, string) {
	if id <= 0 {
		return "", ""
	}
	for _, b := range bimesters {
		if b.ID == id {
			return b.Start, b.End
		}
	}
	return "", ""
}

func classNames(classes []models.ClassGroup) map[string]string {
	m := make(map[string]string, len(classes))
	for _, c := range classes {
		m[c.ID] = c.Name
	}
	return m
}

func groupByStudent(records []models.AttendanceRecord) map[string][]models.AttendanceRecord {
	m := make(map[string][]models.AttendanceRecord)
	for _, r := range records {
		m[r.StudentID] = append(m[r.StudentID], r)
	}
	return m
}
