package appstate

import (
	"fmt"

	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/stats"
)

// GridRow — строка сетки: ученик и статус по каждому уроку.
type GridRow struct {
	Student  models.Student  `json:"student"`
	Statuses []models.Status `json:"statuses"`
}

// Grid — сетка отметок класса за день.
type Grid struct {
	ClassID  string    `json:"classId"`
	Date     string    `json:"date"`
	Lessons  int       `json:"lessons"`
	Subjects []string  `json:"subjects,omitempty"`
	Rows     []GridRow `json:"rows"`

	existing map[models.AttendanceKey]models.AttendanceRecord
	touched  map[models.AttendanceKey]struct{}
}

// Grid строит сетку: каждый видимый ученик на каждом уроке по умолчанию
// «P», существующие отметки перекрывают умолчание. Если за день уже есть
// отметки с большим номером урока, сетка расширяется до maxLessonIndex+1.
// lessons <= 0 — берём lessonsPerDay класса. Пустая situation не фильтрует.
func (s *State) Grid(classID, date string, lessons int, situation models.Situation) (Grid, error) {
	class, ok := s.Class(classID)
	if !ok {
		return Grid{}, fmt.Errorf("grid: class %q not found", classID)
	}
	date = models.NormalizeDate(date)
	if !models.ValidDate(date) {
		return Grid{}, fmt.Errorf("grid: bad date %q", date)
	}
	if lessons <= 0 {
		lessons = class.Lessons()
	}

	s.mu.RLock()
	var students []models.Student
	for _, st := range s.data.Students {
		if st.ClassID != classID {
			continue
		}
		if situation != "" && st.Situation != situation {
			continue
		}
		students = append(students, st)
	}
	visible := make(map[string]struct{}, len(students))
	for _, st := range students {
		visible[st.ID] = struct{}{}
	}
	existing := make(map[models.AttendanceKey]models.AttendanceRecord)
	for _, r := range s.data.Attendance {
		if _, ok := visible[r.StudentID]; !ok || models.NormalizeDate(r.Date) != date {
			continue
		}
		existing[r.Key()] = r
		if r.LessonIndex+1 > lessons {
			lessons = r.LessonIndex + 1
		}
	}
	s.mu.RUnlock()

	g := Grid{ClassID: classID, Date: date, Lessons: lessons, Rows: make([]GridRow, 0, len(students)), existing: existing}
	weekday := models.WeekdayName(date)
	for i := 0; i < lessons; i++ {
		subj, _ := class.Schedule.Subject(weekday, i)
		g.Subjects = append(g.Subjects, subj)
	}
	for _, st := range students {
		row := GridRow{Student: st, Statuses: make([]models.Status, lessons)}
		for i := range row.Statuses {
			row.Statuses[i] = models.StatusPresent
			if r, ok := existing[models.AttendanceKey{StudentID: st.ID, Date: date, LessonIndex: i}]; ok {
				row.Statuses[i] = r.Status
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

// Set меняет статус ячейки и помечает её изменённой.
func (g *Grid) Set(studentID string, lessonIndex int, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("grid: bad status %q", status)
	}
	if lessonIndex < 0 || lessonIndex >= g.Lessons {
		return fmt.Errorf("grid: lesson %d out of range 0..%d", lessonIndex, g.Lessons-1)
	}
	for i := range g.Rows {
		if g.Rows[i].Student.ID == studentID {
			g.Rows[i].Statuses[lessonIndex] = status
			if g.touched == nil {
				g.touched = make(map[models.AttendanceKey]struct{})
			}
			g.touched[models.AttendanceKey{StudentID: studentID, Date: g.Date, LessonIndex: lessonIndex}] = struct{}{}
			return nil
		}
	}
	return fmt.Errorf("grid: student %q not in grid", studentID)
}

// SetLesson ставит статус всем ученикам на уроке.
func (g *Grid) SetLesson(lessonIndex int, status models.Status) error {
	for _, row := range g.Rows {
		if err := g.Set(row.Student.ID, lessonIndex, status); err != nil {
			return err
		}
	}
	return nil
}

// Records — все ячейки сетки как отметки. Заметки и предмет существующих
// отметок сохраняются, для новых предмет берётся из расписания.
func (g Grid) Records() []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, 0, len(g.Rows)*g.Lessons)
	for _, row := range g.Rows {
		for i := range row.Statuses {
			out = append(out, g.record(row, i))
		}
	}
	return out
}

// Changed — только ячейки, изменённые через Set/SetLesson. Нетронутые
// ячейки без отметки остаются без записи.
func (g Grid) Changed() []models.AttendanceRecord {
	var out []models.AttendanceRecord
	for _, row := range g.Rows {
		for i := range row.Statuses {
			key := models.AttendanceKey{StudentID: row.Student.ID, Date: g.Date, LessonIndex: i}
			if _, ok := g.touched[key]; ok {
				out = append(out, g.record(row, i))
			}
		}
	}
	return out
}

func (g Grid) record(row GridRow, i int) models.AttendanceRecord {
	r := models.NewAttendance(row.Student.ID, g.Date, i, row.Statuses[i])
	prev, ok := g.existing[r.Key()]
	if ok {
		r.Subject, r.Notes = prev.Subject, prev.Notes
	}
	if r.Subject == "" && i < len(g.Subjects) {
		r.Subject = g.Subjects[i]
	}
	return r
}

// Tally — счётчики по всем ячейкам сетки.
func (g Grid) Tally() stats.Stats {
	return stats.Count(g.Records())
}
