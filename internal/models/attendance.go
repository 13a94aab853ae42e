package models

import "strconv"

// Status — отметка за урок: P присутствовал, F отсутствовал,
// J уважительная причина, "-" урока не было.
type Status string

const (
	StatusPresent   Status = "P"
	StatusAbsent    Status = "F"
	StatusJustified Status = "J"
	StatusNoLesson  Status = "-"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusJustified, StatusNoLesson:
		return true
	}
	return false
}

type AttendanceRecord struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId" validate:"required"`
	Date        string `json:"date" validate:"required,isodate"`
	LessonIndex int    `json:"lessonIndex" validate:"min=0"`
	Status      Status `json:"status" validate:"required,oneof=P F J -"`
	Subject     string `json:"subject,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// AttendanceKey — составной ключ отметки. Повторное сохранение с тем же
// ключом заменяет запись, а не дублирует её.
type AttendanceKey struct {
	StudentID   string
	Date        string
	LessonIndex int
}

// AttendanceID — детерминированный id отметки.
func AttendanceID(studentID, date string, lessonIndex int) string {
	return studentID + "-" + NormalizeDate(date) + "-" + strconv.Itoa(lessonIndex)
}

func NewAttendance(studentID, date string, lessonIndex int, status Status) AttendanceRecord {
	return AttendanceRecord{
		StudentID:   studentID,
		Date:        date,
		LessonIndex: lessonIndex,
		Status:      status,
	}.Normalized()
}

func (r AttendanceRecord) Key() AttendanceKey {
	return AttendanceKey{StudentID: r.StudentID, Date: NormalizeDate(r.Date), LessonIndex: r.LessonIndex}
}

// Normalized возвращает копию с канонической датой и пересчитанным id.
func (r AttendanceRecord) Normalized() AttendanceRecord {
	r.Date = NormalizeDate(r.Date)
	r.ID = AttendanceID(r.StudentID, r.Date, r.LessonIndex)
	return r
}

// DedupeAttendance схлопывает записи с одинаковым ключом: остаётся последняя,
// на позиции первого вхождения.
func DedupeAttendance(records []AttendanceRecord) []AttendanceRecord {
	pos := make(map[AttendanceKey]int, len(records))
	out := make([]AttendanceRecord, 0, len(records))
	for _, r := range records {
		r = r.Normalized()
		if i, ok := pos[r.Key()]; ok {
			out[i] = r
			continue
		}
		pos[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}
