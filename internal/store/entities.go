package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/school-attendance/internal/models"
)

// Classes

func (s *Store) Classes(ctx context.Context) ([]models.ClassGroup, error) {
	return readDegraded[models.ClassGroup](ctx, s, Classes)
}

func (s *Store) SaveClass(ctx context.Context, c models.ClassGroup) error {
	return Update(ctx, s, Classes, func(items []models.ClassGroup) []models.ClassGroup {
		return upsert(items, c, func(x models.ClassGroup) bool { return x.ID == c.ID })
	})
}

// DeleteClass удаляет класс, его учеников и их отметки. Набор учеников
// вычисляется до их удаления.
func (s *Store) DeleteClass(ctx context.Context, classID string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		classes, err := readTolerant[models.ClassGroup](ctx, tx, Classes)
		if err != nil {
			return err
		}
		students, err := readTolerant[models.Student](ctx, tx, Students)
		if err != nil {
			return err
		}
		attendance, err := readTolerant[models.AttendanceRecord](ctx, tx, Attendance)
		if err != nil {
			return err
		}

		gone := make(map[string]struct{})
		for _, st := range students {
			if st.ClassID == classID {
				gone[st.ID] = struct{}{}
			}
		}

		classes = filter(classes, func(c models.ClassGroup) bool { return c.ID != classID })
		students = filter(students, func(st models.Student) bool { return st.ClassID != classID })
		attendance = filter(attendance, func(r models.AttendanceRecord) bool {
			_, drop := gone[r.StudentID]
			return !drop
		})

		if err := write(ctx, tx, Classes, classes); err != nil {
			return s.track(err)
		}
		if err := write(ctx, tx, Students, students); err != nil {
			return s.track(err)
		}
		return s.track(write(ctx, tx, Attendance, attendance))
	})
}

// Students

func (s *Store) Students(ctx context.Context) ([]models.Student, error) {
	return readDegraded[models.Student](ctx, s, Students)
}

func (s *Store) StudentsByClass(ctx context.Context, classID string) ([]models.Student, error) {
	all, err := s.Students(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(st models.Student) bool { return st.ClassID == classID }), nil
}

func (s *Store) SaveStudent(ctx context.Context, st models.Student) error {
	return s.SaveStudents(ctx, []models.Student{st})
}

// SaveStudents — пакетный upsert (импорт списком).
func (s *Store) SaveStudents(ctx context.Context, batch []models.Student) error {
	return Update(ctx, s, Students, func(items []models.Student) []models.Student {
		for _, st := range batch {
			items = upsert(items, st, func(x models.Student) bool { return x.ID == st.ID })
		}
		return items
	})
}

func (s *Store) DeleteStudent(ctx context.Context, studentID string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		students, err := readTolerant[models.Student](ctx, tx, Students)
		if err != nil {
			return err
		}
		attendance, err := readTolerant[models.AttendanceRecord](ctx, tx, Attendance)
		if err != nil {
			return err
		}
		students = filter(students, func(st models.Student) bool { return st.ID != studentID })
		attendance = filter(attendance, func(r models.AttendanceRecord) bool { return r.StudentID != studentID })

		if err := write(ctx, tx, Students, students); err != nil {
			return s.track(err)
		}
		return s.track(write(ctx, tx, Attendance, attendance))
	})
}

// Attendance

func (s *Store) Attendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	return readDegraded[models.AttendanceRecord](ctx, s, Attendance)
}

func (s *Store) AttendanceByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	date = models.NormalizeDate(date)
	return s.attendanceWhere(ctx, func(r models.AttendanceRecord) bool { return r.Date == date })
}

func (s *Store) AttendanceByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return s.attendanceWhere(ctx, func(r models.AttendanceRecord) bool { return r.StudentID == studentID })
}

// AttendanceByStudentAndMonth — отметки ученика за месяц (month 1..12).
func (s *Store) AttendanceByStudentAndMonth(ctx context.Context, studentID string, year, month int) ([]models.AttendanceRecord, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	return s.attendanceWhere(ctx, func(r models.AttendanceRecord) bool {
		return r.StudentID == studentID && len(r.Date) >= len(prefix) && r.Date[:len(prefix)] == prefix
	})
}

func (s *Store) attendanceWhere(ctx context.Context, keep func(models.AttendanceRecord) bool) ([]models.AttendanceRecord, error) {
	all, err := s.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, keep), nil
}

// SaveAttendance — upsert по (studentId, date, lessonIndex).
func (s *Store) SaveAttendance(ctx context.Context, r models.AttendanceRecord) error {
	return s.SaveAttendanceBatch(ctx, []models.AttendanceRecord{r})
}

func (s *Store) SaveAttendanceBatch(ctx context.Context, batch []models.AttendanceRecord) error {
	return Update(ctx, s, Attendance, func(items []models.AttendanceRecord) []models.AttendanceRecord {
		for _, r := range batch {
			r = r.Normalized()
			key := r.Key()
			items = upsert(items, r, func(x models.AttendanceRecord) bool { return x.Key() == key })
		}
		return items
	})
}

// DeleteAttendance снимает отметку; lessonIndex == nil — все уроки дня.
func (s *Store) DeleteAttendance(ctx context.Context, studentID, date string, lessonIndex *int) error {
	date = models.NormalizeDate(date)
	return Update(ctx, s, Attendance, func(items []models.AttendanceRecord) []models.AttendanceRecord {
		return filter(items, func(r models.AttendanceRecord) bool {
			hit := r.StudentID == studentID && r.Date == date &&
				(lessonIndex == nil || r.LessonIndex == *lessonIndex)
			return !hit
		})
	})
}

// Bimesters

// Bimesters возвращает сохранённый календарь или календарь по умолчанию.
func (s *Store) Bimesters(ctx context.Context) ([]models.Bimester, error) {
	items, err := readDegraded[models.Bimester](ctx, s, Bimesters)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return models.DefaultBimesters(), nil
	}
	return items, nil
}

func (s *Store) SaveBimesters(ctx context.Context, items []models.Bimester) error {
	norm := make([]models.Bimester, len(items))
	for i, b := range items {
		b.Start = models.NormalizeDate(b.Start)
		b.End = models.NormalizeDate(b.End)
		norm[i] = b
	}
	return WriteCollection(ctx, s, Bimesters, norm)
}

// Holidays

func (s *Store) Holidays(ctx context.Context) ([]models.Holiday, error) {
	return readDegraded[models.Holiday](ctx, s, Holidays)
}

func (s *Store) SaveHoliday(ctx context.Context, h models.Holiday) error {
	h.Date = models.NormalizeDate(h.Date)
	return Update(ctx, s, Holidays, func(items []models.Holiday) []models.Holiday {
		return upsert(items, h, func(x models.Holiday) bool { return x.ID == h.ID })
	})
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	return Update(ctx, s, Holidays, func(items []models.Holiday) []models.Holiday {
		return filter(items, func(h models.Holiday) bool { return h.ID != id })
	})
}

// Snapshot — все коллекции разом (биместры — с подстановкой по умолчанию).
func (s *Store) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var (
		snap models.Snapshot
		err  error
	)
	if snap.Classes, err = s.Classes(ctx); err != nil {
		return snap, err
	}
	if snap.Students, err = s.Students(ctx); err != nil {
		return snap, err
	}
	if snap.Attendance, err = s.Attendance(ctx); err != nil {
		return snap, err
	}
	if snap.Bimesters, err = s.Bimesters(ctx); err != nil {
		return snap, err
	}
	if snap.Holidays, err = s.Holidays(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReplaceAll перезаписывает каждую переданную (не nil) коллекцию снимка.
// Даты канонизируются до записи.
func (s *Store) ReplaceAll(ctx context.Context, snap models.Snapshot) error {
	snap = snap.Clone()
	snap.Normalize()
	if snap.Attendance != nil {
		snap.Attendance = models.DedupeAttendance(snap.Attendance)
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if snap.Classes != nil {
			if err := write(ctx, tx, Classes, snap.Classes); err != nil {
				return s.track(err)
			}
		}
		if snap.Students != nil {
			if err := write(ctx, tx, Students, snap.Students); err != nil {
				return s.track(err)
			}
		}
		if snap.Attendance != nil {
			if err := write(ctx, tx, Attendance, snap.Attendance); err != nil {
				return s.track(err)
			}
		}
		if snap.Bimesters != nil {
			if err := write(ctx, tx, Bimesters, snap.Bimesters); err != nil {
				return s.track(err)
			}
		}
		if snap.Holidays != nil {
			return s.track(write(ctx, tx, Holidays, snap.Holidays))
		}
		return nil
	})
}

// readTolerant — чтение внутри транзакции: битая коллекция считается пустой.
func readTolerant[T any](ctx context.Context, q dbtx, name string) ([]T, error) {
	items, err := read[T](ctx, q, name)
	if err != nil && !isCorrupt(err) {
		return nil, err
	}
	return items, nil
}
