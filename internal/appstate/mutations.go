package appstate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/ctxutil"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/observability"
)

// Все мутации устроены одинаково: запись в локальное хранилище -> Refresh ->
// фоновая отправка. Структурные правки отправляют полный снимок, отметки —
// пакет. Ошибка локальной записи логируется и возвращается, но кэш всё равно
// обновляется, а изменение уходит в облако.

func (s *State) SaveClass(ctx context.Context, c models.ClassGroup) (models.ClassGroup, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = s.timestamp()
	}
	if err := models.Validate(c); err != nil {
		return c, err
	}
	ctx = ctxutil.WithOp(ctx, "save_class")
	err := s.store.SaveClass(ctx, c)
	return c, s.afterStructural(ctx, err)
}

func (s *State) DeleteClass(ctx context.Context, classID string) error {
	ctx = ctxutil.WithOp(ctx, "delete_class")
	return s.afterStructural(ctx, s.store.DeleteClass(ctx, classID))
}

func (s *State) SaveStudent(ctx context.Context, st models.Student) (models.Student, error) {
	st = s.studentDefaults(st)
	if err := models.Validate(st); err != nil {
		return st, err
	}
	ctx = ctxutil.WithOp(ctx, "save_student")
	return st, s.afterStructural(ctx, s.store.SaveStudent(ctx, st))
}

// ImportStudents создаёт учеников класса по списку имён (пустые строки
// пропускаются). Регистрационный номер — <год><4 цифры>.
func (s *State) ImportStudents(ctx context.Context, classID string, names []string, situation models.Situation) ([]models.Student, error) {
	if _, ok := s.Class(classID); !ok {
		return nil, fmt.Errorf("import students: class %q not found", classID)
	}
	batch := make([]models.Student, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		st := s.studentDefaults(models.Student{Name: n, ClassID: classID, Situation: situation})
		if err := models.Validate(st); err != nil {
			return nil, fmt.Errorf("import students: %q: %w", n, err)
		}
		batch = append(batch, st)
	}
	if len(batch) == 0 {
		return batch, nil
	}
	ctx = ctxutil.WithOp(ctx, "import_students")
	return batch, s.afterStructural(ctx, s.store.SaveStudents(ctx, batch))
}

func (s *State) DeleteStudent(ctx context.Context, studentID string) error {
	ctx = ctxutil.WithOp(ctx, "delete_student")
	return s.afterStructural(ctx, s.store.DeleteStudent(ctx, studentID))
}

// MarkAttendance ставит одну отметку (upsert по ученику, дате и уроку).
func (s *State) MarkAttendance(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	rec = rec.Normalized()
	if err := models.Validate(rec); err != nil {
		return rec, err
	}
	ctx = ctxutil.WithOp(ctx, "mark_attendance")
	err := s.logWrite(ctx, s.store.SaveAttendance(ctx, rec))
	_ = s.Refresh(ctx)
	if s.sync != nil {
		s.sync.PushRecordAsync(ctx, rec, s.syncResult)
	}
	return rec, err
}

// MarkAttendanceBatch — пакетная отметка (например, вся сетка за день).
func (s *State) MarkAttendanceBatch(ctx context.Context, recs []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	batch := make([]models.AttendanceRecord, 0, len(recs))
	for _, r := range recs {
		r = r.Normalized()
		if err := models.Validate(r); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		batch = append(batch, r)
	}
	batch = models.DedupeAttendance(batch)
	if len(batch) == 0 {
		return batch, nil
	}
	ctx = ctxutil.WithOp(ctx, "mark_attendance_batch")
	err := s.logWrite(ctx, s.store.SaveAttendanceBatch(ctx, batch))
	_ = s.Refresh(ctx)
	if s.sync != nil {
		s.sync.PushBatchAsync(ctx, batch, s.syncResult)
	}
	return batch, err
}

// ClearAttendance удаляет отметки ученика за день (lessonIndex nil — все
// уроки). Удалённое хранилище умеет только upsert, поэтому удаление
// остаётся локальным до следующей гидратации.
func (s *State) ClearAttendance(ctx context.Context, studentID, date string, lessonIndex *int) error {
	ctx = ctxutil.WithOp(ctx, "clear_attendance")
	err := s.logWrite(ctx, s.store.DeleteAttendance(ctx, studentID, date, lessonIndex))
	_ = s.Refresh(ctx)
	return err
}

func (s *State) SaveBimesters(ctx context.Context, items []models.Bimester) error {
	for _, b := range items {
		if err := models.Validate(b); err != nil {
			return fmt.Errorf("bimester %d: %w", b.ID, err)
		}
	}
	ctx = ctxutil.WithOp(ctx, "save_bimesters")
	return s.afterStructural(ctx, s.store.SaveBimesters(ctx, items))
}

func (s *State) SaveHoliday(ctx context.Context, h models.Holiday) (models.Holiday, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Date = models.NormalizeDate(h.Date)
	if err := models.Validate(h); err != nil {
		return h, err
	}
	ctx = ctxutil.WithOp(ctx, "save_holiday")
	return h, s.afterStructural(ctx, s.store.SaveHoliday(ctx, h))
}

func (s *State) DeleteHoliday(ctx context.Context, id string) error {
	ctx = ctxutil.WithOp(ctx, "delete_holiday")
	return s.afterStructural(ctx, s.store.DeleteHoliday(ctx, id))
}

func (s *State) afterStructural(ctx context.Context, writeErr error) error {
	err := s.logWrite(ctx, writeErr)
	_ = s.Refresh(ctx)
	if s.sync != nil {
		s.sync.PushSnapshotAsync(ctx, s.syncResult)
	}
	return err
}

func (s *State) logWrite(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	logging.For(ctx, s.log).Error("local write failed", zap.Error(err))
	observability.CaptureCtx(ctx, err)
	return err
}

func (s *State) studentDefaults(st models.Student) models.Student {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Registration == "" {
		st.Registration = s.registration()
	}
	if st.Situation == "" {
		st.Situation = models.SituationEnrolled
	}
	if st.CreatedAt == "" {
		st.CreatedAt = s.timestamp()
	}
	return st
}

// registration — номер вида <год><1000..9999>.
func (s *State) registration() string {
	return fmt.Sprintf("%d%d", s.opts.Now().Year(), 1000+rand.IntN(9000))
}

func (s *State) timestamp() string {
	return s.opts.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
