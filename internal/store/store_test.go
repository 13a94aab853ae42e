package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-attendance/internal/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "attendance.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip_AllCollections(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	class := models.ClassGroup{
		ID: "c1", Name: "1º Ano A", Year: "2026", Period: models.PeriodAfternoon, LessonsPerDay: 2,
		Schedule:  &models.WeeklySchedule{Days: map[string][]string{"Segunda": {"Matemática", "Português"}}},
		CreatedAt: "2026-02-01T10:00:00Z",
	}
	student := models.Student{ID: "s1", Name: "Ana", Registration: "20261234", ClassID: "c1", Situation: models.SituationEnrolled, CreatedAt: "2026-02-01T10:00:00Z"}
	rec := models.NewAttendance("s1", "2026-03-10", 1, models.StatusJustified)
	rec.Subject = "Português"
	rec.Notes = "atestado"
	holiday := models.Holiday{ID: "h1", Date: "2026-04-21", Description: "Tiradentes", Type: models.HolidayPublic}
	bims := models.DefaultBimesters()[:2]

	require.NoError(t, s.SaveClass(ctx, class))
	require.NoError(t, s.SaveStudent(ctx, student))
	require.NoError(t, s.SaveAttendance(ctx, rec))
	require.NoError(t, s.SaveHoliday(ctx, holiday))
	require.NoError(t, s.SaveBimesters(ctx, bims))

	classes, err := s.Classes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ClassGroup{class}, classes)

	students, err := s.Students(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Student{student}, students)

	att, err := s.Attendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{rec}, att)

	hs, err := s.Holidays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Holiday{holiday}, hs)

	got, err := s.Bimesters(ctx)
	require.NoError(t, err)
	assert.Equal(t, bims, got)
}

func TestSaveAttendance_UpsertByTriple(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.SaveAttendance(ctx, models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent)))
	require.NoError(t, s.SaveAttendance(ctx, models.NewAttendance("s1", "2026-03-10", 1, models.StatusPresent)))
	require.NoError(t, s.SaveAttendance(ctx, models.NewAttendance("s1", "2026-03-10T00:00:00Z", 0, models.StatusAbsent)))

	att, err := s.Attendance(ctx)
	require.NoError(t, err)
	require.Len(t, att, 2)
	assert.Equal(t, models.StatusAbsent, att[0].Status, "замена на месте, порядок сохраняется")
	assert.Equal(t, 0, att[0].LessonIndex)
}

func TestDeleteClass_Cascade(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.SaveClass(ctx, models.ClassGroup{ID: "c1", Name: "A"}))
	require.NoError(t, s.SaveClass(ctx, models.ClassGroup{ID: "c2", Name: "B"}))
	require.NoError(t, s.SaveStudents(ctx, []models.Student{
		{ID: "s1", Name: "Ana", ClassID: "c1"},
		{ID: "s2", Name: "Bia", ClassID: "c1"},
		{ID: "s3", Name: "Caio", ClassID: "c2"},
	}))
	require.NoError(t, s.SaveAttendanceBatch(ctx, []models.AttendanceRecord{
		models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent),
		models.NewAttendance("s2", "2026-03-10", 0, models.StatusAbsent),
		models.NewAttendance("s3", "2026-03-10", 0, models.StatusPresent),
	}))

	require.NoError(t, s.DeleteClass(ctx, "c1"))

	classes, _ := s.Classes(ctx)
	students, _ := s.Students(ctx)
	att, _ := s.Attendance(ctx)
	require.Len(t, classes, 1)
	require.Len(t, students, 1)
	require.Len(t, att, 1)
	assert.Equal(t, "c2", classes[0].ID)
	assert.Equal(t, "s3", students[0].ID)
	assert.Equal(t, "s3", att[0].StudentID)
}

func TestDeleteStudent_Cascade(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.SaveStudents(ctx, []models.Student{{ID: "s1", Name: "Ana"}, {ID: "s2", Name: "Bia"}}))
	require.NoError(t, s.SaveAttendanceBatch(ctx, []models.AttendanceRecord{
		models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent),
		models.NewAttendance("s2", "2026-03-10", 0, models.StatusPresent),
	}))
	require.NoError(t, s.DeleteStudent(ctx, "s1"))

	att, err := s.Attendance(ctx)
	require.NoError(t, err)
	require.Len(t, att, 1)
	assert.Equal(t, "s2", att[0].StudentID)
}

func TestCorruptCollection_ReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.db.ExecContext(ctx, `INSERT INTO collections (name, payload) VALUES (?, ?)`, Students, "{not json")
	require.NoError(t, err)

	raw, err := ReadCollection[models.Student](ctx, s, Students)
	assert.Empty(t, raw)
	assert.True(t, errors.Is(err, ErrCorrupt))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Students, se.Collection)

	students, err := s.Students(ctx)
	require.NoError(t, err, "типизированное чтение деградирует молча")
	assert.Empty(t, students)

	// запись поверх битой коллекции восстанавливает её
	require.NoError(t, s.SaveStudent(ctx, models.Student{ID: "s1", Name: "Ana"}))
	students, err = s.Students(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestWriteOnClosedStore_ReturnsWriteError(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.Close())

	err := WriteCollection(ctx, s, Holidays, []models.Holiday{{ID: "h1"}})
	assert.True(t, errors.Is(err, ErrWrite))
}

func TestBimesters_DefaultsWhenEmpty(t *testing.T) {
	s := openTest(t)
	got, err := s.Bimesters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBimesters(), got)
}

func TestDeleteAttendance(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.SaveAttendanceBatch(ctx, []models.AttendanceRecord{
		models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent),
		models.NewAttendance("s1", "2026-03-10", 1, models.StatusPresent),
		models.NewAttendance("s1", "2026-03-11", 0, models.StatusPresent),
	}))

	one := 1
	require.NoError(t, s.DeleteAttendance(ctx, "s1", "2026-03-10", &one))
	att, _ := s.Attendance(ctx)
	assert.Len(t, att, 2)

	require.NoError(t, s.DeleteAttendance(ctx, "s1", "2026-03-10", nil))
	att, _ = s.Attendance(ctx)
	require.Len(t, att, 1)
	assert.Equal(t, "2026-03-11", att[0].Date)
}

func TestAttendanceQueries(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.SaveAttendanceBatch(ctx, []models.AttendanceRecord{
		models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent),
		models.NewAttendance("s1", "2026-04-02", 0, models.StatusAbsent),
		models.NewAttendance("s2", "2026-03-10", 0, models.StatusPresent),
	}))

	march, err := s.AttendanceByStudentAndMonth(ctx, "s1", 2026, 3)
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "2026-03-10", march[0].Date)

	day, err := s.AttendanceByDate(ctx, "2026-03-10T00:00:00Z")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	byStudent, err := s.AttendanceByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)
}

func TestReplaceAll_NormalizesAndKeepsMissing(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.SaveHoliday(ctx, models.Holiday{ID: "h1", Date: "2026-04-21"}))

	snap := models.Snapshot{
		Classes:    []models.ClassGroup{{ID: "c1", Name: "A"}},
		Attendance: []models.AttendanceRecord{{StudentID: "s1", Date: "2026-03-10T00:00:00Z", Status: models.StatusPresent}},
		Bimesters:  []models.Bimester{{ID: 1, Name: "1º", Start: "2026-02-05T03:00:00.000Z", End: "2026-04-23T03:00:00.000Z"}},
	}
	require.NoError(t, s.ReplaceAll(ctx, snap))

	att, _ := s.Attendance(ctx)
	require.Len(t, att, 1)
	assert.Equal(t, "2026-03-10", att[0].Date)
	assert.Equal(t, "s1-2026-03-10-0", att[0].ID)

	bims, _ := s.Bimesters(ctx)
	assert.Equal(t, "2026-02-05", bims[0].Start)

	hs, _ := s.Holidays(ctx)
	assert.Len(t, hs, 1, "непереданная коллекция не трогается")
	assert.Equal(t, "2026-03-10T00:00:00Z", snap.Attendance[0].Date, "входной снимок не мутируется")
}

func TestSeedSample(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	seeded, err := s.SeedSample(ctx, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = s.SeedSample(ctx, now)
	require.NoError(t, err)
	assert.False(t, seeded)

	students, _ := s.StudentsByClass(ctx, "1")
	assert.Len(t, students, 3)
}

func TestUpdate_GenericCollection(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	type item struct {
		ID string `json:"id"`
	}
	for _, id := range []string{"a", "b"} {
		id := id
		require.NoError(t, Update(ctx, s, SyncQueue, func(items []item) []item { return append(items, item{ID: id}) }))
	}
	got, err := ReadCollection[item](ctx, s, SyncQueue)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "a"}, {ID: "b"}}, got)
}
