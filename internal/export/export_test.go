package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/stats"
)

func TestAttendanceReport(t *testing.T) {
	rows := []stats.Row{
		{
			Student:   models.Student{Name: "Ana Silva", Registration: "20261234", Situation: models.SituationEnrolled},
			ClassName: "1º Ano A",
			Stats:     stats.Stats{TotalDays: 5, Present: 2, Absent: 1, Justified: 1, NoLesson: 1, AttendanceRate: 75},
			Level:     stats.LevelRegular,
		},
		{
			Student:   models.Student{Name: "Bruno", Situation: models.SituationEnrolled},
			ClassName: stats.NoClassName,
			Level:     stats.LevelCritical,
		},
	}

	wb, err := AttendanceReport(rows, "1º Bimestre: 1º Ano A")
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	sheets := wb.File.GetSheetList()
	require.Equal(t, []string{"1º Bimestre 1º Ano A"}, sheets)

	got, err := wb.File.GetRows(sheets[0])
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, attendanceHeader, got[0])
	assert.Equal(t, []string{"Ana Silva", "20261234", "1º Ano A", "Cursando", "5", "2", "1", "1", "1", "75.0", "regular"}, got[1])
	assert.Equal(t, "Bruno", got[2][0])
	assert.Equal(t, "", got[2][1])
	assert.Equal(t, "0.0", got[2][9])
}

func TestWorkbook_SaveTemp(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	wb, err := NewWorkbook([]SheetSpec{
		{Title: "Turmas", Header: []string{"id", "name"}, Rows: [][]string{{"1", "A"}}},
		{Title: "Vazio", Header: []string{"id"}},
	})
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	path, err := wb.SaveTemp("frequencia")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "frequencia_"))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Frequência — 1º Ano A — 1º Bimestre.xlsx", BuildAttendanceReportFilename("1º Ano A", "1º Bimestre"))
	assert.Equal(t, "Frequência — 2_B — —.xlsx", BuildAttendanceReportFilename("2/B", ""))
	assert.Equal(t, "Sheet1", SheetName("  "))
	assert.Len(t, []rune(SheetName(strings.Repeat("x", 40))), 31)
}
