package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2026-03-10", NormalizeDate("2026-03-10T00:00:00Z"))
	assert.Equal(t, "2026-03-10", NormalizeDate("2026-03-10T03:00:00.000Z"))
	assert.Equal(t, "2026-03-10", NormalizeDate(" 2026-03-10 "))
	assert.Equal(t, "", NormalizeDate(""))
	assert.Equal(t, "2026-3-1", NormalizeDate("2026-3-1"))
}

func TestInRange_Inclusive(t *testing.T) {
	assert.True(t, InRange("2026-02-05", "2026-02-05", "2026-04-23"))
	assert.True(t, InRange("2026-04-23", "2026-02-05", "2026-04-23"))
	assert.False(t, InRange("2026-04-24", "2026-02-05", "2026-04-23"))
	assert.True(t, InRange("1999-01-01", "", ""))
}

func TestAttendanceID_FromTimestamp(t *testing.T) {
	r := NewAttendance("42", "2026-03-10T00:00:00Z", 1, StatusAbsent)
	assert.Equal(t, "42-2026-03-10-1", r.ID)
	assert.Equal(t, "2026-03-10", r.Date)
}

func TestDedupeAttendance_LastWins(t *testing.T) {
	in := []AttendanceRecord{
		NewAttendance("1", "2026-03-10", 0, StatusPresent),
		NewAttendance("2", "2026-03-10", 0, StatusPresent),
		NewAttendance("1", "2026-03-10T00:00:00Z", 0, StatusAbsent),
	}
	out := DedupeAttendance(in)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].StudentID)
	assert.Equal(t, StatusAbsent, out[0].Status)
}

func TestWeeklySchedule_Decode(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		var c ClassGroup
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"A","schedule":{"Segunda":["Mat","Port"]}}`), &c))
		require.NotNil(t, c.Schedule)
		assert.Equal(t, []string{"Mat", "Port"}, c.Schedule.Days["Segunda"])
	})

	t.Run("embedded_json_string", func(t *testing.T) {
		var c ClassGroup
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"A","schedule":"{\"Terça\":[\"Hist\"]}"}`), &c))
		subj, ok := c.Schedule.Subject("Terça", 0)
		assert.True(t, ok)
		assert.Equal(t, "Hist", subj)
	})

	t.Run("garbage_string_passes_through", func(t *testing.T) {
		var c ClassGroup
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"A","schedule":"{broken"}`), &c))
		assert.Nil(t, c.Schedule.Days)
		assert.Equal(t, "{broken", c.Schedule.Raw)

		out, err := json.Marshal(c)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"schedule":"{broken"`)
	})

	t.Run("absent", func(t *testing.T) {
		var c ClassGroup
		require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"A"}`), &c))
		assert.Nil(t, c.Schedule)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(NewAttendance("1", "2026-03-10", 0, StatusJustified)))
	assert.Error(t, Validate(AttendanceRecord{StudentID: "1", Date: "10/03/2026", Status: StatusPresent}))
	assert.Error(t, Validate(AttendanceRecord{StudentID: "1", Date: "2026-03-10", Status: "X"}))

	assert.NoError(t, Validate(ClassGroup{ID: "1", Name: "1º Ano A", Period: PeriodMorning, LessonsPerDay: 2}))
	assert.Error(t, Validate(ClassGroup{ID: "1", Name: "1º Ano A", Period: "Madrugada"}))

	for _, b := range DefaultBimesters() {
		assert.NoError(t, Validate(b))
	}
	assert.Error(t, Validate(Bimester{ID: 1, Name: "x", Start: "2026-05-01", End: "2026-04-01"}))
}

func TestCurrentBimester(t *testing.T) {
	b := CurrentBimester(DefaultBimesters(), "2026-10-18")
	require.NotNil(t, b)
	assert.Equal(t, 4, b.ID)
	assert.Nil(t, CurrentBimester(DefaultBimesters(), "2027-01-10"))
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Terça", WeekdayName("2026-03-10"))
	assert.Equal(t, "Segunda", WeekdayName("2026-03-09T12:00:00Z"))
	assert.Equal(t, "", WeekdayName("garbage"))
}
