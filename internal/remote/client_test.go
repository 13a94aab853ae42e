package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-attendance/internal/models"
)

const sheetPayload = `{
  "classes": [
    {"id": 1, "name": "1º Ano A", "year": 2026, "period": "Manhã", "lessonsPerDay": "2",
     "schedule": "{\"Segunda\":[\"Matemática\",\"História\"]}", "createdAt": "2026-02-01T12:00:00.000Z"},
    {"id": "c2", "name": "2º Ano", "schedule": "{quebrado", "lessonsPerDay": ""}
  ],
  "students": [
    {"id": 7, "name": "Ana", "registration": 20261234, "classId": 1, "situation": "Cursando", "photoUrl": ""}
  ],
  "attendance": [
    {"id": "7-2026-03-10-0", "studentId": 7, "date": "2026-03-10T00:00:00Z", "lessonIndex": 0, "status": "P"},
    {"id": "", "studentId": "7", "date": "2026-03-11", "lessonIndex": "1", "status": "F", "notes": "x"}
  ],
  "bimesters": [{"id": 1, "name": "1º Bimestre", "start": "2026-02-05T03:00:00.000Z", "end": "2026-04-23T03:00:00.000Z"}],
  "holidays": []
}`

func TestFetchAll_DefensiveDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ActionGetData, r.URL.Query().Get("action"))
		assert.Equal(t, "abc", r.URL.Query().Get("key"), "существующие параметры сохраняются")
		_, _ = io.WriteString(w, sheetPayload)
	}))
	defer srv.Close()

	c := New(srv.URL+"/exec?key=abc", time.Second, nil)
	snap, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Classes, 2)
	assert.Equal(t, "1", snap.Classes[0].ID)
	assert.Equal(t, "2026", snap.Classes[0].Year)
	assert.Equal(t, 2, snap.Classes[0].LessonsPerDay)
	require.NotNil(t, snap.Classes[0].Schedule)
	assert.Equal(t, []string{"Matemática", "História"}, snap.Classes[0].Schedule.Days["Segunda"])
	assert.Equal(t, "{quebrado", snap.Classes[1].Schedule.Raw)
	assert.Equal(t, 0, snap.Classes[1].LessonsPerDay)

	require.Len(t, snap.Students, 1)
	assert.Equal(t, "20261234", snap.Students[0].Registration)
	assert.Equal(t, "1", snap.Students[0].ClassID)

	require.Len(t, snap.Attendance, 2)
	assert.Equal(t, "2026-03-10", snap.Attendance[0].Date)
	assert.Equal(t, "7-2026-03-11-1", snap.Attendance[1].ID)
	assert.Equal(t, 1, snap.Attendance[1].LessonIndex)

	assert.Equal(t, "2026-02-05", snap.Bimesters[0].Start)
	assert.Equal(t, "2026-04-23", snap.Bimesters[0].End)
	assert.NotNil(t, snap.Holidays)
	assert.Empty(t, snap.Holidays)
}

func TestFetchAll_MissingCollectionsAreNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"classes": []}`)
	}))
	defer srv.Close()

	snap, err := New(srv.URL, time.Second, nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Classes)
	assert.Nil(t, snap.Students)
	assert.Nil(t, snap.Holidays)
}

func TestFetchAll_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, nil).FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusBadGateway, ne.Status)
}

func TestWrites_FireAndForget(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		// даже 500 не должен стать ошибкой записи
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	ctx := context.Background()

	rec := models.NewAttendance("s1", "2026-03-10T00:00:00Z", 0, models.StatusAbsent)
	require.NoError(t, c.SaveOne(ctx, rec))
	require.NoError(t, c.SaveBatch(ctx, []models.AttendanceRecord{
		rec,
		models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent),
	}))
	require.NoError(t, c.SaveAll(ctx, models.Snapshot{Classes: []models.ClassGroup{{ID: "c1", Name: "A"}}, Holidays: []models.Holiday{}}))
	require.NoError(t, c.SaveBatch(ctx, nil), "пустой пакет не отправляется")

	require.Len(t, bodies, 3)
	assert.JSONEq(t, `"saveAttendance"`, string(bodies[0]["action"]))

	var batch []models.AttendanceRecord
	require.NoError(t, json.Unmarshal(bodies[1]["records"], &batch))
	require.Len(t, batch, 1, "дубликаты в пакете схлопываются")
	assert.Equal(t, models.StatusPresent, batch[0].Status)

	assert.JSONEq(t, `"saveAll"`, string(bodies[2]["action"]))
	assert.JSONEq(t, `null`, string(bodies[2]["students"]))
	assert.JSONEq(t, `[]`, string(bodies[2]["holidays"]))
}

func TestWrites_TransportErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, nil)
	err := c.SaveOne(context.Background(), models.NewAttendance("s1", "2026-03-10", 0, models.StatusPresent))
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Error(t, c.Ping(context.Background()))
}

func TestPing_AnyResponseIsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()
	assert.NoError(t, New(srv.URL, time.Second, nil).Ping(context.Background()))
}
