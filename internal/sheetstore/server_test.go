package sheetstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheets", "frequencia.xlsx")
	b, err := OpenXLSX(path, nil)
	require.NoError(t, err)
	return NewServer(Options{Backend: b, DisableReqLogs: true}), path
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getData(t *testing.T, h http.Handler) Data {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/?action=getData", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d Data
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	return d
}

func TestServer_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name, method, target, body string
	}{
		{"get_without_action", http.MethodGet, "/", ""},
		{"get_unknown_action", http.MethodGet, "/?action=drop", ""},
		{"post_invalid_json", http.MethodPost, "/", "{"},
		{"post_unknown_action", http.MethodPost, "/", `{"action":"deleteAll"}`},
		{"post_attendance_without_record", http.MethodPost, "/", `{"action":"saveAttendance"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"error"`)
		})
	}
}

func TestServer_EmptyWorkbook(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/?action=getData", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"classes":[],"students":[],"attendance":[],"bimesters":[],"holidays":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
}

func TestServer_SaveAllAndGetData(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/", `{
		"action": "saveAll",
		"classes": [{"id": "c1", "name": "1º Ano A", "year": "2026", "period": "Manhã", "lessonsPerDay": 2,
		             "schedule": {"Segunda": ["Matemática", "Português"]}, "createdAt": "2026-02-01T10:00:00Z", "extra": "x"}],
		"students": [{"id": "s1", "name": "Ana", "registration": "20261234", "classId": "c1", "situation": "Cursando"}],
		"holidays": [{"id": "h1", "date": "2026-04-21", "description": "Tiradentes", "type": "Feriado"}],
		"attendance": [
			{"id": "s1-2026-03-10-0", "studentId": "s1", "date": "2026-03-10", "lessonIndex": 0, "status": "F"},
			{"id": "s1-2026-03-10-0", "studentId": "s1", "date": "2026-03-10", "lessonIndex": 0, "status": "P"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	d := getData(t, s)
	require.Len(t, d.Classes, 1)
	c := d.Classes[0]
	assert.Equal(t, "c1", c["id"])
	assert.Equal(t, "2", c["lessonsPerDay"])
	assert.Equal(t, map[string]any{"Segunda": []any{"Matemática", "Português"}}, c["schedule"])
	_, hasExtra := c["extra"]
	assert.False(t, hasExtra, "only sheet columns are stored")
	require.Len(t, d.Students, 1)
	assert.Equal(t, "", d.Students[0]["photoUrl"], "missing columns come back empty")

	require.Len(t, d.Attendance, 1, "duplicates inside one batch collapse")
	assert.Equal(t, "P", d.Attendance[0]["status"])

	// null — лист не трогается, [] — очищается
	rec = do(t, s, http.MethodPost, "/", `{"action":"saveAll","classes":null,"students":[],"holidays":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	d = getData(t, s)
	assert.Len(t, d.Classes, 1)
	assert.Empty(t, d.Students)
	assert.Len(t, d.Holidays, 1)
	assert.Len(t, d.Attendance, 1)
}

func TestServer_AttendanceUpsertByTriple(t *testing.T) {
	s, path := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/", `{"action":"saveAttendance","record":
		{"id":"s1-2026-03-10T00:00:00.000Z-1","studentId":"s1","date":"2026-03-10T00:00:00.000Z","lessonIndex":1,"status":"F"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/", `{"action":"saveBatchAttendance","records":[
		{"id":"s1-2026-03-10-1","studentId":"s1","date":"2026-03-10","lessonIndex":1,"status":"J","notes":"atestado"},
		{"id":"s2-2026-03-10-1","studentId":"s2","date":"2026-03-10","lessonIndex":"1","status":"P"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	d := getData(t, s)
	require.Len(t, d.Attendance, 2)
	first := d.Attendance[0]
	assert.Equal(t, "s1-2026-03-10-1", first["id"])
	assert.Equal(t, "2026-03-10", first["date"])
	assert.Equal(t, "J", first["status"])
	assert.Equal(t, "atestado", first["notes"])

	// данные переживают перезапуск
	b, err := OpenXLSX(path, nil)
	require.NoError(t, err)
	reopened, err := b.GetData(context.Background())
	require.NoError(t, err)
	require.Len(t, reopened.Attendance, 2)
	assert.Equal(t, "J", reopened.Attendance[0]["status"])
	assert.Equal(t, 1, reopened.Attendance[1]["lessonIndex"])
}

func TestServer_Ping(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodHead, "/", "").Code)
}
