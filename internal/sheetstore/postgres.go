package sheetstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres — листы в sheet_rows (JSON по строке), отметки — отдельная
// таблица с ключом (student_id, date, lesson_index).
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

var _ Backend = (*Postgres)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OpenPostgres подключается по DATABASE_URL (драйвер pgx) и применяет миграции.
func OpenPostgres(ctx context.Context, dsn string, lg *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p, err := NewPostgres(ctx, db, lg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres — поверх готового соединения (тесты, общий пул).
func NewPostgres(ctx context.Context, db *sql.DB, lg *zap.Logger) (*Postgres, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, err
	}
	prov, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := prov.Up(ctx); err != nil {
		return nil, fmt.Errorf("migrate sheetstore: %w", err)
	}
	return &Postgres{db: db, log: logging.OrNop(lg)}, nil
}

func (p *Postgres) GetData(ctx context.Context) (Data, error) {
	var d Data
	for _, sh := range allSheets {
		if sh.Key == SheetAttendance.Key {
			continue
		}
		rows, err := p.sheet(ctx, sh.Key)
		if err != nil {
			return Data{}, err
		}
		d.set(sh.Key, rows)
	}
	att, err := p.attendance(ctx)
	if err != nil {
		return Data{}, err
	}
	d.Attendance = att
	return d, nil
}

func (p *Postgres) sheet(ctx context.Context, key string) ([]Row, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT data FROM sheet_rows WHERE sheet = $1 ORDER BY pos`, key)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	out := []Row{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r Row
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode sheet %s: %w", key, err)
		}
		out = append(out, expand(r))
	}
	return out, rows.Err()
}

func (p *Postgres) attendance(ctx context.Context) ([]Row, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, student_id, date, lesson_index, status, subject, notes
		FROM attendance
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("read attendance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Row{}
	for rows.Next() {
		var a attendanceRow
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Date, &a.LessonIndex, &a.Status, &a.Subject, &a.Notes); err != nil {
			return nil, err
		}
		out = append(out, a.row())
	}
	return out, rows.Err()
}

func (p *Postgres) SaveAll(ctx context.Context, req SaveAllRequest) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, sr := range req.plain() {
		if sr.rows == nil {
			continue
		}
		if err := replaceSheet(ctx, tx, sr); err != nil {
			return err
		}
	}
	if req.Attendance != nil {
		if err := upsertAttendance(ctx, tx, dedupe(req.Attendance)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func replaceSheet(ctx context.Context, tx *sql.Tx, sr sheetRows) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = $1`, sr.sheet.Key); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sr.sheet.Key, err)
	}
	if len(sr.rows) == 0 {
		return nil
	}
	pos := make([]int64, 0, len(sr.rows))
	data := make([]string, 0, len(sr.rows))
	for i, r := range sr.rows {
		b, err := json.Marshal(project(sr.sheet, r))
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", sr.sheet.Key, i, err)
		}
		pos = append(pos, int64(i))
		data = append(data, string(b))
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet, pos, data)
		SELECT $1, u.pos, u.data::jsonb
		FROM unnest($2::int[], $3::text[]) AS u(pos, data)
	`, sr.sheet.Key, pq.Array(pos), pq.Array(data))
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", sr.sheet.Key, err)
	}
	return nil
}

func (p *Postgres) SaveAttendance(ctx context.Context, row Row) error {
	return p.SaveBatch(ctx, []Row{row})
}

func (p *Postgres) SaveBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	return upsertAttendance(ctx, p.db, dedupe(rows))
}

// upsertAttendance — один INSERT ... ON CONFLICT на весь пакет. Пакет уже
// без повторов ключа, иначе Postgres откажет.
func upsertAttendance(ctx context.Context, q execer, batch []attendanceRow) error {
	if len(batch) == 0 {
		return nil
	}
	var (
		ids      = make([]string, 0, len(batch))
		students = make([]string, 0, len(batch))
		dates    = make([]string, 0, len(batch))
		lessons  = make([]int64, 0, len(batch))
		statuses = make([]string, 0, len(batch))
		subjects = make([]string, 0, len(batch))
		notes    = make([]string, 0, len(batch))
	)
	for _, a := range batch {
		ids = append(ids, a.ID)
		students = append(students, a.StudentID)
		dates = append(dates, a.Date)
		lessons = append(lessons, int64(a.LessonIndex))
		statuses = append(statuses, a.Status)
		subjects = append(subjects, a.Subject)
		notes = append(notes, a.Notes)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, date, lesson_index, status, subject, notes)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::int[], $5::text[], $6::text[], $7::text[])
		ON CONFLICT (student_id, date, lesson_index) DO UPDATE
		SET id = EXCLUDED.id,
		    status = EXCLUDED.status,
		    subject = EXCLUDED.subject,
		    notes = EXCLUDED.notes,
		    updated_at = now()
	`, pq.Array(ids), pq.Array(students), pq.Array(dates), pq.Array(lessons),
		pq.Array(statuses), pq.Array(subjects), pq.Array(notes))
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }
