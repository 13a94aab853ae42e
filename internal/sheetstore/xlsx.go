package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/export"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/models"
)

// XLSX — листы в памяти, после каждой записи книга целиком пишется в файл.
type XLSX struct {
	path string
	log  *zap.Logger

	mu         sync.Mutex
	sheets     map[string][]Row
	attendance []attendanceRow
}

var _ Backend = (*XLSX)(nil)

// OpenXLSX читает книгу; если файла нет — создаёт пустую с заголовками.
func OpenXLSX(path string, lg *zap.Logger) (*XLSX, error) {
	x := &XLSX{path: path, log: logging.OrNop(lg), sheets: make(map[string][]Row)}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		x.log.Info("workbook not found, creating", zap.String("path", path))
		return x, x.flush()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, sh := range allSheets {
		cells, err := f.GetRows(sh.Title)
		if err != nil {
			// листа нет — считаем пустым
			x.log.Warn("sheet missing", zap.String("sheet", sh.Title), zap.Error(err))
			continue
		}
		rows := parseRows(cells)
		if sh.Key != SheetAttendance.Key {
			x.sheets[sh.Key] = rows
			continue
		}
		for _, r := range rows {
			x.attendance = append(x.attendance, attendanceFrom(r))
		}
	}
	x.log.Info("workbook loaded", zap.String("path", path), zap.Int("attendance", len(x.attendance)))
	return x, nil
}

// parseRows — первая строка заголовки, пустые строки пропускаются.
func parseRows(cells [][]string) []Row {
	if len(cells) < 2 {
		return nil
	}
	headers := cells[0]
	out := make([]Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(Row, len(headers))
		empty := true
		for i, h := range headers {
			var v string
			if i < len(line) {
				v = line[i]
			}
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

func (x *XLSX) GetData(context.Context) (Data, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var d Data
	for _, sh := range allSheets {
		var src []Row
		if sh.Key == SheetAttendance.Key {
			src = make([]Row, 0, len(x.attendance))
			for _, a := range x.attendance {
				src = append(src, a.row())
			}
		} else {
			src = x.sheets[sh.Key]
		}
		rows := make([]Row, 0, len(src))
		for _, r := range src {
			cp := make(Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			rows = append(rows, expand(cp))
		}
		d.set(sh.Key, rows)
	}
	return d, nil
}

func (x *XLSX) SaveAll(_ context.Context, req SaveAllRequest) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, sr := range req.plain() {
		if sr.rows == nil {
			continue
		}
		rows := make([]Row, 0, len(sr.rows))
		for _, r := range sr.rows {
			rows = append(rows, stringRow(project(sr.sheet, r)))
		}
		x.sheets[sr.sheet.Key] = rows
	}
	if req.Attendance != nil {
		x.upsert(dedupe(req.Attendance))
	}
	return x.flush()
}

// stringRow — в книге все ячейки строки; память держим в том же виде.
func stringRow(r Row) Row {
	for k, v := range r {
		r[k] = cellString(v)
	}
	return r
}

func (x *XLSX) SaveAttendance(ctx context.Context, row Row) error {
	return x.SaveBatch(ctx, []Row{row})
}

func (x *XLSX) SaveBatch(_ context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upsert(dedupe(rows))
	return x.flush()
}

func (x *XLSX) upsert(batch []attendanceRow) {
	idx := make(map[models.AttendanceKey]int, len(x.attendance))
	for i, a := range x.attendance {
		idx[a.key()] = i
	}
	for _, a := range batch {
		if i, ok := idx[a.key()]; ok {
			x.attendance[i] = a
			continue
		}
		idx[a.key()] = len(x.attendance)
		x.attendance = append(x.attendance, a)
	}
}

// flush пишет книгу во временный файл и подменяет им основной.
func (x *XLSX) flush() error {
	specs := make([]export.SheetSpec, 0, len(allSheets))
	for _, sh := range allSheets {
		var rows []Row
		if sh.Key == SheetAttendance.Key {
			rows = make([]Row, 0, len(x.attendance))
			for _, a := range x.attendance {
				rows = append(rows, a.row())
			}
		} else {
			rows = x.sheets[sh.Key]
		}
		body := make([][]string, 0, len(rows))
		for _, r := range rows {
			line := make([]string, len(sh.Headers))
			for i, h := range sh.Headers {
				line[i] = cellString(r[h])
			}
			body = append(body, line)
		}
		specs = append(specs, export.SheetSpec{Title: sh.Title, Header: sh.Headers, Rows: body})
	}

	wb, err := export.NewWorkbook(specs)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer func() { _ = wb.Close() }()

	// excelize определяет формат по расширению, поэтому .xlsx остаётся в конце
	tmp := filepath.Join(filepath.Dir(x.path), ".tmp-"+filepath.Base(x.path))
	if err := wb.SaveAs(tmp); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

func (x *XLSX) Ping(context.Context) error {
	_, err := os.Stat(x.path)
	return err
}

func (x *XLSX) Close() error { return nil }
