package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/app"
	"github.com/Spok95/school-attendance/internal/export"
	"github.com/Spok95/school-attendance/internal/jobs"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/notify"
	"github.com/Spok95/school-attendance/internal/stats"
	"github.com/Spok95/school-attendance/internal/syncer"
	"github.com/Spok95/school-attendance/internal/tg"
)

func cmdServe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", e.cfg.HTTPAddr, "адрес /healthz, /status, /metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := e.state.Bootstrap(ctx); err != nil {
		return err
	}

	runner := jobs.New(ctx, e.log.Named("jobs"))
	if e.sync != nil {
		runner.EveryNow(e.cfg.ProbeInterval, "remote_probe", e.sync.ProbeJob(e.remote))
	}
	if e.cfg.DigestEnabled() {
		bot, err := tg.New(e.cfg.BotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		digest := notify.NewDigest(e.state, bot, e.cfg.DigestChatID, e.cfg.Location, e.log.Named("digest"))
		runner.Every(e.cfg.DigestInterval, "digest", digest.Run)
	}

	app.StartHTTP(ctx, *addr, e.store, e.status, e.log.Named("http"))
	e.log.Base.Info("tracker started", zap.Bool("remote", e.sync != nil), zap.Bool("digest", e.cfg.DigestEnabled()))

	<-ctx.Done()
	e.log.Base.Info("shutting down")
	runner.Wait()
	return nil
}

func cmdPull(ctx context.Context, e *env, args []string) error {
	if err := e.requireRemote(); err != nil {
		return err
	}
	hydrated, err := e.state.Pull(ctx)
	if err != nil {
		return err
	}
	if !hydrated {
		fmt.Println("planilha sem turmas: dados locais mantidos")
		return nil
	}
	sm := e.state.Summary()
	fmt.Printf("dados atualizados: %d turmas, %d protagonistas, %d registros\n",
		sm.TotalClasses, sm.TotalStudents, sm.TotalRecords)
	return nil
}

func cmdPush(ctx context.Context, e *env, args []string) error {
	if err := e.requireRemote(); err != nil {
		return err
	}
	err := e.sync.PushSnapshot(ctx)
	if errors.Is(err, syncer.ErrQueued) {
		fmt.Println("sem conexão: envio completo na fila")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("dados enviados")
	return nil
}

func cmdDrain(ctx context.Context, e *env, args []string) error {
	if err := e.requireRemote(); err != nil {
		return err
	}
	n, err := e.sync.Drain(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("fila enviada: %d itens\n", n)
	return nil
}

// statusReport — содержимое /status и вывод команды status.
type statusReport struct {
	Remote     bool          `json:"remote"`
	Online     bool          `json:"online"`
	QueueDepth int           `json:"queueDepth"`
	Summary    stats.Summary `json:"summary"`
	Bimester   string        `json:"bimester,omitempty"`
}

func (e *env) status(ctx context.Context) (any, error) {
	rep := statusReport{Summary: e.state.Summary()}
	if e.sync != nil {
		q, err := e.sync.Queue(ctx)
		if err != nil {
			return nil, err
		}
		rep.Remote = true
		rep.Online = e.sync.Online()
		rep.QueueDepth = len(q)
	}
	if b := e.state.CurrentBimester(e.today()); b != nil {
		rep.Bimester = b.Name
	}
	return rep, nil
}

func cmdStatus(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "вывод в JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := e.status(ctx)
	if err != nil {
		return err
	}
	rep := v.(statusReport)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "planilha\t%s\n", remoteLabel(rep))
	fmt.Fprintf(tw, "fila\t%d\n", rep.QueueDepth)
	fmt.Fprintf(tw, "turmas\t%d\n", rep.Summary.TotalClasses)
	fmt.Fprintf(tw, "protagonistas\t%d\n", rep.Summary.TotalStudents)
	fmt.Fprintf(tw, "registros\t%d\n", rep.Summary.TotalRecords)
	fmt.Fprintf(tw, "frequência média\t%.1f%%\n", rep.Summary.AverageAttendance)
	if rep.Bimester != "" {
		fmt.Fprintf(tw, "bimestre atual\t%s\n", rep.Bimester)
	}
	return tw.Flush()
}

func remoteLabel(rep statusReport) string {
	switch {
	case !rep.Remote:
		return "não configurada"
	case rep.Online:
		return "online"
	default:
		return "offline"
	}
}

// cmdMark сохраняет только отмеченные ячейки сетки: у остальных учеников
// и уроков записей не появляется.
func cmdMark(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("mark", flag.ContinueOnError)
	classID := fs.String("class", "", "id da turma")
	date := fs.String("date", e.today(), "data YYYY-MM-DD")
	lesson := fs.Int("lesson", 1, "aula (1..N); 0 — todas as aulas")
	status := fs.String("status", string(models.StatusPresent), "P, F, J ou -")
	studentID := fs.String("student", "", "id do protagonista; vazio — turma inteira")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *classID == "" {
		return errors.New("mark: -class é obrigatório")
	}

	grid, err := e.state.Grid(*classID, *date, 0, models.SituationEnrolled)
	if err != nil {
		return err
	}
	st := models.Status(strings.ToUpper(*status))
	lessons := []int{*lesson - 1}
	if *lesson == 0 {
		lessons = lessons[:0]
		for i := 0; i < grid.Lessons; i++ {
			lessons = append(lessons, i)
		}
	}
	for _, idx := range lessons {
		if *studentID != "" {
			err = grid.Set(*studentID, idx, st)
		} else {
			err = grid.SetLesson(idx, st)
		}
		if err != nil {
			return err
		}
	}

	changed := grid.Changed()
	if len(changed) == 0 {
		fmt.Println("nenhum protagonista na turma: nada a salvar")
		return nil
	}
	saved, err := e.state.MarkAttendanceBatch(ctx, changed)
	if err != nil {
		return err
	}
	t := stats.Count(saved)
	fmt.Printf("%s: %d registros salvos (P %d, F %d, J %d, - %d)\n",
		grid.Date, len(saved), t.Present, t.Absent, t.Justified, t.NoLesson)
	return nil
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	classID := fs.String("class", "", "id da turma")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *classID == "" || fs.NArg() != 1 {
		return errors.New("import: uso -class <id> <arquivo|->")
	}

	var r io.Reader = os.Stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	names, err := readNames(r)
	if err != nil {
		return err
	}

	added, err := e.state.ImportStudents(ctx, *classID, names, models.SituationEnrolled)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, st := range added {
		fmt.Fprintf(tw, "%s\t%s\n", st.Registration, st.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("importados: %d\n", len(added))
	return nil
}

// readNames — по одному имени в строке, пустые строки пропускаются.
func readNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, sc.Err()
}

func cmdReport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	classID := fs.String("class", "", "id da turma; vazio — todas")
	bimester := fs.Int("bimester", 0, "bimestre; 0 — ano inteiro")
	level := fs.String("level", "", "excelente, regular ou critico")
	situation := fs.String("situation", string(models.SituationEnrolled), "Cursando, Evasão ou Transferência; vazio — todas")
	out := fs.String("out", "", "salvar em .xlsx")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows := e.state.Report(stats.Filter{
		ClassID:    *classID,
		Situation:  models.Situation(*situation),
		BimesterID: *bimester,
		Level:      stats.Level(*level),
	})

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "protagonista\tturma\tP\tF\tJ\t%\tnível")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.1f\t%s\n", r.Student.Name, r.ClassName,
			r.Stats.Present, r.Stats.Absent, r.Stats.Justified, r.Stats.AttendanceRate, r.Level)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if *out == "" {
		return nil
	}

	title := e.periodTitle(*bimester)
	wb, err := export.AttendanceReport(rows, title)
	if err != nil {
		return err
	}
	defer func() { _ = wb.Close() }()
	if err := wb.SaveAs(*out); err != nil {
		return err
	}
	fmt.Println("relatório salvo:", *out)
	return nil
}

func (e *env) periodTitle(bimesterID int) string {
	for _, b := range e.state.Bimesters() {
		if b.ID == bimesterID {
			return b.Name
		}
	}
	return "Ano letivo"
}

func (e *env) today() string {
	return models.FormatDate(time.Now().In(e.cfg.Location))
}
