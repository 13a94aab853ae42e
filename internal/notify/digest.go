// Package notify — дайджест посещаемости в Telegram: список учеников с
// критическим процентом и xlsx-отчёт по текущему биместру.
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/export"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/stats"
	"github.com/Spok95/school-attendance/internal/tg"
)

// Source — данные для дайджеста (appstate.State).
type Source interface {
	Refresh(ctx context.Context) error
	CurrentBimester(date string) *models.Bimester
	Report(f stats.Filter) []stats.Row
}

// maxListed — сколько учеников перечислять в тексте; полный список в файле.
const maxListed = 30

type Digest struct {
	src    Source
	bot    tg.API
	chatID int64
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

func NewDigest(src Source, bot tg.API, chatID int64, loc *time.Location, lg *zap.Logger) *Digest {
	if loc == nil {
		loc = time.Local
	}
	return &Digest{src: src, bot: bot, chatID: chatID, loc: loc, log: logging.OrNop(lg), now: time.Now}
}

// Run — задача для jobs.Runner.
func (d *Digest) Run(ctx context.Context) error {
	if err := d.src.Refresh(ctx); err != nil {
		d.log.Warn("digest: refresh failed, using cached data", zap.Error(err))
	}

	today := models.FormatDate(d.now().In(d.loc))
	f := stats.Filter{Situation: models.SituationEnrolled}
	title := "Ano letivo"
	if b := d.src.CurrentBimester(today); b != nil {
		f.BimesterID = b.ID
		title = b.Name
	}
	rows := d.src.Report(f)
	critical := Critical(rows)

	if _, err := tg.Send(d.bot, tgbotapi.NewMessage(d.chatID, Message(title, today, critical))); err != nil {
		return fmt.Errorf("digest message: %w", err)
	}

	wb, err := export.AttendanceReport(rows, title)
	if err != nil {
		return fmt.Errorf("digest report: %w", err)
	}
	defer func() { _ = wb.Close() }()
	path, err := wb.SaveTemp("frequencia")
	if err != nil {
		return fmt.Errorf("digest report: %w", err)
	}
	defer func() { _ = os.Remove(path) }()

	doc := tgbotapi.NewDocument(d.chatID, tgbotapi.FilePath(path))
	doc.Caption = export.BuildAttendanceReportFilename("Todas as turmas", title)
	if _, err := tg.Send(d.bot, doc); err != nil {
		return fmt.Errorf("digest document: %w", err)
	}
	d.log.Info("digest sent", zap.Int("students", len(rows)), zap.Int("critical", len(critical)))
	return nil
}

// Critical — ученики с критическим уровнем, у которых есть хотя бы одна
// отметка об уроке (без отметок процент 0 ничего не значит).
func Critical(rows []stats.Row) []stats.Row {
	var out []stats.Row
	for _, r := range rows {
		if r.Level != stats.LevelCritical {
			continue
		}
		if r.Stats.TotalDays-r.Stats.NoLesson <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Message — текст дайджеста. Строки уже отсортированы по убыванию процента.
func Message(title, date string, critical []stats.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frequência: %s (%s)\n", title, date)
	if len(critical) == 0 {
		b.WriteString("Nenhum protagonista abaixo de 75%.")
		return b.String()
	}
	fmt.Fprintf(&b, "Protagonistas abaixo de 75%%: %d\n", len(critical))
	for i, r := range critical {
		if i == maxListed {
			fmt.Fprintf(&b, "... e mais %d", len(critical)-maxListed)
			break
		}
		fmt.Fprintf(&b, "• %s (%s): %.1f%%, %d faltas\n", r.Student.Name, r.ClassName, r.Stats.AttendanceRate, r.Stats.Absent)
	}
	return strings.TrimRight(b.String(), "\n")
}
