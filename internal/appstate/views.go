package appstate

import (
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/stats"
)

// Отчёты считаются по кэшу, сеть не трогается.

func (s *State) input() stats.Input {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.Input{
		Classes:    s.data.Classes,
		Students:   s.data.Students,
		Attendance: s.data.Attendance,
		Bimesters:  s.data.Bimesters,
	}
}

func (s *State) StudentStats(studentID, from, to string) stats.Stats {
	return stats.StudentStats(s.input().Attendance, studentID, from, to)
}

func (s *State) ClassDayStats(classID, date string) stats.DayStats {
	in := s.input()
	return stats.ClassDayStats(in.Students, in.Attendance, classID, date)
}

func (s *State) Report(f stats.Filter) []stats.Row {
	return stats.Report(s.input(), f)
}

func (s *State) ClassAverages(bimesterID int) []stats.ClassAverage {
	return stats.ClassAverages(s.input(), bimesterID)
}

func (s *State) BimesterTrend(classID string) []stats.TrendPoint {
	return stats.BimesterTrend(s.input(), classID)
}

func (s *State) Summary() stats.Summary {
	return stats.Summarize(s.input())
}

// CurrentBimester — биместр, в который попадает дата; nil вне всех.
func (s *State) CurrentBimester(date string) *models.Bimester {
	return models.CurrentBimester(s.Bimesters(), date)
}
