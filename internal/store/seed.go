package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/models"
)

// SeedSample наполняет пустое хранилище демонстрационным классом с тремя
// учениками. Возвращает true, если данные были добавлены.
func (s *Store) SeedSample(ctx context.Context, now time.Time) (bool, error) {
	classes, err := s.Classes(ctx)
	if err != nil {
		return false, err
	}
	if len(classes) > 0 {
		s.log.Debug("data already exists, skipping sample seed")
		return false, nil
	}

	ts := now.UTC().Format(time.RFC3339)
	if err := s.SaveClass(ctx, models.ClassGroup{
		ID:            "1",
		Name:          "1º Ano A",
		Year:          now.Format("2006"),
		Period:        models.PeriodMorning,
		LessonsPerDay: 1,
		CreatedAt:     ts,
	}); err != nil {
		return false, err
	}

	reg := now.Format("2006")
	students := []models.Student{
		{ID: "1", Name: "Ana Silva", Registration: reg + "001", ClassID: "1", Situation: models.SituationEnrolled, CreatedAt: ts},
		{ID: "2", Name: "Bruno Santos", Registration: reg + "002", ClassID: "1", Situation: models.SituationEnrolled, CreatedAt: ts},
		{ID: "3", Name: "Carla Oliveira", Registration: reg + "003", ClassID: "1", Situation: models.SituationEnrolled, CreatedAt: ts},
	}
	if err := s.SaveStudents(ctx, students); err != nil {
		return false, err
	}
	s.log.Info("sample data seeded", zap.Int("students", len(students)))
	return true, nil
}
