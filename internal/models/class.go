package models

// Period — смена, в которую учится класс. Значения совпадают с теми, что
// хранятся в таблице.
type Period string

const (
	PeriodMorning   Period = "Manhã"
	PeriodAfternoon Period = "Tarde"
	PeriodEvening   Period = "Noite"
	PeriodFullDay   Period = "Integral"
)

type ClassGroup struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Year          string          `json:"year"`
	Period        Period          `json:"period" validate:"omitempty,oneof=Manhã Tarde Noite Integral"`
	LessonsPerDay int             `json:"lessonsPerDay,omitempty" validate:"omitempty,min=1"`
	Schedule      *WeeklySchedule `json:"schedule,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}

// Lessons — число уроков в день, по умолчанию 1.
func (c ClassGroup) Lessons() int {
	if c.LessonsPerDay < 1 {
		return 1
	}
	return c.LessonsPerDay
}
