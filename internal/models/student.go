package models

// Situation — статус обучения ученика.
type Situation string

const (
	SituationEnrolled    Situation = "Cursando"
	SituationDropped     Situation = "Evasão"
	SituationTransferred Situation = "Transferência"
)

type Student struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name" validate:"required"`
	Registration string    `json:"registration"`
	ClassID      string    `json:"classId"`
	Situation    Situation `json:"situation" validate:"omitempty,oneof=Cursando Evasão Transferência"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	CreatedAt    string    `json:"createdAt"`
}
