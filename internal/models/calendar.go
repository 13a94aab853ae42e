package models

type Bimester struct {
	ID    int    `json:"id" validate:"min=1"`
	Name  string `json:"name" validate:"required"`
	Start string `json:"start" validate:"required,isodate"`
	End   string `json:"end" validate:"required,isodate"`
}

// Contains — дата попадает в биместр включительно.
func (b Bimester) Contains(date string) bool {
	return InRange(NormalizeDate(date), b.Start, b.End)
}

// DefaultBimesters — календарь по умолчанию, если пользователь не настроил свой.
func DefaultBimesters() []Bimester {
	return []Bimester{
		{ID: 1, Name: "1º Bimestre", Start: "2026-02-05", End: "2026-04-23"},
		{ID: 2, Name: "2º Bimestre", Start: "2026-04-24", End: "2026-07-23"},
		{ID: 3, Name: "3º Bimestre", Start: "2026-07-24", End: "2026-10-05"},
		{ID: 4, Name: "4º Bimestre", Start: "2026-10-06", End: "2026-12-18"},
	}
}

// CurrentBimester — биместр, в который попадает дата, либо nil.
func CurrentBimester(bimesters []Bimester, date string) *Bimester {
	for i := range bimesters {
		if bimesters[i].Contains(date) {
			return &bimesters[i]
		}
	}
	return nil
}

type HolidayType string

const (
	HolidayPublic   HolidayType = "Feriado"
	HolidayRecess   HolidayType = "Recesso"
	HolidayVacation HolidayType = "Férias"
)

type Holiday struct {
	ID          string      `json:"id" validate:"required"`
	Date        string      `json:"date" validate:"required,isodate"`
	Description string      `json:"description"`
	Type        HolidayType `json:"type" validate:"omitempty,oneof=Feriado Recesso Férias"`
}
