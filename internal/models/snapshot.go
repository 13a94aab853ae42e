package models

// Snapshot — полный набор коллекций. nil-срез означает «коллекция не
// передана» (при гидрации такие коллекции не трогаем), пустой — «очистить».
type Snapshot struct {
	Classes    []ClassGroup       `json:"classes"`
	Students   []Student          `json:"students"`
	Attendance []AttendanceRecord `json:"attendance"`
	Bimesters  []Bimester         `json:"bimesters"`
	Holidays   []Holiday          `json:"holidays"`
}

// Normalize канонизирует все даты снимка на месте.
func (s *Snapshot) Normalize() {
	for i := range s.Attendance {
		s.Attendance[i] = s.Attendance[i].Normalized()
	}
	for i := range s.Bimesters {
		s.Bimesters[i].Start = NormalizeDate(s.Bimesters[i].Start)
		s.Bimesters[i].End = NormalizeDate(s.Bimesters[i].End)
	}
	for i := range s.Holidays {
		s.Holidays[i].Date = NormalizeDate(s.Holidays[i].Date)
	}
}

// Clone — глубокая копия срезов (сами записи — значения).
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Classes:    cloneSlice(s.Classes),
		Students:   cloneSlice(s.Students),
		Attendance: cloneSlice(s.Attendance),
		Bimesters:  cloneSlice(s.Bimesters),
		Holidays:   cloneSlice(s.Holidays),
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
