package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// WeeklySchedule — расписание класса: день недели -> предметы по номеру урока.
//
// В таблице расписание лежит JSON-строкой, поэтому декодер принимает и объект,
// и строку с объектом. Строка, которую не удалось разобрать, сохраняется в Raw
// и записывается обратно без изменений.
type WeeklySchedule struct {
	Days map[string][]string
	Raw  string
}

// Subject возвращает предмет для дня недели и номера урока, если он задан.
func (w *WeeklySchedule) Subject(weekday string, lessonIndex int) (string, bool) {
	if w == nil || w.Days == nil {
		return "", false
	}
	slots := w.Days[weekday]
	if lessonIndex < 0 || lessonIndex >= len(slots) {
		return "", false
	}
	return slots[lessonIndex], slots[lessonIndex] != ""
}

func (w WeeklySchedule) MarshalJSON() ([]byte, error) {
	if w.Days != nil {
		return json.Marshal(w.Days)
	}
	if w.Raw != "" {
		return json.Marshal(w.Raw)
	}
	return []byte("null"), nil
}

func (w *WeeklySchedule) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*w = WeeklySchedule{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '{':
		return json.Unmarshal(b, &w.Days)
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		w.decodeString(s)
		return nil
	default:
		// числа/массивы из таблицы не ломают загрузку класса
		w.Raw = string(b)
		return nil
	}
}

func (w *WeeklySchedule) decodeString(s string) {
	if strings.HasPrefix(strings.TrimSpace(s), "{") {
		var days map[string][]string
		if err := json.Unmarshal([]byte(s), &days); err == nil {
			w.Days = days
			return
		}
	}
	w.Raw = s
}

// ParseSchedule — защитный разбор значения ячейки schedule.
func ParseSchedule(s string) *WeeklySchedule {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	w := &WeeklySchedule{}
	w.decodeString(s)
	return w
}

var weekdayNames = [...]string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

// WeekdayName — ключ расписания для даты ("Segunda" ... ); пусто для неверной даты.
func WeekdayName(date string) string {
	t, err := time.Parse(DateLayout, NormalizeDate(date))
	if err != nil {
		return ""
	}
	return weekdayNames[t.Weekday()]
}
