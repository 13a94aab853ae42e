package models

import (
	"strings"
	"time"
)

// DateLayout — канонический вид даты во всех коллекциях и на проводе.
const DateLayout = "2006-01-02"

const dateLen = len(DateLayout)

// NormalizeDate обрезает ISO-дату/таймстамп до YYYY-MM-DD.
// Единственная точка канонизации: вызывается при каждой записи в локальное
// хранилище и при разборе каждого ответа удалённого хранилища.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > dateLen {
		return s[:dateLen]
	}
	return s
}

// ValidDate — строка уже в каноническом виде и является реальной датой.
func ValidDate(s string) bool {
	if len(s) != dateLen {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate переводит время в каноническую строку в его собственной зоне.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// InRange — включительное сравнение канонических строк; пустая граница не ограничивает.
func InRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}
