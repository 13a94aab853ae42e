package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt — payload коллекции не разбирается; читающий получает пустой срез.
	ErrCorrupt = errors.New("collection is corrupt")
	// ErrWrite — запись коллекции не удалась (диск, блокировка, квота).
	ErrWrite = errors.New("collection write failed")
	// ErrRead — ошибка чтения из файла хранилища.
	ErrRead = errors.New("collection read failed")
)

// Error — ошибка на границе хранилища. Проверяется через errors.Is с
// ErrCorrupt/ErrWrite/ErrRead.
type Error struct {
	Op         string
	Collection string
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("store %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v: %v", e.Op, e.Collection, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

func isCorrupt(err error) bool { return errors.Is(err, ErrCorrupt) }
