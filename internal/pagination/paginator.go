// Package pagination — постраничная навигация для интерактивных сообщений.
// Контроллер не хранит сами данные: на каждый переход он заново спрашивает
// число страниц и отдаёт отрисовку колбэку, поэтому страница всегда
// отражает актуальное состояние БД, даже если записи добавили или удалили
// после открытия вида.
package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Move — направление перехода по страницам.
type Move int

const (
	MoveFirst Move = iota
	MovePrev
	MoveNext
	MoveLast
)

// ParseMove разбирает действие из callback-данных кнопки.
func ParseMove(s string) (Move, bool) {
	switch s {
	case "first":
		return MoveFirst, true
	case "prev":
		return MovePrev, true
	case "next":
		return MoveNext, true
	case "last":
		return MoveLast, true
	}
	return 0, false
}

// String возвращает представление перехода для callback-данных.
func (m Move) String() string {
	switch m {
	case MoveFirst:
		return "first"
	case MovePrev:
		return "prev"
	case MoveNext:
		return "next"
	case MoveLast:
		return "last"
	}
	return fmt.Sprintf("Move(%d)", int(m))
}

// Session — состояние одного постраничного вида, привязанного
// к сообщению бота.
type Session struct {
	// OwnerID — кто открыл вид; только он может листать страницы
	OwnerID int64

	// Page — текущая страница, нумерация с 1
	Page int

	// TotalPages запрашивается заново перед каждым переходом
	TotalPages func(ctx context.Context) (int, error)

	// Render отрисовывает текст страницы
	Render func(ctx context.Context, page, totalPages int) (string, error)

	// mu сериализует переходы: кнопки одного вида могут нажимать параллельно
	mu       sync.Mutex
	lastSeen time.Time
}

// Apply выполняет переход и возвращает новый текст страницы вместе
// с её номером и актуальным числом страниц. Номер всегда зажимается
// в [1, totalPages], так что переход за край просто остаётся на краю.
// Безопасен для параллельных вызовов: переходы одного вида сериализуются.
func (s *Session) Apply(ctx context.Context, move Move) (string, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := s.TotalPages(ctx)
	if err != nil {
		return "", 0, 0, err
	}
	if total < 1 {
		total = 1
	}

	target := s.Page
	switch move {
	case MoveFirst:
		target = 1
	case MovePrev:
		target--
	case MoveNext:
		target++
	case MoveLast:
		target = total
	}
	if target < 1 {
		target = 1
	}
	if target > total {
		target = total
	}

	text, err := s.Render(ctx, target, total)
	if err != nil {
		return "", 0, 0, err
	}
	s.Page = target
	return text, target, total, nil
}
