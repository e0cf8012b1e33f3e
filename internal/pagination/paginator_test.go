package pagination

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedTotal(n int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return n, nil }
}

func echoRender(ctx context.Context, page, total int) (string, error) {
	return fmt.Sprintf("страница %d из %d", page, total), nil
}

func TestSessionMoves(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		total    int
		move     Move
		wantPage int
	}{
		{"вперёд", 1, 5, MoveNext, 2},
		{"назад", 3, 5, MovePrev, 2},
		{"в начало", 4, 5, MoveFirst, 1},
		{"в конец", 2, 5, MoveLast, 5},
		{"вперёд с последней", 5, 5, MoveNext, 5},
		{"назад с первой", 1, 5, MovePrev, 1},
		{"единственная страница", 1, 1, MoveLast, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sess := &Session{Page: c.start, TotalPages: fixedTotal(c.total), Render: echoRender}
			text, page, total, err := sess.Apply(context.Background(), c.move)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if page != c.wantPage || sess.Page != c.wantPage {
				t.Errorf("page = %d (sess %d), ожидалась %d", page, sess.Page, c.wantPage)
			}
			want := fmt.Sprintf("страница %d из %d", c.wantPage, c.total)
			if text != want || total != c.total {
				t.Errorf("text = %q total = %d", text, total)
			}
		})
	}
}

// Число страниц перечитывается на каждом переходе: если записи удалили,
// текущая страница зажимается к новому краю.
func TestSessionShrinkingTotal(t *testing.T) {
	total := 5
	sess := &Session{
		Page:       5,
		TotalPages: func(context.Context) (int, error) { return total, nil },
		Render:     echoRender,
	}

	total = 2
	_, page, gotTotal, err := sess.Apply(context.Background(), MoveNext)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if page != 2 || gotTotal != 2 {
		t.Errorf("page = %d, total = %d, ожидалось 2 и 2", page, gotTotal)
	}
}

// Пустой набор данных ведёт себя как одна пустая страница.
func TestSessionEmptyTotal(t *testing.T) {
	sess := &Session{Page: 1, TotalPages: fixedTotal(0), Render: echoRender}
	_, page, total, err := sess.Apply(context.Background(), MoveLast)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if page != 1 || total != 1 {
		t.Errorf("page = %d, total = %d, ожидалось 1 и 1", page, total)
	}
}

func TestSessionPageUnchangedOnRenderError(t *testing.T) {
	sess := &Session{
		Page:       2,
		TotalPages: fixedTotal(5),
		Render: func(context.Context, int, int) (string, error) {
			return "", fmt.Errorf("БД недоступна")
		},
	}
	if _, _, _, err := sess.Apply(context.Background(), MoveNext); err == nil {
		t.Fatal("ожидалась ошибка отрисовки")
	}
	if sess.Page != 2 {
		t.Errorf("страница изменилась при ошибке: %d", sess.Page)
	}
}

// Апдейты обрабатываются в параллельных горутинах, так что кнопки одного
// вида могут нажиматься одновременно. Проверяется под -race.
func TestSessionConcurrentMoves(t *testing.T) {
	sess := &Session{Page: 1, TotalPages: fixedTotal(50), Render: echoRender}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, _, _, err := sess.Apply(context.Background(), MoveNext); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if sess.Page != 50 {
		t.Errorf("Page = %d, ожидалась 50", sess.Page)
	}
}

func TestParseMove(t *testing.T) {
	for _, m := range []Move{MoveFirst, MovePrev, MoveNext, MoveLast} {
		got, ok := ParseMove(m.String())
		if !ok || got != m {
			t.Errorf("ParseMove(%q) = %v, %v", m.String(), got, ok)
		}
	}
	if _, ok := ParseMove("sideways"); ok {
		t.Error("ParseMove приняла неизвестное действие")
	}
}

func TestStoreTTL(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	key := Key{ChatID: -1, MessageID: 7}
	store.Put(key, &Session{Page: 1, TotalPages: fixedTotal(1), Render: echoRender})

	if _, ok := store.Get(key); !ok {
		t.Fatal("свежая сессия не найдена")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := store.Get(key); ok {
		t.Error("просроченная сессия всё ещё доступна")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d после истечения", store.Len())
	}
}

func TestStoreGetProlongs(t *testing.T) {
	store := NewStore(60 * time.Millisecond)
	key := Key{ChatID: -1, MessageID: 7}
	store.Put(key, &Session{Page: 1, TotalPages: fixedTotal(1), Render: echoRender})

	// Регулярные обращения держат сессию живой дольше TTL
	for i := 0; i < 3; i++ {
		time.Sleep(40 * time.Millisecond)
		if _, ok := store.Get(key); !ok {
			t.Fatalf("сессия пропала на итерации %d", i)
		}
	}
}

func TestStoreSweep(t *testing.T) {
	store := NewStore(30 * time.Millisecond)
	for i := 0; i < 3; i++ {
		store.Put(Key{ChatID: -1, MessageID: i}, &Session{Page: 1, TotalPages: fixedTotal(1), Render: echoRender})
	}

	time.Sleep(50 * time.Millisecond)
	store.Put(Key{ChatID: -1, MessageID: 99}, &Session{Page: 1, TotalPages: fixedTotal(1), Render: echoRender})

	if removed := store.Sweep(); removed != 3 {
		t.Errorf("Sweep удалил %d, ожидалось 3", removed)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, ожидалось 1", store.Len())
	}
}
