package featured

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Интеграционные тесты гоняются против настоящей БД:
//
//	TEST_DATABASE_URL=postgres://... go test ./internal/features/featured
//
// Без переменной окружения (и с -short) пропускаются.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("пропуск интеграционного теста в -short")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("подключение к тестовой БД: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_points (
			user_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			points INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, chat_id)
		)`,
		`CREATE TABLE IF NOT EXISTS featured_messages (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			thread_id BIGINT NOT NULL,
			message_id BIGINT NOT NULL,
			author_id BIGINT NOT NULL,
			author_name VARCHAR(255) NOT NULL,
			featured_by_id BIGINT NOT NULL,
			featured_by_name VARCHAR(255) NOT NULL,
			featured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reason TEXT,
			bot_message_id BIGINT,
			UNIQUE (thread_id, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS monthly_points (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			points INTEGER NOT NULL DEFAULT 0,
			year_month CHAR(7) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, chat_id, year_month)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_owners (
			chat_id BIGINT NOT NULL,
			thread_id BIGINT NOT NULL,
			owner_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, thread_id)
		)`,
		`TRUNCATE user_points, featured_messages, monthly_points, thread_owners`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("подготовка схемы: %v", err)
		}
	}
	return pool
}

func testRecord(threadID, messageID, authorID int64) *FeaturedRecord {
	return &FeaturedRecord{
		ChatID:         -100500,
		ThreadID:       threadID,
		MessageID:      messageID,
		AuthorID:       authorID,
		AuthorName:     "Автор",
		FeaturedByID:   900,
		FeaturedByName: "Избиратель",
	}
}

func TestRepositoryAddAccumulatesPoints(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	ok, total, err := repo.Add(ctx, testRecord(1, 10, 5), 1)
	if err != nil || !ok || total != 1 {
		t.Fatalf("первое избрание: ok=%v total=%d err=%v", ok, total, err)
	}

	// Тот же автор в другой теме — баллы копятся
	ok, total, err = repo.Add(ctx, testRecord(2, 20, 5), 1)
	if err != nil || !ok || total != 2 {
		t.Fatalf("второе избрание: ok=%v total=%d err=%v", ok, total, err)
	}

	featuredNow, err := repo.IsFeatured(ctx, 1, 5)
	if err != nil || !featuredNow {
		t.Errorf("IsFeatured = %v, %v", featuredNow, err)
	}
}

func TestRepositoryAddDuplicateAuthorInThread(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	if ok, _, err := repo.Add(ctx, testRecord(1, 10, 5), 1); err != nil || !ok {
		t.Fatalf("первое избрание: %v", err)
	}

	// Другое сообщение того же автора в той же теме — уникальное ограничение
	ok, _, err := repo.Add(ctx, testRecord(1, 11, 5), 1)
	if err != nil {
		t.Fatalf("повтор должен быть тихим: %v", err)
	}
	if ok {
		t.Fatal("повторное избрание прошло")
	}

	// Баллы не задвоились
	st, err := repo.Stats(ctx, 5, -100500)
	if err != nil || st.Points != 1 {
		t.Errorf("Points = %d (err %v), ожидался 1", st.Points, err)
	}
}

func TestRepositoryRemoveRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	if ok, _, err := repo.Add(ctx, testRecord(1, 10, 5), 1); err != nil || !ok {
		t.Fatalf("избрание: %v", err)
	}

	ok, rec, err := repo.Remove(ctx, 10, 1, 1)
	if err != nil || !ok {
		t.Fatalf("отзыв: ok=%v err=%v", ok, err)
	}
	if rec.AuthorID != 5 {
		t.Errorf("возвращена не та запись: %+v", rec)
	}

	st, err := repo.Stats(ctx, 5, -100500)
	if err != nil || st.Points != 0 {
		t.Errorf("после отзыва Points = %d (err %v)", st.Points, err)
	}

	// Повторный отзыв — записи нет
	ok, _, err = repo.Remove(ctx, 10, 1, 1)
	if err != nil || ok {
		t.Errorf("повторный отзыв: ok=%v err=%v", ok, err)
	}

	// Автора снова можно избрать в теме
	if ok, _, err := repo.Add(ctx, testRecord(1, 12, 5), 1); err != nil || !ok {
		t.Errorf("переизбрание после отзыва: ok=%v err=%v", ok, err)
	}
}

// После любой последовательности избраний и отзывов реестр баллов
// сходится с записями.
func TestRepositoryReconciliation(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	for i := int64(0); i < 10; i++ {
		rec := testRecord(i%3+1, 100+i, i%4+1)
		if _, _, err := repo.Add(ctx, rec, 1); err != nil {
			t.Fatalf("избрание %d: %v", i, err)
		}
	}
	for _, msgID := range []int64{100, 103} {
		threadID := (msgID-100)%3 + 1
		if _, _, err := repo.Remove(ctx, msgID, threadID, 1); err != nil {
			t.Fatalf("отзыв %d: %v", msgID, err)
		}
	}

	drift, err := repo.ReconciliationDrift(ctx, 1)
	if err != nil {
		t.Fatalf("сверка: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("найдены расхождения: %+v", drift)
	}

	// Порча данных находится сверкой
	if _, err := pool.Exec(ctx, `UPDATE user_points SET points = points + 5 WHERE user_id = 2`); err != nil {
		t.Fatalf("порча данных: %v", err)
	}
	drift, err = repo.ReconciliationDrift(ctx, 1)
	if err != nil || len(drift) != 1 {
		t.Errorf("drift = %+v, err = %v, ожидалось одно расхождение", drift, err)
	}
}

func TestRepositoryUserRecordsPagination(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	// 12 избраний одного автора в разных темах
	for i := int64(0); i < 12; i++ {
		if ok, _, err := repo.Add(ctx, testRecord(100+i, 1000+i, 5), 1); err != nil || !ok {
			t.Fatalf("избрание %d: ok=%v err=%v", i, ok, err)
		}
	}

	records, totalPages, err := repo.UserRecords(ctx, 5, -100500, 1, 5)
	if err != nil {
		t.Fatalf("UserRecords: %v", err)
	}
	if totalPages != 3 || len(records) != 5 {
		t.Errorf("страница 1: %d записей, %d страниц", len(records), totalPages)
	}

	records, _, err = repo.UserRecords(ctx, 5, -100500, 3, 5)
	if err != nil || len(records) != 2 {
		t.Errorf("страница 3: %d записей, err=%v", len(records), err)
	}
}

func TestRepositoryThreadOwner(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	// Неизвестная тема — владельца нет
	owner, err := repo.ThreadOwner(ctx, -100500, 1)
	if err != nil || owner != 0 {
		t.Fatalf("ThreadOwner до записи: %d, %v", owner, err)
	}

	if err := repo.SetThreadOwner(ctx, -100500, 1, 7); err != nil {
		t.Fatalf("SetThreadOwner: %v", err)
	}
	owner, err = repo.ThreadOwner(ctx, -100500, 1)
	if err != nil || owner != 7 {
		t.Errorf("ThreadOwner = %d, %v, ожидалось 7", owner, err)
	}

	// Повторная запись не перетирает первого владельца
	if err := repo.SetThreadOwner(ctx, -100500, 1, 8); err != nil {
		t.Fatalf("повторный SetThreadOwner: %v", err)
	}
	owner, err = repo.ThreadOwner(ctx, -100500, 1)
	if err != nil || owner != 7 {
		t.Errorf("после повторной записи ThreadOwner = %d, %v, ожидалось 7", owner, err)
	}
}

func TestRepositorySetBotMessageID(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, true)
	ctx := context.Background()

	rec := testRecord(1, 10, 5)
	if ok, _, err := repo.Add(ctx, rec, 1); err != nil || !ok {
		t.Fatalf("избрание: %v", err)
	}

	if err := repo.SetBotMessageID(ctx, rec.ID, 777); err != nil {
		t.Fatalf("SetBotMessageID: %v", err)
	}

	got, err := repo.GetByMessage(ctx, 10, 1)
	if err != nil || got == nil {
		t.Fatalf("GetByMessage: %v", err)
	}
	if got.BotMessageID == nil || *got.BotMessageID != 777 {
		t.Errorf("bot_message_id = %v", got.BotMessageID)
	}
}
