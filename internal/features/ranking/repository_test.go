package ranking

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testChatID = int64(-100500)

// Интеграционные тесты, см. комментарий в пакете featured.
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
		`TRUNCATE user_points, featured_messages`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("подготовка схемы: %v", err)
		}
	}
	return pool
}

func insertFeatured(t *testing.T, pool *pgxpool.Pool, threadID, authorID, byID int64, featuredAt time.Time) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO featured_messages
			(chat_id, thread_id, message_id, author_id, author_name,
			 featured_by_id, featured_by_name, featured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, testChatID, threadID, threadID*100000+authorID, authorID,
		fmt.Sprintf("автор%d", authorID), byID, fmt.Sprintf("избиратель%d", byID), featuredAt)
	if err != nil {
		t.Fatalf("вставка избрания: %v", err)
	}
}

func insertPoints(t *testing.T, pool *pgxpool.Pool, userID int64, points int) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO user_points (user_id, chat_id, username, points)
		VALUES ($1, $2, $3, $4)
	`, userID, testChatID, fmt.Sprintf("юзер%d", userID), points)
	if err != nil {
		t.Fatalf("вставка баллов: %v", err)
	}
}

func TestTopByPointsAllTimePagination(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, 1)
	ctx := context.Background()

	// 45 пользователей при 20 на страницу — 3 страницы
	for i := int64(1); i <= 45; i++ {
		insertPoints(t, pool, i, int(i))
	}

	entries, totalPages, err := repo.TopByPoints(ctx, testChatID, DateRange{}, 1, 20)
	if err != nil {
		t.Fatalf("TopByPoints: %v", err)
	}
	if totalPages != 3 || len(entries) != 20 {
		t.Fatalf("страница 1: %d строк, %d страниц", len(entries), totalPages)
	}
	if entries[0].UserID != 45 || entries[0].Points != 45 || entries[0].Rank != 1 {
		t.Errorf("первая строка: %+v", entries[0])
	}

	entries, _, err = repo.TopByPoints(ctx, testChatID, DateRange{}, 3, 20)
	if err != nil || len(entries) != 5 {
		t.Errorf("страница 3: %d строк, err=%v", len(entries), err)
	}
	if entries[0].Rank != 41 {
		t.Errorf("ранг первой строки 3-й страницы: %d", entries[0].Rank)
	}

	// Нулевые и отрицательные балансы остаются на доске, в самом хвосте
	insertPoints(t, pool, 100, 0)
	insertPoints(t, pool, 101, -1)
	entries, totalPages, err = repo.TopByPoints(ctx, testChatID, DateRange{}, 3, 20)
	if err != nil {
		t.Fatalf("TopByPoints: %v", err)
	}
	if totalPages != 3 || len(entries) != 7 {
		t.Fatalf("после нулей и минусов: %d строк, %d страниц", len(entries), totalPages)
	}
	if entries[5].UserID != 100 || entries[5].Points != 0 {
		t.Errorf("нулевой баланс: %+v", entries[5])
	}
	if entries[6].UserID != 101 || entries[6].Points != -1 || entries[6].Rank != 47 {
		t.Errorf("отрицательный баланс: %+v", entries[6])
	}
}

func TestTopByPointsWindowed(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, 1)
	ctx := context.Background()

	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

	// Автор 1: два избрания в марте; автор 2: одно в марте, одно в апреле
	insertFeatured(t, pool, 1, 1, 9, march)
	insertFeatured(t, pool, 2, 1, 9, march.Add(time.Hour))
	insertFeatured(t, pool, 3, 2, 9, march)
	insertFeatured(t, pool, 4, 2, 9, april)

	window := DateRange{
		From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	entries, totalPages, err := repo.TopByPoints(ctx, testChatID, window, 1, 20)
	if err != nil {
		t.Fatalf("TopByPoints: %v", err)
	}
	if totalPages != 1 || len(entries) != 2 {
		t.Fatalf("строк %d, страниц %d", len(entries), totalPages)
	}
	if entries[0].UserID != 1 || entries[0].Points != 2 {
		t.Errorf("первая строка: %+v", entries[0])
	}
	if entries[1].UserID != 2 || entries[1].Points != 1 {
		t.Errorf("вторая строка: %+v", entries[1])
	}
}

func TestTopByReferralsDeduplicates(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, 1)
	ctx := context.Background()

	now := time.Now()
	// Избиратель 9: автор 1 в двух темах (считается один раз) и автор 2
	insertFeatured(t, pool, 1, 1, 9, now)
	insertFeatured(t, pool, 2, 1, 9, now)
	insertFeatured(t, pool, 3, 2, 9, now)
	// Избиратель 8: один автор
	insertFeatured(t, pool, 4, 3, 8, now)

	entries, totalPages, err := repo.TopByReferrals(ctx, testChatID, DateRange{}, 1, 20)
	if err != nil {
		t.Fatalf("TopByReferrals: %v", err)
	}
	if totalPages != 1 || len(entries) != 2 {
		t.Fatalf("строк %d, страниц %d", len(entries), totalPages)
	}
	if entries[0].UserID != 9 || entries[0].Referrals != 2 {
		t.Errorf("первая строка: %+v", entries[0])
	}
	if entries[1].UserID != 8 || entries[1].Referrals != 1 {
		t.Errorf("вторая строка: %+v", entries[1])
	}

	// Имя без строки в user_points берётся из снимка записи
	if entries[0].Username != "избиратель9" {
		t.Errorf("имя без реестра: %q", entries[0].Username)
	}

	// А при наличии строки в реестре — текущее имя оттуда
	insertPoints(t, pool, 9, 3)
	entries, _, err = repo.TopByReferrals(ctx, testChatID, DateRange{}, 1, 20)
	if err != nil || entries[0].Username != "юзер9" {
		t.Errorf("имя из реестра: %q, err=%v", entries[0].Username, err)
	}
}

func TestThreadRecords(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, 1)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	insertFeatured(t, pool, 7, 1, 9, base)
	insertFeatured(t, pool, 7, 2, 9, base.Add(time.Minute))
	insertFeatured(t, pool, 8, 3, 9, base) // другая тема

	records, err := repo.ThreadRecords(ctx, testChatID, 7)
	if err != nil {
		t.Fatalf("ThreadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("записей %d, ожидалось 2", len(records))
	}
	// Свежие первыми
	if records[0].AuthorID != 2 || records[1].AuthorID != 1 {
		t.Errorf("порядок: %d, %d", records[0].AuthorID, records[1].AuthorID)
	}
}
