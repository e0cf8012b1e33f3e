// repository.go — запросы рейтингов к user_points и featured_messages.
//
// Рейтинг за всё время читается прямо из реестра баллов. Рейтинг за период
// пересчитывается из записей об избрании, отфильтрованных по featured_at:
// реестр хранит только текущую сумму и не знает, когда баллы начислялись.
package ranking

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/featured-bot/internal/features/featured"
)

// Repository выполняет запросы рейтингов.
type Repository struct {
	db               *pgxpool.Pool
	pointsPerFeature int
}

// NewRepository создаёт репозиторий рейтингов.
func NewRepository(db *pgxpool.Pool, pointsPerFeature int) *Repository {
	return &Repository{db: db, pointsPerFeature: pointsPerFeature}
}

// TopByPoints возвращает страницу рейтинга по баллам и общее число страниц.
func (r *Repository) TopByPoints(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*PointsEntry, int, error) {
	if window.IsZero() {
		return r.topAllTime(ctx, chatID, page, perPage)
	}
	return r.topWindowed(ctx, chatID, window, page, perPage)
}

func (r *Repository) topAllTime(ctx context.Context, chatID int64, page, perPage int) ([]*PointsEntry, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_points
		WHERE chat_id = $1
	`, chatID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта участников рейтинга: %w", err)
	}

	offset := (page - 1) * perPage
	// Нули и минусы остаются на доске: реестр хранит их мягко,
	// а минус — след вмешательства, который нельзя прятать
	rows, err := r.db.Query(ctx, `
		SELECT user_id, username, points FROM user_points
		WHERE chat_id = $1
		ORDER BY points DESC, user_id
		LIMIT $2 OFFSET $3
	`, chatID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения рейтинга: %w", err)
	}
	defer rows.Close()

	var entries []*PointsEntry
	for rows.Next() {
		e := &PointsEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Points); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования: %w", err)
		}
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	return entries, totalPages(total, perPage), rows.Err()
}

func (r *Repository) topWindowed(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*PointsEntry, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT author_id) FROM featured_messages
		WHERE chat_id = $1 AND featured_at >= $2 AND featured_at < $3
	`, chatID, window.From, window.To).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта участников рейтинга: %w", err)
	}

	offset := (page - 1) * perPage
	// Имя берём из самой свежей записи периода
	rows, err := r.db.Query(ctx, `
		SELECT author_id,
		       (array_agg(author_name ORDER BY featured_at DESC))[1],
		       COUNT(*)
		FROM featured_messages
		WHERE chat_id = $1 AND featured_at >= $2 AND featured_at < $3
		GROUP BY author_id
		ORDER BY COUNT(*) DESC, author_id
		LIMIT $4 OFFSET $5
	`, chatID, window.From, window.To, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения рейтинга за период: %w", err)
	}
	defer rows.Close()

	var entries []*PointsEntry
	for rows.Next() {
		e := &PointsEntry{}
		var count int
		if err := rows.Scan(&e.UserID, &e.Username, &count); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования: %w", err)
		}
		e.Points = count * r.pointsPerFeature
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	return entries, totalPages(total, perPage), rows.Err()
}

// TopByReferrals возвращает страницу рейтинга избирателей: пользователи,
// отсортированные по числу разных избранных ими авторов. Повторные
// избрания одного автора (в разных темах) считаются один раз.
func (r *Repository) TopByReferrals(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*ReferralEntry, int, error) {
	from, to := window.From, window.To
	windowed := !window.IsZero()

	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT featured_by_id) FROM featured_messages
		WHERE chat_id = $1
		  AND (NOT $2 OR (featured_at >= $3 AND featured_at < $4))
	`, chatID, windowed, from, to).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта избирателей: %w", err)
	}

	offset := (page - 1) * perPage
	// Текущее имя из реестра баллов, иначе снимок из последней записи
	rows, err := r.db.Query(ctx, `
		SELECT fm.featured_by_id,
		       COALESCE(up.username, (array_agg(fm.featured_by_name ORDER BY fm.featured_at DESC))[1]),
		       COUNT(DISTINCT fm.author_id)
		FROM featured_messages fm
		LEFT JOIN user_points up
		       ON up.user_id = fm.featured_by_id AND up.chat_id = fm.chat_id
		WHERE fm.chat_id = $1
		  AND (NOT $2 OR (fm.featured_at >= $3 AND fm.featured_at < $4))
		GROUP BY fm.featured_by_id, up.username
		ORDER BY COUNT(DISTINCT fm.author_id) DESC, fm.featured_by_id
		LIMIT $5 OFFSET $6
	`, chatID, windowed, from, to, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения рейтинга избирателей: %w", err)
	}
	defer rows.Close()

	var entries []*ReferralEntry
	for rows.Next() {
		e := &ReferralEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Referrals); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования: %w", err)
		}
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	return entries, totalPages(total, perPage), rows.Err()
}

// ThreadRecords возвращает все избрания темы, свежие первыми.
// Сортировку по реакциям и разбивку на страницы делает сервис:
// счётчики реакций живут в кэше процесса, а не в БД.
func (r *Repository) ThreadRecords(ctx context.Context, chatID, threadID int64) ([]*featured.FeaturedRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, thread_id, message_id, author_id, author_name,
		       featured_by_id, featured_by_name, featured_at, reason, bot_message_id
		FROM featured_messages
		WHERE chat_id = $1 AND thread_id = $2
		ORDER BY featured_at DESC
	`, chatID, threadID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения избраний темы: %w", err)
	}
	defer rows.Close()

	var records []*featured.FeaturedRecord
	for rows.Next() {
		rec := &featured.FeaturedRecord{}
		err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.ThreadID, &rec.MessageID,
			&rec.AuthorID, &rec.AuthorName, &rec.FeaturedByID, &rec.FeaturedByName,
			&rec.FeaturedAt, &rec.Reason, &rec.BotMessageID,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func totalPages(total, perPage int) int {
	return (total + perPage - 1) / perPage
}
