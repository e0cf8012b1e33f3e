// Package featured — repository.go выполняет операции с таблицами
// user_points, featured_messages и monthly_points.
// Запись об избрании и изменение баллов всегда идут в одной транзакции БД:
// либо происходит и то и другое, либо ничего.
package featured

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/featured-bot/internal/common"
)

// Код PostgreSQL «нарушение уникальности»
const uniqueViolationCode = "23505"

// Repository работает с реестром избранного и реестром баллов.
type Repository struct {
	db *pgxpool.Pool
	// Зеркалировать ли изменения баллов в устаревшую monthly_points
	mirrorMonthly bool
}

// NewRepository создаёт репозиторий избранного.
func NewRepository(db *pgxpool.Pool, mirrorMonthly bool) *Repository {
	return &Repository{db: db, mirrorMonthly: mirrorMonthly}
}

// awardPointsTx изменяет баллы пользователя внутри уже открытой транзакции.
// Создаёт нулевую запись при первом начислении, перезаписывает username
// последним виденным значением. Нижней границы нет: отзыв всегда
// соответствует реальному прошлому начислению (уникальное ограничение),
// так что минус возможен только после внешнего вмешательства в данные.
func (r *Repository) awardPointsTx(ctx context.Context, tx pgx.Tx, userID, chatID int64, username string, delta int) (int, error) {
	var newTotal int
	err := tx.QueryRow(ctx, `
		INSERT INTO user_points (user_id, chat_id, username, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET points = user_points.points + EXCLUDED.points,
		    username = EXCLUDED.username,
		    updated_at = NOW()
		RETURNING points
	`, userID, chatID, username, delta).Scan(&newTotal)
	if err != nil {
		return 0, fmt.Errorf("ошибка изменения баллов: %w", err)
	}

	if r.mirrorMonthly {
		yearMonth := common.YearMonth(time.Now())
		_, err = tx.Exec(ctx, `
			INSERT INTO monthly_points (user_id, chat_id, username, points, year_month)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, chat_id, year_month) DO UPDATE
			SET points = monthly_points.points + EXCLUDED.points,
			    username = EXCLUDED.username,
			    updated_at = NOW()
		`, userID, chatID, username, delta, yearMonth)
		if err != nil {
			return 0, fmt.Errorf("ошибка зеркалирования в monthly_points: %w", err)
		}
	}

	return newTotal, nil
}

// AwardPoints изменяет баллы пользователя в собственной транзакции.
// Для обычного потока избрания используйте Add/Remove — там изменение
// баллов сцеплено с записью об избрании.
func (r *Repository) AwardPoints(ctx context.Context, userID, chatID int64, username string, delta int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	newTotal, err := r.awardPointsTx(ctx, tx, userID, chatID, username, delta)
	if err != nil {
		return 0, err
	}
	return newTotal, tx.Commit(ctx)
}

// IsFeatured проверяет, избран ли автор в указанной теме.
// Быстрая предварительная проверка для дружелюбного отказа;
// настоящая защита от гонок — уникальное ограничение в Add.
func (r *Repository) IsFeatured(ctx context.Context, threadID, authorID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM featured_messages
			WHERE thread_id = $1 AND author_id = $2
		)
	`, threadID, authorID).Scan(&exists)
	return exists, err
}

// Add вставляет запись об избрании и начисляет delta баллов автору
// в одной транзакции. При нарушении уникальности (thread_id, author_id)
// возвращает ok=false без ошибки: это ожидаемый исход гонки, не сбой.
func (r *Repository) Add(ctx context.Context, rec *FeaturedRecord, delta int) (bool, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO featured_messages
			(chat_id, thread_id, message_id, author_id, author_name,
			 featured_by_id, featured_by_name, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, featured_at
	`, rec.ChatID, rec.ThreadID, rec.MessageID, rec.AuthorID, rec.AuthorName,
		rec.FeaturedByID, rec.FeaturedByName, rec.Reason,
	).Scan(&rec.ID, &rec.FeaturedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// Автор уже избран в этой теме — транзакция откатится, баллы не тронуты
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("ошибка вставки записи об избрании: %w", err)
	}

	newTotal, err := r.awardPointsTx(ctx, tx, rec.AuthorID, rec.ChatID, rec.AuthorName, delta)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, newTotal, nil
}

// Remove удаляет запись об избрании по (message_id, thread_id) и списывает
// delta баллов с автора в одной транзакции. Возвращает удалённую запись
// (для уборки уведомления) или ok=false, если записи нет.
func (r *Repository) Remove(ctx context.Context, messageID, threadID int64, delta int) (bool, *FeaturedRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, `
		SELECT id, chat_id, thread_id, message_id, author_id, author_name,
		       featured_by_id, featured_by_name, featured_at, reason, bot_message_id
		FROM featured_messages
		WHERE message_id = $1 AND thread_id = $2
		FOR UPDATE
	`, messageID, threadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("ошибка поиска записи об избрании: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM featured_messages WHERE id = $1`, rec.ID); err != nil {
		return false, nil, fmt.Errorf("ошибка удаления записи об избрании: %w", err)
	}

	if _, err := r.awardPointsTx(ctx, tx, rec.AuthorID, rec.ChatID, rec.AuthorName, -delta); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, rec, nil
}

// GetByMessage возвращает запись об избрании по (message_id, thread_id)
// или nil, если её нет.
func (r *Repository) GetByMessage(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `
		SELECT id, chat_id, thread_id, message_id, author_id, author_name,
		       featured_by_id, featured_by_name, featured_at, reason, bot_message_id
		FROM featured_messages
		WHERE message_id = $1 AND thread_id = $2
	`, messageID, threadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска записи об избрании: %w", err)
	}
	return rec, nil
}

// SetBotMessageID сохраняет ID уведомления бота для последующей уборки.
func (r *Repository) SetBotMessageID(ctx context.Context, recordID, botMessageID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE featured_messages SET bot_message_id = $2 WHERE id = $1
	`, recordID, botMessageID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения bot_message_id: %w", err)
	}
	return nil
}

// Stats возвращает сводку по пользователю: баллы, сколько раз его избирали
// и скольких разных авторов он избрал сам.
func (r *Repository) Stats(ctx context.Context, userID, chatID int64) (*Stats, error) {
	s := &Stats{UserID: userID}

	err := r.db.QueryRow(ctx, `
		SELECT username, points FROM user_points
		WHERE user_id = $1 AND chat_id = $2
	`, userID, chatID).Scan(&s.Username, &s.Points)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка чтения баллов: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       (SELECT COUNT(DISTINCT author_id) FROM featured_messages
		        WHERE featured_by_id = $1 AND chat_id = $2)
		FROM featured_messages
		WHERE author_id = $1 AND chat_id = $2
	`, userID, chatID).Scan(&s.FeaturedCount, &s.ReferralCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения статистики избраний: %w", err)
	}

	// Пользователь мог только избирать других и не иметь строки баллов —
	// добираем имя из последней его записи избрания
	if s.Username == "" {
		err = r.db.QueryRow(ctx, `
			SELECT featured_by_name FROM featured_messages
			WHERE featured_by_id = $1 AND chat_id = $2
			ORDER BY featured_at DESC
			LIMIT 1
		`, userID, chatID).Scan(&s.Username)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ошибка чтения имени: %w", err)
		}
	}

	return s, nil
}

// UserRecords возвращает страницу записей, где пользователь — избранный автор,
// и общее число страниц. Страницы нумеруются с 1.
func (r *Repository) UserRecords(ctx context.Context, authorID, chatID int64, page, perPage int) ([]*FeaturedRecord, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM featured_messages
		WHERE author_id = $1 AND chat_id = $2
	`, authorID, chatID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}

	totalPages := (total + perPage - 1) / perPage
	offset := (page - 1) * perPage

	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, thread_id, message_id, author_id, author_name,
		       featured_by_id, featured_by_name, featured_at, reason, bot_message_id
		FROM featured_messages
		WHERE author_id = $1 AND chat_id = $2
		ORDER BY featured_at DESC
		LIMIT $3 OFFSET $4
	`, authorID, chatID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения записей: %w", err)
	}
	defer rows.Close()

	var records []*FeaturedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		records = append(records, rec)
	}
	return records, totalPages, rows.Err()
}

// SetThreadOwner запоминает автора темы. Повторные вызовы не перетирают
// первого владельца.
func (r *Repository) SetThreadOwner(ctx context.Context, chatID, threadID, ownerID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO thread_owners (chat_id, thread_id, owner_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, thread_id) DO NOTHING
	`, chatID, threadID, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка записи владельца темы: %w", err)
	}
	return nil
}

// ThreadOwner возвращает автора темы или 0, если тема неизвестна
// (создана до появления бота в чате).
func (r *Repository) ThreadOwner(ctx context.Context, chatID, threadID int64) (int64, error) {
	var ownerID int64
	err := r.db.QueryRow(ctx, `
		SELECT owner_id FROM thread_owners
		WHERE chat_id = $1 AND thread_id = $2
	`, chatID, threadID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка поиска владельца темы: %w", err)
	}
	return ownerID, nil
}

// ReconciliationDrift находит пользователей, у которых баллы разошлись
// с числом записей об избрании (points != pointsPerFeature * count).
// Пустой результат — норма; любые строки означают внешнее вмешательство.
func (r *Repository) ReconciliationDrift(ctx context.Context, pointsPerFeature int) ([]*DriftRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(up.user_id, fc.author_id),
		       COALESCE(up.chat_id, fc.chat_id),
		       COALESCE(up.username, ''),
		       COALESCE(up.points, 0),
		       COALESCE(fc.cnt, 0)
		FROM user_points up
		FULL OUTER JOIN (
			SELECT author_id, chat_id, COUNT(*) AS cnt
			FROM featured_messages
			GROUP BY author_id, chat_id
		) fc ON fc.author_id = up.user_id AND fc.chat_id = up.chat_id
		WHERE COALESCE(up.points, 0) <> $1 * COALESCE(fc.cnt, 0)
	`, pointsPerFeature)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки согласованности: %w", err)
	}
	defer rows.Close()

	var drift []*DriftRow
	for rows.Next() {
		d := &DriftRow{}
		if err := rows.Scan(&d.UserID, &d.ChatID, &d.Username, &d.Points, &d.FeaturedCount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		d.Expected = pointsPerFeature * d.FeaturedCount
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

// scanRecord читает одну строку featured_messages в структуру.
func scanRecord(row pgx.Row) (*FeaturedRecord, error) {
	var rec FeaturedRecord
	err := row.Scan(
		&rec.ID, &rec.ChatID, &rec.ThreadID, &rec.MessageID,
		&rec.AuthorID, &rec.AuthorName, &rec.FeaturedByID, &rec.FeaturedByName,
		&rec.FeaturedAt, &rec.Reason, &rec.BotMessageID,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
