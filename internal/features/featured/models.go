// Package featured реализует систему избранных сообщений:
// реестр записей об избрании и связанный с ним реестр баллов.
// models.go описывает структуры таблиц user_points, featured_messages
// и monthly_points.
package featured

import "time"

// UserPoints — накопленные баллы пользователя в рамках одного чата.
// Создаётся при первом начислении, никогда не удаляется
// (после отзывов может остаться на нуле или уйти в минус).
type UserPoints struct {
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Username  string    `db:"username"` // последнее виденное имя, перезаписывается при каждом начислении
	Points    int       `db:"points"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FeaturedRecord — запись об избрании одного сообщения.
// Инвариант: не более одной записи на пару (thread_id, author_id) —
// автора можно избрать в теме только один раз, независимо от того,
// какое сообщение и кто избирает.
type FeaturedRecord struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	ThreadID       int64     `db:"thread_id"`
	MessageID      int64     `db:"message_id"`
	AuthorID       int64     `db:"author_id"`
	AuthorName     string    `db:"author_name"` // снимок имени на момент избрания
	FeaturedByID   int64     `db:"featured_by_id"`
	FeaturedByName string    `db:"featured_by_name"`
	FeaturedAt     time.Time `db:"featured_at"`
	Reason         *string   `db:"reason"`         // причина избрания (опционально)
	BotMessageID   *int64    `db:"bot_message_id"` // ID уведомления бота, для последующей уборки
}

// Stats — сводка по пользователю: баллы, сколько раз его избирали
// и скольких разных авторов он избрал сам (рефералы).
type Stats struct {
	UserID        int64
	Username      string
	Points        int
	FeaturedCount int
	ReferralCount int
}

// DriftRow — расхождение реестра баллов с записями об избрании.
// В норме points == pointsPerFeature * featured_count для каждого пользователя;
// всё остальное — следы внешнего вмешательства в данные.
type DriftRow struct {
	UserID        int64
	ChatID        int64
	Username      string
	Points        int
	FeaturedCount int
	Expected      int
}
