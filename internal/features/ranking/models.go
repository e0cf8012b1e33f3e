// Package ranking строит рейтинги по баллам и рефералам
// и сводки по темам. models.go описывает строки рейтингов.
package ranking

import (
	"time"

	"serotonyl.ru/featured-bot/internal/features/featured"
)

// DateRange — полуоткрытый интервал [From, To) по времени избрания.
// Нулевой интервал означает «за всё время».
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero сообщает, задан ли интервал.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// PointsEntry — строка рейтинга по баллам.
type PointsEntry struct {
	Rank     int
	UserID   int64
	Username string
	Points   int
}

// ReferralEntry — строка рейтинга избирателей: сколько разных
// авторов пользователь избрал.
type ReferralEntry struct {
	Rank      int
	UserID    int64
	Username  string
	Referrals int
}

// ThreadEntry — избрание в сводке по теме вместе с последним известным
// счётчиком реакций. HasReactions=false значит, что счётчик не попадал
// в кэш, а не что реакций ноль.
type ThreadEntry struct {
	Record       *featured.FeaturedRecord
	Reactions    int
	HasReactions bool
}
