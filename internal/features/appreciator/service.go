// Package appreciator выдаёт звание «Знаток» участникам, которые
// набрали баллы и привели в избранное достаточно разных авторов.
package appreciator

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/features/featured"
)

// StatsProvider отдаёт сводку пользователя из системы избранного.
type StatsProvider interface {
	Stats(ctx context.Context, userID, chatID int64) (*featured.Stats, error)
}

// RoleGranter присваивает звание в чате. Реализуется ботом.
type RoleGranter interface {
	GrantTitle(ctx context.Context, chatID, userID int64, title string) error
}

// Decision — результат рассмотрения заявки.
type Decision struct {
	Eligible  bool
	Points    int
	Referrals int

	// Сколько не хватает до порогов; нули при Eligible
	MissingPoints    int
	MissingReferrals int
}

// Service рассматривает заявки на звание.
type Service struct {
	stats   StatsProvider
	granter RoleGranter

	title        string
	minPoints    int
	minReferrals int
}

// NewService создаёт сервис звания.
func NewService(stats StatsProvider, granter RoleGranter, title string, minPoints, minReferrals int) *Service {
	return &Service{
		stats:        stats,
		granter:      granter,
		title:        title,
		minPoints:    minPoints,
		minReferrals: minReferrals,
	}
}

// Title возвращает название звания.
func (s *Service) Title() string { return s.title }

// Apply рассматривает заявку пользователя: сверяет баллы и рефералов
// с порогами и при соответствии выдаёт звание. Неудача выдачи звания
// в Telegram возвращается как ошибка, решение при этом остаётся
// положительным — заявку можно повторить.
func (s *Service) Apply(ctx context.Context, chatID, userID int64) (*Decision, error) {
	st, err := s.stats.Stats(ctx, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения статистики: %w", err)
	}

	d := &Decision{Points: st.Points, Referrals: st.ReferralCount}
	if st.Points < s.minPoints {
		d.MissingPoints = s.minPoints - st.Points
	}
	if st.ReferralCount < s.minReferrals {
		d.MissingReferrals = s.minReferrals - st.ReferralCount
	}
	d.Eligible = d.MissingPoints == 0 && d.MissingReferrals == 0

	if !d.Eligible {
		return d, nil
	}

	if err := s.granter.GrantTitle(ctx, chatID, userID, s.title); err != nil {
		return d, fmt.Errorf("ошибка выдачи звания: %w", err)
	}

	log.WithFields(log.Fields{
		"chat_id": chatID,
		"user_id": userID,
		"title":   s.title,
	}).Info("Выдано звание")

	return d, nil
}
