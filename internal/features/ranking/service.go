// service.go — бизнес-логика рейтингов: выбор периода, сортировка
// сводки темы по реакциям и разбивка её на страницы.
package ranking

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"serotonyl.ru/featured-bot/internal/cache"
	"serotonyl.ru/featured-bot/internal/common"
	"serotonyl.ru/featured-bot/internal/features/featured"
)

// Store — доступ к данным рейтингов. Реализуется Repository.
type Store interface {
	TopByPoints(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*PointsEntry, int, error)
	TopByReferrals(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*ReferralEntry, int, error)
	ThreadRecords(ctx context.Context, chatID, threadID int64) ([]*featured.FeaturedRecord, error)
}

// ReactionSource отдаёт последний известный счётчик реакций сообщения.
type ReactionSource interface {
	Get(key cache.MessageKey) (int, bool)
}

// Service — сервис рейтингов.
type Service struct {
	store     Store
	reactions ReactionSource
	loc       *time.Location
}

// NewService создаёт сервис рейтингов. loc задаёт часовой пояс
// для границ месяцев и дней.
func NewService(store Store, reactions ReactionSource, loc *time.Location) *Service {
	return &Service{store: store, reactions: reactions, loc: loc}
}

var yearMonthRx = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// AllTimeWindow — запрошен рейтинг за всё время.
// Показывается только обладателям соответствующего права.
const AllTimeWindow = "все"

// ResolveWindow переводит аргумент команды в интервал дат.
// Пустой аргумент — текущий месяц, «все» — за всё время (нулевой интервал),
// «ГГГГ-ММ» — конкретный месяц, число — последние N дней.
func (s *Service) ResolveWindow(arg string, now time.Time) (DateRange, error) {
	switch {
	case arg == "":
		from, to, err := common.MonthRange(common.YearMonth(now.In(s.loc)), s.loc)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{From: from, To: to}, nil

	case arg == AllTimeWindow || arg == "всё" || arg == "all":
		return DateRange{}, nil

	case yearMonthRx.MatchString(arg):
		from, to, err := common.MonthRange(arg, s.loc)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{From: from, To: to}, nil
	}

	if days, err := strconv.Atoi(arg); err == nil && days > 0 && days <= 366 {
		now = now.In(s.loc)
		return DateRange{From: now.AddDate(0, 0, -days), To: now}, nil
	}

	return DateRange{}, fmt.Errorf("непонятный период %q: ожидается «все», ГГГГ-ММ или число дней", arg)
}

// TopPoints возвращает страницу рейтинга по баллам.
func (s *Service) TopPoints(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*PointsEntry, int, error) {
	return s.store.TopByPoints(ctx, chatID, window, page, perPage)
}

// TopReferrals возвращает страницу рейтинга избирателей.
func (s *Service) TopReferrals(ctx context.Context, chatID int64, window DateRange, page, perPage int) ([]*ReferralEntry, int, error) {
	return s.store.TopByReferrals(ctx, chatID, window, page, perPage)
}

// ThreadStats возвращает страницу сводки темы: избрания, отсортированные
// по известным счётчикам реакций. Сообщения без счётчика в кэше идут после
// сообщений со счётчиком, внутри групп — свежие первыми.
func (s *Service) ThreadStats(ctx context.Context, chatID, threadID int64, page, perPage int) ([]*ThreadEntry, int, error) {
	records, err := s.store.ThreadRecords(ctx, chatID, threadID)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*ThreadEntry, 0, len(records))
	for _, rec := range records {
		e := &ThreadEntry{Record: rec}
		key := cache.MessageKey{ChatID: rec.ChatID, MessageID: rec.MessageID}
		if count, ok := s.reactions.Get(key); ok {
			e.Reactions = count
			e.HasReactions = true
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasReactions != b.HasReactions {
			return a.HasReactions
		}
		if a.Reactions != b.Reactions {
			return a.Reactions > b.Reactions
		}
		return a.Record.FeaturedAt.After(b.Record.FeaturedAt)
	})

	total := (len(entries) + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start >= len(entries) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], total, nil
}
