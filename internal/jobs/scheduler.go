// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: регулярные уборки памяти
// и ночную сверку реестра баллов с записями об избрании.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/bot/middleware"
	"serotonyl.ru/featured-bot/internal/cache"
	"serotonyl.ru/featured-bot/internal/features/admin"
	"serotonyl.ru/featured-bot/internal/features/featured"
	"serotonyl.ru/featured-bot/internal/pagination"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron *cron.Cron

	views       *pagination.Store
	reactions   *cache.Reactions
	rateLimiter *middleware.RateLimiter
	adminSvc    *admin.Service

	featuredRepo     *featured.Repository
	pointsPerFeature int
}

// New создаёт планировщик со всеми зависимостями.
func New(
	c *cron.Cron,
	views *pagination.Store,
	reactions *cache.Reactions,
	rateLimiter *middleware.RateLimiter,
	adminSvc *admin.Service,
	featuredRepo *featured.Repository,
	pointsPerFeature int,
) *Scheduler {
	return &Scheduler{
		cron:             c,
		views:            views,
		reactions:        reactions,
		rateLimiter:      rateLimiter,
		adminSvc:         adminSvc,
		featuredRepo:     featuredRepo,
		pointsPerFeature: pointsPerFeature,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Уборка памяти каждые 5 минут: простаивающие виды, просроченные
	// счётчики реакций, пустые окна rate limit, истёкшие сессии
	s.cron.AddFunc("*/5 * * * *", func() {
		views := s.views.Sweep()
		reactions := s.reactions.Evict()
		limiter := s.rateLimiter.Sweep()
		sessions := s.adminSvc.SweepSessions()
		log.WithFields(log.Fields{
			"views":     views,
			"reactions": reactions,
			"limiter":   limiter,
			"sessions":  sessions,
		}).Debug("[CRON] Уборка памяти")
	})

	// Ночная сверка: баллы должны сходиться с записями об избрании
	s.cron.AddFunc("0 3 * * *", func() {
		log.Info("[CRON] Сверка реестра баллов")
		drift, err := s.featuredRepo.ReconciliationDrift(ctx, s.pointsPerFeature)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки")
			return
		}
		if len(drift) == 0 {
			log.Info("[CRON] Сверка прошла: расхождений нет")
			return
		}
		for _, d := range drift {
			log.WithFields(log.Fields{
				"user_id":  d.UserID,
				"chat_id":  d.ChatID,
				"username": d.Username,
				"points":   d.Points,
				"expected": d.Expected,
			}).Warn("[CRON] Расхождение баллов")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и дожидается текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
