// Package main — проверка согласованности данных.
// Сверяет реестр баллов с записями об избрании: для каждого пользователя
// points == POINTS_PER_FEATURE * число записей. Код выхода 1 при
// расхождениях — удобно для мониторинга.
package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/config"
	"serotonyl.ru/featured-bot/internal/db/postgres"
	"serotonyl.ru/featured-bot/internal/features/featured"
)

func main() {
	pointsPerFeature := flag.Int("points-per-feature", 1, "баллов за одно избрание")
	fix := flag.Bool("fix", false, "привести баллы к ожидаемым значениям")
	flag.Parse()

	cfg, err := config.LoadDB()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию БД")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к БД")
	}
	defer pool.Close()

	repo := featured.NewRepository(pool, false)
	drift, err := repo.ReconciliationDrift(ctx, *pointsPerFeature)
	if err != nil {
		log.WithError(err).Fatal("Ошибка сверки")
	}

	if len(drift) == 0 {
		log.Info("Сверка прошла: реестр баллов согласован с избраниями")
		return
	}

	for _, d := range drift {
		log.WithFields(log.Fields{
			"user_id":        d.UserID,
			"chat_id":        d.ChatID,
			"username":       d.Username,
			"points":         d.Points,
			"featured_count": d.FeaturedCount,
			"expected":       d.Expected,
		}).Warn("Расхождение баллов")

		if *fix {
			delta := d.Expected - d.Points
			newTotal, err := repo.AwardPoints(ctx, d.UserID, d.ChatID, d.Username, delta)
			if err != nil {
				log.WithError(err).WithField("user_id", d.UserID).Error("Не удалось исправить баллы")
				continue
			}
			log.WithFields(log.Fields{
				"user_id": d.UserID,
				"delta":   delta,
				"points":  newTotal,
			}).Info("Баллы исправлены")
		}
	}

	if *fix {
		log.Infof("Исправлено расхождений: %d", len(drift))
		return
	}
	log.Errorf("Найдено расхождений: %d", len(drift))
	os.Exit(1)
}
