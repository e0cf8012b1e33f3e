// Package main — утилита обслуживания таблицы monthly_points.
// Выгружает указанный месяц в CSV и, если не передан -keep,
// удаляет выгруженные строки. Запускается руками или из cron хоста.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
	"serotonyl.ru/featured-bot/internal/config"
	"serotonyl.ru/featured-bot/internal/db/postgres"
)

func main() {
	var (
		month = flag.String("month", "", "месяц ГГГГ-ММ (по умолчанию прошлый)")
		out   = flag.String("out", "", "путь к CSV (по умолчанию monthly_points_<месяц>.csv)")
		keep  = flag.Bool("keep", false, "только выгрузить, не удалять")
	)
	flag.Parse()

	if *month == "" {
		*month = common.YearMonth(time.Now().AddDate(0, -1, 0))
	}
	if _, _, err := common.MonthRange(*month, nil); err != nil {
		log.WithError(err).Fatal("Некорректный -month")
	}
	if *out == "" {
		*out = fmt.Sprintf("monthly_points_%s.csv", *month)
	}

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

	rows, err := pool.Query(ctx, `
		SELECT user_id, chat_id, username, points, year_month
		FROM monthly_points
		WHERE year_month = $1
		ORDER BY chat_id, points DESC
	`, *month)
	if err != nil {
		log.WithError(err).Fatal("Ошибка выборки monthly_points")
	}
	defer rows.Close()

	f, err := os.Create(*out)
	if err != nil {
		log.WithError(err).Fatal("Не удалось создать файл выгрузки")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "chat_id", "username", "points", "year_month"}); err != nil {
		log.WithError(err).Fatal("Ошибка записи CSV")
	}

	var exported int
	for rows.Next() {
		var userID, chatID int64
		var username, yearMonth string
		var points int
		if err := rows.Scan(&userID, &chatID, &username, &points, &yearMonth); err != nil {
			log.WithError(err).Fatal("Ошибка сканирования строки")
		}
		record := []string{
			strconv.FormatInt(userID, 10),
			strconv.FormatInt(chatID, 10),
			username,
			strconv.Itoa(points),
			yearMonth,
		}
		if err := w.Write(record); err != nil {
			log.WithError(err).Fatal("Ошибка записи CSV")
		}
		exported++
	}
	if err := rows.Err(); err != nil {
		log.WithError(err).Fatal("Ошибка чтения строк")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		log.WithError(err).Fatal("Ошибка записи CSV")
	}

	log.Infof("Выгружено строк: %d → %s", exported, *out)

	if *keep {
		log.Info("Флаг -keep: строки оставлены в БД")
		return
	}

	tag, err := pool.Exec(ctx, `DELETE FROM monthly_points WHERE year_month = $1`, *month)
	if err != nil {
		log.WithError(err).Fatal("Ошибка удаления выгруженных строк")
	}
	log.Infof("Удалено строк за %s: %d", *month, tag.RowsAffected())
}
