// Package main — точка входа бота.
// Загружает конфигурацию, инициализирует приложение и запускает.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/app"
	"serotonyl.ru/featured-bot/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== Бот запускается ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.DB.Close()

	application.Scheduler.Start(ctx)
	defer application.Scheduler.Stop()

	go func() {
		if err := application.Health.Start(); err != nil {
			log.WithError(err).Error("Health-сервер завершился")
		}
	}()
	defer func() {
		if err := application.Health.Shutdown(); err != nil {
			log.WithError(err).Warn("Ошибка остановки health-сервера")
		}
	}()

	// Запускаем бота в отдельной горутине
	botDone := make(chan error, 1)
	go func() {
		botDone <- application.Bot.Start(ctx)
	}()

	log.Info("=== Бот готов к работе ===")

	// Сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Получен сигнал %s, останавливаемся...", sig)
		cancel()
		<-botDone
	case err := <-botDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Бот завершился с ошибкой")
		}
	}

	log.Info("=== Бот остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
