// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/bot"
	"serotonyl.ru/featured-bot/internal/bot/filters"
	"serotonyl.ru/featured-bot/internal/bot/middleware"
	"serotonyl.ru/featured-bot/internal/cache"
	"serotonyl.ru/featured-bot/internal/config"
	"serotonyl.ru/featured-bot/internal/db/postgres"
	"serotonyl.ru/featured-bot/internal/features/admin"
	"serotonyl.ru/featured-bot/internal/features/appreciator"
	"serotonyl.ru/featured-bot/internal/features/featured"
	"serotonyl.ru/featured-bot/internal/features/ranking"
	"serotonyl.ru/featured-bot/internal/health"
	"serotonyl.ru/featured-bot/internal/jobs"
	"serotonyl.ru/featured-bot/internal/pagination"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Health    *health.Server
	DB        *pgxpool.Pool
	API       *telego.Bot
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	api, err := telego.NewBot(cfg.TelegramBotToken,
		telego.WithDefaultLogger(cfg.AppEnv == "development", true))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}

	me, err := api.GetMe(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка авторизации бота: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	loc, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC", cfg.AppTimezone)
		loc = time.UTC
	}

	// === 3. Общая память процесса ===
	views := pagination.NewStore(cfg.ViewTimeout)
	reactions := cache.NewReactions(cfg.ReactionCacheTTL)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// === 4. Репозитории ===
	featuredRepo := featured.NewRepository(pool, cfg.FeatureMonthlyMirrorEnabled)
	rankingRepo := ranking.NewRepository(pool, cfg.PointsPerFeature)

	// === 5. Сервисы ===
	gateway := bot.NewGateway(api)
	adminService := admin.NewService(cfg.AdminIDs, cfg.AdminPasswordHash, gateway.MemberStatus)
	validator := featured.NewValidator(cfg.MinMessageLength)
	featuredService := featured.NewService(featuredRepo, validator, cfg.PointsPerFeature)
	rankingService := ranking.NewService(rankingRepo, reactions, loc)
	appreciatorService := appreciator.NewService(featuredService, gateway,
		cfg.AppreciatorRoleTitle, cfg.AppreciatorMinPoints, cfg.AppreciatorMinReferrals)

	// === 6. Обработчики ===
	featuredHandler := featured.NewHandler(featuredService, adminService, api, views, cfg.RecordsPerPage)
	rankingHandler := ranking.NewHandler(rankingService, adminService, api, views,
		cfg.RankingPerPage, cfg.ThreadStatsPerPage, loc)
	adminHandler := admin.NewHandler(adminService, api)
	appreciatorHandler := appreciator.NewHandler(appreciatorService, api)

	// === 7. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.CommunityChatID, api)

	// === 8. Собираем бота ===
	b := bot.New(
		api, cfg,
		chatFilter, rateLimiter, views, reactions,
		featuredHandler, rankingHandler, adminHandler, appreciatorHandler,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.New(
		cron.New(cron.WithLocation(loc)),
		views, reactions, rateLimiter, adminService,
		featuredRepo, cfg.PointsPerFeature,
	)

	// === 10. Health-эндпоинт ===
	healthSrv := health.NewServer(cfg.HealthAddr, pool)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Health:    healthSrv,
		DB:        pool,
		API:       api,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001UserPoints},
		{2, migration002FeaturedMessages},
		{3, migration003MonthlyPoints},
		{4, migration004BotMessageID},
		{5, migration005ThreadOwners},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001UserPoints = `
CREATE TABLE IF NOT EXISTS user_points (
    user_id BIGINT NOT NULL,
    chat_id BIGINT NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    points INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, chat_id)
);
CREATE INDEX IF NOT EXISTS idx_user_points_ranking ON user_points(chat_id, points DESC);
`

var migration002FeaturedMessages = `
CREATE TABLE IF NOT EXISTS featured_messages (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    thread_id BIGINT NOT NULL,
    message_id BIGINT NOT NULL,
    author_id BIGINT NOT NULL,
    author_name VARCHAR(255) NOT NULL,
    featured_by_id BIGINT NOT NULL,
    featured_by_name VARCHAR(255) NOT NULL,
    featured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    reason TEXT,
    UNIQUE (thread_id, author_id)
);
CREATE INDEX IF NOT EXISTS idx_featured_message ON featured_messages(message_id, thread_id);
CREATE INDEX IF NOT EXISTS idx_featured_author ON featured_messages(chat_id, author_id);
CREATE INDEX IF NOT EXISTS idx_featured_by ON featured_messages(chat_id, featured_by_id);
CREATE INDEX IF NOT EXISTS idx_featured_at ON featured_messages(chat_id, featured_at DESC);
CREATE INDEX IF NOT EXISTS idx_featured_thread ON featured_messages(chat_id, thread_id);
`

var migration003MonthlyPoints = `
CREATE TABLE IF NOT EXISTS monthly_points (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    chat_id BIGINT NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    points INTEGER NOT NULL DEFAULT 0,
    year_month CHAR(7) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, chat_id, year_month)
);
CREATE INDEX IF NOT EXISTS idx_monthly_points_month ON monthly_points(chat_id, year_month);
`

var migration004BotMessageID = `
ALTER TABLE featured_messages ADD COLUMN IF NOT EXISTS bot_message_id BIGINT;
`

var migration005ThreadOwners = `
CREATE TABLE IF NOT EXISTS thread_owners (
    chat_id BIGINT NOT NULL,
    thread_id BIGINT NOT NULL,
    owner_id BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (chat_id, thread_id)
);
`
