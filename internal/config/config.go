// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DBConfig содержит параметры подключения к PostgreSQL.
// Вынесено в отдельную структуру, чтобы CLI-утилиты (cleanup-monthly, dbcheck)
// могли загружать только её, без обязательного токена бота.
type DBConfig struct {
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	Host     string `envconfig:"DB_HOST" default:"postgres"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"botuser"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Name     string `envconfig:"DB_NAME" default:"featured_bot"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// LoadDB читает только настройки БД. Для CLI-утилит.
func LoadDB() (*DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию БД: %w", err)
	}
	return &cfg, nil
}

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" default:""`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную из AdminIDsRaw
	// ID форум-чата сообщества, в котором бот работает (темы = треды)
	CommunityChatID int64 `envconfig:"COMMUNITY_CHAT_ID" required:"true"`

	// --- Database ---
	DB DBConfig

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	// Argon2id-хеш пароля для повышения прав в личке (scripts/generate_hash.go)
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" default:""`

	// --- Избранное (баллы) ---
	PointsPerFeature int `envconfig:"POINTS_PER_FEATURE" default:"1"`
	// Минимальная длина избираемого сообщения (в символах, после trim)
	MinMessageLength int `envconfig:"MIN_MESSAGE_LENGTH" default:"10"`

	// --- Страницы списков ---
	RecordsPerPage     int `envconfig:"RECORDS_PER_PAGE" default:"5"`
	RankingPerPage     int `envconfig:"RANKING_PER_PAGE" default:"20"`
	ThreadStatsPerPage int `envconfig:"THREAD_STATS_PER_PAGE" default:"5"`
	// Время жизни пагинируемого вида без активности
	ViewTimeout time.Duration `envconfig:"VIEW_TIMEOUT" default:"5m"`

	// --- Кеш реакций ---
	ReactionCacheTTL time.Duration `envconfig:"REACTION_CACHE_TTL" default:"5s"`

	// --- Роль «Знаток» (заявки) ---
	AppreciatorRoleTitle    string `envconfig:"APPRECIATOR_ROLE_TITLE" default:"Знаток"`
	AppreciatorMinPoints    int    `envconfig:"APPRECIATOR_MIN_POINTS" default:"1"`
	AppreciatorMinReferrals int    `envconfig:"APPRECIATOR_MIN_REFERRALS" default:"3"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Health ---
	HealthAddr string `envconfig:"HEALTH_ADDR" default:":8080"`

	// --- Feature Flags ---
	FeatureAppreciatorEnabled   bool `envconfig:"FEATURE_APPRECIATOR_ENABLED" default:"true"`
	FeatureReactionStatsEnabled bool `envconfig:"FEATURE_REACTION_STATS_ENABLED" default:"true"`
	// Зеркалировать ли баллы в устаревшую таблицу monthly_points
	// (оставлено для совместимости со старыми выгрузками, см. cmd/cleanup-monthly)
	FeatureMonthlyMirrorEnabled bool `envconfig:"FEATURE_MONTHLY_MIRROR_ENABLED" default:"true"`
}

func (c *Config) Validate() error {
	if c.CommunityChatID == 0 {
		return fmt.Errorf("COMMUNITY_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DB.MaxConns <= 0 || c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.PointsPerFeature <= 0 {
		return fmt.Errorf("POINTS_PER_FEATURE должен быть > 0")
	}
	if c.MinMessageLength < 0 {
		return fmt.Errorf("MIN_MESSAGE_LENGTH не может быть отрицательным")
	}
	if c.RecordsPerPage <= 0 || c.RankingPerPage <= 0 || c.ThreadStatsPerPage <= 0 {
		return fmt.Errorf("размеры страниц должны быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
