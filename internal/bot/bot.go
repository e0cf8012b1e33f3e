// Package bot содержит главный модуль бота — приём апдейтов,
// маршрутизацию команд и callback-кнопок.
package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/bot/filters"
	"serotonyl.ru/featured-bot/internal/bot/middleware"
	"serotonyl.ru/featured-bot/internal/cache"
	"serotonyl.ru/featured-bot/internal/config"
	"serotonyl.ru/featured-bot/internal/features/admin"
	"serotonyl.ru/featured-bot/internal/features/appreciator"
	"serotonyl.ru/featured-bot/internal/features/featured"
	"serotonyl.ru/featured-bot/internal/features/ranking"
	"serotonyl.ru/featured-bot/internal/pagination"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	views       *pagination.Store
	reactions   *cache.Reactions

	featuredHandler    *featured.Handler
	rankingHandler     *ranking.Handler
	adminHandler       *admin.Handler
	appreciatorHandler *appreciator.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *telego.Bot,
	cfg *config.Config,
	chatFilter *filters.ChatFilter,
	rateLimiter *middleware.RateLimiter,
	views *pagination.Store,
	reactions *cache.Reactions,
	featuredHandler *featured.Handler,
	rankingHandler *ranking.Handler,
	adminHandler *admin.Handler,
	appreciatorHandler *appreciator.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:                api,
		cfg:                cfg,
		chatFilter:         chatFilter,
		rateLimiter:        rateLimiter,
		views:              views,
		reactions:          reactions,
		featuredHandler:    featuredHandler,
		rankingHandler:     rankingHandler,
		adminHandler:       adminHandler,
		appreciatorHandler: appreciatorHandler,
		parser:             NewCommandParser(),
		inflight:           make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены контекста.
func (b *Bot) Start(ctx context.Context) error {
	allowed := []string{"message", "callback_query"}
	if b.cfg.FeatureReactionStatsEnabled {
		allowed = append(allowed, "message_reaction_count")
	}

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: allowed,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает апдейты...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	// Счётчики реакций складываем в кэш — по запросу Telegram их не отдаёт
	if update.MessageReactionCount != nil {
		b.handleReactionCount(update.MessageReactionCount)
		return
	}

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	// Создание темы запоминаем: её автор получает право избирать в ней
	if message.ForumTopicCreated != nil {
		if message.Chat.ID == b.cfg.CommunityChatID {
			threadID := int64(message.MessageThreadID)
			if threadID == 0 {
				threadID = int64(message.MessageID)
			}
			if err := b.featuredHandler.RememberThreadOwner(ctx, message.Chat.ID, threadID, message.From.ID); err != nil {
				log.WithError(err).Warn("Не удалось запомнить автора темы")
			}
		}
		return
	}

	if message.Text == "" && message.Caption == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")
	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, msg *telego.Message, cmd string, args []string) {
	switch cmd {
	case "start", "help", "помощь":
		b.sendMessage(ctx, msg.Chat.ID,
			"Я веду избранное сообщества.\n"+
				"!избрать [причина] — избрать сообщение (ответом)\n"+
				"!отозвать — снять избрание (ответом)\n"+
				"!баллы — твои баллы\n"+
				"!избранное — твои избранные сообщения\n"+
				"!топ [все | ГГГГ-ММ | дни] — рейтинг\n"+
				"!рефералы [период] — рейтинг избирателей\n"+
				"!статистика — избранное темы\n"+
				"!заявка — запросить звание\n"+
				"/login <пароль> — вход администратора (в личке)")

	case "избрать":
		b.featuredHandler.HandleFeature(ctx, msg, args)

	case "отозвать":
		b.featuredHandler.HandleUnfeature(ctx, msg)

	case "баллы":
		b.featuredHandler.HandlePoints(ctx, msg)

	case "избранное":
		b.featuredHandler.HandleRecords(ctx, msg)

	case "топ":
		b.rankingHandler.HandleTop(ctx, msg, args)

	case "рефералы":
		b.rankingHandler.HandleReferrals(ctx, msg, args)

	case "статистика":
		b.rankingHandler.HandleThreadStats(ctx, msg)

	case "заявка":
		if b.cfg.FeatureAppreciatorEnabled {
			b.appreciatorHandler.HandleApply(ctx, msg)
		} else {
			b.sendMessage(ctx, msg.Chat.ID, "🎖 Выдача званий временно отключена")
		}

	case "login", "войти":
		b.adminHandler.HandleLogin(ctx, msg, args)

	case "logout", "выйти":
		b.adminHandler.HandleLogout(ctx, msg)
	}
}

// handleReactionCount обновляет кэш счётчиков реакций.
func (b *Bot) handleReactionCount(upd *telego.MessageReactionCountUpdated) {
	if upd.Chat.ID != b.cfg.CommunityChatID {
		return
	}

	var total int
	for _, rc := range upd.Reactions {
		total += rc.TotalCount
	}

	b.reactions.Set(cache.MessageKey{
		ChatID:    upd.Chat.ID,
		MessageID: int64(upd.MessageID),
	}, total)
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// CommandParser парсит русские команды с префиксами !, . и /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return "", nil, false
	}

	// Команды в группах приходят как /cmd@имябота
	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
