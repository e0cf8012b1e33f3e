// handlers.go обрабатывает парольный вход /login и выход /logout в личке.
package admin

import (
	"context"
	"errors"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
)

// Handler обрабатывает административные команды.
type Handler struct {
	service *Service
	bot     *telego.Bot
}

// NewHandler создаёт административный обработчик.
func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleLogin — команда /login <пароль>. Работает только в личке:
// пароль не должен светиться в общем чате.
func (h *Handler) HandleLogin(ctx context.Context, msg *telego.Message, args []string) {
	if msg.Chat.Type != telego.ChatTypePrivate {
		h.send(ctx, msg.Chat.ID, "❌ Входить нужно в личных сообщениях")
		return
	}
	if len(args) != 1 {
		h.send(ctx, msg.Chat.ID, "❌ Формат: /login <пароль>")
		return
	}

	err := h.service.Login(msg.From.ID, args[0])
	switch {
	case err == nil:
		h.send(ctx, msg.Chat.ID, "✅ Сессия администратора открыта")
	case errors.Is(err, common.ErrWrongPassword):
		h.send(ctx, msg.Chat.ID, "❌ Неверный пароль")
	case errors.Is(err, common.ErrTooManyAttempts):
		h.send(ctx, msg.Chat.ID, "❌ Слишком много попыток, подожди час")
	case errors.Is(err, common.ErrNotPermitted):
		h.send(ctx, msg.Chat.ID, "❌ Парольный вход выключен")
	default:
		log.WithError(err).Error("Ошибка входа администратора")
		h.send(ctx, msg.Chat.ID, "❌ Не получилось войти, попробуй позже")
	}
}

// HandleLogout — команда /logout.
func (h *Handler) HandleLogout(ctx context.Context, msg *telego.Message) {
	h.service.Logout(msg.From.ID)
	h.send(ctx, msg.Chat.ID, "✅ Сессия закрыта")
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	_, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
