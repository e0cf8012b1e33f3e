// handlers.go обрабатывает команду !заявка — запрос звания.
package appreciator

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
)

// Handler обрабатывает заявки на звание.
type Handler struct {
	service *Service
	bot     *telego.Bot
}

// NewHandler создаёт обработчик заявок.
func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleApply — команда !заявка. Сверяет показатели с порогами
// и при соответствии сразу выдаёт звание.
func (h *Handler) HandleApply(ctx context.Context, msg *telego.Message) {
	d, err := h.service.Apply(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка рассмотрения заявки")
		if d != nil && d.Eligible {
			h.reply(ctx, msg, "⚠️ Заявка одобрена, но выдать звание не вышло — повтори позже")
		} else {
			h.reply(ctx, msg, "❌ Не получилось рассмотреть заявку, попробуй позже")
		}
		return
	}

	if d.Eligible {
		h.reply(ctx, msg, fmt.Sprintf("🎖 Поздравляем, звание «%s» выдано!", h.service.Title()))
		return
	}

	text := "❌ Пока рано:\n"
	if d.MissingPoints > 0 {
		text += fmt.Sprintf("• не хватает %s\n", common.FormatPoints(d.MissingPoints))
	}
	if d.MissingReferrals > 0 {
		text += fmt.Sprintf("• нужно избрать ещё авторов: %d\n", d.MissingReferrals)
	}
	text += fmt.Sprintf("Сейчас: %s, избрано авторов: %d", common.FormatPoints(d.Points), d.Referrals)
	h.reply(ctx, msg, text)
}

func (h *Handler) reply(ctx context.Context, msg *telego.Message, text string) {
	_, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: msg.Chat.ID},
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: msg.MessageID},
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", msg.Chat.ID).Error("Ошибка отправки сообщения")
	}
}
