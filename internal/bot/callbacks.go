// callbacks.go — обработка кнопок постраничной навигации.
package bot

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/pagination"
)

// handleCallback обрабатывает нажатие inline-кнопки.
func (b *Bot) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	move, ok := pagination.ParseCallback(query.Data)
	if !ok {
		b.answerCallback(ctx, query.ID, "")
		return
	}

	// Сообщение могло стать недоступным (вид слишком старый, чат почищен)
	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		b.answerCallback(ctx, query.ID, "Список устарел, вызови команду заново")
		return
	}

	key := pagination.Key{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	sess, ok := b.views.Get(key)
	if !ok {
		b.answerCallback(ctx, query.ID, "Список устарел, вызови команду заново")
		return
	}

	// Листает только открывший вид
	if sess.OwnerID != query.From.ID {
		b.answerCallback(ctx, query.ID, "Этот список открыл другой пользователь")
		return
	}

	before := sess.Page
	text, page, total, err := sess.Apply(ctx, move)
	if err != nil {
		log.WithError(err).Error("Ошибка перелистывания")
		b.answerCallback(ctx, query.ID, "Не получилось перелистнуть, попробуй ещё раз")
		return
	}

	// Telegram ругается на editMessageText без изменений
	if page == before && move != pagination.MoveFirst {
		b.answerCallback(ctx, query.ID, "")
		return
	}

	_, err = b.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      telego.ChatID{ID: msg.Chat.ID},
		MessageID:   msg.MessageID,
		Text:        text,
		ReplyMarkup: pagination.Keyboard(page, total),
	})
	if err != nil {
		log.WithError(err).Debug("Не удалось обновить страницу")
	}

	b.answerCallback(ctx, query.ID, "")
}

func (b *Bot) answerCallback(ctx context.Context, queryID, text string) {
	err := b.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
	if err != nil {
		log.WithError(err).Debug("Не удалось ответить на callback")
	}
}
