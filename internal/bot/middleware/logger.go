// Package middleware содержит промежуточные обработчики: логирование
// входящих, ограничение частоты и восстановление после паники.
package middleware

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение: отправитель, чат, тема
// и первые 50 символов текста.
func LogMessage(message *telego.Message) {
	if message == nil || message.From == nil {
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if runes := []rune(text); len(runes) > 50 {
		text = string(runes[:50]) + "..."
	}

	log.WithFields(log.Fields{
		"user_id":   message.From.ID,
		"chat_id":   message.Chat.ID,
		"thread_id": message.MessageThreadID,
		"username":  message.From.Username,
		"text":      text,
	}).Debug("Входящее сообщение")
}
