// Package filters решает, обслуживать ли сообщение: бот живёт
// в одном сообществе и в личках его участников.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter проверяет доступ к боту.
type ChatFilter struct {
	communityChatID int64
	api             *telego.Bot
}

// NewChatFilter создаёт фильтр для чата сообщества.
func NewChatFilter(communityChatID int64, api *telego.Bot) *ChatFilter {
	return &ChatFilter{communityChatID: communityChatID, api: api}
}

// CheckAccess пропускает сообщения из чата сообщества и лички участников.
// Принадлежность к сообществу проверяется через Telegram API.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil || message.From == nil {
		return false
	}
	if f.communityChatID == 0 {
		log.WithField("component", "ChatFilter").Error("communityChatID не задан (ошибка конфигурации)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	// 1) Чат сообщества
	if chatID == f.communityChatID {
		return true
	}

	// 2) Личка: пускаем только участников сообщества
	if message.Chat.Type == telego.ChatTypePrivate {
		cm, err := f.api.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: telego.ChatID{ID: f.communityChatID},
			UserID: userID,
		})
		if err != nil {
			logger.WithError(err).Error("Не удалось проверить членство в сообществе")
			return false
		}

		switch cm.MemberStatus() {
		case telego.MemberStatusCreator, telego.MemberStatusAdministrator,
			telego.MemberStatusMember, telego.MemberStatusRestricted:
			logger.WithField("tg_status", cm.MemberStatus()).Debug("Доступ разрешён (личка участника)")
			return true
		default:
			logger.WithField("tg_status", cm.MemberStatus()).Info("Отказ: не участник сообщества")
			_, sendErr := f.api.SendMessage(ctx, &telego.SendMessageParams{
				ChatID: telego.ChatID{ID: chatID},
				Text:   "❌ Бот работает только для участников сообщества",
			})
			if sendErr != nil {
				logger.WithError(sendErr).Warn("Не удалось отправить отказ")
			}
			return false
		}
	}

	// 3) Остальные чаты игнорируем
	logger.Debug("Отказ: чужой чат")
	return false
}
