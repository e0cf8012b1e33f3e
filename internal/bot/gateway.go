// gateway.go — тонкие адаптеры над Telegram API для сервисов,
// которым нельзя зависеть от транспорта напрямую.
package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"serotonyl.ru/featured-bot/internal/common"
)

// Gateway даёт сервисам доступ к нужным вызовам Telegram.
type Gateway struct {
	api *telego.Bot
}

// NewGateway создаёт шлюз над Telegram API.
func NewGateway(api *telego.Bot) *Gateway {
	return &Gateway{api: api}
}

// MemberStatus возвращает статус пользователя в чате.
// Используется сервисом прав как admin.StatusFunc.
func (g *Gateway) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	cm, err := g.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса статуса в чате: %w", err)
	}
	return cm.MemberStatus(), nil
}

// GrantTitle присваивает пользователю звание: Telegram показывает
// пользовательский титул только администраторам, поэтому выдаём
// минимальное админское право и ставим титул.
func (g *Gateway) GrantTitle(ctx context.Context, chatID, userID int64, title string) error {
	canInvite := true
	err := g.api.PromoteChatMember(ctx, &telego.PromoteChatMemberParams{
		ChatID:         telego.ChatID{ID: chatID},
		UserID:         userID,
		CanInviteUsers: &canInvite,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRoleGrantForbidden, err)
	}

	err = g.api.SetChatAdministratorCustomTitle(ctx, &telego.SetChatAdministratorCustomTitleParams{
		ChatID:      telego.ChatID{ID: chatID},
		UserID:      userID,
		CustomTitle: title,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRoleGrantForbidden, err)
	}
	return nil
}
