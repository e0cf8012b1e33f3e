// handlers.go обрабатывает команды !избрать, !отозвать, !баллы и !избранное.
package featured

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
	"serotonyl.ru/featured-bot/internal/features/admin"
	"serotonyl.ru/featured-bot/internal/pagination"
)

// Handler обрабатывает команды избранного.
type Handler struct {
	service *Service
	perms   *admin.Service
	bot     *telego.Bot
	views   *pagination.Store
	perPage int
}

// NewHandler создаёт обработчик команд избранного.
func NewHandler(service *Service, perms *admin.Service, bot *telego.Bot, views *pagination.Store, perPage int) *Handler {
	return &Handler{
		service: service,
		perms:   perms,
		bot:     bot,
		views:   views,
		perPage: perPage,
	}
}

// RememberThreadOwner фиксирует автора созданной темы.
func (h *Handler) RememberThreadOwner(ctx context.Context, chatID, threadID, ownerID int64) error {
	return h.service.RememberThreadOwner(ctx, chatID, threadID, ownerID)
}

// HandleFeature — команда !избрать [причина] в ответе на сообщение.
// Избирает отвеченное сообщение и начисляет автору баллы.
func (h *Handler) HandleFeature(ctx context.Context, msg *telego.Message, args []string) {
	target := msg.ReplyToMessage
	if target == nil {
		h.reply(ctx, msg, "❌ Ответь командой !избрать на сообщение, которое хочешь избрать")
		return
	}

	caps := h.perms.Resolve(ctx, msg.Chat.ID, msg.From.ID)
	if !allowedInThread(caps, admin.CapFeature, msg.From.ID, h.threadOwner(ctx, msg)) {
		h.reply(ctx, msg, "❌ Избирать сообщения может автор темы или администратор")
		return
	}

	var reason *string
	if len(args) > 0 {
		r := strings.Join(args, " ")
		reason = &r
	}

	req := FeatureRequest{
		ChatID:         msg.Chat.ID,
		ThreadID:       int64(msg.MessageThreadID),
		MessageID:      int64(target.MessageID),
		FeaturedByID:   msg.From.ID,
		FeaturedByName: common.DisplayName(msg.From.Username, msg.From.FirstName, msg.From.LastName),
		Reason:         reason,
		Candidate:      buildCandidate(target),
	}
	if target.From != nil {
		req.AuthorID = target.From.ID
		req.AuthorName = common.DisplayName(target.From.Username, target.From.FirstName, target.From.LastName)
	}

	rec, total, err := h.service.Feature(ctx, req)
	switch {
	case err == nil:

	case errors.Is(err, common.ErrSelfFeature):
		h.reply(ctx, msg, "❌ Нельзя избирать собственные сообщения")
		return
	case errors.Is(err, common.ErrAlreadyFeatured):
		h.reply(ctx, msg, "❌ Этот автор уже избран в данной теме")
		return
	case errors.Is(err, common.ErrNotAdmissible):
		reason := strings.TrimPrefix(err.Error(), common.ErrNotAdmissible.Error()+": ")
		h.reply(ctx, msg, "❌ Не подходит: "+reason)
		return
	default:
		log.WithError(err).Error("Ошибка избрания")
		h.reply(ctx, msg, "❌ Не получилось избрать сообщение, попробуй позже")
		return
	}

	text := fmt.Sprintf("⭐ Сообщение избрано!\n%s теперь в избранном темы (всего %s)",
		rec.AuthorName, common.FormatPoints(total))
	if rec.Reason != nil {
		text += "\nПричина: " + *rec.Reason
	}

	// Уведомление вешаем ответом на само избранное сообщение
	notice, err := h.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: msg.Chat.ID},
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: target.MessageID},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки уведомления об избрании")
		return
	}

	if err := h.service.AttachNotice(ctx, rec.ID, int64(notice.MessageID)); err != nil {
		log.WithError(err).WithField("record_id", rec.ID).Warn("Не удалось привязать уведомление")
	}
}

// HandleUnfeature — команда !отозвать в ответе на избранное сообщение.
// Снимает избрание и списывает баллы; уведомление бота убирается.
func (h *Handler) HandleUnfeature(ctx context.Context, msg *telego.Message) {
	target := msg.ReplyToMessage
	if target == nil {
		h.reply(ctx, msg, "❌ Ответь командой !отозвать на избранное сообщение")
		return
	}

	threadID := int64(msg.MessageThreadID)
	rec, err := h.service.Record(ctx, int64(target.MessageID), threadID)
	if err != nil {
		if errors.Is(err, common.ErrNotFeatured) {
			h.reply(ctx, msg, "❌ Это сообщение не избрано")
		} else {
			log.WithError(err).Error("Ошибка поиска избрания")
			h.reply(ctx, msg, "❌ Не получилось найти избрание, попробуй позже")
		}
		return
	}

	// Отозвать может избравший; чужие избрания — автор темы или модератор
	if rec.FeaturedByID != msg.From.ID {
		caps := h.perms.Resolve(ctx, msg.Chat.ID, msg.From.ID)
		if !allowedInThread(caps, admin.CapUnfeatureAny, msg.From.ID, h.threadOwner(ctx, msg)) {
			h.reply(ctx, msg, "❌ Отозвать чужое избрание может автор темы или администратор")
			return
		}
	}

	rec, err = h.service.Unfeature(ctx, int64(target.MessageID), threadID)
	if err != nil {
		if errors.Is(err, common.ErrNotFeatured) {
			h.reply(ctx, msg, "❌ Это сообщение уже не избрано")
		} else {
			log.WithError(err).Error("Ошибка отзыва избрания")
			h.reply(ctx, msg, "❌ Не получилось отозвать избрание, попробуй позже")
		}
		return
	}

	if rec.BotMessageID != nil {
		err := h.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    telego.ChatID{ID: rec.ChatID},
			MessageID: int(*rec.BotMessageID),
		})
		if err != nil {
			log.WithError(err).Debug("Не удалось убрать уведомление об избрании")
		}
	}

	h.reply(ctx, msg, fmt.Sprintf("↩️ Избрание отозвано, баллы %s списаны", rec.AuthorName))
}

// HandlePoints — команда !баллы. Показывает собственную сводку,
// а в ответе на чужое сообщение — сводку его автора.
func (h *Handler) HandlePoints(ctx context.Context, msg *telego.Message) {
	user := msg.From
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		user = msg.ReplyToMessage.From
	}

	st, err := h.service.Stats(ctx, user.ID, msg.Chat.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баллов")
		h.reply(ctx, msg, "❌ Не получилось узнать баллы, попробуй позже")
		return
	}

	name := common.DisplayName(user.Username, user.FirstName, user.LastName)
	h.reply(ctx, msg, fmt.Sprintf(
		"⭐ %s: %s\nИзбирали %d %s, избрал авторов: %d",
		name, common.FormatPoints(st.Points),
		st.FeaturedCount, common.PluralizeTimes(st.FeaturedCount),
		st.ReferralCount,
	))
}

// HandleRecords — команда !избранное. Открывает постраничный список
// сообщений, за которые пользователю начислены баллы.
func (h *Handler) HandleRecords(ctx context.Context, msg *telego.Message) {
	authorID := msg.From.ID
	chatID := msg.Chat.ID
	name := common.DisplayName(msg.From.Username, msg.From.FirstName, msg.From.LastName)

	sess := &pagination.Session{
		OwnerID: authorID,
		Page:    1,
		TotalPages: func(ctx context.Context) (int, error) {
			_, total, err := h.service.UserRecords(ctx, authorID, chatID, 1, h.perPage)
			return total, err
		},
		Render: func(ctx context.Context, page, totalPages int) (string, error) {
			records, _, err := h.service.UserRecords(ctx, authorID, chatID, page, h.perPage)
			if err != nil {
				return "", err
			}
			return renderRecordsPage(name, records, page, totalPages), nil
		},
	}

	text, page, total, err := sess.Apply(ctx, pagination.MoveFirst)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения избранного")
		h.reply(ctx, msg, "❌ Не получилось показать избранное, попробуй позже")
		return
	}

	params := &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: chatID},
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
	}
	if kb := pagination.Keyboard(page, total); kb != nil {
		params.ReplyMarkup = kb
	}
	sent, err := h.bot.SendMessage(ctx, params)
	if err != nil {
		log.WithError(err).Error("Ошибка отправки списка избранного")
		return
	}

	h.views.Put(pagination.Key{ChatID: chatID, MessageID: sent.MessageID}, sess)
}

func renderRecordsPage(name string, records []*FeaturedRecord, page, totalPages int) string {
	if len(records) == 0 {
		return fmt.Sprintf("⭐ У %s пока нет избранных сообщений", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⭐ Избранные сообщения %s (стр. %d/%d):\n", name, page, totalPages)
	for _, rec := range records {
		fmt.Fprintf(&b, "\n• %s — избрал %s", common.FormatDateTime(rec.FeaturedAt, nil), rec.FeaturedByName)
		if rec.Reason != nil {
			fmt.Fprintf(&b, "\n  «%s»", *rec.Reason)
		}
	}
	return b.String()
}

// allowedInThread решает, можно ли пользователю управлять избранием темы:
// нужное право либо авторство темы. ownerID == 0 означает, что автор
// темы боту не известен, и владельческий путь не срабатывает.
func allowedInThread(caps admin.Capability, need admin.Capability, userID, ownerID int64) bool {
	if caps.Has(need) {
		return true
	}
	return ownerID != 0 && ownerID == userID
}

// threadOwner возвращает автора темы команды, 0 — не известен.
func (h *Handler) threadOwner(ctx context.Context, msg *telego.Message) int64 {
	owner, err := h.service.ThreadOwner(ctx, msg.Chat.ID, int64(msg.MessageThreadID))
	if err != nil {
		log.WithError(err).Warn("Не удалось узнать автора темы")
		return 0
	}
	return owner
}

// buildCandidate переводит телеграмное сообщение в кандидата для валидатора.
func buildCandidate(m *telego.Message) Candidate {
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	return Candidate{
		AuthorIsBot: m.From == nil || m.From.IsBot || m.ViaBot != nil,
		HasEmbeds: m.Poll != nil || m.Dice != nil || m.Game != nil ||
			m.Location != nil || m.Venue != nil || m.Contact != nil,
		HasSticker: m.Sticker != nil,
		HasMedia: len(m.Photo) > 0 || m.Video != nil || m.Document != nil ||
			m.Animation != nil || m.Audio != nil || m.Voice != nil || m.VideoNote != nil,
		Text: text,
	}
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
