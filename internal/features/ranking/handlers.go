// handlers.go обрабатывает команды !топ, !рефералы и !статистика.
package ranking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
	"serotonyl.ru/featured-bot/internal/features/admin"
	"serotonyl.ru/featured-bot/internal/pagination"
)

// Handler обрабатывает команды рейтингов.
type Handler struct {
	service *Service
	perms   *admin.Service
	bot     *telego.Bot
	views   *pagination.Store

	rankingPerPage int
	statsPerPage   int
	loc            *time.Location
}

// NewHandler создаёт обработчик рейтингов.
func NewHandler(service *Service, perms *admin.Service, bot *telego.Bot, views *pagination.Store,
	rankingPerPage, statsPerPage int, loc *time.Location,
) *Handler {
	return &Handler{
		service:        service,
		perms:          perms,
		bot:            bot,
		views:          views,
		rankingPerPage: rankingPerPage,
		statsPerPage:   statsPerPage,
		loc:            loc,
	}
}

// HandleTop — команда !топ [период]. Без аргумента показывает рейтинг
// текущего месяца; «!топ все» — за всё время, доступно не всем.
func (h *Handler) HandleTop(ctx context.Context, msg *telego.Message, args []string) {
	arg := ""
	if len(args) > 0 {
		arg = strings.ToLower(args[0])
	}

	window, err := h.service.ResolveWindow(arg, time.Now())
	if err != nil {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}

	if window.IsZero() {
		caps := h.perms.Resolve(ctx, msg.Chat.ID, msg.From.ID)
		if !caps.Has(admin.CapTotalRanking) {
			h.reply(ctx, msg, "❌ Рейтинг за всё время доступен только администраторам")
			return
		}
	}

	title := windowTitle(arg)
	chatID := msg.Chat.ID

	h.openView(ctx, msg, &pagination.Session{
		OwnerID: msg.From.ID,
		Page:    1,
		TotalPages: func(ctx context.Context) (int, error) {
			_, total, err := h.service.TopPoints(ctx, chatID, window, 1, h.rankingPerPage)
			return total, err
		},
		Render: func(ctx context.Context, page, totalPages int) (string, error) {
			entries, _, err := h.service.TopPoints(ctx, chatID, window, page, h.rankingPerPage)
			if err != nil {
				return "", err
			}
			return renderPointsPage(title, entries, page, totalPages), nil
		},
	})
}

// HandleReferrals — команда !рефералы [период]. Рейтинг избирателей
// по числу разных избранных ими авторов.
func (h *Handler) HandleReferrals(ctx context.Context, msg *telego.Message, args []string) {
	arg := ""
	if len(args) > 0 {
		arg = strings.ToLower(args[0])
	}

	window, err := h.service.ResolveWindow(arg, time.Now())
	if err != nil {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}

	title := windowTitle(arg)
	chatID := msg.Chat.ID

	h.openView(ctx, msg, &pagination.Session{
		OwnerID: msg.From.ID,
		Page:    1,
		TotalPages: func(ctx context.Context) (int, error) {
			_, total, err := h.service.TopReferrals(ctx, chatID, window, 1, h.rankingPerPage)
			return total, err
		},
		Render: func(ctx context.Context, page, totalPages int) (string, error) {
			entries, _, err := h.service.TopReferrals(ctx, chatID, window, page, h.rankingPerPage)
			if err != nil {
				return "", err
			}
			return renderReferralsPage(title, entries, page, totalPages), nil
		},
	})
}

// HandleThreadStats — команда !статистика внутри темы форума.
// Показывает избрания темы, отсортированные по известным реакциям.
func (h *Handler) HandleThreadStats(ctx context.Context, msg *telego.Message) {
	if msg.MessageThreadID == 0 {
		h.reply(ctx, msg, "❌ Статистика собирается по темам — вызови команду внутри темы")
		return
	}

	chatID := msg.Chat.ID
	threadID := int64(msg.MessageThreadID)
	loc := h.loc

	h.openView(ctx, msg, &pagination.Session{
		OwnerID: msg.From.ID,
		Page:    1,
		TotalPages: func(ctx context.Context) (int, error) {
			_, total, err := h.service.ThreadStats(ctx, chatID, threadID, 1, h.statsPerPage)
			return total, err
		},
		Render: func(ctx context.Context, page, totalPages int) (string, error) {
			entries, _, err := h.service.ThreadStats(ctx, chatID, threadID, page, h.statsPerPage)
			if err != nil {
				return "", err
			}
			return renderThreadPage(entries, page, totalPages, loc), nil
		},
	})
}

// openView отрисовывает первую страницу, отправляет её с клавиатурой
// и регистрирует сессию для callback-навигации.
func (h *Handler) openView(ctx context.Context, msg *telego.Message, sess *pagination.Session) {
	text, page, total, err := sess.Apply(ctx, pagination.MoveFirst)
	if err != nil {
		log.WithError(err).Error("Ошибка построения рейтинга")
		h.reply(ctx, msg, "❌ Не получилось построить список, попробуй позже")
		return
	}

	params := &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: msg.Chat.ID},
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
	}
	if kb := pagination.Keyboard(page, total); kb != nil {
		params.ReplyMarkup = kb
	}
	sent, err := h.bot.SendMessage(ctx, params)
	if err != nil {
		log.WithError(err).Error("Ошибка отправки рейтинга")
		return
	}

	h.views.Put(pagination.Key{ChatID: msg.Chat.ID, MessageID: sent.MessageID}, sess)
}

func windowTitle(arg string) string {
	switch arg {
	case "":
		return "за текущий месяц"
	case AllTimeWindow, "всё", "all":
		return "за всё время"
	default:
		return "за " + arg
	}
}

func renderPointsPage(title string, entries []*PointsEntry, page, totalPages int) string {
	if len(entries) == 0 {
		return "🏆 Рейтинг " + title + " пока пуст"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Рейтинг %s (стр. %d/%d):\n", title, page, totalPages)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s %s — %s", medal(e.Rank), e.Username, common.FormatPoints(e.Points))
	}
	return b.String()
}

func renderReferralsPage(title string, entries []*ReferralEntry, page, totalPages int) string {
	if len(entries) == 0 {
		return "🤝 Рейтинг избирателей " + title + " пока пуст"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🤝 Рейтинг избирателей %s (стр. %d/%d):\n", title, page, totalPages)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s %s — избрал авторов: %d", medal(e.Rank), e.Username, e.Referrals)
	}
	return b.String()
}

func renderThreadPage(entries []*ThreadEntry, page, totalPages int, loc *time.Location) string {
	if len(entries) == 0 {
		return "📊 В этой теме пока нет избранных сообщений"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Избранное темы (стр. %d/%d):\n", page, totalPages)
	for _, e := range entries {
		rec := e.Record
		fmt.Fprintf(&b, "\n• %s — %s", rec.AuthorName, common.FormatDateTime(rec.FeaturedAt, loc))
		if e.HasReactions {
			fmt.Fprintf(&b, ", реакций: %d", e.Reactions)
		}
		if rec.Reason != nil {
			fmt.Fprintf(&b, "\n  «%s»", *rec.Reason)
		}
	}
	return b.String()
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
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
