// markup.go — inline-клавиатура навигации и формат callback-данных.
package pagination

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
)

// callbackPrefix отличает навигационные кнопки от прочих callback-данных
const callbackPrefix = "pg:"

// CallbackData собирает данные кнопки для перехода.
func CallbackData(move Move) string {
	return callbackPrefix + move.String()
}

// ParseCallback разбирает callback-данные; ok=false для чужих данных.
func ParseCallback(data string) (Move, bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return 0, false
	}
	return ParseMove(strings.TrimPrefix(data, callbackPrefix))
}

// Keyboard строит клавиатуру навигации для текущей страницы.
// На единственной странице клавиатура не нужна — возвращается nil.
func Keyboard(page, totalPages int) *telego.InlineKeyboardMarkup {
	if totalPages <= 1 {
		return nil
	}

	row := []telego.InlineKeyboardButton{
		{Text: "⏮", CallbackData: CallbackData(MoveFirst)},
		{Text: "◀️", CallbackData: CallbackData(MovePrev)},
		{Text: fmt.Sprintf("%d/%d", page, totalPages), CallbackData: callbackPrefix + "noop"},
		{Text: "▶️", CallbackData: CallbackData(MoveNext)},
		{Text: "⏭", CallbackData: CallbackData(MoveLast)},
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{row}}
}
