// Package featured — validator.go проверяет, годится ли сообщение для избрания.
// Чистая функция без обращений к БД и сети: правила применяются по порядку,
// срабатывает первое подходящее.
package featured

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Candidate — всё, что валидатору нужно знать о сообщении-кандидате.
// Собирается обработчиком из телеграмного сообщения, чтобы сама проверка
// оставалась чистой и тестируемой.
type Candidate struct {
	AuthorIsBot bool   // автор — бот или сообщение отправлено через бота
	HasEmbeds   bool   // опросы, игры, геолокации и прочий «встроенный» контент
	HasSticker  bool   // стикер
	HasMedia    bool   // фото/видео/документ/анимация/аудио
	Text        string // текст или подпись к медиа
}

// Verdict — результат проверки. Reason заполняется только при отказе
// и показывается пользователю как есть.
type Verdict struct {
	Valid  bool
	Reason string
}

var (
	// Эмодзи и пиктограммы: основные блоки Unicode + селекторы вариантов,
	// ZWJ-связки и клавиши-капсулы.
	emojiRx = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{2190}-\x{21FF}\x{2300}-\x{23FF}\x{FE0E}\x{FE0F}\x{200D}\x{20E3}]`)
	// Разметка кастомных эмодзи вида :party_blob:
	shortcodeRx = regexp.MustCompile(`:[A-Za-z0-9_]+:`)

	// Спам-паттерны, проверяются после вычистки эмодзи
	allPunctRx    = regexp.MustCompile(`^[[:punct:]\s]+$`)
	bareLettersRx = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё]{1,3}$`)
	bareDigitsRx  = regexp.MustCompile(`^[0-9]{1,3}$`)
	punctRunRx    = regexp.MustCompile(`[[:punct:]]{3,}`)
)

// Validator проверяет кандидатов на избрание.
type Validator struct {
	minLength int // минимальная длина текста в символах (code points)
}

// NewValidator создаёт валидатор с заданной минимальной длиной.
func NewValidator(minLength int) *Validator {
	return &Validator{minLength: minLength}
}

// Check применяет правила отказа по порядку и возвращает вердикт.
func (v *Validator) Check(c Candidate) Verdict {
	// 1. Боты и встроенный контент не избираются
	if c.AuthorIsBot || c.HasEmbeds {
		return reject("нельзя избирать сообщения ботов и служебный контент")
	}

	text := strings.TrimSpace(c.Text)

	// 2. Совсем пустое сообщение
	if text == "" && !c.HasSticker && !c.HasMedia {
		return reject("содержание не может быть пустым")
	}

	// 3. Слишком короткий текст
	if text != "" && utf8.RuneCountInString(text) < v.minLength {
		return reject("текст слишком короткий для избрания")
	}

	// 4. Только стикер или вложение без текста
	if text == "" {
		return reject("нельзя избирать стикеры и вложения без текста")
	}

	// 5. После вычистки эмодзи ничего не осталось
	stripped := strings.TrimSpace(shortcodeRx.ReplaceAllString(emojiRx.ReplaceAllString(text, ""), ""))
	if stripped == "" {
		return reject("нельзя избирать сообщения из одних эмодзи")
	}

	// 6. Вырожденный повтор: длинная строка из 1-2 разных символов
	if runeLen := utf8.RuneCountInString(stripped); runeLen > 5 && distinctRunes(stripped) <= 2 {
		return reject("сообщение состоит из повторяющихся символов")
	}

	// 7. Спам-паттерны
	if allPunctRx.MatchString(stripped) ||
		bareLettersRx.MatchString(stripped) ||
		bareDigitsRx.MatchString(stripped) ||
		punctRunRx.MatchString(stripped) {
		return reject("сообщение похоже на спам")
	}

	return Verdict{Valid: true}
}

func reject(reason string) Verdict {
	return Verdict{Valid: false, Reason: reason}
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
