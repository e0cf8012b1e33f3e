// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizePoints возвращает правильную форму слова «балл» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "балл" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "балла" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "баллов" (0, 5-20, 25-30, 100, ...)
func PluralizePoints(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "балл"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "балла"
	}
	return "баллов"
}

// FormatPoints форматирует количество баллов в читабельную строку.
// Пример: FormatPoints(5) → "5 баллов"
func FormatPoints(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizePoints(n))
}

// PluralizeTimes возвращает правильную форму слова «раз» для числа n.
// 1 → "раз", 2 → "раза", 5 → "раз".
func PluralizeTimes(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "раз"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "раза"
	}
	return "раз"
}

// YearMonth возвращает ключ календарного месяца в формате "2006-01".
// Используется таблицей monthly_points.
func YearMonth(t time.Time) string {
	return t.Format("2006-01")
}

// MonthRange возвращает границы календарного месяца, заданного ключом "2006-01".
// Конец диапазона — первая секунда следующего месяца (полуинтервал [from, to)).
func MonthRange(yearMonth string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation("2006-01", yearMonth, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("некорректный месяц %q: %w", yearMonth, err)
	}
	return from, from.AddDate(0, 1, 0), nil
}

// DisplayName собирает отображаемое имя пользователя:
// @username, если он есть, иначе имя и фамилия.
func DisplayName(username, firstName, lastName string) string {
	if username != "" {
		return "@" + username
	}
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}
	if name == "" {
		return "аноним"
	}
	return name
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется при отображении записей об избрании.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02.01.2006 15:04")
}
