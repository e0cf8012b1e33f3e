// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки избранного (записи и баллы)
var (
	// ErrNotAdmissible — сообщение не прошло проверку качества.
	// Оборачивается с конкретной причиной: fmt.Errorf("%w: %s", ErrNotAdmissible, reason)
	ErrNotAdmissible = errors.New("сообщение нельзя избрать")
	// ErrSelfFeature — попытка избрать собственное сообщение
	ErrSelfFeature = errors.New("нельзя избирать собственные сообщения")
	// ErrAlreadyFeatured — автор уже избран в этой теме.
	// Ожидаемый исход гонки двух одновременных избраний, не системная ошибка.
	ErrAlreadyFeatured = errors.New("этот автор уже избран в данной теме")
	// ErrNotFeatured — запись об избрании не найдена
	ErrNotFeatured = errors.New("запись об избрании не найдена")
)

// Ошибки доступа
var (
	// ErrNotPermitted — у пользователя нет нужной привилегии
	ErrNotPermitted = errors.New("недостаточно прав для этого действия")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrRoleGrantForbidden — Telegram не дал назначить титул (боту не хватает прав)
	ErrRoleGrantForbidden = errors.New("не удалось назначить титул: боту нужны права администратора с возможностью назначать администраторов")
)
