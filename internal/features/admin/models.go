// Package admin отвечает за права: кто может избирать, отзывать чужие
// избрания, смотреть рейтинг за всё время и запускать обслуживание.
package admin

import "time"

// Capability — битовая маска прав.
type Capability uint8

const (
	// CapFeature — избирать сообщения и отзывать свои избрания
	CapFeature Capability = 1 << iota
	// CapUnfeatureAny — отзывать любые избрания
	CapUnfeatureAny
	// CapTotalRanking — смотреть рейтинг за всё время
	CapTotalRanking
	// CapMaintenance — служебные операции: сверка реестров, выдача роли
	CapMaintenance
)

// Has проверяет наличие права в маске.
func (c Capability) Has(cap Capability) bool {
	return c&cap != 0
}

// capsModerator — права администратора чата
const capsModerator = CapFeature | CapUnfeatureAny | CapTotalRanking

// capsFull — права из конфигурации и повышенных сессий
const capsFull = capsModerator | CapMaintenance

// session — повышенные права, полученные через пароль.
type session struct {
	expiresAt time.Time
}
