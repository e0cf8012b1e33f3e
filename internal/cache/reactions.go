// Package cache — кэш счётчиков реакций в памяти.
// Telegram присылает message_reaction_count только событиями, запросить
// текущее значение по требованию нельзя, поэтому последние известные
// счётчики держим у себя с коротким сроком жизни.
package cache

import (
	"sync"
	"time"
)

// MessageKey идентифицирует сообщение в чате.
type MessageKey struct {
	ChatID    int64
	MessageID int64
}

type entry struct {
	count   int
	expires time.Time
}

// Reactions — потокобезопасный TTL-кэш счётчиков реакций.
type Reactions struct {
	mu      sync.RWMutex
	entries map[MessageKey]entry
	ttl     time.Duration
}

// NewReactions создаёт кэш с заданным сроком жизни записей.
func NewReactions(ttl time.Duration) *Reactions {
	return &Reactions{
		entries: make(map[MessageKey]entry),
		ttl:     ttl,
	}
}

// Set запоминает суммарный счётчик реакций сообщения.
func (c *Reactions) Set(key MessageKey, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{count: count, expires: time.Now().Add(c.ttl)}
}

// Get возвращает счётчик, если запись ещё жива.
// Отсутствие записи означает «реакций не видели», а не ноль реакций.
func (c *Reactions) Get(key MessageKey) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return 0, false
	}
	return e.count, true
}

// Evict удаляет все просроченные записи и возвращает их число.
func (c *Reactions) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len возвращает число записей, включая ещё не вычищенные просроченные.
func (c *Reactions) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
