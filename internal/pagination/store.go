// store.go — реестр живых постраничных видов.
// Вид живёт, пока им пользуются; простаивающие сессии убирает Sweep,
// который дёргает планировщик. Ключ — сообщение бота с кнопками.
package pagination

import (
	"sync"
	"time"
)

// Key идентифицирует сообщение бота с постраничным видом.
type Key struct {
	ChatID    int64
	MessageID int
}

// Store хранит активные сессии в памяти.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	ttl      time.Duration
}

// NewStore создаёт реестр сессий с заданным таймаутом простоя.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[Key]*Session),
		ttl:      ttl,
	}
}

// Put регистрирует сессию для сообщения.
func (s *Store) Put(key Key, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastSeen = time.Now()
	s.sessions[key] = sess
}

// Get возвращает живую сессию и продлевает её. Просроченная сессия
// удаляется на месте, как будто её уже нет.
func (s *Store) Get(key Key) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if time.Since(sess.lastSeen) > s.ttl {
		delete(s.sessions, key)
		return nil, false
	}
	sess.lastSeen = time.Now()
	return sess, true
}

// Delete убирает сессию.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Sweep удаляет все простаивающие сессии и возвращает их число.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	now := time.Now()
	for key, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// Len возвращает число живых сессий.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
