package middleware

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту команд на пользователя
// по скользящему окну. Устаревшие записи убирает Sweep,
// который дёргает планировщик вместе с остальными уборками.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter создаёт ограничитель: не более limit запросов за window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow регистрирует запрос пользователя и сообщает, пропускать ли его.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := trimOld(rl.requests[userID], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[userID] = recent
		return false
	}

	rl.requests[userID] = append(recent, now)
	return true
}

// Sweep выкидывает пользователей без запросов в текущем окне
// и возвращает число убранных записей.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var removed int
	cutoff := time.Now().Add(-rl.window)
	for userID, times := range rl.requests {
		recent := trimOld(times, cutoff)
		if len(recent) == 0 {
			delete(rl.requests, userID)
			removed++
		} else {
			rl.requests[userID] = recent
		}
	}
	return removed
}

func trimOld(times []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
