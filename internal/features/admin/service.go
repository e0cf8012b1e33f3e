// service.go — определение прав пользователя и парольный вход.
//
// Права складываются из трёх источников: список администраторов
// в конфигурации, статус в чате Telegram и повышенная сессия,
// открытая паролем в личке. Сессии живут в памяти процесса:
// после рестарта вход нужно повторить.
package admin

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
)

// Лимит неудачных попыток входа
const (
	maxLoginAttempts = 3
	attemptWindow    = time.Hour
	sessionTTL       = 12 * time.Hour
)

// StatusFunc возвращает статус пользователя в чате
// («creator», «administrator», «member», ...).
type StatusFunc func(ctx context.Context, chatID, userID int64) (string, error)

// Service определяет права и ведёт повышенные сессии.
type Service struct {
	adminIDs     map[int64]struct{}
	passwordHash string
	statusFn     StatusFunc

	mu       sync.Mutex
	sessions map[int64]*session
	attempts map[int64][]time.Time
}

// NewService создаёт сервис прав. passwordHash может быть пустым —
// тогда парольный вход выключен.
func NewService(adminIDs []int64, passwordHash string, statusFn StatusFunc) *Service {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &Service{
		adminIDs:     ids,
		passwordHash: passwordHash,
		statusFn:     statusFn,
		sessions:     make(map[int64]*session),
		attempts:     make(map[int64][]time.Time),
	}
}

// Resolve возвращает маску прав пользователя в чате.
// Ошибка запроса статуса в Telegram не роняет проверку:
// остальные источники прав всё равно учитываются.
func (s *Service) Resolve(ctx context.Context, chatID, userID int64) Capability {
	if _, ok := s.adminIDs[userID]; ok {
		return capsFull
	}
	if s.hasSession(userID) {
		return capsFull
	}

	if s.statusFn != nil {
		status, err := s.statusFn(ctx, chatID, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось узнать статус в чате")
		} else if status == "creator" || status == "administrator" {
			return capsModerator
		}
	}

	return 0
}

// Login проверяет пароль и открывает повышенную сессию.
// После трёх неудач за час вход блокируется до истечения окна.
func (s *Service) Login(userID int64, password string) error {
	if s.passwordHash == "" {
		return common.ErrNotPermitted
	}

	s.mu.Lock()
	recent := s.recentAttemptsLocked(userID)
	if len(recent) >= maxLoginAttempts {
		s.mu.Unlock()
		return common.ErrTooManyAttempts
	}
	s.mu.Unlock()

	ok, err := VerifyPassword(password, s.passwordHash)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.attempts[userID] = append(s.recentAttemptsLocked(userID), time.Now())
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}

	delete(s.attempts, userID)
	s.sessions[userID] = &session{expiresAt: time.Now().Add(sessionTTL)}
	log.WithField("user_id", userID).Info("Открыта сессия администратора")
	return nil
}

// Logout закрывает повышенную сессию пользователя.
func (s *Service) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// SweepSessions удаляет истёкшие сессии и устаревшие записи о попытках.
// Возвращает число закрытых сессий.
func (s *Service) SweepSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	now := time.Now()
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	for id := range s.attempts {
		if recent := s.recentAttemptsLocked(id); len(recent) == 0 {
			delete(s.attempts, id)
		} else {
			s.attempts[id] = recent
		}
	}
	return removed
}

func (s *Service) hasSession(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, userID)
		return false
	}
	return true
}

// recentAttemptsLocked отфильтровывает попытки старше окна. Вызывать под mu.
func (s *Service) recentAttemptsLocked(userID int64) []time.Time {
	cutoff := time.Now().Add(-attemptWindow)
	var recent []time.Time
	for _, at := range s.attempts[userID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	return recent
}
