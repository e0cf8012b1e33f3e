// Package featured — service.go содержит бизнес-логику избрания:
// проверка допустимости, защита от самоизбрания и повторов,
// атомарное начисление и списание баллов.
package featured

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/featured-bot/internal/common"
)

// Store — доступ к реестрам избранного и баллов.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	IsFeatured(ctx context.Context, threadID, authorID int64) (bool, error)
	Add(ctx context.Context, rec *FeaturedRecord, delta int) (bool, int, error)
	Remove(ctx context.Context, messageID, threadID int64, delta int) (bool, *FeaturedRecord, error)
	GetByMessage(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error)
	SetBotMessageID(ctx context.Context, recordID, botMessageID int64) error
	Stats(ctx context.Context, userID, chatID int64) (*Stats, error)
	UserRecords(ctx context.Context, authorID, chatID int64, page, perPage int) ([]*FeaturedRecord, int, error)
	SetThreadOwner(ctx context.Context, chatID, threadID, ownerID int64) error
	ThreadOwner(ctx context.Context, chatID, threadID int64) (int64, error)
}

// FeatureRequest — заявка на избрание сообщения.
type FeatureRequest struct {
	ChatID    int64
	ThreadID  int64
	MessageID int64

	AuthorID   int64
	AuthorName string

	FeaturedByID   int64
	FeaturedByName string

	Reason    *string
	Candidate Candidate
}

// Service — сервис избранных сообщений.
type Service struct {
	store            Store
	validator        *Validator
	pointsPerFeature int
}

// NewService создаёт сервис избранного.
func NewService(store Store, validator *Validator, pointsPerFeature int) *Service {
	return &Service{
		store:            store,
		validator:        validator,
		pointsPerFeature: pointsPerFeature,
	}
}

// Feature избирает сообщение: проверяет допустимость, запрещает
// самоизбрание и повторное избрание автора в теме, затем атомарно
// записывает избрание и начисляет баллы. Возвращает запись и новый
// суммарный баланс автора.
func (s *Service) Feature(ctx context.Context, req FeatureRequest) (*FeaturedRecord, int, error) {
	if req.AuthorID == req.FeaturedByID {
		return nil, 0, common.ErrSelfFeature
	}

	if verdict := s.validator.Check(req.Candidate); !verdict.Valid {
		return nil, 0, fmt.Errorf("%w: %s", common.ErrNotAdmissible, verdict.Reason)
	}

	// Дружелюбный отказ до записи; гонку всё равно ловит уникальное
	// ограничение внутри Add
	already, err := s.store.IsFeatured(ctx, req.ThreadID, req.AuthorID)
	if err != nil {
		return nil, 0, err
	}
	if already {
		return nil, 0, common.ErrAlreadyFeatured
	}

	rec := &FeaturedRecord{
		ChatID:         req.ChatID,
		ThreadID:       req.ThreadID,
		MessageID:      req.MessageID,
		AuthorID:       req.AuthorID,
		AuthorName:     req.AuthorName,
		FeaturedByID:   req.FeaturedByID,
		FeaturedByName: req.FeaturedByName,
		Reason:         req.Reason,
	}

	ok, newTotal, err := s.store.Add(ctx, rec, s.pointsPerFeature)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, common.ErrAlreadyFeatured
	}

	log.WithFields(log.Fields{
		"chat_id":   req.ChatID,
		"thread_id": req.ThreadID,
		"author_id": req.AuthorID,
		"by":        req.FeaturedByID,
		"points":    newTotal,
	}).Info("Сообщение избрано")

	return rec, newTotal, nil
}

// Unfeature отзывает избрание сообщения и списывает начисленные баллы.
// Возвращает удалённую запись, чтобы обработчик мог убрать уведомление бота.
func (s *Service) Unfeature(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error) {
	ok, rec, err := s.store.Remove(ctx, messageID, threadID, s.pointsPerFeature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotFeatured
	}

	log.WithFields(log.Fields{
		"thread_id":  threadID,
		"message_id": messageID,
		"author_id":  rec.AuthorID,
	}).Info("Избрание отозвано")

	return rec, nil
}

// Record возвращает запись об избрании сообщения или common.ErrNotFeatured.
func (s *Service) Record(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error) {
	rec, err := s.store.GetByMessage(ctx, messageID, threadID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.ErrNotFeatured
	}
	return rec, nil
}

// AttachNotice привязывает к записи ID уведомления бота.
// Ошибка здесь не критична для избрания и только логируется вызывающим.
func (s *Service) AttachNotice(ctx context.Context, recordID, botMessageID int64) error {
	return s.store.SetBotMessageID(ctx, recordID, botMessageID)
}

// RememberThreadOwner фиксирует автора темы при её создании.
// Автор темы может избирать и отзывать сообщения в своей теме.
func (s *Service) RememberThreadOwner(ctx context.Context, chatID, threadID, ownerID int64) error {
	return s.store.SetThreadOwner(ctx, chatID, threadID, ownerID)
}

// ThreadOwner возвращает автора темы или 0, если тема боту не известна.
func (s *Service) ThreadOwner(ctx context.Context, chatID, threadID int64) (int64, error) {
	return s.store.ThreadOwner(ctx, chatID, threadID)
}

// Stats возвращает сводку по пользователю.
func (s *Service) Stats(ctx context.Context, userID, chatID int64) (*Stats, error) {
	return s.store.Stats(ctx, userID, chatID)
}

// UserRecords возвращает страницу избраний пользователя и общее число страниц.
func (s *Service) UserRecords(ctx context.Context, authorID, chatID int64, page, perPage int) ([]*FeaturedRecord, int, error) {
	return s.store.UserRecords(ctx, authorID, chatID, page, perPage)
}
