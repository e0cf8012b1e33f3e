package featured

import (
	"context"
	"errors"
	"testing"

	"serotonyl.ru/featured-bot/internal/common"
)

// fakeStore — подмена Store для тестов сервиса: каждый метод задаётся
// функцией, незаданные методы роняют тест.
type fakeStore struct {
	t *testing.T

	isFeatured      func(ctx context.Context, threadID, authorID int64) (bool, error)
	add             func(ctx context.Context, rec *FeaturedRecord, delta int) (bool, int, error)
	remove          func(ctx context.Context, messageID, threadID int64, delta int) (bool, *FeaturedRecord, error)
	getByMessage    func(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error)
	setBotMessageID func(ctx context.Context, recordID, botMessageID int64) error
	stats           func(ctx context.Context, userID, chatID int64) (*Stats, error)
	userRecords     func(ctx context.Context, authorID, chatID int64, page, perPage int) ([]*FeaturedRecord, int, error)
	setThreadOwner  func(ctx context.Context, chatID, threadID, ownerID int64) error
	threadOwner     func(ctx context.Context, chatID, threadID int64) (int64, error)
}

func (f *fakeStore) IsFeatured(ctx context.Context, threadID, authorID int64) (bool, error) {
	if f.isFeatured == nil {
		f.t.Fatal("неожиданный вызов IsFeatured")
	}
	return f.isFeatured(ctx, threadID, authorID)
}

func (f *fakeStore) Add(ctx context.Context, rec *FeaturedRecord, delta int) (bool, int, error) {
	if f.add == nil {
		f.t.Fatal("неожиданный вызов Add")
	}
	return f.add(ctx, rec, delta)
}

func (f *fakeStore) Remove(ctx context.Context, messageID, threadID int64, delta int) (bool, *FeaturedRecord, error) {
	if f.remove == nil {
		f.t.Fatal("неожиданный вызов Remove")
	}
	return f.remove(ctx, messageID, threadID, delta)
}

func (f *fakeStore) GetByMessage(ctx context.Context, messageID, threadID int64) (*FeaturedRecord, error) {
	if f.getByMessage == nil {
		f.t.Fatal("неожиданный вызов GetByMessage")
	}
	return f.getByMessage(ctx, messageID, threadID)
}

func (f *fakeStore) SetBotMessageID(ctx context.Context, recordID, botMessageID int64) error {
	if f.setBotMessageID == nil {
		f.t.Fatal("неожиданный вызов SetBotMessageID")
	}
	return f.setBotMessageID(ctx, recordID, botMessageID)
}

func (f *fakeStore) Stats(ctx context.Context, userID, chatID int64) (*Stats, error) {
	if f.stats == nil {
		f.t.Fatal("неожиданный вызов Stats")
	}
	return f.stats(ctx, userID, chatID)
}

func (f *fakeStore) UserRecords(ctx context.Context, authorID, chatID int64, page, perPage int) ([]*FeaturedRecord, int, error) {
	if f.userRecords == nil {
		f.t.Fatal("неожиданный вызов UserRecords")
	}
	return f.userRecords(ctx, authorID, chatID, page, perPage)
}

func (f *fakeStore) SetThreadOwner(ctx context.Context, chatID, threadID, ownerID int64) error {
	if f.setThreadOwner == nil {
		f.t.Fatal("неожиданный вызов SetThreadOwner")
	}
	return f.setThreadOwner(ctx, chatID, threadID, ownerID)
}

func (f *fakeStore) ThreadOwner(ctx context.Context, chatID, threadID int64) (int64, error) {
	if f.threadOwner == nil {
		f.t.Fatal("неожиданный вызов ThreadOwner")
	}
	return f.threadOwner(ctx, chatID, threadID)
}

func validRequest() FeatureRequest {
	return FeatureRequest{
		ChatID:         -100500,
		ThreadID:       42,
		MessageID:      777,
		AuthorID:       1,
		AuthorName:     "Автор",
		FeaturedByID:   2,
		FeaturedByName: "Избиратель",
		Candidate:      Candidate{Text: "Развёрнутый и полезный ответ."},
	}
}

func TestFeatureHappyPath(t *testing.T) {
	store := &fakeStore{
		t: t,
		isFeatured: func(_ context.Context, threadID, authorID int64) (bool, error) {
			if threadID != 42 || authorID != 1 {
				t.Errorf("IsFeatured(%d, %d), ожидалось (42, 1)", threadID, authorID)
			}
			return false, nil
		},
		add: func(_ context.Context, rec *FeaturedRecord, delta int) (bool, int, error) {
			if delta != 1 {
				t.Errorf("delta = %d, ожидался 1", delta)
			}
			if rec.AuthorID != 1 || rec.FeaturedByID != 2 || rec.MessageID != 777 {
				t.Errorf("неверная запись: %+v", rec)
			}
			rec.ID = 10
			return true, 5, nil
		},
	}

	svc := NewService(store, NewValidator(10), 1)
	rec, total, err := svc.Feature(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if rec.ID != 10 || total != 5 {
		t.Errorf("rec.ID=%d total=%d, ожидалось 10 и 5", rec.ID, total)
	}
}

func TestFeatureSelf(t *testing.T) {
	svc := NewService(&fakeStore{t: t}, NewValidator(10), 1)

	req := validRequest()
	req.FeaturedByID = req.AuthorID
	_, _, err := svc.Feature(context.Background(), req)
	if !errors.Is(err, common.ErrSelfFeature) {
		t.Errorf("err = %v, ожидался ErrSelfFeature", err)
	}
}

func TestFeatureNotAdmissible(t *testing.T) {
	// До хранилища дело не доходит: валидатор отклоняет раньше
	svc := NewService(&fakeStore{t: t}, NewValidator(10), 1)

	req := validRequest()
	req.Candidate = Candidate{Text: "ok"}
	_, _, err := svc.Feature(context.Background(), req)
	if !errors.Is(err, common.ErrNotAdmissible) {
		t.Errorf("err = %v, ожидался ErrNotAdmissible", err)
	}
}

func TestFeatureAlreadyFeatured(t *testing.T) {
	store := &fakeStore{
		t:          t,
		isFeatured: func(context.Context, int64, int64) (bool, error) { return true, nil },
	}
	svc := NewService(store, NewValidator(10), 1)

	_, _, err := svc.Feature(context.Background(), validRequest())
	if !errors.Is(err, common.ErrAlreadyFeatured) {
		t.Errorf("err = %v, ожидался ErrAlreadyFeatured", err)
	}
}

// Гонка двух избраний: предварительная проверка прошла, но вставка
// упёрлась в уникальное ограничение. Баллы не начисляются.
func TestFeatureRaceLostOnInsert(t *testing.T) {
	store := &fakeStore{
		t:          t,
		isFeatured: func(context.Context, int64, int64) (bool, error) { return false, nil },
		add: func(context.Context, *FeaturedRecord, int) (bool, int, error) {
			return false, 0, nil
		},
	}
	svc := NewService(store, NewValidator(10), 1)

	_, _, err := svc.Feature(context.Background(), validRequest())
	if !errors.Is(err, common.ErrAlreadyFeatured) {
		t.Errorf("err = %v, ожидался ErrAlreadyFeatured", err)
	}
}

func TestUnfeature(t *testing.T) {
	removed := &FeaturedRecord{ID: 10, AuthorID: 1, MessageID: 777, ThreadID: 42}
	store := &fakeStore{
		t: t,
		remove: func(_ context.Context, messageID, threadID int64, delta int) (bool, *FeaturedRecord, error) {
			if messageID != 777 || threadID != 42 || delta != 1 {
				t.Errorf("Remove(%d, %d, %d), ожидалось (777, 42, 1)", messageID, threadID, delta)
			}
			return true, removed, nil
		},
	}
	svc := NewService(store, NewValidator(10), 1)

	rec, err := svc.Unfeature(context.Background(), 777, 42)
	if err != nil {
		t.Fatalf("Unfeature: %v", err)
	}
	if rec != removed {
		t.Errorf("возвращена не та запись: %+v", rec)
	}
}

func TestUnfeatureNotFeatured(t *testing.T) {
	store := &fakeStore{
		t:      t,
		remove: func(context.Context, int64, int64, int) (bool, *FeaturedRecord, error) { return false, nil, nil },
	}
	svc := NewService(store, NewValidator(10), 1)

	_, err := svc.Unfeature(context.Background(), 777, 42)
	if !errors.Is(err, common.ErrNotFeatured) {
		t.Errorf("err = %v, ожидался ErrNotFeatured", err)
	}
}

func TestRecordNotFound(t *testing.T) {
	store := &fakeStore{
		t:            t,
		getByMessage: func(context.Context, int64, int64) (*FeaturedRecord, error) { return nil, nil },
	}
	svc := NewService(store, NewValidator(10), 1)

	_, err := svc.Record(context.Background(), 777, 42)
	if !errors.Is(err, common.ErrNotFeatured) {
		t.Errorf("err = %v, ожидался ErrNotFeatured", err)
	}
}
