package implementation

import (
	"context"
	"errors"
	"time"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/mapper"
	"ai-concierge-be/internal/model"
	"ai-concierge-be/internal/repository/contract"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

type FaqRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FaqMapper
	memo   *gocache.Cache
}

// FAQs change rarely; a short in-process memo keeps the hot lookup path off
// the database.
func NewFaqRepository(db *gorm.DB) contract.FaqRepository {
	return &FaqRepositoryImpl{
		db:     db,
		mapper: mapper.NewFaqMapper(),
		memo:   gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (r *FaqRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Faq, error) {
	if cached, ok := r.memo.Get(id.String()); ok {
		return cached.(*entity.Faq), nil
	}

	var m model.Faq
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	faq := r.mapper.ToEntity(&m)
	r.memo.Set(id.String(), faq, gocache.DefaultExpiration)
	return faq, nil
}

func (r *FaqRepositoryImpl) FindByConferenceId(ctx context.Context, conferenceId uuid.UUID) ([]*entity.Faq, error) {
	var models []*model.Faq
	err := r.db.WithContext(ctx).
		Where("conference_id = ?", conferenceId).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	faqs := make([]*entity.Faq, len(models))
	for i, m := range models {
		faqs[i] = r.mapper.ToEntity(m)
	}
	return faqs, nil
}
