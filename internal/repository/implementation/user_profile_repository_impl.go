package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/mapper"
	"ai-concierge-be/internal/model"
	"ai-concierge-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserProfileMapper
}

func NewUserProfileRepository(db *gorm.DB) contract.UserProfileRepository {
	return &UserProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserProfileMapper(),
	}
}

func (r *UserProfileRepositoryImpl) FindByUser(ctx context.Context, userId string, conferenceId uuid.UUID) (*entity.UserProfile, error) {
	var m model.UserProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND conference_id = ?", userId, conferenceId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UserProfileRepositoryImpl) Upsert(ctx context.Context, profile *entity.UserProfile) error {
	m := r.mapper.ToModel(profile)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "conference_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"interests", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*profile = *r.mapper.ToEntity(m)
	return nil
}

func (r *UserProfileRepositoryImpl) MergeInterests(ctx context.Context, userId string, conferenceId uuid.UUID, update map[string]interface{}) error {
	if len(update) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.UserProfile
		err := tx.Where("user_id = ? AND conference_id = ?", userId, conferenceId).First(&m).Error
		missing := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !missing {
			return err
		}

		interests := map[string]interface{}{}
		if len(m.Interests) > 0 {
			_ = json.Unmarshal(m.Interests, &interests)
		}
		// nil values delete a key, everything else overwrites it.
		for k, v := range update {
			if v == nil {
				delete(interests, k)
				continue
			}
			interests[k] = v
		}

		raw, err := json.Marshal(interests)
		if err != nil {
			return err
		}

		if missing {
			return tx.Create(&model.UserProfile{
				UserId:       userId,
				ConferenceId: conferenceId,
				Interests:    raw,
			}).Error
		}

		return tx.Model(&model.UserProfile{}).
			Where("user_id = ? AND conference_id = ?", userId, conferenceId).
			Update("interests", raw).Error
	})
}
