package repository

import (
	"context"

	"github.com/shinyyama/estate-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	FindProfiles(ctx context.Context, uids []string) ([]model.Profile, error)
	FindProfessionals(ctx context.Context, uids []string) ([]model.Professional, error)
	UpsertProfile(ctx context.Context, p *model.Profile) error
	UpsertProfessional(ctx context.Context, p *model.Professional) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindProfiles(ctx context.Context, uids []string) ([]model.Profile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(uids) == 0 {
		return nil, nil
	}
	var list []model.Profile
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *profileRepository) FindProfessionals(ctx context.Context, uids []string) ([]model.Professional, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(uids) == 0 {
		return nil, nil
	}
	var list []model.Professional
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *profileRepository) UpsertProfile(ctx context.Context, p *model.Profile) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "updated_at"}),
	}).Create(p).Error
}

func (r *profileRepository) UpsertProfessional(ctx context.Context, p *model.Professional) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"business_name", "service_type", "is_verified", "updated_at"}),
	}).Create(p).Error
}
