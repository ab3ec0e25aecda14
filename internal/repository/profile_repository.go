package repository

import (
	"context"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*Profile, error) {
	var profile Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := r.db.WithContext(ctx).Order("id").Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepository) Update(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).Model(&Profile{ID: profile.ID}).
		Updates(map[string]interface{}{
			"name":        profile.Name,
			"description": profile.Description,
		}).Error
}

func (r *ProfileRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Profile{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
