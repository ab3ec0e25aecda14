package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, person *Person) error {
	person.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*Person, error) {
	var person Person
	if err := r.db.WithContext(ctx).First(&person, id).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]Person, error) {
	var persons []Person
	err := r.db.WithContext(ctx).Order("id").Find(&persons).Error
	return persons, err
}

// Update writes the mutable directory fields. Status and incident count are
// owned by the incident transition and are not touched here.
func (r *PersonRepository) Update(ctx context.Context, person *Person) error {
	return r.db.WithContext(ctx).Model(&Person{ID: person.ID}).
		Select("name", "age", "control_number", "email", "profile_id").
		Updates(map[string]interface{}{
			"name":           person.Name,
			"age":            person.Age,
			"control_number": person.ControlNumber,
			"email":          person.Email,
			"profile_id":     person.ProfileID,
		}).Error
}

func (r *PersonRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Person{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PersonRepository) GetProfile(ctx context.Context, profileID int64) (*Profile, error) {
	var profile Profile
	if err := r.db.WithContext(ctx).First(&profile, profileID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
