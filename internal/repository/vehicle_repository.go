package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// VehicleWithOwner is the joined result of a plate lookup.
type VehicleWithOwner struct {
	Vehicle Vehicle `json:"vehicle"`
	Owner   Person  `json:"owner"`
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *Vehicle) error {
	vehicle.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*Vehicle, error) {
	var vehicle Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindByPlate resolves a normalized plate to its vehicle and owner.
// Returns gorm.ErrRecordNotFound when the plate is not registered.
func (r *VehicleRepository) FindByPlate(ctx context.Context, normalized string) (*VehicleWithOwner, error) {
	var vehicle Vehicle
	if err := r.db.WithContext(ctx).Where("plate = ?", normalized).First(&vehicle).Error; err != nil {
		return nil, err
	}

	var owner Person
	if err := r.db.WithContext(ctx).First(&owner, vehicle.OwnerID).Error; err != nil {
		return nil, err
	}

	return &VehicleWithOwner{Vehicle: vehicle, Owner: owner}, nil
}

func (r *VehicleRepository) List(ctx context.Context) ([]Vehicle, error) {
	var vehicles []Vehicle
	err := r.db.WithContext(ctx).Order("id").Find(&vehicles).Error
	return vehicles, err
}

func (r *VehicleRepository) Update(ctx context.Context, vehicle *Vehicle) error {
	return r.db.WithContext(ctx).Model(&Vehicle{ID: vehicle.ID}).
		Updates(map[string]interface{}{
			"plate":    vehicle.Plate,
			"brand":    vehicle.Brand,
			"model":    vehicle.Model,
			"color":    vehicle.Color,
			"owner_id": vehicle.OwnerID,
		}).Error
}

func (r *VehicleRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Vehicle{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
