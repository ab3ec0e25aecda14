package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"plate-registry/internal/domain/incident"
	"plate-registry/internal/domain/plate"
	"plate-registry/internal/repository"
)

// RegistryService is the person/vehicle/profile directory: plain CRUD plus
// the plate lookup the recognition flow resolves against.
type RegistryService struct {
	persons  *repository.PersonRepository
	vehicles *repository.VehicleRepository
	profiles *repository.ProfileRepository
	log      zerolog.Logger
}

func NewRegistryService(
	persons *repository.PersonRepository,
	vehicles *repository.VehicleRepository,
	profiles *repository.ProfileRepository,
	log zerolog.Logger,
) *RegistryService {
	return &RegistryService{
		persons:  persons,
		vehicles: vehicles,
		profiles: profiles,
		log:      log,
	}
}

type PersonInput struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	ControlNumber string `json:"control_number"`
	Email         string `json:"email"`
	ProfileID     *int64 `json:"profile_id,omitempty"`
}

func (s *RegistryService) CreatePerson(ctx context.Context, input PersonInput) (*repository.Person, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.ControlNumber == "" {
		return nil, fmt.Errorf("%w: control_number is required", ErrInvalidInput)
	}
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	person := &repository.Person{
		Name:          input.Name,
		Age:           input.Age,
		ControlNumber: input.ControlNumber,
		Email:         input.Email,
		Status:        incident.PersonAuthorized,
		IncidentCount: 0,
		ProfileID:     input.ProfileID,
	}
	if err := s.persons.Create(ctx, person); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("%w: control_number or email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	s.log.Info().
		Int64("person_id", person.ID).
		Str("control_number", person.ControlNumber).
		Msg("registered person")
	return person, nil
}

func (s *RegistryService) GetPerson(ctx context.Context, id int64) (*repository.Person, error) {
	person, err := s.persons.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: person %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

func (s *RegistryService) ListPersons(ctx context.Context) ([]repository.Person, error) {
	persons, err := s.persons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	return persons, nil
}

func (s *RegistryService) UpdatePerson(ctx context.Context, id int64, input PersonInput) (*repository.Person, error) {
	person, err := s.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	person.Name = input.Name
	person.Age = input.Age
	person.ControlNumber = input.ControlNumber
	person.Email = input.Email
	person.ProfileID = input.ProfileID
	if err := s.persons.Update(ctx, person); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("%w: control_number or email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("failed to update person: %w", err)
	}
	return person, nil
}

func (s *RegistryService) DeletePerson(ctx context.Context, id int64) error {
	if err := s.persons.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: person %d", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return nil
}

type VehicleInput struct {
	Plate   string `json:"plate"`
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	OwnerID int64  `json:"owner_id"`
}

func (s *RegistryService) CreateVehicle(ctx context.Context, input VehicleInput) (*repository.Vehicle, error) {
	normalized := plate.Normalize(input.Plate)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if input.Brand == "" || input.Model == "" || input.Color == "" {
		return nil, fmt.Errorf("%w: brand, model and color are required", ErrInvalidInput)
	}

	if _, err := s.GetPerson(ctx, input.OwnerID); err != nil {
		return nil, err
	}

	vehicle := &repository.Vehicle{
		Plate:   normalized,
		Brand:   input.Brand,
		Model:   input.Model,
		Color:   input.Color,
		OwnerID: input.OwnerID,
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("%w: plate %s already registered", ErrConflict, normalized)
		}
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	s.log.Info().
		Int64("vehicle_id", vehicle.ID).
		Str("plate", vehicle.Plate).
		Int64("owner_id", vehicle.OwnerID).
		Msg("registered vehicle")
	return vehicle, nil
}

func (s *RegistryService) GetVehicle(ctx context.Context, id int64) (*repository.Vehicle, error) {
	vehicle, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: vehicle %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *RegistryService) ListVehicles(ctx context.Context) ([]repository.Vehicle, error) {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *RegistryService) UpdateVehicle(ctx context.Context, id int64, input VehicleInput) (*repository.Vehicle, error) {
	vehicle, err := s.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized := plate.Normalize(input.Plate)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}

	vehicle.Plate = normalized
	vehicle.Brand = input.Brand
	vehicle.Model = input.Model
	vehicle.Color = input.Color
	vehicle.OwnerID = input.OwnerID
	if err := s.vehicles.Update(ctx, vehicle); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, fmt.Errorf("%w: plate %s already registered", ErrConflict, normalized)
		}
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *RegistryService) DeleteVehicle(ctx context.Context, id int64) error {
	if err := s.vehicles.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: vehicle %d", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return nil
}

// FindByPlate resolves a literal plate string to a registered vehicle and
// its owner. A missing registration is ErrNotFound, distinct from malformed
// input.
func (s *RegistryService) FindByPlate(ctx context.Context, literal string) (*repository.VehicleWithOwner, error) {
	normalized := plate.Normalize(literal)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate cannot be empty", ErrInvalidInput)
	}

	match, err := s.vehicles.FindByPlate(ctx, normalized)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: plate %s is not registered", ErrNotFound, normalized)
		}
		return nil, fmt.Errorf("failed to find plate: %w", err)
	}
	return match, nil
}

type ProfileInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (s *RegistryService) CreateProfile(ctx context.Context, input ProfileInput) (*repository.Profile, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	profile := &repository.Profile{Name: input.Name, Description: input.Description}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

func (s *RegistryService) GetProfile(ctx context.Context, id int64) (*repository.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: profile %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (s *RegistryService) ListProfiles(ctx context.Context) ([]repository.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *RegistryService) UpdateProfile(ctx context.Context, id int64, input ProfileInput) (*repository.Profile, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	profile.Name = input.Name
	profile.Description = input.Description
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

func (s *RegistryService) DeleteProfile(ctx context.Context, id int64) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: profile %d", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
