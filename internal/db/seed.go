package db

import (
	"gorm.io/gorm"

	"plate-registry/internal/repository"
)

// seed loads a small demo directory when no person is registered yet.
func seed(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&repository.Person{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	userProfile := int64(1)
	entries := []struct {
		person  repository.Person
		vehicle repository.Vehicle
	}{
		{
			person:  repository.Person{Name: "Juan", Age: 30, ControlNumber: "CN-0001", Email: "juan@example.com", Status: "Authorized", ProfileID: &userProfile},
			vehicle: repository.Vehicle{Plate: "ABC123", Brand: "Nissan", Model: "Sentra", Color: "Rojo"},
		},
		{
			person:  repository.Person{Name: "Ana", Age: 28, ControlNumber: "CN-0002", Email: "ana@example.com", Status: "Authorized", ProfileID: &userProfile},
			vehicle: repository.Vehicle{Plate: "XYZ987", Brand: "Toyota", Model: "Corolla", Color: "Azul"},
		},
		{
			person:  repository.Person{Name: "Carlos", Age: 40, ControlNumber: "CN-0003", Email: "carlos@example.com", Status: "Authorized", ProfileID: &userProfile},
			vehicle: repository.Vehicle{Plate: "BBB222", Brand: "Honda", Model: "Civic", Color: "Negro"},
		},
	}

	for _, e := range entries {
		person := e.person
		if err := gdb.Create(&person).Error; err != nil {
			return err
		}
		vehicle := e.vehicle
		vehicle.OwnerID = person.ID
		if err := gdb.Create(&vehicle).Error; err != nil {
			return err
		}
	}
	return nil
}
