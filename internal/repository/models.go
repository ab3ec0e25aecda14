package repository

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is the access tier of a person. "User" sees only their own
// reports; any other profile sees everything.
type Profile struct {
	ID          int64   `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description *string `json:"description,omitempty"`
}

type Person struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Age           int       `gorm:"not null" json:"age"`
	ControlNumber string    `gorm:"not null;uniqueIndex" json:"control_number"`
	Email         string    `gorm:"not null;uniqueIndex" json:"email"`
	Status        string    `gorm:"not null" json:"status"`
	IncidentCount int       `gorm:"not null" json:"incident_count"`
	ProfileID     *int64    `json:"profile_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Vehicle.Plate is always stored in normalized form and is unique across
// all vehicles.
type Vehicle struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Plate     string    `gorm:"not null;uniqueIndex" json:"plate"`
	Brand     string    `gorm:"not null" json:"brand"`
	Model     string    `gorm:"not null" json:"model"`
	Color     string    `gorm:"not null" json:"color"`
	OwnerID   int64     `gorm:"not null" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Incident points at Person twice under different roles: the person the
// report is filed against and the person who filed it. The two references
// stay independently named; there is no generic "party" link.
type Incident struct {
	ID               int64                       `gorm:"primaryKey" json:"id"`
	Description      string                      `gorm:"not null" json:"description"`
	Date             string                      `gorm:"not null" json:"date"`
	Time             *string                     `json:"time,omitempty"`
	ImageRefs        datatypes.JSONSlice[string] `json:"image_refs"`
	Status           string                      `gorm:"not null" json:"status"`
	Latitude         *string                     `json:"latitude,omitempty"`
	Longitude        *string                     `json:"longitude,omitempty"`
	AffectedPersonID int64                       `gorm:"not null" json:"affected_person_id"`
	ReporterID       int64                       `gorm:"not null" json:"reporter_id"`
	VehicleID        int64                       `gorm:"not null" json:"vehicle_id"`
	CreatedAt        time.Time                   `json:"created_at"`
}
