package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	incdomain "plate-registry/internal/domain/incident"
)

type IncidentRepository struct {
	db *gorm.DB
}

func NewIncidentRepository(db *gorm.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

func (r *IncidentRepository) Create(ctx context.Context, inc *Incident) error {
	inc.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(inc).Error
}

func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*Incident, error) {
	var inc Incident
	if err := r.db.WithContext(ctx).First(&inc, id).Error; err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *IncidentRepository) List(ctx context.Context) ([]Incident, error) {
	var incidents []Incident
	err := r.db.WithContext(ctx).Order("id").Find(&incidents).Error
	return incidents, err
}

func (r *IncidentRepository) ListByReporter(ctx context.Context, reporterID int64) ([]Incident, error) {
	var incidents []Incident
	err := r.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("id").
		Find(&incidents).Error
	return incidents, err
}

func (r *IncidentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Incident{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TransitionRecord is the incident plus its resolved role references,
// captured inside the transition transaction.
type TransitionRecord struct {
	Incident Incident
	Affected Person
	Reporter Person
	Vehicle  Vehicle
}

// ApplyTransition runs a status transition as a single transaction: the
// incident and the affected person are read under row locks, decide computes
// the mutation, and the incident status plus any person mutation are written
// before commit. Locking the person row is what keeps two concurrent
// approvals against the same person from losing an increment.
//
// Returns gorm.ErrRecordNotFound when the incident does not exist and
// incdomain.ErrIncomplete when a role reference no longer resolves; in both
// cases nothing is persisted.
func (r *IncidentRepository) ApplyTransition(
	ctx context.Context,
	incidentID int64,
	decide func(rec *TransitionRecord) incdomain.Plan,
) (*TransitionRecord, incdomain.Plan, error) {
	var rec TransitionRecord
	var plan incdomain.Plan

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec.Incident, incidentID).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec.Affected, rec.Incident.AffectedPersonID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: affected person %d", incdomain.ErrIncomplete, rec.Incident.AffectedPersonID)
			}
			return err
		}
		if err := tx.First(&rec.Reporter, rec.Incident.ReporterID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: reporter %d", incdomain.ErrIncomplete, rec.Incident.ReporterID)
			}
			return err
		}
		if err := tx.First(&rec.Vehicle, rec.Incident.VehicleID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: vehicle %d", incdomain.ErrIncomplete, rec.Incident.VehicleID)
			}
			return err
		}

		plan = decide(&rec)

		if err := tx.Model(&Incident{ID: rec.Incident.ID}).
			Update("status", plan.Status).Error; err != nil {
			return err
		}
		rec.Incident.Status = plan.Status

		if plan.MutatesPerson {
			if err := tx.Model(&Person{ID: rec.Affected.ID}).
				Updates(map[string]interface{}{
					"incident_count": plan.IncidentCount,
					"status":         plan.PersonStatus,
				}).Error; err != nil {
				return err
			}
			rec.Affected.IncidentCount = plan.IncidentCount
			rec.Affected.Status = plan.PersonStatus
		}

		return nil
	})
	if err != nil {
		return nil, incdomain.Plan{}, err
	}

	return &rec, plan, nil
}
