package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	incdomain "plate-registry/internal/domain/incident"
	"plate-registry/internal/notify"
	"plate-registry/internal/repository"
)

// ProfileUser is the restricted access tier: it only sees its own reports.
const ProfileUser = "User"

type incidentStore interface {
	Create(ctx context.Context, inc *repository.Incident) error
	GetByID(ctx context.Context, id int64) (*repository.Incident, error)
	List(ctx context.Context) ([]repository.Incident, error)
	ListByReporter(ctx context.Context, reporterID int64) ([]repository.Incident, error)
	Delete(ctx context.Context, id int64) error
	ApplyTransition(ctx context.Context, incidentID int64, decide func(rec *repository.TransitionRecord) incdomain.Plan) (*repository.TransitionRecord, incdomain.Plan, error)
}

type personDirectory interface {
	GetByID(ctx context.Context, id int64) (*repository.Person, error)
	GetProfile(ctx context.Context, profileID int64) (*repository.Profile, error)
}

type vehicleDirectory interface {
	GetByID(ctx context.Context, id int64) (*repository.Vehicle, error)
}

// IncidentService owns the incident lifecycle: reports come in as Pending,
// transitions run through the state machine, and notifications go out after
// commit.
type IncidentService struct {
	incidents     incidentStore
	persons       personDirectory
	vehicles      vehicleDirectory
	dispatcher    notify.Dispatcher
	notifyTimeout time.Duration
	log           zerolog.Logger
}

func NewIncidentService(
	incidents incidentStore,
	persons personDirectory,
	vehicles vehicleDirectory,
	dispatcher notify.Dispatcher,
	notifyTimeout time.Duration,
	log zerolog.Logger,
) *IncidentService {
	return &IncidentService{
		incidents:     incidents,
		persons:       persons,
		vehicles:      vehicles,
		dispatcher:    dispatcher,
		notifyTimeout: notifyTimeout,
		log:           log,
	}
}

type IncidentInput struct {
	Description      string   `json:"description"`
	Date             string   `json:"date"`
	Time             *string  `json:"time,omitempty"`
	ImageRefs        []string `json:"image_refs"`
	Latitude         *string  `json:"latitude,omitempty"`
	Longitude        *string  `json:"longitude,omitempty"`
	AffectedPersonID int64    `json:"affected_person_id"`
	ReporterID       int64    `json:"reporter_id"`
	VehicleID        int64    `json:"vehicle_id"`
}

// Report files a new incident in the Pending state. All three role
// references must resolve at filing time.
func (s *IncidentService) Report(ctx context.Context, input IncidentInput) (*repository.Incident, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if input.Date == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if _, err := s.persons.GetByID(ctx, input.AffectedPersonID); err != nil {
		return nil, s.refError(err, "affected person", input.AffectedPersonID)
	}
	if _, err := s.persons.GetByID(ctx, input.ReporterID); err != nil {
		return nil, s.refError(err, "reporter", input.ReporterID)
	}
	if _, err := s.vehicles.GetByID(ctx, input.VehicleID); err != nil {
		return nil, s.refError(err, "vehicle", input.VehicleID)
	}

	inc := &repository.Incident{
		Description:      input.Description,
		Date:             input.Date,
		Time:             input.Time,
		ImageRefs:        datatypes.NewJSONSlice(input.ImageRefs),
		Status:           incdomain.StatusPending,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		AffectedPersonID: input.AffectedPersonID,
		ReporterID:       input.ReporterID,
		VehicleID:        input.VehicleID,
	}
	if err := s.incidents.Create(ctx, inc); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	s.log.Info().
		Int64("incident_id", inc.ID).
		Int64("affected_person_id", inc.AffectedPersonID).
		Int64("reporter_id", inc.ReporterID).
		Msg("incident reported")
	return inc, nil
}

func (s *IncidentService) refError(err error, role string, id int64) error {
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s %d", ErrNotFound, role, id)
	}
	return fmt.Errorf("failed to resolve %s: %w", role, err)
}

func (s *IncidentService) Get(ctx context.Context, id int64) (*repository.Incident, error) {
	inc, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: incident %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return inc, nil
}

func (s *IncidentService) Delete(ctx context.Context, id int64) error {
	if err := s.incidents.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: incident %d", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	return nil
}

// List applies the visibility filter: a requester on the User profile only
// sees incidents they reported, every other profile sees all of them. A
// person without a profile is treated as User.
func (s *IncidentService) List(ctx context.Context, requestingPersonID int64) ([]repository.Incident, error) {
	person, err := s.persons.GetByID(ctx, requestingPersonID)
	if err != nil {
		return nil, s.refError(err, "person", requestingPersonID)
	}

	restricted := true
	if person.ProfileID != nil {
		profile, err := s.persons.GetProfile(ctx, *person.ProfileID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to resolve profile: %w", err)
		}
		if profile != nil {
			restricted = profile.Name == ProfileUser
		}
	}

	if restricted {
		incidents, err := s.incidents.ListByReporter(ctx, requestingPersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to list incidents: %w", err)
		}
		return incidents, nil
	}

	incidents, err := s.incidents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}

// TransitionResult is the outcome of a status change.
type TransitionResult struct {
	IncidentID    int64  `json:"incident_id"`
	Status        string `json:"status"`
	IncidentCount int    `json:"incident_count"`
	Suspended     bool   `json:"suspended"`
	Message       string `json:"message"`
}

// ApplyStatus moves an incident to newStatus. The incident status and the
// affected person's count/status mutate in one transaction; notifications
// are dispatched after commit, each best-effort.
func (s *IncidentService) ApplyStatus(ctx context.Context, incidentID int64, newStatus string) (*TransitionResult, error) {
	if newStatus == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}

	rec, plan, err := s.incidents.ApplyTransition(ctx, incidentID, func(rec *repository.TransitionRecord) incdomain.Plan {
		return incdomain.PlanTransition(incdomain.TransitionInput{
			NewStatus:     newStatus,
			AffectedName:  rec.Affected.Name,
			AffectedEmail: rec.Affected.Email,
			ReporterEmail: rec.Reporter.Email,
			IncidentCount: rec.Affected.IncidentCount,
			PersonStatus:  rec.Affected.Status,
		})
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: incident %d", ErrNotFound, incidentID)
		}
		return nil, err
	}

	s.log.Info().
		Int64("incident_id", rec.Incident.ID).
		Str("status", plan.Status).
		Int("incident_count", plan.IncidentCount).
		Bool("suspended", plan.Suspended).
		Msg("incident transition committed")

	s.dispatch(ctx, rec, plan)

	return &TransitionResult{
		IncidentID:    rec.Incident.ID,
		Status:        plan.Status,
		IncidentCount: plan.IncidentCount,
		Suspended:     plan.Suspended,
		Message:       plan.Message,
	}, nil
}

// dispatch delivers the plan's notification intents. Failures are logged
// and swallowed; the transition already committed.
func (s *IncidentService) dispatch(ctx context.Context, rec *repository.TransitionRecord, plan incdomain.Plan) {
	for _, intent := range plan.Intents {
		msg := notify.Message{
			Kind:                intent.Kind,
			RecipientEmail:      intent.Recipient,
			IncidentDescription: rec.Incident.Description,
			IncidentDate:        rec.Incident.Date,
			IncidentStatus:      plan.Status,
			VehiclePlate:        rec.Vehicle.Plate,
			VehicleBrand:        rec.Vehicle.Brand,
			VehicleModel:        rec.Vehicle.Model,
			VehicleColor:        rec.Vehicle.Color,
			IncidentCount:       plan.IncidentCount,
			Suspended:           plan.Suspended,
		}
		switch intent.Kind {
		case incdomain.AffectedPersonNotice:
			msg.RecipientName = rec.Affected.Name
		default:
			msg.RecipientName = rec.Reporter.Name
		}

		sendCtx := ctx
		if s.notifyTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, s.notifyTimeout)
			defer cancel()
		}
		if err := s.dispatcher.Send(sendCtx, msg); err != nil {
			s.log.Error().
				Err(err).
				Str("kind", string(intent.Kind)).
				Str("recipient", intent.Recipient).
				Int64("incident_id", rec.Incident.ID).
				Msg("notification delivery failed")
		}
	}
}
