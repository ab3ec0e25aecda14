package incident

import (
	"errors"
	"fmt"
)

// Incident statuses. Anything else is accepted as a free-form label and
// persisted verbatim with no side effects.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Person statuses.
const (
	PersonAuthorized = "Authorized"
	PersonSuspended  = "Suspended"
)

// SuspensionThreshold is the approved-incident count at which a person is
// suspended. The suspension is a one-way ratchet; nothing in this package
// ever restores an authorized status.
const SuspensionThreshold = 3

// ErrIncomplete marks an incident whose affected person, reporter, or
// vehicle reference no longer resolves. Role references can be broken by a
// cascading delete after the incident was filed.
var ErrIncomplete = errors.New("incident references a missing person or vehicle")

// NoticeKind identifies a notification template.
type NoticeKind string

const (
	AffectedPersonNotice NoticeKind = "affected_person_notice"
	ReporterConfirmation NoticeKind = "reporter_confirmation"
	ReporterRejection    NoticeKind = "reporter_rejection"
)

// Intent is a notification the caller should dispatch after the transition
// commits. Dispatch is best-effort and never part of the transition itself.
type Intent struct {
	Kind      NoticeKind
	Recipient string
}

// TransitionInput is the state PlanTransition decides over.
type TransitionInput struct {
	NewStatus     string
	AffectedName  string
	AffectedEmail string
	ReporterEmail string
	IncidentCount int
	PersonStatus  string
}

// Plan is the pure outcome of a status transition: the mutations to persist
// and the notifications to raise. It performs no I/O.
type Plan struct {
	Status        string
	IncidentCount int
	PersonStatus  string
	MutatesPerson bool
	Suspended     bool
	Message       string
	Intents       []Intent
}

// PlanTransition computes the effect of moving an incident to in.NewStatus.
// Approval increments the affected person's incident count and suspends them
// once the count reaches SuspensionThreshold. Rejection only records the
// status. Any other status string is recorded as-is with no mutation and no
// notifications.
func PlanTransition(in TransitionInput) Plan {
	plan := Plan{
		Status:        in.NewStatus,
		IncidentCount: in.IncidentCount,
		PersonStatus:  in.PersonStatus,
	}

	switch in.NewStatus {
	case StatusApproved:
		plan.MutatesPerson = true
		plan.IncidentCount = in.IncidentCount + 1
		if plan.IncidentCount >= SuspensionThreshold {
			plan.PersonStatus = PersonSuspended
			plan.Suspended = in.PersonStatus != PersonSuspended
		}
		plan.Message = fmt.Sprintf("incident approved; %s now has %d incident(s)", in.AffectedName, plan.IncidentCount)
		if plan.Suspended {
			plan.Message += "; person has been suspended"
		}
		plan.Intents = []Intent{
			{Kind: AffectedPersonNotice, Recipient: in.AffectedEmail},
			{Kind: ReporterConfirmation, Recipient: in.ReporterEmail},
		}
	case StatusRejected:
		plan.Message = "incident rejected"
		plan.Intents = []Intent{
			{Kind: ReporterRejection, Recipient: in.ReporterEmail},
		}
	default:
		plan.Message = fmt.Sprintf("incident status set to %q", in.NewStatus)
	}

	return plan
}
