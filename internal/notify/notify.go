package notify

import (
	"context"
	"fmt"
	"strings"

	incdomain "plate-registry/internal/domain/incident"
)

// Message is a notification intent resolved to a concrete recipient and
// template context. Dispatch is best-effort: the caller logs a returned
// error and moves on.
type Message struct {
	Kind           incdomain.NoticeKind
	RecipientEmail string
	RecipientName  string

	IncidentDescription string
	IncidentDate        string
	IncidentStatus      string
	VehiclePlate        string
	VehicleBrand        string
	VehicleModel        string
	VehicleColor        string
	IncidentCount       int
	Suspended           bool
}

// Dispatcher delivers a notification. Implementations must respect the
// context deadline; a timeout is a delivery failure, nothing more.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Subject returns the mail subject for the message kind.
func (m Message) Subject() string {
	switch m.Kind {
	case incdomain.AffectedPersonNotice:
		return fmt.Sprintf("Incident filed against your vehicle %s", m.VehiclePlate)
	case incdomain.ReporterConfirmation:
		return "Your incident report was approved"
	case incdomain.ReporterRejection:
		return "Your incident report was rejected"
	default:
		return "Incident update"
	}
}

// Body renders the plain-text mail body.
func (m Message) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", m.RecipientName)

	switch m.Kind {
	case incdomain.AffectedPersonNotice:
		fmt.Fprintf(&b, "An incident reported against you has been approved.\n")
		fmt.Fprintf(&b, "You now have %d registered incident(s).\n", m.IncidentCount)
		if m.Suspended {
			b.WriteString("Your registration has been suspended.\n")
		}
	case incdomain.ReporterConfirmation:
		b.WriteString("The incident you reported has been reviewed and approved.\n")
	case incdomain.ReporterRejection:
		b.WriteString("The incident you reported has been reviewed and rejected.\n")
	}

	fmt.Fprintf(&b, "\nIncident: %s\nDate: %s\nStatus: %s\n", m.IncidentDescription, m.IncidentDate, m.IncidentStatus)
	fmt.Fprintf(&b, "Vehicle: %s %s (%s), plate %s\n", m.VehicleBrand, m.VehicleModel, m.VehicleColor, m.VehiclePlate)
	return b.String()
}
