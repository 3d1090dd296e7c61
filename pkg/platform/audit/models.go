package audit

import (
	"time"

	id "reliefhub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryFinancial covers events tied to money movement. These back the
	// donation audit trail and require long retention.
	CategoryFinancial EventCategory = "financial"

	// CategorySecurity covers events relevant to account security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility; these can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// Subject names the entity acted on (request ID, event ID, payment ref).
	Subject string
	Action  string
	Reason  string
	// Amount carries the donation amount in minor units for financial events.
	Amount int64
	// RequestID is the HTTP correlation ID from the request context.
	RequestID string
}

type AuditEvent string

const (
	// Ledger events
	EventDonationRecorded AuditEvent = "donation_recorded"
	EventDuplicatePayment AuditEvent = "duplicate_payment"
	EventDonationRejected AuditEvent = "donation_rejected"

	// Funding request events
	EventRequestCreated AuditEvent = "request_created"
	EventRequestUpdated AuditEvent = "request_updated"
	EventRequestDeleted AuditEvent = "request_deleted"

	// Auth events
	EventUserRegistered AuditEvent = "user_registered"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"

	// Volunteer event events
	EventEventCreated     AuditEvent = "event_created"
	EventEventDeleted     AuditEvent = "event_deleted"
	EventVolunteerToggled AuditEvent = "volunteer_toggled"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDonationRecorded: CategoryFinancial,
	EventDuplicatePayment: CategoryFinancial,
	EventDonationRejected: CategoryFinancial,
	EventRequestCreated:   CategoryOperations,
	EventRequestUpdated:   CategoryOperations,
	EventRequestDeleted:   CategoryOperations,
	EventUserRegistered:   CategorySecurity,
	EventLoginSucceeded:   CategorySecurity,
	EventLoginFailed:      CategorySecurity,
	EventEventCreated:     CategoryOperations,
	EventEventDeleted:     CategoryOperations,
	EventVolunteerToggled: CategoryOperations,
}

// Category resolves the category for an action; unknown actions default to
// operations so nothing is dropped for lack of classification.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
