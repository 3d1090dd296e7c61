// Package domain holds typed identifiers shared across domain packages.
//
// Each ID is a distinct type over uuid.UUID so the compiler rejects passing a
// donor where a request is expected. Zero values are invalid everywhere.
package domain

import "github.com/google/uuid"

type (
	// UserID identifies a registered user (request creator, donor, volunteer).
	UserID uuid.UUID

	// RequestID identifies a funding request (donation drive).
	RequestID uuid.UUID

	// DonationID identifies one immutable donation record.
	DonationID uuid.UUID

	// EventID identifies a volunteer event.
	EventID uuid.UUID

	// CommentID identifies a comment on an event.
	CommentID uuid.UUID
)

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id DonationID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id CommentID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses a canonical UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseRequestID parses a canonical UUID string into a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}

// ParseEventID parses a canonical UUID string into an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

// ParseCommentID parses a canonical UUID string into a CommentID.
func ParseCommentID(s string) (CommentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CommentID{}, err
	}
	return CommentID(u), nil
}

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewDonationID returns a fresh random DonationID.
func NewDonationID() DonationID { return DonationID(uuid.New()) }

// NewEventID returns a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewCommentID returns a fresh random CommentID.
func NewCommentID() CommentID { return CommentID(uuid.New()) }
