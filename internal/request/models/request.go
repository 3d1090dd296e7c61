package models

import (
	"strings"
	"time"

	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
)

// RequestStatus is the lifecycle state of a funding request.
type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusUrgent    RequestStatus = "urgent"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusUrgent:
		return true
	}
	return false
}

// FundingRequest is the aggregate root for a donation drive.
//
// Invariants:
//   - Goal is positive; amounts are minor currency units (cents)
//   - DonationReceived equals the sum of Amount over the request's donation
//     records at all times; both are mutated only by the ledger, atomically
//     with the donation append
//   - DonationNumber counts applied donations, not distinct donors
//   - Totals may exceed Goal; PercentFunded clamps for display
type FundingRequest struct {
	ID               id.RequestID  `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	CreatorID        id.UserID     `json:"creator_id"`
	Goal             int64         `json:"goal"`
	DonationNumber   int64         `json:"donation_number"`
	DonationReceived int64         `json:"donation_received"`
	Status           RequestStatus `json:"status"`
	ImageURL         string        `json:"image_url,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// PercentFunded reports funding progress clamped at 100 for display.
func (r *FundingRequest) PercentFunded() int {
	if r.Goal <= 0 {
		return 0
	}
	pct := r.DonationReceived * 100 / r.Goal
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// ApplyDonation increments the aggregate totals. Only ledger stores call
// this, while holding the lock (mutex or row lock) that serializes writers.
func (r *FundingRequest) ApplyDonation(amount int64, now time.Time) {
	r.DonationNumber++
	r.DonationReceived += amount
	r.UpdatedAt = now
}

// UpdateRequest is the allow-listed edit payload. Monetary totals are
// deliberately absent: DonationNumber and DonationReceived can only change
// through the ledger. Nil fields are left untouched.
type UpdateRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Goal        *int64         `json:"goal"`
	Status      *RequestStatus `json:"status"`
}

// Validate rejects edits that would break aggregate invariants.
func (u UpdateRequest) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "title cannot be empty")
	}
	if u.Title != nil && len(*u.Title) > 140 {
		return dErrors.New(dErrors.CodeBadRequest, "title must be 140 characters or less")
	}
	if u.Goal != nil && *u.Goal <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "goal must be positive")
	}
	if u.Status != nil && !u.Status.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "status must be one of active, fulfilled, urgent")
	}
	return nil
}

// Apply writes the non-nil fields onto the request.
func (r *FundingRequest) Apply(u UpdateRequest, now time.Time) {
	if u.Title != nil {
		r.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Goal != nil {
		r.Goal = *u.Goal
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	r.UpdatedAt = now
}

// NewFundingRequest validates and constructs a request.
func NewFundingRequest(requestID id.RequestID, creatorID id.UserID, title, description string, goal int64, imageURL string, now time.Time) (*FundingRequest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if len(title) > 140 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title must be 140 characters or less")
	}
	if goal <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "goal must be positive")
	}
	if creatorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creator is required")
	}

	return &FundingRequest{
		ID:          requestID,
		Title:       title,
		Description: description,
		CreatorID:   creatorID,
		Goal:        goal,
		Status:      StatusActive,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
