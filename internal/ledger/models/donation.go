package models

import (
	"strings"
	"time"

	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
)

// Donation is one immutable record of a confirmed payment applied to a
// funding request.
//
// Invariants:
//   - Amount > 0 (minor currency units)
//   - PaymentRef is the payment provider's confirmation ID and is unique
//     across the whole system: the same confirmed payment can never produce
//     two Donation records
//   - Records are append-only: never mutated, never deleted
type Donation struct {
	ID         id.DonationID `json:"id"`
	RequestID  id.RequestID  `json:"request_id"`
	DonorID    id.UserID     `json:"donor_id"`
	Amount     int64         `json:"amount"`
	PaymentRef string        `json:"payment_ref"`
	CreatedAt  time.Time     `json:"created_at"`
}

// DonationWithDonor is the read shape for donation history, with the donor's
// display name resolved.
type DonationWithDonor struct {
	Donation
	DonorName string `json:"donor_name"`
}

// NewDonation validates and constructs a donation record.
func NewDonation(donationID id.DonationID, requestID id.RequestID, donorID id.UserID, amount int64, paymentRef string, now time.Time) (*Donation, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payment reference is required")
	}
	if requestID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if donorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor is required")
	}

	return &Donation{
		ID:         donationID,
		RequestID:  requestID,
		DonorID:    donorID,
		Amount:     amount,
		PaymentRef: paymentRef,
		CreatedAt:  now,
	}, nil
}
