// Package adapters bridges the ledger to collaborating domains without
// importing their concrete stores into the service.
package adapters

import (
	"context"

	authmodels "reliefhub/internal/auth/models"
	id "reliefhub/pkg/domain"
)

// UserFinder is the slice of the auth user store the ledger needs.
type UserFinder interface {
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*authmodels.User, error)
}

// UserDirectory resolves donor display names from the auth user store.
type UserDirectory struct {
	users UserFinder
}

func NewUserDirectory(users UserFinder) *UserDirectory {
	return &UserDirectory{users: users}
}

// DisplayNames maps user IDs to display names. Unknown IDs are absent from
// the result rather than an error; donation history tolerates deleted
// accounts.
func (d *UserDirectory) DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error) {
	found, err := d.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[id.UserID]string, len(found))
	for userID, u := range found {
		names[userID] = u.Name
	}
	return names, nil
}
