// Package repository declares the storage contracts the service layer
// depends on. Implementations live in subpackages (repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/userbook/internal/model"
)

// UserRepository is the data access contract for the users table.
//
// Rows are append-only: there is no Update or Delete.
type UserRepository interface {
	// FindByName returns the oldest row whose name matches exactly.
	// Returns apperror.ErrNotFound when no row matches.
	FindByName(ctx context.Context, name string) (*model.User, error)

	// InsertIfAbsent inserts user unless a row with the same name already
	// exists, as a single atomic statement. It reports whether a row was
	// written; on true, user.ID holds the assigned id.
	InsertIfAbsent(ctx context.Context, user *model.User) (bool, error)

	// List returns every row in storage-default order. Never nil.
	List(ctx context.Context) ([]model.User, error)
}
