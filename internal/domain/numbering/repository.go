package numbering

import (
	"context"

	"github.com/google/uuid"
)

// DocumentNumberingRepository defines the interface for numbering rows.
// The scope lookup is null-safe on the warehouse: a nil warehouseID matches
// only rows without a warehouse.
type DocumentNumberingRepository interface {
	// FindByScope finds the row for (documentType, warehouseID, year);
	// shared.ErrNotFound when the scope is unseeded
	FindByScope(ctx context.Context, documentType string, warehouseID *uuid.UUID, year int) (*DocumentNumbering, error)

	// Create inserts a new row; fails with shared.ErrAlreadyExists when a
	// concurrent writer seeded the scope first
	Create(ctx context.Context, row *DocumentNumbering) error

	// SaveWithLock persists an increment with optimistic locking; fails
	// with shared.ErrConcurrencyConflict on a stale version
	SaveWithLock(ctx context.Context, row *DocumentNumbering) error
}
