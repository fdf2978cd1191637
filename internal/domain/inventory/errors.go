package inventory

import "github.com/wms/backend/internal/domain/shared"

// Ledger error taxonomy. All ledger operations fail with one of these (or
// shared.ErrNotFound); callers abort the surrounding document application.
var (
	// ErrInsufficientStock is returned when an aggregate balance decrease
	// would drive the balance below zero.
	ErrInsufficientStock = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock balance available")

	// ErrInsufficientLotStock is returned when a lot-level decrease or
	// allocation cannot be covered by the available lot quantity.
	ErrInsufficientLotStock = shared.NewDomainError("INSUFFICIENT_LOT_STOCK", "Insufficient lot stock available")

	// ErrInvalidLotOperation is returned for lot misuse: operating on a
	// reserved or empty lot, or merging lots of different materials or
	// warehouses.
	ErrInvalidLotOperation = shared.NewDomainError("INVALID_LOT_OPERATION", "Lot operation not allowed in current state")
)
