package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/application/ledger"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/numbering"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to the ledger repositories
// within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BalanceRepo returns the stock balance repository scoped to the current transaction
func (r *gormTransactionalRepositories) BalanceRepo() inventory.StockBalanceRepository {
	return NewGormStockBalanceRepository(r.tx)
}

// LotRepo returns the lot repository scoped to the current transaction
func (r *gormTransactionalRepositories) LotRepo() inventory.LotRepository {
	return NewGormLotRepository(r.tx)
}

// HistoryRepo returns the lot history repository scoped to the current transaction
func (r *gormTransactionalRepositories) HistoryRepo() inventory.LotHistoryRepository {
	return NewGormLotHistoryRepository(r.tx)
}

// NumberingRepo returns the document numbering repository scoped to the current transaction
func (r *gormTransactionalRepositories) NumberingRepo() numbering.DocumentNumberingRepository {
	return NewGormDocumentNumberingRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ ledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ ledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
