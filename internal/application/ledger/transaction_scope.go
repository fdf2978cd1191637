package ledger

import (
	"context"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/numbering"
)

// TransactionScope provides transactional access to the ledger repositories.
// Each document-apply operation runs inside one scope: all repository calls
// share a database transaction and commit or roll back atomically. This is
// the all-or-nothing boundary the ledger assumes around every receipt,
// issue and transfer application.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to the
// current transaction
type TransactionalRepositories interface {
	// BalanceRepo returns the stock balance repository scoped to the transaction
	BalanceRepo() inventory.StockBalanceRepository
	// LotRepo returns the lot repository scoped to the transaction
	LotRepo() inventory.LotRepository
	// HistoryRepo returns the lot history repository scoped to the transaction
	HistoryRepo() inventory.LotHistoryRepository
	// NumberingRepo returns the document numbering repository scoped to the transaction
	NumberingRepo() numbering.DocumentNumberingRepository
}

// NoOpTransactionScope runs the callback without a real transaction. It
// exists for tests and single-store setups where atomicity is provided
// elsewhere.
type NoOpTransactionScope struct {
	balanceRepo   inventory.StockBalanceRepository
	lotRepo       inventory.LotRepository
	historyRepo   inventory.LotHistoryRepository
	numberingRepo numbering.DocumentNumberingRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	balanceRepo inventory.StockBalanceRepository,
	lotRepo inventory.LotRepository,
	historyRepo inventory.LotHistoryRepository,
	numberingRepo numbering.DocumentNumberingRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		balanceRepo:   balanceRepo,
		lotRepo:       lotRepo,
		historyRepo:   historyRepo,
		numberingRepo: numberingRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BalanceRepo returns the stock balance repository
func (s *NoOpTransactionScope) BalanceRepo() inventory.StockBalanceRepository {
	return s.balanceRepo
}

// LotRepo returns the lot repository
func (s *NoOpTransactionScope) LotRepo() inventory.LotRepository {
	return s.lotRepo
}

// HistoryRepo returns the lot history repository
func (s *NoOpTransactionScope) HistoryRepo() inventory.LotHistoryRepository {
	return s.historyRepo
}

// NumberingRepo returns the document numbering repository
func (s *NoOpTransactionScope) NumberingRepo() numbering.DocumentNumberingRepository {
	return s.numberingRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
