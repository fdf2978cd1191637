package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// DefaultIdempotencyTTL is how long an applied document number blocks replays
const DefaultIdempotencyTTL = 24 * time.Hour

// LedgerService applies stock documents against the balance ledger and the
// lot store. Each Apply/Revert runs inside one transaction scope; the
// service itself performs no multi-step rollback, a failing step aborts
// the whole transaction.
type LedgerService struct {
	scope       TransactionScope
	materials   catalog.MaterialRepository
	allocator   *inventory.AllocationEngine
	costing     *inventory.CostingEngine
	idempotency shared.IdempotencyStore // optional; nil disables the replay guard
	logger      *zap.Logger
}

// NewLedgerService creates a LedgerService
func NewLedgerService(
	scope TransactionScope,
	materials catalog.MaterialRepository,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:     scope,
		materials: materials,
		allocator: inventory.NewAllocationEngine(),
		costing:   inventory.NewCostingEngine(),
		logger:    logger,
	}
}

// SetIdempotencyStore enables the document replay guard
func (s *LedgerService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// guardReplay marks the document as processed before applying it. Returns
// shared.ErrAlreadyExists when the document number was already applied.
func (s *LedgerService) guardReplay(ctx context.Context, kind, documentNo string) (func(), error) {
	if s.idempotency == nil || documentNo == "" {
		return func() {}, nil
	}
	key := kind + ":" + documentNo
	first, err := s.idempotency.MarkProcessed(ctx, key, DefaultIdempotencyTTL)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, shared.ErrAlreadyExists
	}
	// The undo releases the key when the apply itself fails, so the
	// caller can retry with the same document number.
	return func() {
		if err := s.idempotency.Clear(ctx, key); err != nil {
			s.logger.Warn("failed to clear idempotency key",
				zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// effectiveUnitPrice resolves a receipt line's price: the explicit line
// price when present, otherwise the material's purchase price.
func (s *LedgerService) effectiveUnitPrice(ctx context.Context, line ReceiptLine) (*decimal.Decimal, error) {
	if line.UnitPrice != nil {
		return line.UnitPrice, nil
	}
	material, err := s.materials.FindByID(ctx, line.MaterialID)
	if err != nil {
		return nil, err
	}
	price := material.PurchasePrice
	return &price, nil
}

// ApplyReceipt increases the aggregate balance and the matching lot for
// every line of the receipt. Lots are located by their full identity tuple;
// an existing lot absorbs the quantity at a quantity-weighted average
// price, a missing one is created.
func (s *LedgerService) ApplyReceipt(ctx context.Context, doc ReceiptDocument) error {
	undo, err := s.guardReplay(ctx, "receipt", doc.DocumentNo)
	if err != nil {
		return err
	}

	prices := make([]*decimal.Decimal, len(doc.Lines))
	for i, line := range doc.Lines {
		price, err := s.effectiveUnitPrice(ctx, line)
		if err != nil {
			undo()
			return err
		}
		prices[i] = price
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i, line := range doc.Lines {
			if err := increaseBalance(ctx, repos, doc.WarehouseID, line.MaterialID, line.Quantity); err != nil {
				return err
			}

			key := inventory.LotKey{
				WarehouseID:     doc.WarehouseID,
				MaterialID:      line.MaterialID,
				LotNumber:       line.LotNumber,
				ManufactureDate: line.ManufactureDate,
				ExpiryDate:      line.ExpiryDate,
			}
			if err := increaseLot(ctx, repos, key, line.Quantity, prices[i], doc.PostedBy, doc.DocumentNo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		undo()
		return err
	}

	s.logger.Info("receipt applied",
		zap.String("document_no", doc.DocumentNo),
		zap.String("warehouse_id", doc.WarehouseID.String()),
		zap.Int("lines", len(doc.Lines)))
	return nil
}

// RevertReceipt performs the symmetric decrease pair for a previously
// applied receipt. Both the balance and the lot must still cover the line
// quantities, otherwise the whole revert fails before any mutation commits.
func (s *LedgerService) RevertReceipt(ctx context.Context, doc ReceiptDocument) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range doc.Lines {
			if err := decreaseBalance(ctx, repos, doc.WarehouseID, line.MaterialID, line.Quantity); err != nil {
				return err
			}

			key := inventory.LotKey{
				WarehouseID:     doc.WarehouseID,
				MaterialID:      line.MaterialID,
				LotNumber:       line.LotNumber,
				ManufactureDate: line.ManufactureDate,
				ExpiryDate:      line.ExpiryDate,
			}
			if err := decreaseLot(ctx, repos, key, line.Quantity, doc.PostedBy, doc.DocumentNo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.idempotency != nil && doc.DocumentNo != "" {
		if err := s.idempotency.Clear(ctx, "receipt:"+doc.DocumentNo); err != nil {
			s.logger.Warn("failed to clear idempotency key after revert",
				zap.String("document_no", doc.DocumentNo), zap.Error(err))
		}
	}

	s.logger.Info("receipt reverted",
		zap.String("document_no", doc.DocumentNo),
		zap.String("warehouse_id", doc.WarehouseID.String()))
	return nil
}

// ApplyIssue processes an outgoing document: per line it stamps a cost
// basis from the material's costing method, physically consumes lots in
// FEFO order, and decreases the aggregate balance. The cost basis is
// computed from the lot state as of the issue date, before allocation
// consumes it: accounting order and pick order are independent.
func (s *LedgerService) ApplyIssue(ctx context.Context, doc IssueDocument) ([]IssueLineResult, error) {
	undo, err := s.guardReplay(ctx, "issue", doc.DocumentNo)
	if err != nil {
		return nil, err
	}

	issueDate := doc.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	materials := make(map[uuid.UUID]*catalog.Material, len(doc.Lines))
	for _, line := range doc.Lines {
		if _, ok := materials[line.MaterialID]; ok {
			continue
		}
		material, err := s.materials.FindByID(ctx, line.MaterialID)
		if err != nil {
			undo()
			return nil, err
		}
		materials[line.MaterialID] = material
	}

	results := make([]IssueLineResult, 0, len(doc.Lines))
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range doc.Lines {
			material := materials[line.MaterialID]

			lots, err := repos.LotRepo().FindActive(ctx, doc.WarehouseID, line.MaterialID)
			if err != nil {
				return err
			}

			unitCost := s.costing.IssueCost(
				material.EffectiveCostingMethod(),
				lots,
				material.PurchasePrice,
				line.Quantity,
				issueDate,
			)

			allocations, err := s.allocator.Allocate(lots, line.Quantity)
			if err != nil {
				return err
			}

			for _, lot := range lots {
				if !consumedBy(allocations, lot.ID) {
					continue
				}
				if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
					return err
				}
			}

			histories := make([]*inventory.LotHistory, 0, len(allocations))
			for _, alloc := range allocations {
				histories = append(histories, inventory.NewLotHistory(
					alloc.LotID,
					inventory.LotActionAllocated,
					alloc.Quantity, decimal.Zero,
					nil,
					doc.PostedBy,
					"issue "+doc.DocumentNo,
				))
			}
			if err := appendHistories(ctx, repos, histories, allocations); err != nil {
				return err
			}

			if err := decreaseBalance(ctx, repos, doc.WarehouseID, line.MaterialID, line.Quantity); err != nil {
				return err
			}

			results = append(results, IssueLineResult{
				MaterialID:  line.MaterialID,
				Quantity:    line.Quantity,
				UnitCost:    unitCost,
				Allocations: allocations,
			})
		}
		return nil
	})
	if err != nil {
		undo()
		return nil, err
	}

	s.logger.Info("issue applied",
		zap.String("document_no", doc.DocumentNo),
		zap.String("warehouse_id", doc.WarehouseID.String()),
		zap.Int("lines", len(results)))
	return results, nil
}

// ApplyTransfer decreases the source warehouse balance and increases the
// destination balance for every line. Lot rows are not relocated between
// warehouses; the lot-level view keeps the stock at the source until a
// matching lot movement is posted separately.
func (s *LedgerService) ApplyTransfer(ctx context.Context, doc TransferDocument) error {
	undo, err := s.guardReplay(ctx, "transfer", doc.DocumentNo)
	if err != nil {
		return err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range doc.Lines {
			if err := decreaseBalance(ctx, repos, doc.SourceWarehouseID, line.MaterialID, line.Quantity); err != nil {
				return err
			}
			if err := increaseBalance(ctx, repos, doc.DestWarehouseID, line.MaterialID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		undo()
		return err
	}

	s.logger.Info("transfer applied",
		zap.String("document_no", doc.DocumentNo),
		zap.String("source_warehouse_id", doc.SourceWarehouseID.String()),
		zap.String("dest_warehouse_id", doc.DestWarehouseID.String()))
	return nil
}

// IncreaseLot adds quantity to the lot identified by the full identity
// tuple, creating it when absent, outside any document workflow
func (s *LedgerService) IncreaseLot(ctx context.Context, key inventory.LotKey, quantity decimal.Decimal, unitPrice *decimal.Decimal, actor string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return increaseLot(ctx, repos, key, quantity, unitPrice, actor, "")
	})
}

// DecreaseLot removes quantity from the lot identified by the full identity
// tuple. A missing lot or insufficient quantity fails with
// ErrInsufficientLotStock.
func (s *LedgerService) DecreaseLot(ctx context.Context, key inventory.LotKey, quantity decimal.Decimal, actor string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return decreaseLot(ctx, repos, key, quantity, actor, "")
	})
}

// GetBalance returns the balance read model for a key, a zero row when absent
func (s *LedgerService) GetBalance(ctx context.Context, warehouseID, materialID uuid.UUID) (*BalanceResponse, error) {
	var response *BalanceResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		balance, err := repos.BalanceRepo().FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		if errors.Is(err, shared.ErrNotFound) {
			balance, err = inventory.NewStockBalance(warehouseID, materialID)
		}
		if err != nil {
			return err
		}
		r := ToBalanceResponse(balance)
		response = &r
		return nil
	})
	return response, err
}

// GetLots returns all lots for a warehouse-material key, zeroed ones included
func (s *LedgerService) GetLots(ctx context.Context, warehouseID, materialID uuid.UUID) ([]LotResponse, error) {
	var lots []*inventory.Lot
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lots, err = repos.LotRepo().FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToLotResponses(lots), nil
}

// GetLotCosts returns the read-only (lot, quantity, effective price)
// valuation projection for a key as of a date
func (s *LedgerService) GetLotCosts(ctx context.Context, warehouseID, materialID uuid.UUID, asOf time.Time) ([]inventory.LotCost, error) {
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return nil, err
	}

	var costs []inventory.LotCost
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lots, err := repos.LotRepo().FindActive(ctx, warehouseID, materialID)
		if err != nil {
			return err
		}
		costs = s.costing.LotCosts(lots, material.PurchasePrice, asOf)
		return nil
	})
	return costs, err
}

// increaseBalance loads (or creates) the balance row for a key, applies the
// increase and persists under the version guard
func increaseBalance(ctx context.Context, repos TransactionalRepositories, warehouseID, materialID uuid.UUID, quantity decimal.Decimal) error {
	balance, err := repos.BalanceRepo().GetOrCreate(ctx, warehouseID, materialID)
	if err != nil {
		return err
	}
	if err := balance.Increase(quantity); err != nil {
		return err
	}
	return repos.BalanceRepo().SaveWithLock(ctx, balance)
}

// decreaseBalance treats an absent row as zero, so the decrease fails with
// ErrInsufficientStock instead of creating the row
func decreaseBalance(ctx context.Context, repos TransactionalRepositories, warehouseID, materialID uuid.UUID, quantity decimal.Decimal) error {
	balance, err := repos.BalanceRepo().FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
	if errors.Is(err, shared.ErrNotFound) {
		return inventory.ErrInsufficientStock
	}
	if err != nil {
		return err
	}
	if err := balance.Decrease(quantity); err != nil {
		return err
	}
	return repos.BalanceRepo().SaveWithLock(ctx, balance)
}

// increaseLot merges into the identity-matched lot or creates it, then
// appends the audit row (mutation first, history second)
func increaseLot(ctx context.Context, repos TransactionalRepositories, key inventory.LotKey, quantity decimal.Decimal, unitPrice *decimal.Decimal, actor, documentNo string) error {
	lot, err := repos.LotRepo().FindByKey(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		lot, err = inventory.NewLot(key, quantity, unitPrice)
		if err != nil {
			return err
		}
		if err := repos.LotRepo().Create(ctx, lot); err != nil {
			return err
		}
		return repos.HistoryRepo().Create(ctx, inventory.NewLotHistory(
			lot.ID, inventory.LotActionCreated,
			decimal.Zero, quantity,
			nil, actor, noteFor("receipt", documentNo),
		))
	}
	if err != nil {
		return err
	}

	before := lot.Quantity
	if err := lot.Merge(quantity, unitPrice); err != nil {
		return err
	}
	if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
		return err
	}
	return repos.HistoryRepo().Create(ctx, inventory.NewLotHistory(
		lot.ID, inventory.LotActionIncreased,
		before, lot.Quantity,
		nil, actor, noteFor("receipt", documentNo),
	))
}

// decreaseLot decrements the identity-matched lot; a missing lot counts as
// insufficient stock
func decreaseLot(ctx context.Context, repos TransactionalRepositories, key inventory.LotKey, quantity decimal.Decimal, actor, documentNo string) error {
	lot, err := repos.LotRepo().FindByKey(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return inventory.ErrInsufficientLotStock
	}
	if err != nil {
		return err
	}

	before := lot.Quantity
	if err := lot.Decrease(quantity); err != nil {
		return err
	}
	if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
		return err
	}
	return repos.HistoryRepo().Create(ctx, inventory.NewLotHistory(
		lot.ID, inventory.LotActionDecreased,
		before, lot.Quantity,
		nil, actor, noteFor("revert", documentNo),
	))
}

// appendHistories fixes up before/after quantities for allocation rows and
// appends them in one batch
func appendHistories(ctx context.Context, repos TransactionalRepositories, histories []*inventory.LotHistory, allocations []inventory.LotAllocation) error {
	for i, alloc := range allocations {
		lot, err := repos.LotRepo().FindByID(ctx, alloc.LotID)
		if err != nil {
			return err
		}
		histories[i].QuantityAfter = lot.Quantity
		histories[i].QuantityBefore = lot.Quantity.Add(alloc.Quantity)
	}
	return repos.HistoryRepo().CreateBatch(ctx, histories)
}

func consumedBy(allocations []inventory.LotAllocation, lotID uuid.UUID) bool {
	for _, a := range allocations {
		if a.LotID == lotID {
			return true
		}
	}
	return false
}

func noteFor(kind, documentNo string) string {
	if documentNo == "" {
		return kind
	}
	return kind + " " + documentNo
}
