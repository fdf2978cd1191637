package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// LotService orchestrates the lot lifecycle operations: split, merge,
// reserve and release. Every operation runs inside one transaction scope
// and writes history in two phases, lots first, audit rows second, so the
// audit trail can reference generated lot identifiers.
type LotService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewLotService creates a LotService
func NewLotService(scope TransactionScope, logger *zap.Logger) *LotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LotService{scope: scope, logger: logger}
}

// SplitRequest describes a split of one parent lot into child quantities
type SplitRequest struct {
	LotID       uuid.UUID
	Quantities  []decimal.Decimal
	PerformedBy string
}

// MergeRequest describes a merge of several source lots into one new lot
type MergeRequest struct {
	LotIDs      []uuid.UUID
	PerformedBy string
}

// CanSplit pre-validates a split without mutating anything
func (s *LotService) CanSplit(ctx context.Context, lotID uuid.UUID, quantities []decimal.Decimal) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.LotRepo().FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		return inventory.CanSplitLot(lot, quantities)
	})
}

// CanMerge pre-validates a merge without mutating anything
func (s *LotService) CanMerge(ctx context.Context, lotIDs []uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lots, err := repos.LotRepo().FindByIDs(ctx, lotIDs)
		if err != nil {
			return err
		}
		return inventory.CanMergeLots(lots)
	})
}

// SplitLot cuts child lots off a parent. Children inherit the parent's
// dates and price, get derived lot numbers and record the parent's lineage
// reference. The parent keeps the remainder; total quantity is conserved.
func (s *LotService) SplitLot(ctx context.Context, req SplitRequest) ([]LotResponse, error) {
	var children []*inventory.Lot
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		parent, err := repos.LotRepo().FindByID(ctx, req.LotID)
		if err != nil {
			return err
		}
		if err := inventory.CanSplitLot(parent, req.Quantities); err != nil {
			return err
		}

		parentBefore := parent.Quantity
		now := time.Now()
		parentRef := parent.LineageRef()

		children = make([]*inventory.Lot, 0, len(req.Quantities))
		for _, qty := range req.Quantities {
			childNumber := inventory.DeriveChildLotNumber(parent, now)
			key := inventory.LotKey{
				WarehouseID:     parent.WarehouseID,
				MaterialID:      parent.MaterialID,
				LotNumber:       &childNumber,
				ManufactureDate: parent.ManufactureDate,
				ExpiryDate:      parent.ExpiryDate,
			}
			child, err := inventory.NewLot(key, qty, parent.UnitPrice)
			if err != nil {
				return err
			}
			child.ParentLotID = &parentRef

			if err := parent.Decrease(qty); err != nil {
				return err
			}
			children = append(children, child)
		}

		// Phase one: persist the mutated parent and the new children
		if err := repos.LotRepo().SaveWithLock(ctx, parent); err != nil {
			return err
		}
		for _, child := range children {
			if err := repos.LotRepo().Create(ctx, child); err != nil {
				return err
			}
		}

		// Phase two: append the audit rows, now that child ids exist
		childIDs := make([]uuid.UUID, len(children))
		for i, child := range children {
			childIDs[i] = child.ID
		}

		histories := make([]*inventory.LotHistory, 0, len(children)+1)
		histories = append(histories, inventory.NewLotHistory(
			parent.ID, inventory.LotActionSplit,
			parentBefore, parent.Quantity,
			childIDs, req.PerformedBy,
			"split into "+JoinChildNumbers(children),
		))
		for _, child := range children {
			histories = append(histories, inventory.NewLotHistory(
				child.ID, inventory.LotActionSplit,
				decimal.Zero, child.Quantity,
				[]uuid.UUID{parent.ID}, req.PerformedBy,
				"split from "+parentRef,
			))
		}
		return repos.HistoryRepo().CreateBatch(ctx, histories)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lot split",
		zap.String("lot_id", req.LotID.String()),
		zap.Int("children", len(children)))
	return ToLotResponses(children), nil
}

// MergeLots combines the sources into one new lot. The result takes the
// sum of quantities, a quantity-weighted average price over the priced
// sources and the earliest manufacture and expiry dates. Sources are
// zeroed, never deleted, so their history stays navigable.
func (s *LotService) MergeLots(ctx context.Context, req MergeRequest) (*LotResponse, error) {
	var merged *inventory.Lot
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lots, err := repos.LotRepo().FindByIDs(ctx, req.LotIDs)
		if err != nil {
			return err
		}
		if err := inventory.CanMergeLots(lots); err != nil {
			return err
		}

		if inventory.HasMixedExpiry(lots) {
			s.logger.Warn("merging lots with differing expiry dates",
				zap.Int("lots", len(lots)))
		}

		now := time.Now()
		prefix := inventory.MergeLotNumberPrefix(now)
		count, err := repos.LotRepo().CountByLotNumberPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		mergedNumber := inventory.MergeLotNumber(now, int(count)+1)

		total := decimal.Zero
		pricedQty := decimal.Zero
		pricedValue := decimal.Zero
		manufactureDates := make([]*time.Time, 0, len(lots))
		expiryDates := make([]*time.Time, 0, len(lots))
		for _, lot := range lots {
			total = total.Add(lot.Quantity)
			if lot.UnitPrice != nil {
				pricedQty = pricedQty.Add(lot.Quantity)
				pricedValue = pricedValue.Add(lot.Quantity.Mul(*lot.UnitPrice))
			}
			manufactureDates = append(manufactureDates, lot.ManufactureDate)
			expiryDates = append(expiryDates, lot.ExpiryDate)
		}

		var unitPrice *decimal.Decimal
		if pricedQty.GreaterThan(decimal.Zero) {
			avg := pricedValue.Div(pricedQty).Round(inventory.PriceScale)
			unitPrice = &avg
		}

		key := inventory.LotKey{
			WarehouseID:     lots[0].WarehouseID,
			MaterialID:      lots[0].MaterialID,
			LotNumber:       &mergedNumber,
			ManufactureDate: inventory.EarliestDate(manufactureDates),
			ExpiryDate:      inventory.EarliestDate(expiryDates),
		}
		merged, err = inventory.NewLot(key, total, unitPrice)
		if err != nil {
			return err
		}

		befores := make([]decimal.Decimal, len(lots))
		for i, lot := range lots {
			befores[i] = lot.Quantity
			if lot.HasStock() {
				if err := lot.Decrease(lot.Quantity); err != nil {
					return err
				}
			}
		}

		// Phase one: persist the merged lot and the zeroed sources
		if err := repos.LotRepo().Create(ctx, merged); err != nil {
			return err
		}
		for _, lot := range lots {
			if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
				return err
			}
		}

		// Phase two: audit rows referencing the merged lot's id
		sourceIDs := make([]uuid.UUID, len(lots))
		for i, lot := range lots {
			sourceIDs[i] = lot.ID
		}

		histories := make([]*inventory.LotHistory, 0, len(lots)+1)
		histories = append(histories, inventory.NewLotHistory(
			merged.ID, inventory.LotActionMerged,
			decimal.Zero, merged.Quantity,
			sourceIDs, req.PerformedBy,
			"merged from "+inventory.JoinLotIDs(sourceIDs),
		))
		for i, lot := range lots {
			histories = append(histories, inventory.NewLotHistory(
				lot.ID, inventory.LotActionMerged,
				befores[i], lot.Quantity,
				[]uuid.UUID{merged.ID}, req.PerformedBy,
				"merged into "+mergedNumber,
			))
		}
		return repos.HistoryRepo().CreateBatch(ctx, histories)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lots merged",
		zap.Int("sources", len(req.LotIDs)),
		zap.String("merged_lot_id", merged.ID.String()))
	response := ToLotResponse(merged)
	return &response, nil
}

// ReserveLot soft-locks a lot for an issue document
func (s *LotService) ReserveLot(ctx context.Context, lotID uuid.UUID, quantity decimal.Decimal, issueID, actor string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.LotRepo().FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		if err := lot.Reserve(quantity, issueID, actor); err != nil {
			return err
		}
		if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
			return err
		}
		return repos.HistoryRepo().Create(ctx, inventory.NewLotHistory(
			lot.ID, inventory.LotActionReserved,
			lot.Quantity, lot.Quantity,
			nil, actor,
			"reserved for issue "+issueID,
		))
	})
}

// ReleaseLot clears a reservation
func (s *LotService) ReleaseLot(ctx context.Context, lotID uuid.UUID, actor string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.LotRepo().FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		if err := lot.Release(); err != nil {
			return err
		}
		if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
			return err
		}
		return repos.HistoryRepo().Create(ctx, inventory.NewLotHistory(
			lot.ID, inventory.LotActionReleased,
			lot.Quantity, lot.Quantity,
			nil, actor,
			"reservation released",
		))
	})
}

// GetLotHistory returns the audit rows for a lot, oldest first
func (s *LotService) GetLotHistory(ctx context.Context, lotID uuid.UUID) ([]inventory.LotHistory, error) {
	var rows []inventory.LotHistory
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		rows, err = repos.HistoryRepo().FindByLot(ctx, lotID, shared.NewFilter())
		return err
	})
	return rows, err
}

// JoinChildNumbers renders the child lot numbers for an audit note
func JoinChildNumbers(children []*inventory.Lot) string {
	out := ""
	for i, child := range children {
		if i > 0 {
			out += ","
		}
		out += child.LineageRef()
	}
	return out
}
