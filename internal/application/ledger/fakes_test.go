package ledger

// In-memory repository doubles backing the service tests. They implement the
// same contracts as the GORM repositories (null-safe key matching, version
// checks on the numbering rows) without a database.

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/numbering"
	"github.com/wms/backend/internal/domain/shared"
)

type memBalanceRepo struct {
	balances map[uuid.UUID]*inventory.StockBalance
	// committed tracks the version each row was last saved with, so the
	// guarded save enforces the same contract as the GORM repository
	committed map[uuid.UUID]int
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{
		balances:  make(map[uuid.UUID]*inventory.StockBalance),
		committed: make(map[uuid.UUID]int),
	}
}

func (r *memBalanceRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockBalance, error) {
	if b, ok := r.balances[id]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memBalanceRepo) FindByWarehouseAndMaterial(_ context.Context, warehouseID, materialID uuid.UUID) (*inventory.StockBalance, error) {
	for _, b := range r.balances {
		if b.WarehouseID == warehouseID && b.MaterialID == materialID {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBalanceRepo) GetOrCreate(ctx context.Context, warehouseID, materialID uuid.UUID) (*inventory.StockBalance, error) {
	if b, err := r.FindByWarehouseAndMaterial(ctx, warehouseID, materialID); err == nil {
		return b, nil
	}
	b, err := inventory.NewStockBalance(warehouseID, materialID)
	if err != nil {
		return nil, err
	}
	r.balances[b.ID] = b
	r.committed[b.ID] = b.Version
	return b, nil
}

func (r *memBalanceRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID, _ shared.Filter) ([]inventory.StockBalance, error) {
	var out []inventory.StockBalance
	for _, b := range r.balances {
		if b.WarehouseID == warehouseID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBalanceRepo) FindBelowMinimum(_ context.Context, _ shared.Filter) ([]inventory.StockBalance, error) {
	var out []inventory.StockBalance
	for _, b := range r.balances {
		if b.IsBelowMinimum() {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBalanceRepo) Save(_ context.Context, balance *inventory.StockBalance) error {
	r.balances[balance.ID] = balance
	r.committed[balance.ID] = balance.Version
	return nil
}

func (r *memBalanceRepo) SaveWithLock(_ context.Context, balance *inventory.StockBalance) error {
	if r.committed[balance.ID] != balance.Version {
		return shared.ErrConcurrencyConflict
	}
	r.balances[balance.ID] = balance
	balance.IncrementVersion()
	r.committed[balance.ID] = balance.Version
	return nil
}

type memLotRepo struct {
	lots []*inventory.Lot
	// committed tracks the version each lot was last saved with
	committed map[uuid.UUID]int
}

func newMemLotRepo() *memLotRepo {
	return &memLotRepo{committed: make(map[uuid.UUID]int)}
}

func (r *memLotRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Lot, error) {
	for _, lot := range r.lots {
		if lot.ID == id {
			return lot, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLotRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.Lot, error) {
	out := make([]*inventory.Lot, 0, len(ids))
	for _, id := range ids {
		lot, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, nil
}

func (r *memLotRepo) FindByKey(_ context.Context, key inventory.LotKey) (*inventory.Lot, error) {
	for _, lot := range r.lots {
		if key.Matches(lot) {
			return lot, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLotRepo) FindByWarehouseAndMaterial(_ context.Context, warehouseID, materialID uuid.UUID) ([]*inventory.Lot, error) {
	var out []*inventory.Lot
	for _, lot := range r.lots {
		if lot.WarehouseID == warehouseID && lot.MaterialID == materialID {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (r *memLotRepo) FindActive(ctx context.Context, warehouseID, materialID uuid.UUID) ([]*inventory.Lot, error) {
	all, _ := r.FindByWarehouseAndMaterial(ctx, warehouseID, materialID)
	var out []*inventory.Lot
	for _, lot := range all {
		if lot.HasStock() {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (r *memLotRepo) FindExpiringWithin(_ context.Context, warehouseID uuid.UUID, days int, _ shared.Filter) ([]*inventory.Lot, error) {
	var out []*inventory.Lot
	for _, lot := range r.lots {
		if lot.WarehouseID == warehouseID && lot.HasStock() && lot.WillExpireWithin(time.Duration(days)*24*time.Hour) {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (r *memLotRepo) CountByLotNumberPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, lot := range r.lots {
		if lot.LotNumber != nil && strings.HasPrefix(*lot.LotNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *memLotRepo) Create(_ context.Context, lot *inventory.Lot) error {
	r.lots = append(r.lots, lot)
	r.committed[lot.ID] = lot.Version
	return nil
}

func (r *memLotRepo) Save(_ context.Context, lot *inventory.Lot) error {
	r.committed[lot.ID] = lot.Version
	for _, existing := range r.lots {
		if existing.ID == lot.ID {
			return nil
		}
	}
	r.lots = append(r.lots, lot)
	return nil
}

func (r *memLotRepo) SaveWithLock(_ context.Context, lot *inventory.Lot) error {
	if r.committed[lot.ID] != lot.Version {
		return shared.ErrConcurrencyConflict
	}
	lot.IncrementVersion()
	r.committed[lot.ID] = lot.Version
	return nil
}

type memHistoryRepo struct {
	rows []*inventory.LotHistory
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{}
}

func (r *memHistoryRepo) Create(_ context.Context, history *inventory.LotHistory) error {
	r.rows = append(r.rows, history)
	return nil
}

func (r *memHistoryRepo) CreateBatch(ctx context.Context, histories []*inventory.LotHistory) error {
	for _, h := range histories {
		if err := r.Create(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

func (r *memHistoryRepo) FindByLot(_ context.Context, lotID uuid.UUID, _ shared.Filter) ([]inventory.LotHistory, error) {
	var out []inventory.LotHistory
	for _, h := range r.rows {
		if h.LotID == lotID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) byAction(lotID uuid.UUID, action inventory.LotHistoryAction) []*inventory.LotHistory {
	var out []*inventory.LotHistory
	for _, h := range r.rows {
		if h.LotID == lotID && h.Action == action {
			out = append(out, h)
		}
	}
	return out
}

// memNumberingRepo mimics the database contract closely: reads hand out
// copies and SaveWithLock checks the version, so an optimistic retry loop
// behaves exactly as it would against Postgres. The mutex lets tests drive
// it from concurrent goroutines.
type memNumberingRepo struct {
	mu   sync.Mutex
	rows map[string]*numbering.DocumentNumbering
	// forceConflicts makes the next n SaveWithLock calls fail
	forceConflicts int
}

func newMemNumberingRepo() *memNumberingRepo {
	return &memNumberingRepo{rows: make(map[string]*numbering.DocumentNumbering)}
}

func scopeKey(documentType string, warehouseID *uuid.UUID, year int) string {
	wh := ""
	if warehouseID != nil {
		wh = warehouseID.String()
	}
	return documentType + "|" + wh + "|" + strconv.Itoa(year)
}

func (r *memNumberingRepo) FindByScope(_ context.Context, documentType string, warehouseID *uuid.UUID, year int) (*numbering.DocumentNumbering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[scopeKey(documentType, warehouseID, year)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *memNumberingRepo) Create(_ context.Context, row *numbering.DocumentNumbering) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scopeKey(row.DocumentType, row.WarehouseID, row.Year)
	if _, ok := r.rows[key]; ok {
		return shared.ErrAlreadyExists
	}
	copied := *row
	r.rows[key] = &copied
	return nil
}

func (r *memNumberingRepo) SaveWithLock(_ context.Context, row *numbering.DocumentNumbering) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forceConflicts > 0 {
		r.forceConflicts--
		return shared.ErrConcurrencyConflict
	}
	key := scopeKey(row.DocumentType, row.WarehouseID, row.Year)
	stored, ok := r.rows[key]
	if !ok || stored.Version != row.Version {
		return shared.ErrConcurrencyConflict
	}
	row.IncrementVersion()
	copied := *row
	r.rows[key] = &copied
	return nil
}

type memMaterialRepo struct {
	materials map[uuid.UUID]*catalog.Material
}

func newMemMaterialRepo() *memMaterialRepo {
	return &memMaterialRepo{materials: make(map[uuid.UUID]*catalog.Material)}
}

func (r *memMaterialRepo) add(m *catalog.Material) *catalog.Material {
	r.materials[m.ID] = m
	return m
}

func (r *memMaterialRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Material, error) {
	if m, ok := r.materials[id]; ok {
		return m, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memMaterialRepo) FindByCode(_ context.Context, code string) (*catalog.Material, error) {
	for _, m := range r.materials {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMaterialRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Material, error) {
	var out []catalog.Material
	for _, m := range r.materials {
		out = append(out, *m)
	}
	return out, nil
}

func (r *memMaterialRepo) Save(_ context.Context, material *catalog.Material) error {
	r.materials[material.ID] = material
	return nil
}

type memWarehouseRepo struct {
	warehouses map[uuid.UUID]*catalog.Warehouse
}

func newMemWarehouseRepo() *memWarehouseRepo {
	return &memWarehouseRepo{warehouses: make(map[uuid.UUID]*catalog.Warehouse)}
}

func (r *memWarehouseRepo) add(w *catalog.Warehouse) *catalog.Warehouse {
	r.warehouses[w.ID] = w
	return w
}

func (r *memWarehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Warehouse, error) {
	if w, ok := r.warehouses[id]; ok {
		return w, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memWarehouseRepo) FindByCode(_ context.Context, code string) (*catalog.Warehouse, error) {
	for _, w := range r.warehouses {
		if w.Code == code {
			return w, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memWarehouseRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Warehouse, error) {
	var out []catalog.Warehouse
	for _, w := range r.warehouses {
		out = append(out, *w)
	}
	return out, nil
}

func (r *memWarehouseRepo) Save(_ context.Context, warehouse *catalog.Warehouse) error {
	r.warehouses[warehouse.ID] = warehouse
	return nil
}

// memIdempotencyStore is a minimal first-writer-wins store
type memIdempotencyStore struct {
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Clear(_ context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

// ledgerFixture wires the services over the in-memory repositories
type ledgerFixture struct {
	balances   *memBalanceRepo
	lots       *memLotRepo
	histories  *memHistoryRepo
	numberings *memNumberingRepo
	materials  *memMaterialRepo
	warehouses *memWarehouseRepo
	scope      *NoOpTransactionScope
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		balances:   newMemBalanceRepo(),
		lots:       newMemLotRepo(),
		histories:  newMemHistoryRepo(),
		numberings: newMemNumberingRepo(),
		materials:  newMemMaterialRepo(),
		warehouses: newMemWarehouseRepo(),
	}
	f.scope = NewNoOpTransactionScope(f.balances, f.lots, f.histories, f.numberings)
	return f
}

func (f *ledgerFixture) seedBalance(warehouseID, materialID uuid.UUID, qty int64) *inventory.StockBalance {
	balance, _ := inventory.NewStockBalance(warehouseID, materialID)
	if qty > 0 {
		_ = balance.Increase(decimal.NewFromInt(qty))
	}
	f.balances.balances[balance.ID] = balance
	f.balances.committed[balance.ID] = balance.Version
	return balance
}

func (f *ledgerFixture) seedLot(key inventory.LotKey, qty int64, price *decimal.Decimal, createdAt time.Time) *inventory.Lot {
	lot, _ := inventory.NewLot(key, decimal.NewFromInt(qty), price)
	lot.CreatedAt = createdAt
	f.lots.lots = append(f.lots.lots, lot)
	f.lots.committed[lot.ID] = lot.Version
	return lot
}
