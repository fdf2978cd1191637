package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/inventory"
)

// ReceiptLine is one incoming line of a stock receipt document
type ReceiptLine struct {
	MaterialID      uuid.UUID
	Quantity        decimal.Decimal
	UnitPrice       *decimal.Decimal // explicit line price; material purchase price when absent
	LotNumber       *string
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
}

// ReceiptDocument is a stock receipt to apply against the ledger
type ReceiptDocument struct {
	DocumentNo  string
	WarehouseID uuid.UUID
	Lines       []ReceiptLine
	PostedBy    string
}

// IssueLine is one outgoing line of a stock issue document
type IssueLine struct {
	MaterialID uuid.UUID
	Quantity   decimal.Decimal
}

// IssueDocument is a stock issue to apply against the ledger
type IssueDocument struct {
	DocumentNo  string
	WarehouseID uuid.UUID
	IssueDate   time.Time
	Lines       []IssueLine
	PostedBy    string
}

// IssueLineResult carries the outcome of one applied issue line: the cost
// basis stamped on the line and the lots physically consumed (FEFO order)
type IssueLineResult struct {
	MaterialID  uuid.UUID
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Allocations []inventory.LotAllocation
}

// TransferLine is one line of an inter-warehouse transfer
type TransferLine struct {
	MaterialID uuid.UUID
	Quantity   decimal.Decimal
}

// TransferDocument moves aggregate balances between two warehouses
type TransferDocument struct {
	DocumentNo        string
	SourceWarehouseID uuid.UUID
	DestWarehouseID   uuid.UUID
	Lines             []TransferLine
	PostedBy          string
}

// BalanceResponse is the read model for one stock balance row
type BalanceResponse struct {
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	BelowMinimum bool            `json:"below_minimum"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// ToBalanceResponse maps a balance aggregate to its read model
func ToBalanceResponse(b *inventory.StockBalance) BalanceResponse {
	return BalanceResponse{
		WarehouseID:  b.WarehouseID,
		MaterialID:   b.MaterialID,
		Quantity:     b.Quantity,
		MinQuantity:  b.MinQuantity,
		BelowMinimum: b.IsBelowMinimum(),
		LastUpdated:  b.UpdatedAt,
	}
}

// LotResponse is the read model for one lot
type LotResponse struct {
	ID                 uuid.UUID        `json:"id"`
	WarehouseID        uuid.UUID        `json:"warehouse_id"`
	MaterialID         uuid.UUID        `json:"material_id"`
	LotNumber          *string          `json:"lot_number,omitempty"`
	ManufactureDate    *time.Time       `json:"manufacture_date,omitempty"`
	ExpiryDate         *time.Time       `json:"expiry_date,omitempty"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitPrice          *decimal.Decimal `json:"unit_price,omitempty"`
	Reserved           bool             `json:"reserved"`
	ReservedForIssueID *string          `json:"reserved_for_issue_id,omitempty"`
	ParentLotID        *string          `json:"parent_lot_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ToLotResponse maps a lot aggregate to its read model
func ToLotResponse(l *inventory.Lot) LotResponse {
	return LotResponse{
		ID:                 l.ID,
		WarehouseID:        l.WarehouseID,
		MaterialID:         l.MaterialID,
		LotNumber:          l.LotNumber,
		ManufactureDate:    l.ManufactureDate,
		ExpiryDate:         l.ExpiryDate,
		Quantity:           l.Quantity,
		UnitPrice:          l.UnitPrice,
		Reserved:           l.Reserved,
		ReservedForIssueID: l.ReservedForIssueID,
		ParentLotID:        l.ParentLotID,
		CreatedAt:          l.CreatedAt,
	}
}

// ToLotResponses maps a slice of lots
func ToLotResponses(lots []*inventory.Lot) []LotResponse {
	out := make([]LotResponse, len(lots))
	for i, l := range lots {
		out[i] = ToLotResponse(l)
	}
	return out
}
