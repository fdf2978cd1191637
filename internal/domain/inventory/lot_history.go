package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// LotHistoryAction identifies what happened to a lot
type LotHistoryAction string

const (
	LotActionCreated   LotHistoryAction = "CREATED"
	LotActionIncreased LotHistoryAction = "INCREASED"
	LotActionDecreased LotHistoryAction = "DECREASED"
	LotActionAllocated LotHistoryAction = "ALLOCATED"
	LotActionSplit     LotHistoryAction = "SPLIT"
	LotActionMerged    LotHistoryAction = "MERGED"
	LotActionReserved  LotHistoryAction = "RESERVED"
	LotActionReleased  LotHistoryAction = "RELEASED"
)

// String returns the string representation of LotHistoryAction
func (a LotHistoryAction) String() string {
	return string(a)
}

// IsValid returns true if the action is a known one
func (a LotHistoryAction) IsValid() bool {
	switch a {
	case LotActionCreated, LotActionIncreased, LotActionDecreased,
		LotActionAllocated, LotActionSplit, LotActionMerged,
		LotActionReserved, LotActionReleased:
		return true
	}
	return false
}

// LotHistory is one immutable audit row describing a lot mutation. Rows are
// append-only and written after the mutated lots have been persisted, so the
// RelatedLotIDs column can reference generated identifiers.
type LotHistory struct {
	shared.BaseEntity
	LotID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	Action         LotHistoryAction `gorm:"type:varchar(16);not null"`
	QuantityBefore decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	QuantityAfter  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	RelatedLotIDs  string           `gorm:"type:text"` // comma-joined sibling/parent/child lot ids
	PerformedBy    string           `gorm:"type:varchar(128);not null"`
	PerformedAt    time.Time        `gorm:"not null"`
	Notes          string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LotHistory) TableName() string {
	return "lot_histories"
}

// NewLotHistory creates an audit row for a lot mutation
func NewLotHistory(
	lotID uuid.UUID,
	action LotHistoryAction,
	quantityBefore, quantityAfter decimal.Decimal,
	relatedLotIDs []uuid.UUID,
	performedBy, notes string,
) *LotHistory {
	return &LotHistory{
		BaseEntity:     shared.NewBaseEntity(),
		LotID:          lotID,
		Action:         action,
		QuantityBefore: quantityBefore,
		QuantityAfter:  quantityAfter,
		RelatedLotIDs:  JoinLotIDs(relatedLotIDs),
		PerformedBy:    performedBy,
		PerformedAt:    time.Now(),
		Notes:          notes,
	}
}

// JoinLotIDs renders lot ids as the comma-joined form stored in history rows
func JoinLotIDs(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// SplitLotIDs parses the comma-joined form back into ids, skipping blanks
func SplitLotIDs(joined string) []uuid.UUID {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
