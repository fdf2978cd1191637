package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/application/ledger"
)

// LotHandler handles lot lifecycle endpoints
type LotHandler struct {
	BaseHandler
	lotService *ledger.LotService
}

// NewLotHandler creates a new LotHandler
func NewLotHandler(lotService *ledger.LotService) *LotHandler {
	return &LotHandler{lotService: lotService}
}

// SplitLotRequest is the request body for splitting a lot
type SplitLotRequest struct {
	Quantities []float64 `json:"quantities" binding:"required,min=1,dive,gt=0"`
}

// MergeLotsRequest is the request body for merging lots
type MergeLotsRequest struct {
	LotIDs []string `json:"lot_ids" binding:"required,min=2,dive,uuid"`
}

// ReserveLotRequest is the request body for reserving a lot
type ReserveLotRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	IssueID  string  `json:"issue_id" binding:"required"`
}

// SplitLot splits a lot into child lots
// POST /api/v1/lots/:id/split
func (h *LotHandler) SplitLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot id")
		return
	}

	var req SplitLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantities := make([]decimal.Decimal, len(req.Quantities))
	for i, q := range req.Quantities {
		quantities[i] = decimal.NewFromFloat(q)
	}

	children, err := h.lotService.SplitLot(c.Request.Context(), ledger.SplitRequest{
		LotID:       lotID,
		Quantities:  quantities,
		PerformedBy: getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, children)
}

// MergeLots merges several lots into a new one
// POST /api/v1/lots/merge
func (h *LotHandler) MergeLots(c *gin.Context) {
	var req MergeLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lotIDs := make([]uuid.UUID, len(req.LotIDs))
	for i, s := range req.LotIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "invalid lot id")
			return
		}
		lotIDs[i] = id
	}

	merged, err := h.lotService.MergeLots(c.Request.Context(), ledger.MergeRequest{
		LotIDs:      lotIDs,
		PerformedBy: getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, merged)
}

// ReserveLot reserves a lot for an issue document
// POST /api/v1/lots/:id/reserve
func (h *LotHandler) ReserveLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot id")
		return
	}

	var req ReserveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	err = h.lotService.ReserveLot(c.Request.Context(), lotID,
		decimal.NewFromFloat(req.Quantity), req.IssueID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ReleaseLot releases a lot reservation
// POST /api/v1/lots/:id/release
func (h *LotHandler) ReleaseLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot id")
		return
	}

	if err := h.lotService.ReleaseLot(c.Request.Context(), lotID, getActor(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetLotHistory returns the audit trail of a lot, oldest first
// GET /api/v1/lots/:id/history
func (h *LotHandler) GetLotHistory(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot id")
		return
	}

	rows, err := h.lotService.GetLotHistory(c.Request.Context(), lotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// ValidateSplit pre-validates a split without mutating anything
// POST /api/v1/lots/:id/split/validate
func (h *LotHandler) ValidateSplit(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot id")
		return
	}

	var req SplitLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantities := make([]decimal.Decimal, len(req.Quantities))
	for i, q := range req.Quantities {
		quantities[i] = decimal.NewFromFloat(q)
	}

	if err := h.lotService.CanSplit(c.Request.Context(), lotID, quantities); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"valid": true})
}

// ValidateMerge pre-validates a merge without mutating anything
// POST /api/v1/lots/merge/validate
func (h *LotHandler) ValidateMerge(c *gin.Context) {
	var req MergeLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lotIDs := make([]uuid.UUID, len(req.LotIDs))
	for i, s := range req.LotIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "invalid lot id")
			return
		}
		lotIDs[i] = id
	}

	if err := h.lotService.CanMerge(c.Request.Context(), lotIDs); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"valid": true})
}
