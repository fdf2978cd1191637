package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms/backend/internal/application/ledger"
)

// NumberingHandler handles document numbering endpoints
type NumberingHandler struct {
	BaseHandler
	numberingService *ledger.NumberingService
}

// NewNumberingHandler creates a new NumberingHandler
func NewNumberingHandler(numberingService *ledger.NumberingService) *NumberingHandler {
	return &NumberingHandler{numberingService: numberingService}
}

// NextNumberRequest is the request body for allocating a document number
type NextNumberRequest struct {
	DocumentType string  `json:"document_type" binding:"required"`
	WarehouseID  *string `json:"warehouse_id" binding:"omitempty,uuid"`
}

// parseScope extracts the numbering scope from a request
func parseScope(documentType string, warehouseID *string) (string, *uuid.UUID, error) {
	var wh *uuid.UUID
	if warehouseID != nil && *warehouseID != "" {
		id, err := uuid.Parse(*warehouseID)
		if err != nil {
			return "", nil, err
		}
		wh = &id
	}
	return documentType, wh, nil
}

// NextNumber allocates the next document number for a scope
// POST /api/v1/numbering/next
func (h *NumberingHandler) NextNumber(c *gin.Context) {
	var req NextNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	documentType, warehouseID, err := parseScope(req.DocumentType, req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}

	number, err := h.numberingService.NextNumber(c.Request.Context(), documentType, warehouseID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"document_no": number})
}

// PeekNumber previews the next document number without allocating it
// GET /api/v1/numbering/peek?document_type=...&warehouse_id=...
func (h *NumberingHandler) PeekNumber(c *gin.Context) {
	documentType := c.Query("document_type")
	if documentType == "" {
		h.BadRequest(c, "document_type is required")
		return
	}

	var warehouseID *string
	if s := c.Query("warehouse_id"); s != "" {
		warehouseID = &s
	}

	documentType, wh, err := parseScope(documentType, warehouseID)
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}

	number, err := h.numberingService.PeekNumber(c.Request.Context(), documentType, wh, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"document_no": number})
}
