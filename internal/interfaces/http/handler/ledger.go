package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/application/ledger"
	"github.com/wms/backend/internal/domain/numbering"
)

// LedgerHandler handles stock document and balance endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService    *ledger.LedgerService
	numberingService *ledger.NumberingService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledger.LedgerService, numberingService *ledger.NumberingService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService:    ledgerService,
		numberingService: numberingService,
	}
}

// ReceiptLineRequest is one line of a receipt document
type ReceiptLineRequest struct {
	MaterialID      string   `json:"material_id" binding:"required,uuid"`
	Quantity        float64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice       *float64 `json:"unit_price" binding:"omitempty,gte=0"`
	LotNumber       *string  `json:"lot_number"`
	ManufactureDate *string  `json:"manufacture_date"`
	ExpiryDate      *string  `json:"expiry_date"`
}

// ApplyReceiptRequest is the request body for applying a stock receipt
type ApplyReceiptRequest struct {
	DocumentNo  string               `json:"document_no"`
	WarehouseID string               `json:"warehouse_id" binding:"required,uuid"`
	Lines       []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// IssueLineRequest is one line of an issue document
type IssueLineRequest struct {
	MaterialID string  `json:"material_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
}

// ApplyIssueRequest is the request body for applying a stock issue
type ApplyIssueRequest struct {
	DocumentNo  string             `json:"document_no"`
	WarehouseID string             `json:"warehouse_id" binding:"required,uuid"`
	IssueDate   string             `json:"issue_date"`
	Lines       []IssueLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// TransferLineRequest is one line of a transfer document
type TransferLineRequest struct {
	MaterialID string  `json:"material_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
}

// ApplyTransferRequest is the request body for applying a warehouse transfer
type ApplyTransferRequest struct {
	DocumentNo        string                `json:"document_no"`
	SourceWarehouseID string                `json:"source_warehouse_id" binding:"required,uuid"`
	DestWarehouseID   string                `json:"dest_warehouse_id" binding:"required,uuid"`
	Lines             []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// documentNumber resolves the document number: the explicit one when given,
// otherwise a freshly allocated number for the document type and warehouse
func (h *LedgerHandler) documentNumber(c *gin.Context, explicit, documentType string, warehouseID uuid.UUID) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return h.numberingService.NextNumber(c.Request.Context(), documentType, &warehouseID, time.Now())
}

// ApplyReceipt applies a stock receipt document
// POST /api/v1/documents/receipts
func (h *LedgerHandler) ApplyReceipt(c *gin.Context) {
	var req ApplyReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}

	lines := make([]ledger.ReceiptLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		line, err := toReceiptLine(lr)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		lines = append(lines, line)
	}

	documentNo, err := h.documentNumber(c, req.DocumentNo, numbering.DocumentTypeReceipt, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc := ledger.ReceiptDocument{
		DocumentNo:  documentNo,
		WarehouseID: warehouseID,
		Lines:       lines,
		PostedBy:    getActor(c),
	}
	if err := h.ledgerService.ApplyReceipt(c.Request.Context(), doc); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"document_no": documentNo})
}

// RevertReceipt reverts a previously applied receipt
// POST /api/v1/documents/receipts/revert
func (h *LedgerHandler) RevertReceipt(c *gin.Context) {
	var req ApplyReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.DocumentNo == "" {
		h.BadRequest(c, "document_no is required for a revert")
		return
	}

	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}

	lines := make([]ledger.ReceiptLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		line, err := toReceiptLine(lr)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		lines = append(lines, line)
	}

	doc := ledger.ReceiptDocument{
		DocumentNo:  req.DocumentNo,
		WarehouseID: warehouseID,
		Lines:       lines,
		PostedBy:    getActor(c),
	}
	if err := h.ledgerService.RevertReceipt(c.Request.Context(), doc); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"document_no": req.DocumentNo})
}

// ApplyIssue applies a stock issue document and returns the costed lines
// POST /api/v1/documents/issues
func (h *LedgerHandler) ApplyIssue(c *gin.Context) {
	var req ApplyIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}

	issueDate := time.Now()
	if req.IssueDate != "" {
		issueDate, err = parseDateTime(req.IssueDate)
		if err != nil {
			h.BadRequest(c, "invalid issue_date")
			return
		}
	}

	lines := make([]ledger.IssueLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		materialID, err := uuid.Parse(lr.MaterialID)
		if err != nil {
			h.BadRequest(c, "invalid material_id")
			return
		}
		lines = append(lines, ledger.IssueLine{
			MaterialID: materialID,
			Quantity:   decimal.NewFromFloat(lr.Quantity),
		})
	}

	documentNo, err := h.documentNumber(c, req.DocumentNo, numbering.DocumentTypeIssue, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc := ledger.IssueDocument{
		DocumentNo:  documentNo,
		WarehouseID: warehouseID,
		IssueDate:   issueDate,
		Lines:       lines,
		PostedBy:    getActor(c),
	}
	results, err := h.ledgerService.ApplyIssue(c.Request.Context(), doc)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{
		"document_no": documentNo,
		"lines":       results,
	})
}

// ApplyTransfer applies an inter-warehouse transfer document
// POST /api/v1/documents/transfers
func (h *LedgerHandler) ApplyTransfer(c *gin.Context) {
	var req ApplyTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sourceID, err := uuid.Parse(req.SourceWarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid source_warehouse_id")
		return
	}
	destID, err := uuid.Parse(req.DestWarehouseID)
	if err != nil {
		h.BadRequest(c, "invalid dest_warehouse_id")
		return
	}

	lines := make([]ledger.TransferLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		materialID, err := uuid.Parse(lr.MaterialID)
		if err != nil {
			h.BadRequest(c, "invalid material_id")
			return
		}
		lines = append(lines, ledger.TransferLine{
			MaterialID: materialID,
			Quantity:   decimal.NewFromFloat(lr.Quantity),
		})
	}

	documentNo, err := h.documentNumber(c, req.DocumentNo, numbering.DocumentTypeTransfer, sourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc := ledger.TransferDocument{
		DocumentNo:        documentNo,
		SourceWarehouseID: sourceID,
		DestWarehouseID:   destID,
		Lines:             lines,
		PostedBy:          getActor(c),
	}
	if err := h.ledgerService.ApplyTransfer(c.Request.Context(), doc); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"document_no": documentNo})
}

// GetBalance returns the aggregate balance for a warehouse-material key
// GET /api/v1/warehouses/:warehouse_id/materials/:material_id/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("warehouse_id"))
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		h.BadRequest(c, "invalid material_id")
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), warehouseID, materialID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// GetLots returns all lots for a warehouse-material key
// GET /api/v1/warehouses/:warehouse_id/materials/:material_id/lots
func (h *LedgerHandler) GetLots(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("warehouse_id"))
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		h.BadRequest(c, "invalid material_id")
		return
	}

	lots, err := h.ledgerService.GetLots(c.Request.Context(), warehouseID, materialID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lots)
}

// GetLotCosts returns the lot valuation projection for a key
// GET /api/v1/warehouses/:warehouse_id/materials/:material_id/lot-costs?as_of=...
func (h *LedgerHandler) GetLotCosts(c *gin.Context) {
	warehouseID, err := uuid.Parse(c.Param("warehouse_id"))
	if err != nil {
		h.BadRequest(c, "invalid warehouse_id")
		return
	}
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		h.BadRequest(c, "invalid material_id")
		return
	}

	asOf := time.Now()
	if s := c.Query("as_of"); s != "" {
		asOf, err = parseDateTime(s)
		if err != nil {
			h.BadRequest(c, "invalid as_of")
			return
		}
	}

	costs, err := h.ledgerService.GetLotCosts(c.Request.Context(), warehouseID, materialID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, costs)
}

// toReceiptLine converts a request line into the application DTO
func toReceiptLine(lr ReceiptLineRequest) (ledger.ReceiptLine, error) {
	materialID, err := uuid.Parse(lr.MaterialID)
	if err != nil {
		return ledger.ReceiptLine{}, err
	}

	line := ledger.ReceiptLine{
		MaterialID: materialID,
		Quantity:   decimal.NewFromFloat(lr.Quantity),
		LotNumber:  lr.LotNumber,
	}
	if lr.UnitPrice != nil {
		price := decimal.NewFromFloat(*lr.UnitPrice)
		line.UnitPrice = &price
	}
	if lr.ManufactureDate != nil && *lr.ManufactureDate != "" {
		t, err := parseDateTime(*lr.ManufactureDate)
		if err != nil {
			return ledger.ReceiptLine{}, err
		}
		line.ManufactureDate = &t
	}
	if lr.ExpiryDate != nil && *lr.ExpiryDate != "" {
		t, err := parseDateTime(*lr.ExpiryDate)
		if err != nil {
			return ledger.ReceiptLine{}, err
		}
		line.ExpiryDate = &t
	}
	return line, nil
}
