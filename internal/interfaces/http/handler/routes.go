package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes registers document and balance routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("/receipts", h.ApplyReceipt)
		documents.POST("/receipts/revert", h.RevertReceipt)
		documents.POST("/issues", h.ApplyIssue)
		documents.POST("/transfers", h.ApplyTransfer)
	}

	warehouses := rg.Group("/warehouses/:warehouse_id/materials/:material_id")
	{
		warehouses.GET("/balance", h.GetBalance)
		warehouses.GET("/lots", h.GetLots)
		warehouses.GET("/lot-costs", h.GetLotCosts)
	}
}

// RegisterRoutes registers lot lifecycle routes
func (h *LotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	lots := rg.Group("/lots")
	{
		lots.POST("/merge", h.MergeLots)
		lots.POST("/merge/validate", h.ValidateMerge)
		lots.POST("/:id/split", h.SplitLot)
		lots.POST("/:id/split/validate", h.ValidateSplit)
		lots.POST("/:id/reserve", h.ReserveLot)
		lots.POST("/:id/release", h.ReleaseLot)
		lots.GET("/:id/history", h.GetLotHistory)
	}
}

// RegisterRoutes registers numbering routes
func (h *NumberingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	numbering := rg.Group("/numbering")
	{
		numbering.POST("/next", h.NextNumber)
		numbering.GET("/peek", h.PeekNumber)
	}
}
