package handler

import (
	"net/http"

	"github.com/tntan04/quan-ly-mua-sam/internal/apierror"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) RecordImport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.RecordImportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordImport(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) RecordDistribution(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.DistributionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordDistribution(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) Acknowledge(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.AcknowledgeReceipt(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Transactions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListTransactions(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Stock(c *gin.Context) {
	resp, err := h.svc.StockSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GoodsStock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GoodsStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Transfers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.TransferFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.TransferReport(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Goods ─────────────────────────────────────────────────────────────────────
// Served under /goods and the /products alias.

func (h *InventoryHandler) ListGoods(c *gin.Context) {
	resp, err := h.svc.ListGoods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) CreateGoods(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.GoodsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateGoods(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateGoods takes the id from the path, or from the body on PUT /goods.
func (h *InventoryHandler) UpdateGoods(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.GoodsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	raw := c.Param("id")
	if raw == "" && req.ID != nil {
		raw = *req.ID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Mã định danh không hợp lệ"))
		return
	}
	resp, err := h.svc.UpdateGoods(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) DeleteGoods(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteGoods(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(id.String()))
}
