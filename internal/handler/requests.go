package handler

import (
	"context"
	"net/http"

	"github.com/tntan04/quan-ly-mua-sam/internal/apierror"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestsHandler struct{ svc service.RequestService }

func NewRequestsHandler(svc service.RequestService) *RequestsHandler {
	return &RequestsHandler{svc: svc}
}

// List godoc
// @Summary Danh sách đề nghị mua sắm/sửa chữa
// @Tags requests
// @Produce json
// @Param department query string false "Khoa/phòng"
// @Param status query string false "Trạng thái"
// @Success 200 {array} dto.RequestResponse
// @Router /v1/requests [get]
func (h *RequestsHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.RequestFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Save creates one request, or bulk-replaces when the body is an array.
func (h *RequestsHandler) Save(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	one, many, ok := bindOneOrMany[dto.BulkRequestEntry](c)
	if !ok {
		return
	}
	if many != nil {
		resp, err := h.svc.ReplaceRequests(c.Request.Context(), actor, many)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor, one.CreateRequestRequest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RequestsHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RequestsHandler) Eligible(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListEligibleForDossier(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RequestsHandler) Accept(c *gin.Context) { h.decide(c, h.svc.Accept) }
func (h *RequestsHandler) Reject(c *gin.Context) { h.decide(c, h.svc.Reject) }

type decisionFunc func(ctx context.Context, actor service.Actor, id uuid.UUID, note string) (*dto.RequestResponse, error)

func (h *RequestsHandler) decide(c *gin.Context, fn decisionFunc) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := fn(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RequestsHandler) SetAmount(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SetAmountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetAmount(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RequestsHandler) Feedback(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordFeedback(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RequestsHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(id.String()))
}
