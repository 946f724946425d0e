package handler

import (
	"net/http"

	"github.com/tntan04/quan-ly-mua-sam/internal/apierror"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
)

type RegistryHandler struct{ svc service.RegistryService }

func NewRegistryHandler(svc service.RegistryService) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

func (h *RegistryHandler) ListUnits(c *gin.Context) {
	resp, source, err := h.svc.ListUnits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	setDataSource(c, source)
	c.JSON(http.StatusOK, resp)
}

func (h *RegistryHandler) AddUnit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateUnitRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddUnit(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RegistryHandler) RemoveUnit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RemoveUnit(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(id.String()))
}

func (h *RegistryHandler) ListMethods(c *gin.Context) {
	resp, source, err := h.svc.ListMethods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	setDataSource(c, source)
	c.JSON(http.StatusOK, resp)
}

func (h *RegistryHandler) AddMethod(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateMethodRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddMethod(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RegistryHandler) RemoveMethod(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RemoveMethod(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(id.String()))
}

func (h *RegistryHandler) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListDepartments())
}
