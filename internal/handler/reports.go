package handler

import (
	"fmt"
	"net/http"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

func (h *ReportsHandler) Dashboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Dashboard(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) Spending(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.YearFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Spending(c.Request.Context(), actor, filter.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) Dossiers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.DossierReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.DossierReport(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) Usage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.DepartmentFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.UsageReport(c.Request.Context(), actor, filter.Department)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) DepartmentRequests(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.DepartmentFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.DepartmentRequests(c.Request.Context(), actor, filter.Department)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) ExportUsage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.DepartmentFilter
	if !bindQuery(c, &filter) {
		return
	}
	export, err := h.svc.ExportUsage(c.Request.Context(), actor, filter.Department, filter.Format)
	if err != nil {
		respondError(c, err)
		return
	}
	writeExport(c, export)
}

func (h *ReportsHandler) ExportDossiers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var filter dto.DossierReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	export, err := h.svc.ExportDossiers(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	writeExport(c, export)
}

// writeExport streams a generated file. Headers are already sent when
// rendering fails, so the error is only logged.
func writeExport(c *gin.Context, export *service.Export) {
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Status(http.StatusOK)
	if err := export.WriteTo(c.Writer); err != nil {
		log.Error().Err(err).Str("file", export.FileName).Msg("handler: export failed mid-stream")
	}
}
