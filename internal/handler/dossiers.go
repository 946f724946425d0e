package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
)

type DossiersHandler struct{ svc service.DossierService }

func NewDossiersHandler(svc service.DossierService) *DossiersHandler {
	return &DossiersHandler{svc: svc}
}

// List godoc
// @Summary Danh sách hồ sơ mua sắm
// @Description X-Data-Source là "snapshot" khi dữ liệu lấy từ bản sao dự phòng.
// @Tags dossiers
// @Produce json
// @Success 200 {array} dto.DossierResponse
// @Failure 500 {object} apierror.APIError
// @Router /v1/dossiers [get]
func (h *DossiersHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, source, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	setDataSource(c, source)
	c.JSON(http.StatusOK, resp)
}

func (h *DossiersHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateDossierRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DossiersHandler) Get(c *gin.Context) {
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

func (h *DossiersHandler) Complete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Complete(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DossiersHandler) UpdateDocuments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDocumentsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateDocuments(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DossiersHandler) DownloadFile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	fileID, ok := paramID(c, "fileId")
	if !ok {
		return
	}
	file, err := h.svc.DownloadFile(c.Request.Context(), actor, id, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Body.Close()

	name := file.FileName
	if name == "" {
		name = fileID.String()
	}
	c.DataFromReader(http.StatusOK, -1, file.ContentType, file.Body, map[string]string{
		"Content-Disposition": contentDisposition(name),
	})
}

// contentDisposition quotes an ASCII fallback and adds the RFC 5987 form so
// Vietnamese file names survive.
func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename=%q; filename*=UTF-8''%s`, asciiFallback(name), url.PathEscape(name))
}

func asciiFallback(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

