package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateDossierRequest struct {
	Name              string   `json:"name"               validate:"required,max=300"`
	ProcurementMethod string   `json:"procurement_method" validate:"required"`
	RequestIDs        []string `json:"request_ids"        validate:"required,min=1,dive,uuid"`
}

// DossierFileInput describes one attached document. An entry that repeats the
// ID of a stored file without a new payload keeps the stored payload.
type DossierFileInput struct {
	ID         *string `json:"id"          validate:"omitempty,uuid"`
	Content    string  `json:"content"     validate:"required,max=500"`
	FileName   string  `json:"file_name"   validate:"max=255"`
	FileBase64 *string `json:"file_base64"`
}

type UpdateDocumentsRequest struct {
	Files                []DossierFileInput `json:"files"                 validate:"dive"`
	PermittedDepartments []string           `json:"permitted_departments" validate:"dive,department"`
}

type DossierReportFilter struct {
	Year   int    `form:"year"   validate:"omitempty,min=2000,max=2100"`
	Method string `form:"method"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DossierFileResponse struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	FileName string `json:"file_name"`
	HasFile  bool   `json:"has_file"`
}

type DossierResponse struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	ProcurementMethod    string                `json:"procurement_method"`
	RequestIDs           []string              `json:"request_ids"`
	Status               string                `json:"status"`
	Date                 string                `json:"date"`
	CompletionDate       *string               `json:"completion_date"`
	TargetUnitID         string                `json:"target_unit_id"`
	TargetUnitName       string                `json:"target_unit_name,omitempty"`
	PermittedDepartments []string              `json:"permitted_departments"`
	TotalValue           decimal.Decimal       `json:"total_value"`
	Files                []DossierFileResponse `json:"files"`
}

type DossierReportResponse struct {
	Year       int               `json:"year"`
	Method     string            `json:"method,omitempty"`
	Dossiers   []DossierResponse `json:"dossiers"`
	TotalValue decimal.Decimal   `json:"total_value"`
}
