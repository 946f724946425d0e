package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RequestItem is one line of a procurement request. Lines without a name are
// dropped on create.
type RequestItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	QuantityUnit    string `json:"quantity_unit"`
	PurposeOrDamage string `json:"purpose_or_damage"`
	Note            string `json:"note"`
}

type CreateRequestRequest struct {
	Type         string        `json:"type"           validate:"omitempty,oneof=PURCHASE REPAIR"`
	Title        string        `json:"title"          validate:"max=500"`
	TargetUnitID string        `json:"target_unit_id" validate:"required,uuid"`
	Date         string        `json:"date"           validate:"omitempty,datetime=2006-01-02"`
	Items        []RequestItem `json:"items"`
}

// BulkRequestEntry is one element of the collection replace payload.
// Status and DossierID must echo the stored values.
type BulkRequestEntry struct {
	CreateRequestRequest
	ID              *string          `json:"id"               validate:"omitempty,uuid"`
	Status          string           `json:"status"           validate:"omitempty,oneof=PENDING RECEIVED APPROVED_COUNCIL APPROVED_FINANCE PURCHASED REJECTED USER_ACCEPTED USER_REJECTED"`
	DossierID       *string          `json:"dossier_id"       validate:"omitempty,uuid"`
	Amount          *decimal.Decimal `json:"amount"`
	ProcurementNote *string          `json:"procurement_note"`
}

type DecisionRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type SetAmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"min=0"`
}

type FeedbackRequest struct {
	Accepted *bool  `json:"accepted" validate:"required"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type RequestFilter struct {
	Department string `form:"department"`
	Status     string `form:"status" validate:"omitempty,oneof=PENDING RECEIVED APPROVED_COUNCIL APPROVED_FINANCE PURCHASED REJECTED USER_ACCEPTED USER_REJECTED"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RequestResponse struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	Title           string           `json:"title"`
	RequesterID     string           `json:"requester_id"`
	RequesterName   string           `json:"requester_name"`
	Department      string           `json:"department"`
	TargetUnitID    string           `json:"target_unit_id"`
	Status          string           `json:"status"`
	Date            string           `json:"date"`
	Items           []RequestItem    `json:"items"`
	Amount          *decimal.Decimal `json:"amount"`
	ProcurementNote *string          `json:"procurement_note"`
	UserFeedback    *string          `json:"user_feedback"`
	DossierID       *string          `json:"dossier_id"`
}
