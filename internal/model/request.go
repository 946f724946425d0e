package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request types.
const (
	RequestPurchase = "PURCHASE"
	RequestRepair   = "REPAIR"
)

// Request statuses.
//
// APPROVED_COUNCIL and APPROVED_FINANCE belong to an approval workflow that no
// operation drives yet; they are accepted by filters and reports only.
const (
	StatusPending         = "PENDING"
	StatusReceived        = "RECEIVED"
	StatusApprovedCouncil = "APPROVED_COUNCIL"
	StatusApprovedFinance = "APPROVED_FINANCE"
	StatusPurchased       = "PURCHASED"
	StatusRejected        = "REJECTED"
	StatusUserAccepted    = "USER_ACCEPTED"
	StatusUserRejected    = "USER_REJECTED"
)

// RequestStatuses lists every valid request status.
var RequestStatuses = []string{
	StatusPending, StatusReceived, StatusApprovedCouncil, StatusApprovedFinance,
	StatusPurchased, StatusRejected, StatusUserAccepted, StatusUserRejected,
}

// RequestItem is one line of a request. QuantityUnit is free text ("2 cái").
type RequestItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	QuantityUnit    string `json:"quantity_unit"`
	PurposeOrDamage string `json:"purpose_or_damage"`
	Note            string `json:"note"`
}

// ProcurementRequest is a department's ask to purchase or repair items.
// Requester fields are copied at creation and never change afterwards.
type ProcurementRequest struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type            string           `gorm:"type:varchar(10);not null"`
	Title           string           `gorm:"not null"`
	RequesterID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	RequesterName   string           `gorm:"not null"`
	Department      string           `gorm:"not null;index"`
	TargetUnitID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status          string           `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Date            time.Time        `gorm:"type:date;not null"`
	Items           []RequestItem    `gorm:"type:jsonb;serializer:json;not null"`
	Amount          *decimal.Decimal `gorm:"type:decimal(15,2)"`
	ProcurementNote *string
	UserFeedback    *string
	DossierID       *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AmountOrZero returns the purchase amount, zero when it has not been set.
func (r *ProcurementRequest) AmountOrZero() decimal.Decimal {
	if r.Amount == nil {
		return decimal.Zero
	}
	return *r.Amount
}
