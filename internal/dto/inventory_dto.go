package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ImportItem is one received line. Lines without a name or with a
// non-positive quantity are skipped.
type ImportItem struct {
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Supplier    string          `json:"supplier"`
	Description *string         `json:"description"`
}

type RecordImportRequest struct {
	Items     []ImportItem `json:"items"`
	DossierID *string      `json:"dossier_id" validate:"omitempty,uuid"`
}

type DistributionRequest struct {
	GoodsID  string  `json:"goods_id" validate:"required,uuid"`
	ToDept   string  `json:"to_dept"  validate:"required,department"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	Note     *string `json:"note"     validate:"omitempty,max=1000"`
}

type GoodsRequest struct {
	ID          *string         `json:"id"          validate:"omitempty,uuid"`
	Name        string          `json:"name"        validate:"required,max=300"`
	Unit        string          `json:"unit"        validate:"required,max=50"`
	Category    string          `json:"category"    validate:"max=200"`
	Price       decimal.Decimal `json:"price"       validate:"min=0"`
	Supplier    string          `json:"supplier"    validate:"max=300"`
	Description *string         `json:"description"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type TransferFilter struct {
	Department string `form:"department"`
	Status     string `form:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GoodsResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Supplier    string          `json:"supplier"`
	Description *string         `json:"description"`
}

type TransactionResponse struct {
	ID             string           `json:"id"`
	GoodsID        string           `json:"goods_id"`
	GoodsName      string           `json:"goods_name,omitempty"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Quantity       int              `json:"quantity"`
	Price          *decimal.Decimal `json:"price"`
	Supplier       *string          `json:"supplier"`
	FromDept       string           `json:"from_dept"`
	ToDept         string           `json:"to_dept"`
	Date           string           `json:"date"`
	Note           *string          `json:"note"`
	DossierID      *string          `json:"dossier_id"`
	AcknowledgedAt *string          `json:"acknowledged_at"`
	AcknowledgedBy *string          `json:"acknowledged_by"`
}

type StockResponse struct {
	GoodsID  string          `json:"goods_id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Opening  int             `json:"opening"`
	Exported int             `json:"exported"`
	Pending  int             `json:"pending"`
	Closing  int             `json:"closing"`
}

type UsageLine struct {
	GoodsID  string          `json:"goods_id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Quantity int             `json:"quantity_held"`
	Value    decimal.Decimal `json:"value_held"`
}

type DepartmentUsageResponse struct {
	Department string          `json:"department"`
	Items      []UsageLine     `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
}
