package dto

import "github.com/shopspring/decimal"

type DashboardResponse struct {
	TotalSpent            decimal.Decimal `json:"total_spent"`
	PendingCount          int             `json:"pending_count"`
	PurchasedThisMonth    int             `json:"purchased_this_month"`
	TotalImportedQuantity int             `json:"total_imported_quantity"`
	MonthlyRequests       [12]int         `json:"monthly_requests"`
	TypeDistribution      map[string]int  `json:"type_distribution"`
}

type UnitRequestCount struct {
	UnitID   string `json:"unit_id"`
	UnitName string `json:"unit_name"`
	Count    int    `json:"count"`
}

type SpendingResponse struct {
	Year            int                 `json:"year"`
	Monthly         [12]decimal.Decimal `json:"monthly"`
	Total           decimal.Decimal     `json:"total"`
	RequestsPerUnit []UnitRequestCount  `json:"requests_per_unit"`
}

type YearFilter struct {
	Year int `form:"year" validate:"omitempty,min=2000,max=2100"`
}

type DepartmentFilter struct {
	Department string `form:"department"`
	Format     string `form:"format" validate:"omitempty,oneof=xlsx pdf"`
}
