package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TxnImport   = "IMPORT"
	TxnExport   = "EXPORT"
	TxnTransfer = "TRANSFER"
)

// Transaction statuses.
const (
	TxnPending   = "PENDING"
	TxnCompleted = "COMPLETED"
)

// DefaultImportCategory is assigned to goods registered by an import.
const DefaultImportCategory = "Hàng nhập kho"

// GoodsItem is a good tracked by the warehouse.
type GoodsItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string          `gorm:"not null;index"`
	Unit        string          `gorm:"not null"`
	Category    string          `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Supplier    string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName keeps the plural the migrations use.
func (GoodsItem) TableName() string { return "goods_items" }

// InventoryTransaction is one ledger entry. Entries are never edited except a
// TRANSFER flipping PENDING to COMPLETED on acknowledgment.
type InventoryTransaction struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GoodsID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type           string           `gorm:"type:varchar(10);not null"`
	Status         string           `gorm:"type:varchar(10);not null"`
	Quantity       int              `gorm:"not null"`
	Price          *decimal.Decimal `gorm:"type:decimal(15,2)"`
	Supplier       *string
	FromDept       string    `gorm:"not null"`
	ToDept         string    `gorm:"not null;index"`
	Date           time.Time `gorm:"type:date;not null"`
	Note           *string
	DossierID      *uuid.UUID `gorm:"type:uuid"`
	AcknowledgedAt *time.Time
	AcknowledgedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time

	Goods *GoodsItem `gorm:"foreignKey:GoodsID"`
}
