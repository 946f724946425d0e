package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcurementUnit is the procurement-side office that processes requests and
// owns dossiers.
type ProcurementUnit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

// ProcurementMethod is a named bidding method a dossier is run under.
type ProcurementMethod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Position  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
}
