package model

import (
	"time"

	"github.com/google/uuid"
)

// Dossier statuses.
const (
	DossierProcessing = "PROCESSING"
	DossierCompleted  = "COMPLETED"
)

// ProcurementDossier groups accepted requests of one unit into a bid package.
// Its total value is always derived from the member requests.
type ProcurementDossier struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                 string      `gorm:"not null"`
	ProcurementMethod    string      `gorm:"not null"`
	RequestIDs           []uuid.UUID `gorm:"column:request_ids;type:jsonb;serializer:json;not null"`
	Status               string      `gorm:"type:varchar(20);not null;default:'PROCESSING'"`
	Date                 time.Time   `gorm:"type:date;not null"`
	CompletionDate       *time.Time
	TargetUnitID         uuid.UUID `gorm:"type:uuid;not null;index"`
	PermittedDepartments []string  `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Files []DossierFile `gorm:"foreignKey:DossierID"`
}

// DossierFile is an attached document. The payload lives in object storage
// under ObjectKey, or inline in FileBase64 when no storage is configured.
type DossierFile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DossierID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Position   int       `gorm:"not null;default:0"`
	Content    string    `gorm:"not null"`
	FileName   string
	ObjectKey  *string
	FileBase64 *string
	CreatedAt  time.Time
}

// HasPayload reports whether the file carries downloadable content.
func (f *DossierFile) HasPayload() bool {
	return f.ObjectKey != nil || f.FileBase64 != nil
}

// Permits reports whether department was granted read access.
func (d *ProcurementDossier) Permits(department string) bool {
	for _, p := range d.PermittedDepartments {
		if p == department {
			return true
		}
	}
	return false
}
