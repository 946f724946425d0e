package model

import (
	"time"

	"github.com/google/uuid"
)

// Role values stored in users.role.
const (
	RoleAdmin       = "ADMIN"
	RoleProcurement = "PROCUREMENT"
	RoleUsage       = "USAGE"
	RoleAccounting  = "ACCOUNTING"
	RoleCouncil     = "COUNCIL"
	RoleGuest       = "GUEST"
)

// Roles lists every valid role in display order.
var Roles = []string{RoleAdmin, RoleProcurement, RoleUsage, RoleAccounting, RoleCouncil, RoleGuest}

// User is a staff account. UnitID is only meaningful for PROCUREMENT users and
// links the account to the procurement unit it works for.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name               string     `gorm:"not null"`
	Email              string     `gorm:"not null"`
	PasswordHash       string     `gorm:"not null"`
	Role               string     `gorm:"type:varchar(20);not null"`
	Department         string     `gorm:"not null"`
	UnitID             *uuid.UUID `gorm:"type:uuid;index"`
	MustChangePassword bool       `gorm:"not null;default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
