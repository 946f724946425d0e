package service

import (
	"slices"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
)

// Actor is the authenticated caller, built from the access token claims.
type Actor struct {
	UserID     uuid.UUID
	Email      string
	Role       string
	Department string
	UnitID     *uuid.UUID
}

func (a Actor) Is(roles ...string) bool { return slices.Contains(roles, a.Role) }

// InUnit reports whether the actor works for the given procurement unit.
func (a Actor) InUnit(unitID uuid.UUID) bool {
	return a.UnitID != nil && *a.UnitID == unitID
}

// SeesAllDepartments is true for admins and the executive board.
func (a Actor) SeesAllDepartments() bool {
	return a.Role == model.RoleAdmin || a.Department == model.ExecutiveBoard
}

// ManagesUnit is true for admins and procurement staff of unitID.
func (a Actor) ManagesUnit(unitID uuid.UUID) bool {
	return a.Role == model.RoleAdmin || (a.Role == model.RoleProcurement && a.InUnit(unitID))
}

// requestScope returns the listing scope of the actor. ok is false when the
// role may not see any request.
func (a Actor) requestScope() (scope *repository.RequestScope, ok bool) {
	switch a.Role {
	case model.RoleAdmin:
		return nil, true
	case model.RoleUsage:
		return &repository.RequestScope{Department: a.Department}, true
	case model.RoleProcurement:
		return &repository.RequestScope{Department: a.Department, UnitID: a.UnitID}, true
	default:
		return nil, false
	}
}

func (a Actor) canSeeRequest(r *model.ProcurementRequest) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUsage:
		return r.Department == a.Department
	case model.RoleProcurement:
		return a.InUnit(r.TargetUnitID) || r.Department == a.Department
	default:
		return false
	}
}

// dossierFilter mirrors canSeeDossier for repository listings.
func (a Actor) dossierFilter() (repository.DossierFilter, bool) {
	switch a.Role {
	case model.RoleAdmin:
		return repository.DossierFilter{All: true}, true
	case model.RoleProcurement:
		return repository.DossierFilter{UnitID: a.UnitID}, a.UnitID != nil
	case model.RoleGuest:
		return repository.DossierFilter{}, false
	default:
		return repository.DossierFilter{Department: a.Department}, a.Department != ""
	}
}

func (a Actor) canSeeDossier(unitID uuid.UUID, permitted []string) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleProcurement:
		return a.InUnit(unitID)
	case model.RoleGuest:
		return false
	default:
		return slices.Contains(permitted, a.Department)
	}
}
