package service

import (
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/shopspring/decimal"
)

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                 u.ID.String(),
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		Department:         u.Department,
		UnitID:             optionalID(u.UnitID),
		MustChangePassword: u.MustChangePassword,
	}
}

func unitToResponse(u *model.ProcurementUnit) dto.UnitResponse {
	return dto.UnitResponse{ID: u.ID.String(), Name: u.Name}
}

func methodToResponse(m *model.ProcurementMethod) dto.MethodResponse {
	return dto.MethodResponse{ID: m.ID.String(), Name: m.Name, Position: m.Position}
}

func requestToResponse(r *model.ProcurementRequest) dto.RequestResponse {
	items := make([]dto.RequestItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = dto.RequestItem(it)
	}
	return dto.RequestResponse{
		ID:              r.ID.String(),
		Type:            r.Type,
		Title:           r.Title,
		RequesterID:     r.RequesterID.String(),
		RequesterName:   r.RequesterName,
		Department:      r.Department,
		TargetUnitID:    r.TargetUnitID.String(),
		Status:          r.Status,
		Date:            formatDate(r.Date),
		Items:           items,
		Amount:          r.Amount,
		ProcurementNote: r.ProcurementNote,
		UserFeedback:    r.UserFeedback,
		DossierID:       optionalID(r.DossierID),
	}
}

// dossierToResponse leaves TotalValue zero; callers derive it from members.
func dossierToResponse(d *model.ProcurementDossier) dto.DossierResponse {
	ids := make([]string, len(d.RequestIDs))
	for i, id := range d.RequestIDs {
		ids[i] = id.String()
	}
	files := make([]dto.DossierFileResponse, len(d.Files))
	for i := range d.Files {
		f := &d.Files[i]
		files[i] = dto.DossierFileResponse{
			ID:       f.ID.String(),
			Content:  f.Content,
			FileName: f.FileName,
			HasFile:  f.HasPayload(),
		}
	}
	permitted := d.PermittedDepartments
	if permitted == nil {
		permitted = []string{}
	}
	return dto.DossierResponse{
		ID:                   d.ID.String(),
		Name:                 d.Name,
		ProcurementMethod:    d.ProcurementMethod,
		RequestIDs:           ids,
		Status:               d.Status,
		Date:                 formatDate(d.Date),
		CompletionDate:       formatTime(d.CompletionDate),
		TargetUnitID:         d.TargetUnitID.String(),
		PermittedDepartments: permitted,
		TotalValue:           decimal.Zero,
		Files:                files,
	}
}

func goodsToResponse(g *model.GoodsItem) dto.GoodsResponse {
	return dto.GoodsResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Unit:        g.Unit,
		Category:    g.Category,
		Price:       g.Price,
		Supplier:    g.Supplier,
		Description: g.Description,
	}
}

func transactionToResponse(t *model.InventoryTransaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:             t.ID.String(),
		GoodsID:        t.GoodsID.String(),
		Type:           t.Type,
		Status:         t.Status,
		Quantity:       t.Quantity,
		Price:          t.Price,
		Supplier:       t.Supplier,
		FromDept:       t.FromDept,
		ToDept:         t.ToDept,
		Date:           formatDate(t.Date),
		Note:           t.Note,
		DossierID:      optionalID(t.DossierID),
		AcknowledgedAt: formatTime(t.AcknowledgedAt),
		AcknowledgedBy: optionalID(t.AcknowledgedBy),
	}
	if t.Goods != nil {
		resp.GoodsName = t.Goods.Name
	}
	return resp
}
