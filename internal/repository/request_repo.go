package repository

import (
	"context"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestScope restricts a listing to what one actor may see. A request is in
// scope when its department matches Department or its target unit matches
// UnitID. Empty fields match nothing.
type RequestScope struct {
	Department string
	UnitID     *uuid.UUID
}

type RequestFilter struct {
	Scope        *RequestScope // nil: every request
	Department   string
	Status       string
	TargetUnitID *uuid.UUID
	Unassigned   bool // dossier_id IS NULL
}

type RequestRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, r *model.ProcurementRequest) error
	CreateTx(tx *gorm.DB, r *model.ProcurementRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProcurementRequest, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProcurementRequest, error)
	FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) ([]model.ProcurementRequest, error)
	FindByDossier(ctx context.Context, dossierID uuid.UUID) ([]model.ProcurementRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.ProcurementRequest, error)
	// TransitionStatus moves a request from one status to another and stores
	// the note. It returns the number of rows changed; zero means the request
	// was no longer in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, note *string) (int64, error)
	// SetAmount stores the purchase amount unless the request was rejected.
	SetAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	// SetFeedback moves a PURCHASED request to status with the requester's
	// feedback.
	SetFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) (int64, error)
	Update(ctx context.Context, r *model.ProcurementRequest) error
	UpdateTx(tx *gorm.DB, r *model.ProcurementRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AssignDossierTx stamps dossierID on RECEIVED requests that are not yet
	// grouped and returns how many rows matched.
	AssignDossierTx(tx *gorm.DB, ids []uuid.UUID, dossierID uuid.UUID) (int64, error)
	// MarkPurchasedTx moves every not yet purchased member of a dossier to
	// PURCHASED.
	MarkPurchasedTx(tx *gorm.DB, dossierID uuid.UUID) (int64, error)
	CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error)
}

// purchasableStatuses are the member statuses completion moves to PURCHASED.
var purchasableStatuses = []string{
	model.StatusReceived, model.StatusApprovedCouncil, model.StatusApprovedFinance,
}

type requestRepo struct{ db *gorm.DB }

func NewRequestRepository(db *gorm.DB) RequestRepository { return &requestRepo{db: db} }

func (r *requestRepo) DB() *gorm.DB { return r.db }

func (r *requestRepo) Create(ctx context.Context, req *model.ProcurementRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepo) CreateTx(tx *gorm.DB, req *model.ProcurementRequest) error {
	return tx.Create(req).Error
}

func (r *requestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProcurementRequest, error) {
	var req model.ProcurementRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	return &req, err
}

func (r *requestRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProcurementRequest, error) {
	var reqs []model.ProcurementRequest
	if len(ids) == 0 {
		return reqs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&reqs).Error
	return reqs, err
}

// FindByIDsTx locks the returned rows until tx ends.
func (r *requestRepo) FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) ([]model.ProcurementRequest, error) {
	var reqs []model.ProcurementRequest
	if len(ids) == 0 {
		return reqs, nil
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", ids).Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) FindByDossier(ctx context.Context, dossierID uuid.UUID) ([]model.ProcurementRequest, error) {
	var reqs []model.ProcurementRequest
	err := r.db.WithContext(ctx).Where("dossier_id = ?", dossierID).Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) List(ctx context.Context, filter RequestFilter) ([]model.ProcurementRequest, error) {
	var reqs []model.ProcurementRequest
	q := r.db.WithContext(ctx).Model(&model.ProcurementRequest{})

	if s := filter.Scope; s != nil {
		switch {
		case s.Department != "" && s.UnitID != nil:
			q = q.Where("department = ? OR target_unit_id = ?", s.Department, *s.UnitID)
		case s.Department != "":
			q = q.Where("department = ?", s.Department)
		case s.UnitID != nil:
			q = q.Where("target_unit_id = ?", *s.UnitID)
		default:
			return reqs, nil
		}
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TargetUnitID != nil {
		q = q.Where("target_unit_id = ?", *filter.TargetUnitID)
	}
	if filter.Unassigned {
		q = q.Where("dossier_id IS NULL")
	}

	err := q.Order("date DESC, created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, note *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ProcurementRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "procurement_note": note})
	return res.RowsAffected, res.Error
}

func (r *requestRepo) SetAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ProcurementRequest{}).
		Where("id = ? AND status <> ?", id, model.StatusRejected).
		Update("amount", amount)
	return res.RowsAffected, res.Error
}

func (r *requestRepo) SetFeedback(ctx context.Context, id uuid.UUID, status string, feedback *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ProcurementRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPurchased).
		Updates(map[string]any{"status": status, "user_feedback": feedback})
	return res.RowsAffected, res.Error
}

func (r *requestRepo) Update(ctx context.Context, req *model.ProcurementRequest) error {
	return r.UpdateTx(r.db.WithContext(ctx), req)
}

func (r *requestRepo) UpdateTx(tx *gorm.DB, req *model.ProcurementRequest) error {
	return tx.Save(req).Error
}

func (r *requestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &model.ProcurementRequest{}, id)
}

func (r *requestRepo) AssignDossierTx(tx *gorm.DB, ids []uuid.UUID, dossierID uuid.UUID) (int64, error) {
	res := tx.Model(&model.ProcurementRequest{}).
		Where("id IN ? AND dossier_id IS NULL AND status = ?", ids, model.StatusReceived).
		Update("dossier_id", dossierID)
	return res.RowsAffected, res.Error
}

func (r *requestRepo) MarkPurchasedTx(tx *gorm.DB, dossierID uuid.UUID) (int64, error) {
	res := tx.Model(&model.ProcurementRequest{}).
		Where("dossier_id = ? AND status IN ?", dossierID, purchasableStatuses).
		Update("status", model.StatusPurchased)
	return res.RowsAffected, res.Error
}

func (r *requestRepo) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProcurementRequest{}).
		Where("target_unit_id = ?", unitID).Count(&n).Error
	return n, err
}
