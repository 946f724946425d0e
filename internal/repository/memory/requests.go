package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RequestRepository struct{ s *Store }

var _ repository.RequestRepository = (*RequestRepository)(nil)

func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }

func (r *RequestRepository) DB() *gorm.DB { return nil }

func cloneRequest(req model.ProcurementRequest) model.ProcurementRequest {
	req.Items = slices.Clone(req.Items)
	return req
}

func (r *RequestRepository) Create(_ context.Context, req *model.ProcurementRequest) error {
	return r.CreateTx(nil, req)
}

func (r *RequestRepository) CreateTx(_ *gorm.DB, req *model.ProcurementRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.Create"); err != nil {
		return err
	}
	ensureID(&req.ID)
	req.CreatedAt = r.s.stamp()
	req.UpdatedAt = req.CreatedAt
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *RequestRepository) FindByID(_ context.Context, id uuid.UUID) (*model.ProcurementRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.FindByID"); err != nil {
		return nil, err
	}
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	req = cloneRequest(req)
	return &req, nil
}

func (r *RequestRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.ProcurementRequest, error) {
	return r.FindByIDsTx(nil, ids)
}

func (r *RequestRepository) FindByIDsTx(_ *gorm.DB, ids []uuid.UUID) ([]model.ProcurementRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.FindByIDs"); err != nil {
		return nil, err
	}
	var out []model.ProcurementRequest
	for _, id := range ids {
		if req, ok := r.s.requests[id]; ok {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (r *RequestRepository) FindByDossier(_ context.Context, dossierID uuid.UUID) ([]model.ProcurementRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.FindByDossier"); err != nil {
		return nil, err
	}
	var out []model.ProcurementRequest
	for _, req := range r.s.requests {
		if req.DossierID != nil && *req.DossierID == dossierID {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func inScope(req model.ProcurementRequest, s *repository.RequestScope) bool {
	if s == nil {
		return true
	}
	if s.Department != "" && req.Department == s.Department {
		return true
	}
	return s.UnitID != nil && req.TargetUnitID == *s.UnitID
}

func (r *RequestRepository) List(_ context.Context, f repository.RequestFilter) ([]model.ProcurementRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.List"); err != nil {
		return nil, err
	}
	out := []model.ProcurementRequest{}
	for _, req := range r.s.requests {
		switch {
		case !inScope(req, f.Scope):
		case f.Department != "" && req.Department != f.Department:
		case f.Status != "" && req.Status != f.Status:
		case f.TargetUnitID != nil && req.TargetUnitID != *f.TargetUnitID:
		case f.Unassigned && req.DossierID != nil:
		default:
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RequestRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to string, note *string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.TransitionStatus"); err != nil {
		return 0, err
	}
	req, ok := r.s.requests[id]
	if !ok || req.Status != from {
		return 0, nil
	}
	req.Status = to
	req.ProcurementNote = note
	req.UpdatedAt = r.s.stamp()
	r.s.requests[id] = req
	return 1, nil
}

func (r *RequestRepository) SetAmount(_ context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status == model.StatusRejected {
		return 0, nil
	}
	req.Amount = &amount
	r.s.requests[id] = req
	return 1, nil
}

func (r *RequestRepository) SetFeedback(_ context.Context, id uuid.UUID, status string, feedback *string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status != model.StatusPurchased {
		return 0, nil
	}
	req.Status = status
	req.UserFeedback = feedback
	r.s.requests[id] = req
	return 1, nil
}

func (r *RequestRepository) Update(_ context.Context, req *model.ProcurementRequest) error {
	return r.UpdateTx(nil, req)
}

func (r *RequestRepository) UpdateTx(_ *gorm.DB, req *model.ProcurementRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.Update"); err != nil {
		return err
	}
	req.UpdatedAt = r.s.stamp()
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *RequestRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.requests, id)
	return nil
}

func (r *RequestRepository) AssignDossierTx(_ *gorm.DB, ids []uuid.UUID, dossierID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.AssignDossierTx"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		req, ok := r.s.requests[id]
		if !ok || req.DossierID != nil || req.Status != model.StatusReceived {
			continue
		}
		d := dossierID
		req.DossierID = &d
		r.s.requests[id] = req
		n++
	}
	return n, nil
}

func (r *RequestRepository) MarkPurchasedTx(_ *gorm.DB, dossierID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Requests.MarkPurchasedTx"); err != nil {
		return 0, err
	}
	var n int64
	for id, req := range r.s.requests {
		if req.DossierID == nil || *req.DossierID != dossierID {
			continue
		}
		switch req.Status {
		case model.StatusReceived, model.StatusApprovedCouncil, model.StatusApprovedFinance:
			req.Status = model.StatusPurchased
			r.s.requests[id] = req
			n++
		}
	}
	return n, nil
}

func (r *RequestRepository) CountByUnit(_ context.Context, unitID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, req := range r.s.requests {
		if req.TargetUnitID == unitID {
			n++
		}
	}
	return n, nil
}
