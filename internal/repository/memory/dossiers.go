package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DossierRepository struct{ s *Store }

var _ repository.DossierRepository = (*DossierRepository)(nil)

func (s *Store) Dossiers() *DossierRepository { return &DossierRepository{s: s} }

func (r *DossierRepository) DB() *gorm.DB { return nil }

// load must be called with mu held.
func (r *DossierRepository) load(id uuid.UUID) (model.ProcurementDossier, bool) {
	d, ok := r.s.dossiers[id]
	if !ok {
		return d, false
	}
	d.RequestIDs = slices.Clone(d.RequestIDs)
	d.PermittedDepartments = slices.Clone(d.PermittedDepartments)
	d.Files = nil
	for _, f := range r.s.files {
		if f.DossierID == id {
			d.Files = append(d.Files, f)
		}
	}
	sort.Slice(d.Files, func(i, j int) bool { return d.Files[i].Position < d.Files[j].Position })
	return d, true
}

func (r *DossierRepository) CreateTx(_ *gorm.DB, d *model.ProcurementDossier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.Create"); err != nil {
		return err
	}
	ensureID(&d.ID)
	d.CreatedAt = r.s.stamp()
	d.UpdatedAt = d.CreatedAt
	stored := *d
	stored.RequestIDs = slices.Clone(d.RequestIDs)
	stored.PermittedDepartments = slices.Clone(d.PermittedDepartments)
	stored.Files = nil
	r.s.dossiers[d.ID] = stored
	return nil
}

func (r *DossierRepository) FindByID(_ context.Context, id uuid.UUID) (*model.ProcurementDossier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.FindByID"); err != nil {
		return nil, err
	}
	d, ok := r.load(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *DossierRepository) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.ProcurementDossier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.FindForUpdateTx"); err != nil {
		return nil, err
	}
	d, ok := r.load(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	d.Files = nil
	return &d, nil
}

func (r *DossierRepository) List(_ context.Context, f repository.DossierFilter) ([]model.ProcurementDossier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.List"); err != nil {
		return nil, err
	}
	out := []model.ProcurementDossier{}
	for id := range r.s.dossiers {
		d, _ := r.load(id)
		if !f.All {
			byUnit := f.UnitID != nil && d.TargetUnitID == *f.UnitID
			byDept := f.Department != "" && d.Permits(f.Department)
			if !byUnit && !byDept {
				continue
			}
		}
		if f.Year > 0 && d.Date.Year() != f.Year {
			continue
		}
		if f.Method != "" && d.ProcurementMethod != f.Method {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *DossierRepository) UpdateTx(_ *gorm.DB, d *model.ProcurementDossier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.Update"); err != nil {
		return err
	}
	if _, ok := r.s.dossiers[d.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	d.UpdatedAt = r.s.stamp()
	stored := *d
	stored.RequestIDs = slices.Clone(d.RequestIDs)
	stored.PermittedDepartments = slices.Clone(d.PermittedDepartments)
	stored.Files = nil
	r.s.dossiers[d.ID] = stored
	return nil
}

func (r *DossierRepository) ReplaceFilesTx(_ *gorm.DB, dossierID uuid.UUID, files []model.DossierFile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.ReplaceFiles"); err != nil {
		return err
	}
	for id, f := range r.s.files {
		if f.DossierID == dossierID {
			delete(r.s.files, id)
		}
	}
	for i := range files {
		files[i].DossierID = dossierID
		ensureID(&files[i].ID)
		files[i].CreatedAt = r.s.stamp()
		r.s.files[files[i].ID] = files[i]
	}
	return nil
}

func (r *DossierRepository) FindFile(_ context.Context, dossierID, fileID uuid.UUID) (*model.DossierFile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[fileID]
	if !ok || f.DossierID != dossierID {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

func (r *DossierRepository) ListStaleCompleted(_ context.Context, limit int) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Dossiers.ListStaleCompleted"); err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, req := range r.s.requests {
		if req.DossierID == nil || seen[*req.DossierID] {
			continue
		}
		d, ok := r.s.dossiers[*req.DossierID]
		if !ok || d.Status != model.DossierCompleted {
			continue
		}
		switch req.Status {
		case model.StatusReceived, model.StatusApprovedCouncil, model.StatusApprovedFinance:
			seen[d.ID] = true
			ids = append(ids, d.ID)
		}
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}
