package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegistryRepository struct{ s *Store }

var _ repository.RegistryRepository = (*RegistryRepository)(nil)

func (s *Store) Registry() *RegistryRepository { return &RegistryRepository{s: s} }

func (r *RegistryRepository) ListUnits(_ context.Context) ([]model.ProcurementUnit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Registry.ListUnits"); err != nil {
		return nil, err
	}
	out := make([]model.ProcurementUnit, 0, len(r.s.units))
	for _, u := range r.s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RegistryRepository) FindUnit(_ context.Context, id uuid.UUID) (*model.ProcurementUnit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Registry.FindUnit"); err != nil {
		return nil, err
	}
	u, ok := r.s.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *RegistryRepository) FindUnitByName(_ context.Context, name string) (*model.ProcurementUnit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.units {
		if strings.EqualFold(u.Name, name) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *RegistryRepository) CreateUnit(_ context.Context, u *model.ProcurementUnit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Registry.CreateUnit"); err != nil {
		return err
	}
	ensureID(&u.ID)
	u.CreatedAt = r.s.stamp()
	r.s.units[u.ID] = *u
	return nil
}

func (r *RegistryRepository) DeleteUnit(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.units[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.units, id)
	return nil
}

func (r *RegistryRepository) ListMethods(_ context.Context) ([]model.ProcurementMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Registry.ListMethods"); err != nil {
		return nil, err
	}
	out := make([]model.ProcurementMethod, 0, len(r.s.methods))
	for _, m := range r.s.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RegistryRepository) FindMethod(_ context.Context, id uuid.UUID) (*model.ProcurementMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *RegistryRepository) FindMethodByName(_ context.Context, name string) (*model.ProcurementMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Registry.FindMethodByName"); err != nil {
		return nil, err
	}
	for _, m := range r.s.methods {
		if m.Name == name {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *RegistryRepository) CreateMethod(_ context.Context, m *model.ProcurementMethod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&m.ID)
	m.CreatedAt = r.s.stamp()
	r.s.methods[m.ID] = *m
	return nil
}

func (r *RegistryRepository) DeleteMethod(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.methods[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.methods, id)
	return nil
}
