package repository

import (
	"context"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistryRepository stores procurement units and methods.
type RegistryRepository interface {
	ListUnits(ctx context.Context) ([]model.ProcurementUnit, error)
	FindUnit(ctx context.Context, id uuid.UUID) (*model.ProcurementUnit, error)
	FindUnitByName(ctx context.Context, name string) (*model.ProcurementUnit, error)
	CreateUnit(ctx context.Context, u *model.ProcurementUnit) error
	DeleteUnit(ctx context.Context, id uuid.UUID) error

	ListMethods(ctx context.Context) ([]model.ProcurementMethod, error)
	FindMethod(ctx context.Context, id uuid.UUID) (*model.ProcurementMethod, error)
	FindMethodByName(ctx context.Context, name string) (*model.ProcurementMethod, error)
	CreateMethod(ctx context.Context, m *model.ProcurementMethod) error
	DeleteMethod(ctx context.Context, id uuid.UUID) error
}

type registryRepo struct{ db *gorm.DB }

func NewRegistryRepository(db *gorm.DB) RegistryRepository { return &registryRepo{db: db} }

func (r *registryRepo) ListUnits(ctx context.Context) ([]model.ProcurementUnit, error) {
	var units []model.ProcurementUnit
	err := r.db.WithContext(ctx).Order("name ASC").Find(&units).Error
	return units, err
}

func (r *registryRepo) FindUnit(ctx context.Context, id uuid.UUID) (*model.ProcurementUnit, error) {
	var u model.ProcurementUnit
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *registryRepo) FindUnitByName(ctx context.Context, name string) (*model.ProcurementUnit, error) {
	var u model.ProcurementUnit
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&u).Error
	return &u, err
}

func (r *registryRepo) CreateUnit(ctx context.Context, u *model.ProcurementUnit) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *registryRepo) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &model.ProcurementUnit{}, id)
}

func (r *registryRepo) ListMethods(ctx context.Context) ([]model.ProcurementMethod, error) {
	var methods []model.ProcurementMethod
	err := r.db.WithContext(ctx).Order("position ASC, created_at ASC").Find(&methods).Error
	return methods, err
}

func (r *registryRepo) FindMethod(ctx context.Context, id uuid.UUID) (*model.ProcurementMethod, error) {
	var m model.ProcurementMethod
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *registryRepo) FindMethodByName(ctx context.Context, name string) (*model.ProcurementMethod, error) {
	var m model.ProcurementMethod
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	return &m, err
}

func (r *registryRepo) CreateMethod(ctx context.Context, m *model.ProcurementMethod) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *registryRepo) DeleteMethod(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &model.ProcurementMethod{}, id)
}

// deleteByID reports gorm.ErrRecordNotFound when nothing was removed.
func deleteByID(ctx context.Context, db *gorm.DB, value any, id uuid.UUID) error {
	res := db.WithContext(ctx).Delete(value, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
