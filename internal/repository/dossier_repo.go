package repository

import (
	"context"
	"encoding/json"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DossierFilter narrows dossier listings. UnitID and Department are visibility
// scopes; when both are set a dossier matching either one is returned.
type DossierFilter struct {
	All        bool
	UnitID     *uuid.UUID
	Department string
	Year       int
	Method     string
}

type DossierRepository interface {
	DB() *gorm.DB
	CreateTx(tx *gorm.DB, d *model.ProcurementDossier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProcurementDossier, error)
	// FindForUpdateTx loads the dossier holding a row lock until tx ends.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.ProcurementDossier, error)
	List(ctx context.Context, filter DossierFilter) ([]model.ProcurementDossier, error)
	UpdateTx(tx *gorm.DB, d *model.ProcurementDossier) error
	// ReplaceFilesTx drops every stored file of the dossier and inserts files.
	ReplaceFilesTx(tx *gorm.DB, dossierID uuid.UUID, files []model.DossierFile) error
	FindFile(ctx context.Context, dossierID, fileID uuid.UUID) (*model.DossierFile, error)
	// ListStaleCompleted returns COMPLETED dossiers that still own members
	// which were never moved to PURCHASED.
	ListStaleCompleted(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type dossierRepo struct{ db *gorm.DB }

func NewDossierRepository(db *gorm.DB) DossierRepository { return &dossierRepo{db: db} }

func (r *dossierRepo) DB() *gorm.DB { return r.db }

func (r *dossierRepo) CreateTx(tx *gorm.DB, d *model.ProcurementDossier) error {
	return tx.Create(d).Error
}

func (r *dossierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProcurementDossier, error) {
	var d model.ProcurementDossier
	err := r.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&d, "id = ?", id).Error
	return &d, err
}

func (r *dossierRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.ProcurementDossier, error) {
	var d model.ProcurementDossier
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, "id = ?", id).Error
	return &d, err
}

func (r *dossierRepo) List(ctx context.Context, filter DossierFilter) ([]model.ProcurementDossier, error) {
	var dossiers []model.ProcurementDossier
	q := r.db.WithContext(ctx).Model(&model.ProcurementDossier{})

	if !filter.All {
		var dept []byte
		if filter.Department != "" {
			dept, _ = json.Marshal([]string{filter.Department})
		}
		switch {
		case filter.UnitID != nil && dept != nil:
			q = q.Where("target_unit_id = ? OR permitted_departments @> ?::jsonb", *filter.UnitID, string(dept))
		case filter.UnitID != nil:
			q = q.Where("target_unit_id = ?", *filter.UnitID)
		case dept != nil:
			q = q.Where("permitted_departments @> ?::jsonb", string(dept))
		default:
			return dossiers, nil
		}
	}
	if filter.Year > 0 {
		q = q.Where("EXTRACT(YEAR FROM date) = ?", filter.Year)
	}
	if filter.Method != "" {
		q = q.Where("procurement_method = ?", filter.Method)
	}

	err := q.Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("date DESC, created_at DESC").
		Find(&dossiers).Error
	return dossiers, err
}

func (r *dossierRepo) UpdateTx(tx *gorm.DB, d *model.ProcurementDossier) error {
	return tx.Omit("Files").Save(d).Error
}

func (r *dossierRepo) ReplaceFilesTx(tx *gorm.DB, dossierID uuid.UUID, files []model.DossierFile) error {
	if err := tx.Where("dossier_id = ?", dossierID).Delete(&model.DossierFile{}).Error; err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	for i := range files {
		files[i].DossierID = dossierID
	}
	return tx.Create(&files).Error
}

func (r *dossierRepo) FindFile(ctx context.Context, dossierID, fileID uuid.UUID) (*model.DossierFile, error) {
	var f model.DossierFile
	err := r.db.WithContext(ctx).
		Where("dossier_id = ? AND id = ?", dossierID, fileID).
		First(&f).Error
	return &f, err
}

func (r *dossierRepo) ListStaleCompleted(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("procurement_dossiers AS d").
		Select("DISTINCT d.id").
		Joins("JOIN procurement_requests r ON r.dossier_id = d.id").
		Where("d.status = ? AND r.status IN ?", model.DossierCompleted, purchasableStatuses).
		Limit(limit).
		Pluck("d.id", &ids).Error
	return ids, err
}
