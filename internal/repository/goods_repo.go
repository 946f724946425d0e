package repository

import (
	"context"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GoodsRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, g *model.GoodsItem) error
	CreateTx(tx *gorm.DB, g *model.GoodsItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.GoodsItem, error)
	// FindForUpdateTx locks the goods row so concurrent distributions of the
	// same good serialise on it.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.GoodsItem, error)
	List(ctx context.Context) ([]model.GoodsItem, error)
	Update(ctx context.Context, g *model.GoodsItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type goodsRepo struct{ db *gorm.DB }

func NewGoodsRepository(db *gorm.DB) GoodsRepository { return &goodsRepo{db: db} }

func (r *goodsRepo) DB() *gorm.DB { return r.db }

func (r *goodsRepo) Create(ctx context.Context, g *model.GoodsItem) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *goodsRepo) CreateTx(tx *gorm.DB, g *model.GoodsItem) error {
	return tx.Create(g).Error
}

func (r *goodsRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.GoodsItem, error) {
	var g model.GoodsItem
	err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error
	return &g, err
}

func (r *goodsRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.GoodsItem, error) {
	var g model.GoodsItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&g, "id = ?", id).Error
	return &g, err
}

func (r *goodsRepo) List(ctx context.Context) ([]model.GoodsItem, error) {
	var goods []model.GoodsItem
	err := r.db.WithContext(ctx).Order("name ASC").Find(&goods).Error
	return goods, err
}

func (r *goodsRepo) Update(ctx context.Context, g *model.GoodsItem) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *goodsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &model.GoodsItem{}, id)
}
