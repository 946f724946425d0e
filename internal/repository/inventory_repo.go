package repository

import (
	"context"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	GoodsID *uuid.UUID
	Type    string
	Status  string
	ToDept  string
}

// InventoryRepository is the append-only ledger of stock movements.
type InventoryRepository interface {
	CreateTx(tx *gorm.DB, t *model.InventoryTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryTransaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]model.InventoryTransaction, error)
	ListByGoodsTx(tx *gorm.DB, goodsID uuid.UUID) ([]model.InventoryTransaction, error)
	// Acknowledge completes a PENDING TRANSFER. Zero rows means the
	// transaction was not a pending transfer anymore.
	Acknowledge(ctx context.Context, id, by uuid.UUID, at time.Time) (int64, error)
	CountByGoods(ctx context.Context, goodsID uuid.UUID) (int64, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) CreateTx(tx *gorm.DB, t *model.InventoryTransaction) error {
	return tx.Omit("Goods").Create(t).Error
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryTransaction, error) {
	var t model.InventoryTransaction
	err := r.db.WithContext(ctx).Preload("Goods").First(&t, "id = ?", id).Error
	return &t, err
}

func (r *inventoryRepo) List(ctx context.Context, filter TransactionFilter) ([]model.InventoryTransaction, error) {
	var txns []model.InventoryTransaction
	q := r.db.WithContext(ctx).Model(&model.InventoryTransaction{})

	if filter.GoodsID != nil {
		q = q.Where("goods_id = ?", *filter.GoodsID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ToDept != "" {
		q = q.Where("to_dept = ?", filter.ToDept)
	}

	err := q.Preload("Goods").Order("date DESC, created_at DESC").Find(&txns).Error
	return txns, err
}

func (r *inventoryRepo) ListByGoodsTx(tx *gorm.DB, goodsID uuid.UUID) ([]model.InventoryTransaction, error) {
	var txns []model.InventoryTransaction
	err := tx.Where("goods_id = ?", goodsID).Find(&txns).Error
	return txns, err
}

func (r *inventoryRepo) Acknowledge(ctx context.Context, id, by uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.InventoryTransaction{}).
		Where("id = ? AND type = ? AND status = ?", id, model.TxnTransfer, model.TxnPending).
		Updates(map[string]any{
			"status":          model.TxnCompleted,
			"acknowledged_at": at,
			"acknowledged_by": by,
		})
	return res.RowsAffected, res.Error
}

func (r *inventoryRepo) CountByGoods(ctx context.Context, goodsID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.InventoryTransaction{}).
		Where("goods_id = ?", goodsID).Count(&n).Error
	return n, err
}
