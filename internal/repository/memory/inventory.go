package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoodsRepository struct{ s *Store }

var _ repository.GoodsRepository = (*GoodsRepository)(nil)

func (s *Store) Goods() *GoodsRepository { return &GoodsRepository{s: s} }

func (r *GoodsRepository) DB() *gorm.DB { return nil }

func (r *GoodsRepository) Create(_ context.Context, g *model.GoodsItem) error {
	return r.CreateTx(nil, g)
}

func (r *GoodsRepository) CreateTx(_ *gorm.DB, g *model.GoodsItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Goods.Create"); err != nil {
		return err
	}
	ensureID(&g.ID)
	g.CreatedAt = r.s.stamp()
	g.UpdatedAt = g.CreatedAt
	r.s.goods[g.ID] = *g
	return nil
}

func (r *GoodsRepository) FindByID(_ context.Context, id uuid.UUID) (*model.GoodsItem, error) {
	return r.FindForUpdateTx(nil, id)
}

func (r *GoodsRepository) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.GoodsItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Goods.FindByID"); err != nil {
		return nil, err
	}
	g, ok := r.s.goods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &g, nil
}

func (r *GoodsRepository) List(_ context.Context) ([]model.GoodsItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Goods.List"); err != nil {
		return nil, err
	}
	out := make([]model.GoodsItem, 0, len(r.s.goods))
	for _, g := range r.s.goods {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *GoodsRepository) Update(_ context.Context, g *model.GoodsItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.goods[g.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	g.UpdatedAt = r.s.stamp()
	r.s.goods[g.ID] = *g
	return nil
}

func (r *GoodsRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.goods[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.goods, id)
	return nil
}

type InventoryRepository struct{ s *Store }

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

func (s *Store) Inventory() *InventoryRepository { return &InventoryRepository{s: s} }

func (r *InventoryRepository) CreateTx(_ *gorm.DB, t *model.InventoryTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Inventory.Create"); err != nil {
		return err
	}
	ensureID(&t.ID)
	t.CreatedAt = r.s.stamp()
	stored := *t
	stored.Goods = nil
	r.s.transactions[t.ID] = stored
	return nil
}

// withGoods must be called with mu held.
func (r *InventoryRepository) withGoods(t model.InventoryTransaction) model.InventoryTransaction {
	if g, ok := r.s.goods[t.GoodsID]; ok {
		t.Goods = &g
	}
	return t
}

func (r *InventoryRepository) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	t = r.withGoods(t)
	return &t, nil
}

func (r *InventoryRepository) List(_ context.Context, f repository.TransactionFilter) ([]model.InventoryTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Inventory.List"); err != nil {
		return nil, err
	}
	out := []model.InventoryTransaction{}
	for _, t := range r.s.transactions {
		switch {
		case f.GoodsID != nil && t.GoodsID != *f.GoodsID:
		case f.Type != "" && t.Type != f.Type:
		case f.Status != "" && t.Status != f.Status:
		case f.ToDept != "" && t.ToDept != f.ToDept:
		default:
			out = append(out, r.withGoods(t))
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

func (r *InventoryRepository) ListByGoodsTx(_ *gorm.DB, goodsID uuid.UUID) ([]model.InventoryTransaction, error) {
	return r.List(context.Background(), repository.TransactionFilter{GoodsID: &goodsID})
}

func (r *InventoryRepository) Acknowledge(_ context.Context, id, by uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok || t.Type != model.TxnTransfer || t.Status != model.TxnPending {
		return 0, nil
	}
	t.Status = model.TxnCompleted
	t.AcknowledgedAt = &at
	t.AcknowledgedBy = &by
	r.s.transactions[id] = t
	return 1, nil
}

func (r *InventoryRepository) CountByGoods(_ context.Context, goodsID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.transactions {
		if t.GoodsID == goodsID {
			n++
		}
	}
	return n, nil
}
