package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) importGoods(t *testing.T, svc InventoryService, name string, price int64, qty int) uuid.UUID {
	t.Helper()
	txns, err := svc.RecordImport(context.Background(), f.procA, dto.RecordImportRequest{
		Items: []dto.ImportItem{{Name: name, Unit: "hộp", Price: decimal.NewFromInt(price), Quantity: qty, Supplier: "Công ty Thiết bị Y tế Việt"}},
	})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	return uuid.MustParse(txns[0].GoodsID)
}

func TestRecordImport(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()

	txns, err := svc.RecordImport(ctx, f.procA, dto.RecordImportRequest{
		Items: []dto.ImportItem{
			{Name: "Găng tay y tế", Unit: "hộp", Price: decimal.NewFromInt(85_000), Quantity: 100, Supplier: "Công ty A"},
			{Name: "   ", Quantity: 5},
			{Name: "Khẩu trang", Quantity: 0},
			{Name: "Bút bi", Quantity: 5, Price: decimal.NewFromInt(-1)},
		},
	})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	got := txns[0]
	assert.Equal(t, model.TxnImport, got.Type)
	assert.Equal(t, model.TxnCompleted, got.Status)
	assert.Equal(t, "NCC Công ty A", got.FromDept)
	assert.Equal(t, model.Warehouse, got.ToDept)
	assert.Equal(t, "Găng tay y tế", got.GoodsName)

	goods, err := svc.ListGoods(ctx)
	require.NoError(t, err)
	require.Len(t, goods, 1)
	assert.Equal(t, model.DefaultImportCategory, goods[0].Category)

	_, err = svc.RecordImport(ctx, f.procA, dto.RecordImportRequest{Items: []dto.ImportItem{{Name: "", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordImport(ctx, f.procA, dto.RecordImportRequest{Items: []dto.ImportItem{{Name: "Bút bi", Quantity: 5, Price: decimal.NewFromInt(-1)}}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordImport(ctx, f.cardio, dto.RecordImportRequest{Items: []dto.ImportItem{{Name: "x", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrForbidden)

	unknown := uuid.NewString()
	_, err = svc.RecordImport(ctx, f.procA, dto.RecordImportRequest{DossierID: &unknown, Items: []dto.ImportItem{{Name: "x", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrNotFound)
}

// Import 100 boxes at 85,000, transfer 30 to cardiology, acknowledge.
func TestDistributionLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()
	goodsID := f.importGoods(t, svc, "Găng tay y tế", 85_000, 100)

	transfer, err := svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{
		GoodsID: goodsID.String(), ToDept: deptCardio, Quantity: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TxnTransfer, transfer.Type)
	assert.Equal(t, model.TxnPending, transfer.Status)
	assert.Equal(t, model.Warehouse, transfer.FromDept)
	require.NotNil(t, transfer.Price)
	assert.Equal(t, "85000", transfer.Price.String())

	st, err := svc.GoodsStock(ctx, goodsID)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Opening)
	assert.Equal(t, 0, st.Exported)
	assert.Equal(t, 30, st.Pending)
	assert.Equal(t, 70, st.Closing)

	id := uuid.MustParse(transfer.ID)
	_, err = svc.AcknowledgeReceipt(ctx, f.icu, id)
	assert.ErrorIs(t, err, ErrForbidden)

	acked, err := svc.AcknowledgeReceipt(ctx, f.cardio, id)
	require.NoError(t, err)
	assert.Equal(t, model.TxnCompleted, acked.Status)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, f.cardio.UserID.String(), *acked.AcknowledgedBy)

	_, err = svc.AcknowledgeReceipt(ctx, f.cardio, id)
	assert.ErrorIs(t, err, ErrValidation)

	st, err = svc.GoodsStock(ctx, goodsID)
	require.NoError(t, err)
	assert.Equal(t, 30, st.Exported)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 70, st.Closing)

	usage, err := svc.DepartmentUsage(ctx, f.cardio, "")
	require.NoError(t, err)
	require.Len(t, usage.Items, 1)
	assert.Equal(t, 30, usage.Items[0].Quantity)
	assert.Equal(t, "2550000", usage.TotalValue.String())
}

func TestDistributionChecksClosingStock(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()
	goodsID := f.importGoods(t, svc, "Bơm tiêm", 2_000, 10)

	_, err := svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptICU, Quantity: 8})
	require.NoError(t, err)

	// Pending transfers already hold 8 of 10.
	_, err = svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptCardio, Quantity: 3})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: model.Warehouse, Quantity: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptICU, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: uuid.NewString(), ToDept: deptICU, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.RecordDistribution(ctx, f.cardio, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptICU, Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptCardio, Quantity: 2})
	require.NoError(t, err)
	st, err := svc.GoodsStock(ctx, goodsID)
	require.NoError(t, err)
	assert.Zero(t, st.Closing)
}

func TestDepartmentUsageKeepsTransferPrice(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()
	goodsID := f.importGoods(t, svc, "Dây truyền dịch", 100_000, 20)

	first, err := svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptICU, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.AcknowledgeReceipt(ctx, f.icu, uuid.MustParse(first.ID))
	require.NoError(t, err)

	_, err = svc.UpdateGoods(ctx, f.procA, goodsID, dto.GoodsRequest{Name: "Dây truyền dịch", Unit: "bộ", Price: decimal.NewFromInt(150_000)})
	require.NoError(t, err)

	second, err := svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: deptICU, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AcknowledgeReceipt(ctx, f.admin, uuid.MustParse(second.ID))
	require.NoError(t, err)

	usage, err := svc.DepartmentUsage(ctx, f.director, deptICU)
	require.NoError(t, err)
	require.Len(t, usage.Items, 1)
	assert.Equal(t, 5, usage.Items[0].Quantity)
	assert.Equal(t, "600000", usage.TotalValue.String())

	_, err = svc.DepartmentUsage(ctx, f.cardio, deptICU)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTransferReportScope(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()
	goodsID := f.importGoods(t, svc, "Cồn 70 độ", 30_000, 50)
	for _, dept := range []string{deptCardio, deptICU} {
		_, err := svc.RecordDistribution(ctx, f.procA, dto.DistributionRequest{GoodsID: goodsID.String(), ToDept: dept, Quantity: 5})
		require.NoError(t, err)
	}

	all, err := svc.TransferReport(ctx, f.procB, dto.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.TransferReport(ctx, f.cardio, dto.TransferFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, deptCardio, own[0].ToDept)

	_, err = svc.TransferReport(ctx, f.cardio, dto.TransferFilter{Department: deptICU})
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := svc.TransferReport(ctx, f.admin, dto.TransferFilter{Status: model.TxnCompleted})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestDeleteGoods(t *testing.T) {
	f := newFixture(t)
	svc := f.inventory()
	ctx := context.Background()

	used := f.importGoods(t, svc, "Ống nghe", 450_000, 2)
	assert.ErrorIs(t, svc.DeleteGoods(ctx, f.procA, used), ErrValidation)

	fresh, err := svc.CreateGoods(ctx, f.procA, dto.GoodsRequest{Name: "Nhiệt kế", Unit: "cái", Price: decimal.NewFromInt(50_000)})
	require.NoError(t, err)
	id := uuid.MustParse(fresh.ID)
	assert.ErrorIs(t, svc.DeleteGoods(ctx, f.cardio, id), ErrForbidden)
	require.NoError(t, svc.DeleteGoods(ctx, f.procA, id))
	assert.ErrorIs(t, svc.DeleteGoods(ctx, f.procA, id), ErrNotFound)

	_, err = svc.CreateGoods(ctx, f.procA, dto.GoodsRequest{Name: "x", Unit: "cái", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestComputeStock_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(20)
		txns := make([]model.InventoryTransaction, n)
		for j := range txns {
			txn := &txns[j]
			txn.Quantity = rng.Intn(50) + 1
			switch rng.Intn(4) {
			case 0:
				txn.Type, txn.Status = model.TxnImport, model.TxnCompleted
			case 1:
				txn.Type, txn.Status = model.TxnTransfer, model.TxnPending
			case 2:
				txn.Type, txn.Status = model.TxnTransfer, model.TxnCompleted
			default:
				txn.Type, txn.Status = model.TxnExport, model.TxnCompleted
			}
		}
		st := ComputeStock(txns)
		assert.Equal(t, st.Opening, st.Exported+st.Pending+st.Closing)
	}
}

func TestComputeStock_IgnoresExport(t *testing.T) {
	st := ComputeStock([]model.InventoryTransaction{
		{Type: model.TxnImport, Status: model.TxnCompleted, Quantity: 10},
		{Type: model.TxnExport, Status: model.TxnCompleted, Quantity: 4},
	})
	assert.Equal(t, Stock{Opening: 10, Closing: 10}, st)
}
