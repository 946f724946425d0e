package service

import (
	"context"
	"sort"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryService interface {
	RecordImport(ctx context.Context, actor Actor, req dto.RecordImportRequest) ([]dto.TransactionResponse, error)
	RecordDistribution(ctx context.Context, actor Actor, req dto.DistributionRequest) (*dto.TransactionResponse, error)
	AcknowledgeReceipt(ctx context.Context, actor Actor, txnID uuid.UUID) (*dto.TransactionResponse, error)
	StockSummary(ctx context.Context) ([]dto.StockResponse, error)
	GoodsStock(ctx context.Context, goodsID uuid.UUID) (*dto.StockResponse, error)
	DepartmentUsage(ctx context.Context, actor Actor, department string) (*dto.DepartmentUsageResponse, error)
	TransferReport(ctx context.Context, actor Actor, filter dto.TransferFilter) ([]dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, actor Actor) ([]dto.TransactionResponse, error)

	ListGoods(ctx context.Context) ([]dto.GoodsResponse, error)
	CreateGoods(ctx context.Context, actor Actor, req dto.GoodsRequest) (*dto.GoodsResponse, error)
	UpdateGoods(ctx context.Context, actor Actor, id uuid.UUID, req dto.GoodsRequest) (*dto.GoodsResponse, error)
	DeleteGoods(ctx context.Context, actor Actor, id uuid.UUID) error
}

type inventoryService struct {
	goods    repository.GoodsRepository
	ledger   repository.InventoryRepository
	dossiers repository.DossierRepository
}

func NewInventoryService(goods repository.GoodsRepository, ledger repository.InventoryRepository, dossiers repository.DossierRepository) InventoryService {
	return &inventoryService{goods: goods, ledger: ledger, dossiers: dossiers}
}

func requireWarehouseStaff(actor Actor) error {
	if !actor.Is(model.RoleAdmin, model.RoleProcurement) {
		return forbiddenErr("Bạn không có quyền quản lý kho")
	}
	return nil
}

// ── RecordImport ──────────────────────────────────────────────────────────────

func (s *inventoryService) RecordImport(ctx context.Context, actor Actor, req dto.RecordImportRequest) ([]dto.TransactionResponse, error) {
	if err := requireWarehouseStaff(actor); err != nil {
		return nil, err
	}
	dossierID, err := parseOptionalID(req.DossierID)
	if err != nil {
		return nil, err
	}
	if dossierID != nil {
		if _, err := s.dossiers.FindByID(ctx, *dossierID); err != nil {
			return nil, lookupErr(err, "Không tìm thấy hồ sơ")
		}
	}

	var valid []dto.ImportItem
	for _, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" || it.Quantity <= 0 || it.Price.IsNegative() {
			continue
		}
		valid = append(valid, it)
	}
	if len(valid) == 0 {
		return nil, validationErr("Không có mặt hàng hợp lệ để nhập kho")
	}

	date := today()
	txns := make([]model.InventoryTransaction, 0, len(valid))
	err = runTx(ctx, s.goods.DB(), func(tx *gorm.DB) error {
		for _, it := range valid {
			category := strings.TrimSpace(it.Category)
			if category == "" {
				category = model.DefaultImportCategory
			}
			supplier := strings.TrimSpace(it.Supplier)
			g := &model.GoodsItem{
				Name:        strings.TrimSpace(it.Name),
				Unit:        strings.TrimSpace(it.Unit),
				Category:    category,
				Price:       it.Price,
				Supplier:    supplier,
				Description: it.Description,
			}
			if err := s.goods.CreateTx(tx, g); err != nil {
				return err
			}
			price := it.Price
			t := model.InventoryTransaction{
				GoodsID:   g.ID,
				Type:      model.TxnImport,
				Status:    model.TxnCompleted,
				Quantity:  it.Quantity,
				Price:     &price,
				Supplier:  strPtr(supplier),
				FromDept:  strings.TrimSpace("NCC " + supplier),
				ToDept:    model.Warehouse,
				Date:      date,
				DossierID: dossierID,
			}
			if err := s.ledger.CreateTx(tx, &t); err != nil {
				return err
			}
			t.Goods = g
			txns = append(txns, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transactionsToResponse(txns), nil
}

// ── RecordDistribution ────────────────────────────────────────────────────────
// The goods row is locked before the ledger is read, so two distributions of
// the same good cannot both pass the closing-stock check.

func (s *inventoryService) RecordDistribution(ctx context.Context, actor Actor, req dto.DistributionRequest) (*dto.TransactionResponse, error) {
	if err := requireWarehouseStaff(actor); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, validationErr("Số lượng phải lớn hơn 0")
	}
	if req.ToDept == model.Warehouse || !model.IsDepartment(req.ToDept) {
		return nil, validationErr("Khoa/phòng nhận không hợp lệ")
	}
	goodsID, err := uuid.Parse(req.GoodsID)
	if err != nil {
		return nil, validationErr("Mã hàng hóa không hợp lệ")
	}

	var t model.InventoryTransaction
	err = runTx(ctx, s.goods.DB(), func(tx *gorm.DB) error {
		g, err := s.goods.FindForUpdateTx(tx, goodsID)
		if err != nil {
			return lookupErr(err, "Không tìm thấy hàng hóa")
		}
		ledger, err := s.ledger.ListByGoodsTx(tx, goodsID)
		if err != nil {
			return err
		}
		if st := ComputeStock(ledger); req.Quantity > st.Closing {
			return validationErr("Số lượng cấp phát vượt quá tồn kho")
		}
		price := g.Price
		t = model.InventoryTransaction{
			GoodsID:  g.ID,
			Type:     model.TxnTransfer,
			Status:   model.TxnPending,
			Quantity: req.Quantity,
			Price:    &price,
			FromDept: model.Warehouse,
			ToDept:   req.ToDept,
			Date:     today(),
			Note:     req.Note,
		}
		if err := s.ledger.CreateTx(tx, &t); err != nil {
			return err
		}
		t.Goods = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := transactionToResponse(&t)
	return &resp, nil
}

func (s *inventoryService) AcknowledgeReceipt(ctx context.Context, actor Actor, txnID uuid.UUID) (*dto.TransactionResponse, error) {
	t, err := s.ledger.FindByID(ctx, txnID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy phiếu cấp phát")
	}
	if !actor.Is(model.RoleAdmin, model.RoleProcurement) && actor.Department != t.ToDept {
		return nil, forbiddenErr("Chỉ khoa/phòng nhận được xác nhận phiếu này")
	}
	if t.Type != model.TxnTransfer || t.Status != model.TxnPending {
		return nil, validationErr("Phiếu không ở trạng thái chờ nhận")
	}
	n, err := s.ledger.Acknowledge(ctx, txnID, actor.UserID, nowUTC())
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, validationErr("Phiếu không ở trạng thái chờ nhận")
	}
	t, err = s.ledger.FindByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	resp := transactionToResponse(t)
	return &resp, nil
}

// ── Stock ─────────────────────────────────────────────────────────────────────

func (s *inventoryService) StockSummary(ctx context.Context) ([]dto.StockResponse, error) {
	goods, err := s.goods.List(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.List(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	byGoods := make(map[uuid.UUID][]model.InventoryTransaction)
	for _, t := range txns {
		byGoods[t.GoodsID] = append(byGoods[t.GoodsID], t)
	}
	resp := make([]dto.StockResponse, len(goods))
	for i := range goods {
		resp[i] = stockToResponse(&goods[i], ComputeStock(byGoods[goods[i].ID]))
	}
	return resp, nil
}

func (s *inventoryService) GoodsStock(ctx context.Context, goodsID uuid.UUID) (*dto.StockResponse, error) {
	g, err := s.goods.FindByID(ctx, goodsID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hàng hóa")
	}
	txns, err := s.ledger.List(ctx, repository.TransactionFilter{GoodsID: &goodsID})
	if err != nil {
		return nil, err
	}
	resp := stockToResponse(g, ComputeStock(txns))
	return &resp, nil
}

func stockToResponse(g *model.GoodsItem, st Stock) dto.StockResponse {
	return dto.StockResponse{
		GoodsID:  g.ID.String(),
		Name:     g.Name,
		Unit:     g.Unit,
		Category: g.Category,
		Price:    g.Price,
		Opening:  st.Opening,
		Exported: st.Exported,
		Pending:  st.Pending,
		Closing:  st.Closing,
	}
}

// ── Department views ──────────────────────────────────────────────────────────

func (s *inventoryService) DepartmentUsage(ctx context.Context, actor Actor, department string) (*dto.DepartmentUsageResponse, error) {
	if department == "" {
		department = actor.Department
	}
	if !actor.SeesAllDepartments() && department != actor.Department {
		return nil, forbiddenErr("Bạn chỉ được xem số liệu của khoa/phòng mình")
	}
	if !model.IsDepartment(department) {
		return nil, validationErr("Khoa/phòng không hợp lệ")
	}

	txns, err := s.ledger.List(ctx, repository.TransactionFilter{
		Type: model.TxnTransfer, Status: model.TxnCompleted, ToDept: department,
	})
	if err != nil {
		return nil, err
	}
	return aggregateUsage(department, txns), nil
}

// aggregateUsage groups completed transfers by good. Each entry is valued at
// its own transaction price, falling back to the good's current price.
func aggregateUsage(department string, txns []model.InventoryTransaction) *dto.DepartmentUsageResponse {
	lines := map[uuid.UUID]*dto.UsageLine{}
	var order []uuid.UUID
	total := decimal.Zero
	for _, t := range txns {
		line, ok := lines[t.GoodsID]
		if !ok {
			line = &dto.UsageLine{GoodsID: t.GoodsID.String(), Value: decimal.Zero}
			if t.Goods != nil {
				line.Name = t.Goods.Name
				line.Unit = t.Goods.Unit
			}
			lines[t.GoodsID] = line
			order = append(order, t.GoodsID)
		}
		price := decimal.Zero
		switch {
		case t.Price != nil:
			price = *t.Price
		case t.Goods != nil:
			price = t.Goods.Price
		}
		value := price.Mul(decimal.NewFromInt(int64(t.Quantity)))
		line.Quantity += t.Quantity
		line.Value = line.Value.Add(value)
		total = total.Add(value)
	}

	items := make([]dto.UsageLine, 0, len(order))
	for _, id := range order {
		items = append(items, *lines[id])
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return &dto.DepartmentUsageResponse{Department: department, Items: items, TotalValue: total}
}

func (s *inventoryService) TransferReport(ctx context.Context, actor Actor, filter dto.TransferFilter) ([]dto.TransactionResponse, error) {
	dept := filter.Department
	if !actor.SeesAllDepartments() && !actor.Is(model.RoleProcurement) {
		if dept != "" && dept != actor.Department {
			return nil, forbiddenErr("Bạn chỉ được xem số liệu của khoa/phòng mình")
		}
		dept = actor.Department
	}
	txns, err := s.ledger.List(ctx, repository.TransactionFilter{
		Type: model.TxnTransfer, Status: filter.Status, ToDept: dept,
	})
	if err != nil {
		return nil, err
	}
	return transactionsToResponse(txns), nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, actor Actor) ([]dto.TransactionResponse, error) {
	if err := requireWarehouseStaff(actor); err != nil {
		return nil, err
	}
	txns, err := s.ledger.List(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return transactionsToResponse(txns), nil
}

// ── Goods CRUD ────────────────────────────────────────────────────────────────

func (s *inventoryService) ListGoods(ctx context.Context) ([]dto.GoodsResponse, error) {
	goods, err := s.goods.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.GoodsResponse, len(goods))
	for i := range goods {
		resp[i] = goodsToResponse(&goods[i])
	}
	return resp, nil
}

func (s *inventoryService) CreateGoods(ctx context.Context, actor Actor, req dto.GoodsRequest) (*dto.GoodsResponse, error) {
	if err := requireWarehouseStaff(actor); err != nil {
		return nil, err
	}
	g := &model.GoodsItem{}
	if err := applyGoods(g, req); err != nil {
		return nil, err
	}
	if err := s.goods.Create(ctx, g); err != nil {
		return nil, err
	}
	resp := goodsToResponse(g)
	return &resp, nil
}

func (s *inventoryService) UpdateGoods(ctx context.Context, actor Actor, id uuid.UUID, req dto.GoodsRequest) (*dto.GoodsResponse, error) {
	if err := requireWarehouseStaff(actor); err != nil {
		return nil, err
	}
	g, err := s.goods.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hàng hóa")
	}
	if err := applyGoods(g, req); err != nil {
		return nil, err
	}
	if err := s.goods.Update(ctx, g); err != nil {
		return nil, err
	}
	resp := goodsToResponse(g)
	return &resp, nil
}

func (s *inventoryService) DeleteGoods(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireWarehouseStaff(actor); err != nil {
		return err
	}
	if _, err := s.goods.FindByID(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy hàng hóa")
	}
	n, err := s.ledger.CountByGoods(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return validationErr("Hàng hóa đã có phát sinh nhập/xuất, không thể xóa")
	}
	if err := s.goods.Delete(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy hàng hóa")
	}
	return nil
}

func applyGoods(g *model.GoodsItem, req dto.GoodsRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return validationErr("Tên hàng hóa không được để trống")
	}
	if req.Price.IsNegative() {
		return validationErr("Đơn giá không được âm")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = model.DefaultImportCategory
	}
	g.Name = name
	g.Unit = strings.TrimSpace(req.Unit)
	g.Category = category
	g.Price = req.Price
	g.Supplier = strings.TrimSpace(req.Supplier)
	g.Description = req.Description
	return nil
}

func transactionsToResponse(txns []model.InventoryTransaction) []dto.TransactionResponse {
	resp := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		resp[i] = transactionToResponse(&txns[i])
	}
	return resp
}
