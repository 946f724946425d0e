package service

import (
	"context"
	"sort"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportService serves read-only aggregates. Visibility follows the
// underlying modules.
type ReportService interface {
	Dashboard(ctx context.Context, actor Actor) (*dto.DashboardResponse, error)
	Spending(ctx context.Context, actor Actor, year int) (*dto.SpendingResponse, error)
	DossierReport(ctx context.Context, actor Actor, filter dto.DossierReportFilter) (*dto.DossierReportResponse, error)
	UsageReport(ctx context.Context, actor Actor, department string) (*dto.DepartmentUsageResponse, error)
	DepartmentRequests(ctx context.Context, actor Actor, department string) ([]dto.RequestResponse, error)

	ExportUsage(ctx context.Context, actor Actor, department, format string) (*Export, error)
	ExportDossiers(ctx context.Context, actor Actor, filter dto.DossierReportFilter) (*Export, error)
}

type reportService struct {
	requests  repository.RequestRepository
	dossiers  repository.DossierRepository
	registry  repository.RegistryRepository
	ledger    repository.InventoryRepository
	inventory InventoryService
	pdf       PDFRenderer
}

func NewReportService(
	requests repository.RequestRepository,
	dossiers repository.DossierRepository,
	registry repository.RegistryRepository,
	ledger repository.InventoryRepository,
	inventory InventoryService,
	pdf PDFRenderer,
) ReportService {
	return &reportService{
		requests:  requests,
		dossiers:  dossiers,
		registry:  registry,
		ledger:    ledger,
		inventory: inventory,
		pdf:       pdf,
	}
}

// purchased covers PURCHASED and the feedback states that follow it.
func purchased(status string) bool {
	switch status {
	case model.StatusPurchased, model.StatusUserAccepted, model.StatusUserRejected:
		return true
	}
	return false
}

func (s *reportService) visibleRequests(ctx context.Context, actor Actor, department string) ([]model.ProcurementRequest, error) {
	scope, ok := actor.requestScope()
	if !ok {
		return nil, nil
	}
	return s.requests.List(ctx, repository.RequestFilter{Scope: scope, Department: department})
}

func (s *reportService) Dashboard(ctx context.Context, actor Actor) (*dto.DashboardResponse, error) {
	reqs, err := s.visibleRequests(ctx, actor, "")
	if err != nil {
		return nil, err
	}
	now := today()
	resp := &dto.DashboardResponse{
		TotalSpent: decimal.Zero,
		TypeDistribution: map[string]int{
			model.RequestPurchase: 0,
			model.RequestRepair:   0,
		},
	}
	for _, r := range reqs {
		if purchased(r.Status) {
			resp.TotalSpent = resp.TotalSpent.Add(r.AmountOrZero())
			if r.Date.Year() == now.Year() && r.Date.Month() == now.Month() {
				resp.PurchasedThisMonth++
			}
		}
		if r.Status == model.StatusPending {
			resp.PendingCount++
		}
		if r.Date.Year() == now.Year() {
			resp.MonthlyRequests[r.Date.Month()-1]++
		}
		resp.TypeDistribution[r.Type]++
	}

	imports, err := s.ledger.List(ctx, repository.TransactionFilter{Type: model.TxnImport})
	if err != nil {
		return nil, err
	}
	for _, t := range imports {
		resp.TotalImportedQuantity += t.Quantity
	}
	return resp, nil
}

func (s *reportService) Spending(ctx context.Context, actor Actor, year int) (*dto.SpendingResponse, error) {
	if !actor.SeesAllDepartments() {
		return nil, forbiddenErr("Chỉ Ban Giám đốc được xem báo cáo chi tiêu")
	}
	if year == 0 {
		year = today().Year()
	}
	reqs, err := s.requests.List(ctx, repository.RequestFilter{})
	if err != nil {
		return nil, err
	}
	units, err := s.registry.ListUnits(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.SpendingResponse{Year: year, Total: decimal.Zero}
	for i := range resp.Monthly {
		resp.Monthly[i] = decimal.Zero
	}
	counts := map[uuid.UUID]int{}
	for _, r := range reqs {
		if r.Date.Year() != year {
			continue
		}
		counts[r.TargetUnitID]++
		if purchased(r.Status) {
			m := r.Date.Month() - 1
			resp.Monthly[m] = resp.Monthly[m].Add(r.AmountOrZero())
			resp.Total = resp.Total.Add(r.AmountOrZero())
		}
	}
	for _, u := range units {
		resp.RequestsPerUnit = append(resp.RequestsPerUnit, dto.UnitRequestCount{
			UnitID: u.ID.String(), UnitName: u.Name, Count: counts[u.ID],
		})
	}
	return resp, nil
}

func (s *reportService) DossierReport(ctx context.Context, actor Actor, filter dto.DossierReportFilter) (*dto.DossierReportResponse, error) {
	year := filter.Year
	if year == 0 {
		year = today().Year()
	}
	resp := &dto.DossierReportResponse{Year: year, Method: filter.Method, Dossiers: []dto.DossierResponse{}, TotalValue: decimal.Zero}

	f, ok := actor.dossierFilter()
	if !ok {
		return resp, nil
	}
	f.Year = year
	f.Method = filter.Method
	dossiers, err := s.dossiers.List(ctx, f)
	if err != nil {
		return nil, err
	}
	snaps, err := snapshotDossiers(ctx, s.requests, dossiers)
	if err != nil {
		return nil, err
	}
	units, err := s.unitNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		d := withTotal(snap)
		d.TargetUnitName = units[d.TargetUnitID]
		resp.Dossiers = append(resp.Dossiers, d)
		resp.TotalValue = resp.TotalValue.Add(d.TotalValue)
	}
	sort.SliceStable(resp.Dossiers, func(i, j int) bool { return resp.Dossiers[i].Date > resp.Dossiers[j].Date })
	return resp, nil
}

func (s *reportService) unitNames(ctx context.Context) (map[string]string, error) {
	units, err := s.registry.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(units))
	for _, u := range units {
		names[u.ID.String()] = u.Name
	}
	return names, nil
}

func (s *reportService) UsageReport(ctx context.Context, actor Actor, department string) (*dto.DepartmentUsageResponse, error) {
	return s.inventory.DepartmentUsage(ctx, actor, department)
}

func (s *reportService) DepartmentRequests(ctx context.Context, actor Actor, department string) ([]dto.RequestResponse, error) {
	if department == "" {
		department = actor.Department
	}
	if !model.IsDepartment(department) {
		return nil, validationErr("Khoa/phòng không hợp lệ")
	}
	reqs, err := s.visibleRequests(ctx, actor, department)
	if err != nil {
		return nil, err
	}
	return requestsToResponse(reqs), nil
}

// reportStamp is the generation time printed on exports.
func reportStamp() string { return time.Now().Format("02/01/2006 15:04") }
