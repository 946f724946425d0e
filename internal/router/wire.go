package router

import (
	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the infrastructure handles built by the composition root.
type Deps struct {
	DB         *gorm.DB
	RDB        *redis.Client
	DBBreaker  *infra.CircuitBreaker
	Storage    service.ObjectStore // nil keeps document payloads inline
	Dispatcher service.JobDispatcher
}

// NewServices wires repositories into services.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, deps Deps) (Services, service.SnapshotService) {
	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(deps.DB)
	registryRepo := repository.NewRegistryRepository(deps.DB)
	requestRepo := repository.NewRequestRepository(deps.DB)
	dossierRepo := repository.NewDossierRepository(deps.DB)
	goodsRepo := repository.NewGoodsRepository(deps.DB)
	inventoryRepo := repository.NewInventoryRepository(deps.DB)

	// ── Read fallback ────────────────────────────────────────────────────────
	snapshots := infra.NewSnapshotStore(deps.RDB)
	guard := service.NewReadGuard(deps.DBBreaker, snapshots, cfg.PrimaryStoreTimeout)

	// ── Services ─────────────────────────────────────────────────────────────
	inventorySvc := service.NewInventoryService(goodsRepo, inventoryRepo, dossierRepo)
	svc := Services{
		Auth:      service.NewAuthService(userRepo, registryRepo, cfg, deps.Dispatcher),
		Registry:  service.NewRegistryService(registryRepo, userRepo, requestRepo, guard),
		Requests:  service.NewRequestService(requestRepo, userRepo, registryRepo),
		Dossiers:  service.NewDossierService(dossierRepo, requestRepo, registryRepo, deps.Storage, deps.Dispatcher, guard),
		Inventory: inventorySvc,
		Reports: service.NewReportService(requestRepo, dossierRepo, registryRepo, inventoryRepo,
			inventorySvc, infra.NewPDFRenderer(cfg.PDFFontPath)),
	}
	return svc, service.NewSnapshotService(registryRepo, dossierRepo, requestRepo, snapshots)
}
