package router

import (
	"net/http"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/apierror"
	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/handler"
	"github.com/tntan04/quan-ly-mua-sam/internal/middleware"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Services groups the service layer the HTTP surface depends on.
type Services struct {
	Auth      service.AuthService
	Registry  service.RegistryService
	Requests  service.RequestService
	Dossiers  service.DossierService
	Inventory service.InventoryService
	Reports   service.ReportService
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, svc Services, health gin.HandlerFunc) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierror.New("Không tìm thấy đường dẫn"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, apierror.New("Phương thức không được hỗ trợ"))
	})

	authH := handler.NewAuthHandler(svc.Auth)
	usersH := handler.NewUsersHandler(svc.Auth)
	registryH := handler.NewRegistryHandler(svc.Registry)
	requestsH := handler.NewRequestsHandler(svc.Requests)
	dossiersH := handler.NewDossiersHandler(svc.Dossiers)
	inventoryH := handler.NewInventoryHandler(svc.Inventory)
	reportsH := handler.NewReportsHandler(svc.Reports)

	// Public
	if health != nil {
		r.GET("/health", health)
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/forgot-password", middleware.LoginRateLimiter(), authH.ForgotPassword)
	}

	// Protected routes. Row-level rules (unit, department) live in the services.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/auth/me", authH.Me)
		v1.PUT("/auth/me", authH.UpdateProfile)
		v1.POST("/auth/change-password", authH.ChangePassword)

		users := v1.Group("/users", middleware.RequireRole(model.RoleAdmin))
		{
			users.GET("", usersH.List)
			users.POST("", usersH.Save)
			users.PUT("/:id", usersH.Update)
			users.POST("/:id/reset-password", usersH.ResetPassword)
			users.DELETE("/:id", usersH.Delete)
		}

		v1.GET("/units", registryH.ListUnits)
		v1.GET("/methods", registryH.ListMethods)
		v1.GET("/departments", registryH.ListDepartments)
		registry := v1.Group("", middleware.RequireRole(model.RoleAdmin))
		{
			registry.POST("/units", registryH.AddUnit)
			registry.DELETE("/units/:id", registryH.RemoveUnit)
			registry.POST("/methods", registryH.AddMethod)
			registry.DELETE("/methods/:id", registryH.RemoveMethod)
		}

		requests := v1.Group("/requests")
		{
			requests.GET("", requestsH.List)
			requests.POST("", requestsH.Save)
			requests.GET("/eligible", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), requestsH.Eligible)
			requests.GET("/:id", requestsH.Get)
			requests.POST("/:id/accept", middleware.RequireRole(model.RoleProcurement), requestsH.Accept)
			requests.POST("/:id/reject", middleware.RequireRole(model.RoleProcurement), requestsH.Reject)
			requests.PUT("/:id/amount", requestsH.SetAmount)
			requests.POST("/:id/feedback", requestsH.Feedback)
			requests.DELETE("/:id", requestsH.Delete)
		}

		dossiers := v1.Group("/dossiers")
		{
			dossiers.GET("", dossiersH.List)
			dossiers.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), dossiersH.Create)
			dossiers.GET("/:id", dossiersH.Get)
			dossiers.POST("/:id/complete", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), dossiersH.Complete)
			dossiers.PUT("/:id/documents", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), dossiersH.UpdateDocuments)
			dossiers.GET("/:id/files/:fileId", dossiersH.DownloadFile)
		}

		inv := v1.Group("/inventory")
		{
			inv.POST("/imports", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), inventoryH.RecordImport)
			inv.POST("/distributions", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), inventoryH.RecordDistribution)
			inv.POST("/transfers/:id/acknowledge", inventoryH.Acknowledge)
			inv.GET("/transfers", inventoryH.Transfers)
			inv.GET("/transactions", inventoryH.Transactions)
			inv.GET("/stock", inventoryH.Stock)
			inv.GET("/stock/:id", inventoryH.GoodsStock)
		}

		// /products is the legacy name of the goods catalogue.
		for _, path := range []string{"/goods", "/products"} {
			goods := v1.Group(path)
			goods.GET("", inventoryH.ListGoods)
			goods.POST("", inventoryH.CreateGoods)
			goods.PUT("", inventoryH.UpdateGoods)
			goods.PUT("/:id", inventoryH.UpdateGoods)
			goods.DELETE("/:id", inventoryH.DeleteGoods)
		}

		// Exports stream binary files that are already compressed.
		reports := v1.Group("/reports", gzip.Gzip(gzip.DefaultCompression,
			gzip.WithExcludedPaths([]string{"/v1/reports/usage/export", "/v1/reports/dossiers/export"})))
		{
			reports.GET("/dashboard", reportsH.Dashboard)
			reports.GET("/spending", reportsH.Spending)
			reports.GET("/dossiers", reportsH.Dossiers)
			reports.GET("/usage", reportsH.Usage)
			reports.GET("/department-requests", reportsH.DepartmentRequests)
			reports.GET("/usage/export", reportsH.ExportUsage)
			reports.GET("/dossiers/export", reportsH.ExportDossiers)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
