package router

import (
	"database/sql"

	"github.com/j-greybard/arcadetracker/internal/handlers"
	"github.com/j-greybard/arcadetracker/internal/middleware"
	"github.com/j-greybard/arcadetracker/internal/repositories"
	"github.com/j-greybard/arcadetracker/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Repositories
	authRepo := repositories.NewAuthRepository(db)
	machineRepo := repositories.NewMachineRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	repairRepo := repositories.NewRepairRepository(db)

	// Services
	authService := services.NewAuthService(authRepo, db)
	alertService := services.NewAlertService(inventoryRepo, db)
	stockService := services.NewStockService(inventoryRepo, alertService, db)
	machineService := services.NewMachineService(machineRepo, repairRepo, db)
	meterService := services.NewMeterService(machineRepo, db)
	inventoryService := services.NewInventoryService(inventoryRepo, stockService, alertService, db)
	repairService := services.NewRepairService(repairRepo, machineRepo, inventoryRepo, stockService, alertService, db)
	reportService := services.NewReportService(machineRepo, repairRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	machineHandler := handlers.NewMachineHandler(machineService)
	meterHandler := handlers.NewMeterHandler(meterService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, stockService)
	repairHandler := handlers.NewRepairHandler(repairService)
	alertHandler := handlers.NewAlertHandler(alertService)
	reportHandler := handlers.NewReportHandler(reportService)

	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1, authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated, authHandler)
		SetupMachineRoutes(authenticated, machineHandler, meterHandler)
		SetupInventoryRoutes(authenticated, inventoryHandler)
		SetupRepairRoutes(authenticated, repairHandler)
		SetupAlertRoutes(authenticated, alertHandler)
		SetupReportRoutes(authenticated, reportHandler)
	}
}
