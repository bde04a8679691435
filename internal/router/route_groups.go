package router

import (
	"github.com/j-greybard/arcadetracker/internal/handlers"
	"github.com/j-greybard/arcadetracker/internal/middleware"
	"github.com/j-greybard/arcadetracker/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes sets up the unauthenticated auth routes.
func SetupPublicAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}
}

// SetupAuthenticatedAuthRoutes sets up the auth routes behind the auth
// middleware. Account management is admin only.
func SetupAuthenticatedAuthRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := authenticatedGroup.Group("/auth")
	{
		authRoutes.GET("/me", authHandler.GetProfile)

		adminRoutes := authRoutes.Group("")
		adminRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin))
		{
			adminRoutes.POST("/register", authHandler.Register)
			adminRoutes.PATCH("/users/:id/active", authHandler.SetUserActive)
		}
	}
}

// SetupMachineRoutes sets up the machine catalog and meter reading routes.
// Reading any machine data is open to all roles; catalog writes are for
// managers and admins, and meter readings may also be recorded by operators.
func SetupMachineRoutes(authenticatedGroup *gin.RouterGroup, machineHandler *handlers.MachineHandler, meterHandler *handlers.MeterHandler) {
	machineRoutes := authenticatedGroup.Group("/machines")
	{
		machineRoutes.GET("", machineHandler.GetMachines)
		machineRoutes.GET("/:id", machineHandler.GetMachineByID)
		machineRoutes.GET("/:id/readings", meterHandler.GetReadings)

		meterRoutes := machineRoutes.Group("")
		meterRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager, services.RoleOperator))
		{
			meterRoutes.POST("/:id/readings", meterHandler.RecordReading)
			meterRoutes.POST("/:id/baseline", meterHandler.SetBaseline)
		}

		managerRoutes := machineRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager))
		{
			managerRoutes.POST("", machineHandler.CreateMachine)
			managerRoutes.PUT("/:id", machineHandler.UpdateMachine)
			managerRoutes.PATCH("/:id/counter", machineHandler.SetCounterStatus)
			managerRoutes.DELETE("/:id", machineHandler.DeleteMachine)
			managerRoutes.DELETE("/:id/readings/:reading_id", meterHandler.DeleteReading)
		}
	}
}

// SetupInventoryRoutes sets up the spare parts inventory routes. Stock
// adjustments are open to operators; catalog writes are for managers and
// admins.
func SetupInventoryRoutes(authenticatedGroup *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler) {
	inventoryRoutes := authenticatedGroup.Group("/inventory")
	{
		inventoryRoutes.GET("", inventoryHandler.GetItems)
		inventoryRoutes.GET("/history", inventoryHandler.GetStockHistory)
		inventoryRoutes.GET("/:id", inventoryHandler.GetItemByID)

		stockRoutes := inventoryRoutes.Group("")
		stockRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager, services.RoleOperator))
		{
			stockRoutes.POST("/:id/adjust", inventoryHandler.AdjustStock)
		}

		managerRoutes := inventoryRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager))
		{
			managerRoutes.POST("", inventoryHandler.CreateItem)
			managerRoutes.PUT("/:id", inventoryHandler.UpdateItem)
			managerRoutes.DELETE("/:id", inventoryHandler.DeleteItem)
		}
	}
}

// SetupRepairRoutes sets up the repair order routes.
func SetupRepairRoutes(authenticatedGroup *gin.RouterGroup, repairHandler *handlers.RepairHandler) {
	repairRoutes := authenticatedGroup.Group("/repairs")
	repairRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager, services.RoleOperator))
	{
		repairRoutes.POST("", repairHandler.CreateRepairOrder)
		repairRoutes.GET("", repairHandler.GetRepairOrders)
		repairRoutes.GET("/:id", repairHandler.GetRepairOrderByID)
		repairRoutes.PATCH("/:id/status", repairHandler.UpdateRepairOrderStatus)
		repairRoutes.POST("/:id/parts", repairHandler.AllocateParts)
		repairRoutes.POST("/:id/work-logs", repairHandler.AddWorkLog)

		adminRoutes := repairRoutes.Group("")
		adminRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager))
		{
			adminRoutes.DELETE("/:id", repairHandler.DeleteRepairOrder)
		}
	}
}

// SetupAlertRoutes sets up the low stock alert routes.
func SetupAlertRoutes(authenticatedGroup *gin.RouterGroup, alertHandler *handlers.AlertHandler) {
	alertRoutes := authenticatedGroup.Group("/alerts")
	{
		alertRoutes.GET("", alertHandler.GetAlerts)

		managerRoutes := alertRoutes.Group("")
		managerRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager))
		{
			managerRoutes.POST("/:id/resolve", alertHandler.ResolveAlert)
		}
	}
}

// SetupReportRoutes sets up the reporting routes.
func SetupReportRoutes(authenticatedGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	reportRoutes := authenticatedGroup.Group("/reports")
	reportRoutes.Use(middleware.RoleAuthMiddleware(services.RoleAdmin, services.RoleManager))
	{
		reportRoutes.GET("/revenue", reportHandler.GetRevenueReport)
		reportRoutes.GET("/repair-costs", reportHandler.GetRepairCostReport)
	}
}
