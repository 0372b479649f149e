package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// SetupRouter wires services and controllers. events may be nil.
func SetupRouter(cfg config.Config, db *gorm.DB, hub *realtime.Hub, events services.EventPublisher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigins))
	r.Use(middlewares.SecurityHeaders(cfg.IsProduction()))

	notify := services.NewNotifier(hub, events)
	invoiceService := services.NewInvoiceService(db)
	sessionService := services.NewSessionService(db, invoiceService, notify)
	tableService := services.NewTableService(db, sessionService, cfg.TableURLBase)
	stockService := services.NewStockService(db)
	recipeService := services.NewRecipeService(db)
	orderService := services.NewOrderService(db, sessionService, stockService, recipeService, notify)
	restaurantService := services.NewRestaurantService(db)
	diagnosticsService := services.NewDiagnosticsService(db)

	restaurantCtrl := controllers.NewRestaurantController(restaurantService, stockService, recipeService)
	tableCtrl := controllers.NewTableController(tableService)
	sessionCtrl := controllers.NewSessionController(sessionService)
	orderCtrl := controllers.NewOrderController(orderService, cfg.RecentOrdersHours)
	invoiceCtrl := controllers.NewInvoiceController(invoiceService)
	adminCtrl := controllers.NewAdminController(diagnosticsService)
	realtimeCtrl := controllers.NewRealtimeController(hub, cfg.CORSOrigins)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.RespondError(c, http.StatusServiceUnavailable, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "ok", gin.H{"database": "up", "timestamp": time.Now().UTC()})
	})

	r.GET("/ws/:restaurantId/:category", realtimeCtrl.Subscribe)

	api := r.Group("/api")
	if cfg.RateLimitRPS > 0 {
		api.Use(middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).RateLimit())
	}

	api.POST("/restaurants", restaurantCtrl.CreateRestaurant)
	api.GET("/restaurants/:id", restaurantCtrl.GetRestaurant)
	api.PUT("/restaurants/:id/auto-stock", restaurantCtrl.SetAutoStock)
	api.POST("/items", restaurantCtrl.CreateMenuItem)
	api.GET("/items/:itemId", restaurantCtrl.GetMenuItem)
	api.POST("/stock-items", restaurantCtrl.CreateStockItem)
	api.GET("/stock-items/restaurant/:restaurantId", restaurantCtrl.ListStockItems)
	api.GET("/stock-items/restaurant/:restaurantId/movements", restaurantCtrl.ListMovements)
	api.POST("/stock-items/:stockItemId/add", restaurantCtrl.AddStock)
	api.POST("/stock-items/:stockItemId/remove", restaurantCtrl.RemoveStock)
	api.POST("/recipes", restaurantCtrl.CreateRecipe)

	tables := api.Group("/tables")
	{
		tables.POST("", tableCtrl.CreateTable)
		tables.GET("/:tableId", tableCtrl.GetTable)
		tables.GET("/restaurant/:restaurantId", tableCtrl.ListTablesForRestaurant)
		tables.POST("/restaurant/:restaurantId/reset", tableCtrl.ResetTablesForRestaurant)
		tables.PUT("/:tableId/status", tableCtrl.UpdateTableStatus)
		tables.PUT("/:tableId/session", tableCtrl.UpdateTableSession)
		tables.POST("/:tableId/reset", tableCtrl.ResetTable)
		tables.POST("/:tableId/clean", tableCtrl.CleanTable)
		tables.DELETE("/:tableId", tableCtrl.DeleteTable)
	}

	sessions := api.Group("/sessions")
	{
		sessions.GET("/active/:id/:tableNumber", sessionCtrl.GetActiveForRestaurantTable)
		sessions.GET("/active/:id", sessionCtrl.GetActiveForTable)
		sessions.GET("/table/:tableId", sessionCtrl.ListForTable)
		sessions.GET("/restaurant/:restaurantId/active", sessionCtrl.ListActiveForRestaurant)
		sessions.GET("/:sessionId", sessionCtrl.GetSession)
		sessions.POST("/:sessionId/close", sessionCtrl.CloseSession)
		sessions.POST("/:sessionId/cancel", sessionCtrl.CancelSession)
		sessions.POST("/:sessionId/pay", sessionCtrl.PaySession)
		sessions.POST("/:sessionId/needs-bill", sessionCtrl.NeedsBill())
		sessions.POST("/:sessionId/cancel-checkout", sessionCtrl.CancelCheckout())
		sessions.POST("/:sessionId/request-assistance", sessionCtrl.RequestAssistance())
		sessions.POST("/:sessionId/cancel-assistance", sessionCtrl.CancelAssistance())
		sessions.POST("/:sessionId/review", sessionCtrl.SubmitReview)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", orderCtrl.PlaceOrder)
		orders.POST("/batch", orderCtrl.PlaceOrders)
		orders.GET("/:orderId", orderCtrl.GetOrder)
		orders.PUT("/:orderId/status", orderCtrl.UpdateOrderStatus)
		orders.POST("/:orderId/deliver", orderCtrl.MarkDelivered)
		orders.POST("/:orderId/cancel", orderCtrl.CancelOrder)
		orders.GET("/session/:sessionId", orderCtrl.ListForSession)
		orders.GET("/restaurant/:restaurantId", orderCtrl.ListForRestaurant)
		orders.GET("/restaurant/:restaurantId/recent", orderCtrl.ListRecent)
		orders.GET("/status/:prepStatus", orderCtrl.ListByStatus)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("/:invoiceId", invoiceCtrl.GetInvoice)
		invoices.GET("/:invoiceId/pdf", invoiceCtrl.DownloadPDF)
		invoices.GET("/session/:sessionId", invoiceCtrl.GetForSession)
		invoices.GET("/restaurant/:restaurantId", invoiceCtrl.ListForRestaurant)
		invoices.POST("/:invoiceId/pay", invoiceCtrl.MarkPaid)
		invoices.POST("/:invoiceId/cancel", invoiceCtrl.Cancel)
	}

	admin := api.Group("/admin")
	if cfg.JWTSecret != "" {
		admin.Use(middlewares.AuthMiddleware([]byte(cfg.JWTSecret)), middlewares.RequireRole("admin"))
	} else {
		utils.InfoLogger.Warn("JWT_SECRET is empty, admin routes are unauthenticated")
	}
	{
		admin.GET("/diagnostics/sessions/duplicates", adminCtrl.DuplicateActiveSessions)
		admin.GET("/diagnostics/sessions/current-mismatch", adminCtrl.MismatchedCurrentSessions)
		admin.GET("/diagnostics/sessions/orphans", adminCtrl.OrphanSessions)
		admin.GET("/diagnostics/run-all", adminCtrl.RunAll)
		admin.POST("/diagnostics/sessions/cleanup", adminCtrl.CleanupUnlinkedSessions)
		admin.POST("/sessions/:sessionId/invoice", invoiceCtrl.GenerateForSession)
	}

	return r
}
