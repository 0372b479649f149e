package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	if cfg.GinMode == "release" || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	if rdb := config.NewRedisClient(cfg); rdb != nil {
		defer rdb.Close()
		relay := realtime.NewRedisRelay(rdb, realtime.DefaultRelayChannel)
		if err := hub.AttachRelay(ctx, relay); err != nil {
			utils.ErrorLogger.Errorf("Realtime relay disabled: %v", err)
		} else {
			utils.InfoLogger.Printf("Realtime relay enabled via redis %s", cfg.RedisAddr)
		}
	}

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			utils.ErrorLogger.Errorf("Domain events disabled: %v", err)
		} else {
			defer publisher.Close()
			async := services.NewAsyncPublisher(publisher, 1024)
			defer async.Close()
			events = async
		}
	}

	r := router.SetupRouter(cfg, db, hub, events)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
}
