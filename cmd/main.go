package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ocheikhi/vehinspect-backend/config"
	"github.com/ocheikhi/vehinspect-backend/database"
	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
	"github.com/ocheikhi/vehinspect-backend/internal/auth"
	"github.com/ocheikhi/vehinspect-backend/internal/booking"
	"github.com/ocheikhi/vehinspect-backend/internal/center"
	"github.com/ocheikhi/vehinspect-backend/internal/notification"
	"github.com/ocheikhi/vehinspect-backend/internal/payment"
	"github.com/ocheikhi/vehinspect-backend/internal/slot"
	"github.com/ocheikhi/vehinspect-backend/internal/vehicle"
	"github.com/ocheikhi/vehinspect-backend/routes"
	"github.com/ocheikhi/vehinspect-backend/utils"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)

	if err := db.AutoMigrate(
		&auth.User{},
		&center.InspectionCenter{},
		&vehicle.Vehicle{},
		&slot.TimeSlot{},
		&booking.Booking{},
		&payment.Payment{},
		&payment.GatewayCallback{},
		&notification.Notification{},
		&auditlog.AuditLog{},
	); err != nil {
		log.Fatalf("❌ Auto migration failed: %v", err)
	}
	log.Println("✅ Database migrated")

	if err := utils.InitRedis(); err != nil {
		log.Printf("⚠️ Redis unavailable, continuing without it: %v", err)
	}

	utils.InitializeKafka()
	defer utils.CloseKafka()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: false,
	}))

	notificationSvc := routes.Setup(r, db, cfg)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	notification.StartKafkaConsumer(consumerCtx, notificationSvc)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Shut the consumer down cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		stopConsumer()
		utils.CloseKafka()
		os.Exit(0)
	}()

	log.Printf("🚀 Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
