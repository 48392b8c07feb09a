package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/config"
	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
	"github.com/ocheikhi/vehinspect-backend/internal/auth"
	"github.com/ocheikhi/vehinspect-backend/internal/booking"
	"github.com/ocheikhi/vehinspect-backend/internal/center"
	"github.com/ocheikhi/vehinspect-backend/internal/notification"
	"github.com/ocheikhi/vehinspect-backend/internal/payment"
	"github.com/ocheikhi/vehinspect-backend/internal/slot"
	"github.com/ocheikhi/vehinspect-backend/internal/vehicle"
	"github.com/ocheikhi/vehinspect-backend/middleware"
)

// Setup wires repositories, services and handlers and registers every
// route. It returns the notification service so main can attach the Kafka
// consumer to it.
func Setup(r *gin.Engine, db *gorm.DB, cfg *config.Config) notification.Service {
	// Repositories
	auditRepo := auditlog.NewRepository(db)
	userRepo := auth.NewRepository(db)
	centerRepo := center.NewRepository(db)
	vehicleRepo := vehicle.NewRepository(db)
	slotRepo := slot.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// Services
	auditSvc := auditlog.NewService(auditRepo)
	authSvc := auth.NewService(userRepo, cfg)
	centerSvc := center.NewService(centerRepo, auditSvc)
	vehicleSvc := vehicle.NewService(vehicleRepo, auditSvc)
	slotSvc := slot.NewService(slotRepo, auditSvc)
	bookingSvc := booking.NewService(bookingRepo, slotRepo, vehicleRepo, auditSvc, paymentRepo, cfg.CancelCutoffHours)

	cmiClient := payment.NewCMIClient(
		cfg.CMIClientID,
		cfg.CMIStoreKey,
		cfg.CMIGatewayURL,
		cfg.CMIOkURL,
		cfg.CMIFailURL,
		cfg.CMICallbackURL,
	)
	paymentSvc := payment.NewService(paymentRepo, bookingRepo, auditSvc, cmiClient)
	notificationSvc := notification.NewService(
		notificationRepo,
		userRepo,
		notification.EmailChannel{},
		notification.InAppChannel{Repo: notificationRepo},
	)

	// Handlers
	authHandler := auth.NewHandler(authSvc)
	centerHandler := center.NewHandler(centerSvc)
	vehicleHandler := vehicle.NewHandler(vehicleSvc)
	slotHandler := slot.NewHandler(slotSvc)
	bookingHandler := booking.NewHandler(bookingSvc, slotSvc, centerSvc, vehicleRepo, userRepo)
	paymentHandler := payment.NewHandler(paymentSvc, cfg.CMIOkURL, cfg.CMIFailURL)
	notificationHandler := notification.NewHandler(notificationSvc)
	auditHandler := auditlog.NewHandler(auditSvc)

	api := r.Group("/api/v1")
	api.Use(middleware.AuditMiddleware())
	api.Use(middleware.RateLimiter())

	// Public
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/centers", centerHandler.ListCenters)
	api.GET("/centers/:id", centerHandler.GetCenter)
	api.GET("/slots", slotHandler.ListSlots)
	api.GET("/slots/:id", slotHandler.GetSlot)

	// Gateway callback, unauthenticated; the hash check authenticates it.
	api.POST("/payments/callback", paymentHandler.Callback)
	api.GET("/payments/callback", paymentHandler.Callback)

	// Authenticated customer routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg))
	{
		authed.POST("/vehicles", vehicleHandler.RegisterVehicle)
		authed.GET("/vehicles", vehicleHandler.ListVehicles)
		authed.GET("/vehicles/:id", vehicleHandler.GetVehicle)
		authed.DELETE("/vehicles/:id", vehicleHandler.RemoveVehicle)

		authed.POST("/bookings", bookingHandler.CreateBooking)
		authed.GET("/bookings/my", bookingHandler.ListMyBookings)
		authed.GET("/bookings/:id", bookingHandler.GetBooking)
		authed.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
		authed.GET("/bookings/:id/receipt", bookingHandler.GetReceipt)
		authed.GET("/bookings/:id/payment", paymentHandler.GetPaymentForBooking)

		authed.POST("/payments/initiate/:id", paymentHandler.InitiatePayment)

		authed.GET("/notifications", notificationHandler.ListNotifications)
		authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
		authed.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RequireAdmin())
	{
		admin.POST("/centers", centerHandler.CreateCenter)
		admin.PATCH("/centers/:id/active", centerHandler.SetActive)

		admin.POST("/slots/generate", slotHandler.GenerateSlots)
		admin.PATCH("/slots/:id", slotHandler.UpdateSlot)
		admin.DELETE("/slots/:id", slotHandler.DeleteSlot)

		admin.GET("/bookings", bookingHandler.ListBookings)
		admin.POST("/bookings/expire", bookingHandler.CancelExpired)
		admin.POST("/bookings/:id/complete", bookingHandler.MarkCompleted)
		admin.POST("/bookings/:id/no-show", bookingHandler.MarkNoShow)

		admin.GET("/audit-logs", auditHandler.GetAuditLogs)
		admin.GET("/audit-logs/:id", auditHandler.GetAuditLogByID)
	}

	return notificationSvc
}
