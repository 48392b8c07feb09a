package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auth"
	"github.com/ocheikhi/vehinspect-backend/internal/center"
	"github.com/ocheikhi/vehinspect-backend/internal/slot"
	"github.com/ocheikhi/vehinspect-backend/internal/vehicle"
	"github.com/ocheikhi/vehinspect-backend/middleware"
)

type Handler struct {
	svc         Service
	slotSvc     slot.Service
	centerSvc   center.Service
	vehicleRepo vehicle.Repository
	userRepo    auth.Repository
}

func NewHandler(svc Service, slotSvc slot.Service, centerSvc center.Service, vehicleRepo vehicle.Repository, userRepo auth.Repository) *Handler {
	return &Handler{
		svc:         svc,
		slotSvc:     slotSvc,
		centerSvc:   centerSvc,
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.CreateBooking(c.Request.Context(), middleware.GetUserID(c), req, middleware.GetIPFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "slot or vehicle not found"})
		case errors.Is(err, ErrSlotFull), errors.Is(err, ErrDuplicateBooking):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, ErrSlotInPast):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    b,
		"success": true,
	})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	bookings, err := h.svc.ListMyBookings(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    bookings,
		"count":   len(bookings),
		"success": true,
	})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	isAdmin := middleware.GetRole(c) == middleware.RoleAdmin
	b, err := h.svc.GetBooking(c.Request.Context(), middleware.GetUserID(c), isAdmin, uint(id))
	if err != nil {
		if errors.Is(err, ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    b,
		"success": true,
	})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	isAdmin := middleware.GetRole(c) == middleware.RoleAdmin
	b, err := h.svc.CancelBooking(c.Request.Context(), middleware.GetUserID(c), isAdmin, uint(id), middleware.GetIPFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ErrAlreadyTerminal), errors.Is(err, ErrCutoffPassed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    b,
		"success": true,
	})
}

// GetReceipt streams the PDF receipt for a paid booking.
func (h *Handler) GetReceipt(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	isAdmin := middleware.GetRole(c) == middleware.RoleAdmin
	b, err := h.svc.GetBooking(c.Request.Context(), middleware.GetUserID(c), isAdmin, uint(id))
	if err != nil {
		if errors.Is(err, ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	if b.Status != StatusConfirmed && b.Status != StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "receipt is only available for paid bookings"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.userRepo.GetByID(ctx, b.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctr, err := h.centerSvc.GetCenterByID(ctx, b.CenterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	v, err := h.vehicleRepo.GetByID(ctx, b.VehicleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sl, err := h.slotSvc.GetSlot(ctx, b.SlotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pdfBytes, err := BuildReceiptPDF(ReceiptData{
		BookingNumber: b.BookingNumber,
		Status:        b.Status,
		CustomerName:  user.FullName,
		CenterName:    ctr.Name,
		CenterAddress: ctr.Address,
		CenterCity:    ctr.City,
		PlateNumber:   v.PlateNumber,
		VehicleLabel:  fmt.Sprintf("%s %s (%d)", v.Make, v.Model, v.Year),
		SlotDate:      sl.Date.Format("2006-01-02"),
		SlotTime:      fmt.Sprintf("%s - %s", sl.StartTime, sl.EndTime),
		Amount:        b.Amount,
		IssuedAt:      time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate receipt"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", b.BookingNumber))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *Handler) ListBookings(c *gin.Context) {
	var filter BookingFilter

	if v := c.Query("center_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid center_id"})
			return
		}
		filter.CenterID = uint(id)
	}
	filter.Status = c.Query("status")
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_from"})
			return
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_to"})
			return
		}
		filter.DateTo = &t
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.svc.ListBookings(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    result,
		"success": true,
	})
}

func (h *Handler) CancelExpired(c *gin.Context) {
	count, err := h.svc.CancelExpired(c.Request.Context(), middleware.GetUserID(c), middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    gin.H{"cancelled": count},
		"success": true,
	})
}

func (h *Handler) MarkCompleted(c *gin.Context) {
	h.closeOut(c, h.svc.MarkCompleted)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.closeOut(c, h.svc.MarkNoShow)
}

func (h *Handler) closeOut(c *gin.Context, fn func(ctx context.Context, actorID uint, id uint, ip string) (*Booking, error)) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	b, err := fn(c.Request.Context(), middleware.GetUserID(c), uint(id), middleware.GetIPFromContext(c))
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    b,
		"success": true,
	})
}
