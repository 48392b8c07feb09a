package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
	"github.com/ocheikhi/vehinspect-backend/internal/slot"
	"github.com/ocheikhi/vehinspect-backend/internal/vehicle"
	"github.com/ocheikhi/vehinspect-backend/utils"
)

var (
	ErrSlotFull          = errors.New("slot is full or unavailable")
	ErrSlotInPast        = errors.New("slot is in the past")
	ErrDuplicateBooking  = errors.New("an active booking already exists for this slot")
	ErrNotOwner          = errors.New("booking does not belong to this account")
	ErrAlreadyTerminal   = errors.New("booking is already completed, cancelled or marked no-show")
	ErrCutoffPassed      = errors.New("cancellation window has closed")
	ErrInvalidTransition = errors.New("booking is not in a state that allows this change")
)

const maxNumberRetries = 3

type Service interface {
	CreateBooking(ctx context.Context, userID uint, req CreateBookingRequest, ip string) (*Booking, error)
	GetBooking(ctx context.Context, userID uint, isAdmin bool, id uint) (*Booking, error)
	ListMyBookings(ctx context.Context, userID uint) ([]Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) (*PaginatedBookings, error)
	CancelBooking(ctx context.Context, userID uint, isAdmin bool, id uint, ip string) (*Booking, error)
	CancelExpired(ctx context.Context, actorID uint, ip string) (int, error)
	MarkCompleted(ctx context.Context, actorID uint, id uint, ip string) (*Booking, error)
	MarkNoShow(ctx context.Context, actorID uint, id uint, ip string) (*Booking, error)
}

// RefundMarker flips a completed payment to REFUNDED inside the caller's
// transaction. Implemented by the payment layer and injected at startup so
// cancellation stays in one package without a dependency loop.
type RefundMarker interface {
	MarkRefundedByBooking(tx *gorm.DB, bookingID uint) error
}

type service struct {
	repo         Repository
	slotRepo     slot.Repository
	vehicleRepo  vehicle.Repository
	auditSvc     auditlog.Service
	refunds      RefundMarker
	cutoffHours  int
	timeLocation *time.Location
}

func NewService(repo Repository, slotRepo slot.Repository, vehicleRepo vehicle.Repository, auditSvc auditlog.Service, refunds RefundMarker, cutoffHours int) Service {
	loc, err := time.LoadLocation("Africa/Casablanca")
	if err != nil {
		loc = time.UTC
	}
	return &service{
		repo:         repo,
		slotRepo:     slotRepo,
		vehicleRepo:  vehicleRepo,
		auditSvc:     auditSvc,
		refunds:      refunds,
		cutoffHours:  cutoffHours,
		timeLocation: loc,
	}
}

func (s *service) CreateBooking(ctx context.Context, userID uint, req CreateBookingRequest, ip string) (*Booking, error) {
	v, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("vehicle lookup: %w", err)
	}
	if v.UserID != userID {
		return nil, ErrNotOwner
	}

	sl, err := s.slotRepo.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("slot lookup: %w", err)
	}
	if sl.StartDateTime(s.timeLocation).Before(time.Now()) {
		return nil, ErrSlotInPast
	}

	active, err := s.repo.HasActiveForSlot(ctx, userID, sl.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicateBooking
	}

	b := &Booking{
		UserID:    userID,
		CenterID:  sl.CenterID,
		SlotID:    sl.ID,
		VehicleID: v.ID,
		Status:    StatusPending,
		Amount:    sl.Price,
		Notes:     req.Notes,
	}

	// The seat decrement and the booking row commit or roll back together.
	// A duplicate booking number rolls the whole thing back and retries
	// with a fresh suffix.
	var txErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		b.ID = 0
		b.BookingNumber = NewBookingNumber(time.Now())

		txErr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			if err := s.slotRepo.Reserve(tx, sl.ID); err != nil {
				return err
			}
			return s.repo.Create(tx, b)
		})
		if txErr == nil || !errors.Is(txErr, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("⚠️ Booking number collision on %s, retrying", b.BookingNumber)
	}

	if txErr != nil {
		if errors.Is(txErr, slot.ErrSlotFull) {
			s.auditSvc.LogAction(ctx, &userID, &sl.CenterID, "BOOKING_CREATE_FAILED", map[string]interface{}{
				"slot_id": sl.ID,
				"reason":  "slot_full",
			}, ip, "failure")
			return nil, ErrSlotFull
		}
		s.auditSvc.LogAction(ctx, &userID, &sl.CenterID, "BOOKING_CREATE_FAILED", map[string]interface{}{
			"slot_id": sl.ID,
			"error":   txErr.Error(),
		}, ip, "failure")
		return nil, txErr
	}

	s.auditSvc.LogAction(ctx, &userID, &sl.CenterID, "BOOKING_CREATED", map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
		"slot_id":        sl.ID,
		"vehicle_id":     v.ID,
		"amount":         b.Amount,
	}, ip, "success")

	utils.PublishBookingEvent(utils.BookingEvent{
		Type:          "booking.created",
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		CenterID:      b.CenterID,
		Amount:        b.Amount,
		OccurredAt:    time.Now(),
	})

	return b, nil
}

func (s *service) GetBooking(ctx context.Context, userID uint, isAdmin bool, id uint) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (s *service) ListMyBookings(ctx context.Context, userID uint) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListBookings(ctx context.Context, filter BookingFilter) (*PaginatedBookings, error) {
	return s.repo.ListByFilter(ctx, filter)
}

func (s *service) CancelBooking(ctx context.Context, userID uint, isAdmin bool, id uint, ip string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, ErrNotOwner
	}
	if IsTerminal(b.Status) {
		return nil, ErrAlreadyTerminal
	}

	sl, err := s.slotRepo.GetByID(ctx, b.SlotID)
	if err != nil {
		return nil, err
	}

	// Admins can cancel any time; customers only up to the cutoff before
	// the appointment starts.
	if !isAdmin {
		cutoff := sl.StartDateTime(s.timeLocation).Add(-time.Duration(s.cutoffHours) * time.Hour)
		if time.Now().After(cutoff) {
			s.auditSvc.LogAction(ctx, &userID, &b.CenterID, "BOOKING_CANCEL_REFUSED", map[string]interface{}{
				"booking_id":     b.ID,
				"booking_number": b.BookingNumber,
				"reason":         "cutoff_passed",
			}, ip, "failure")
			return nil, ErrCutoffPassed
		}
	}

	wasConfirmed := b.Status == StatusConfirmed

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.MarkCancelled(tx, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyTerminal
		}
		if err := s.slotRepo.Release(tx, b.SlotID); err != nil {
			return err
		}
		// A paid booking gets its payment flagged for refund in the same
		// transaction; the actual money movement happens out of band.
		if wasConfirmed && s.refunds != nil {
			return s.refunds.MarkRefundedByBooking(tx, b.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.Status = StatusCancelled
	now := time.Now()
	b.CancelledAt = &now

	s.auditSvc.LogAction(ctx, &userID, &b.CenterID, "BOOKING_CANCELLED", map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
		"was_confirmed":  wasConfirmed,
	}, ip, "success")

	utils.PublishBookingEvent(utils.BookingEvent{
		Type:          "booking.cancelled",
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		CenterID:      b.CenterID,
		Amount:        b.Amount,
		OccurredAt:    now,
	})

	return b, nil
}

// CancelExpired releases seats held by PENDING bookings whose appointment
// day has passed without payment. Run by an admin, typically on a schedule.
func (s *service) CancelExpired(ctx context.Context, actorID uint, ip string) (int, error) {
	today := time.Now().In(s.timeLocation).Format("2006-01-02")
	expired, err := s.repo.ListExpiredPending(ctx, today)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range expired {
		b := expired[i]
		err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.MarkCancelled(tx, b.ID)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			cancelled++
			return s.slotRepo.Release(tx, b.SlotID)
		})
		if err != nil {
			log.Printf("❌ Failed to expire booking %s: %v", b.BookingNumber, err)
		}
	}

	s.auditSvc.LogAction(ctx, &actorID, nil, "BOOKINGS_EXPIRED", map[string]interface{}{
		"cancelled": cancelled,
		"scanned":   len(expired),
	}, ip, "success")

	return cancelled, nil
}

func (s *service) MarkCompleted(ctx context.Context, actorID uint, id uint, ip string) (*Booking, error) {
	return s.closeOut(ctx, actorID, id, StatusCompleted, "BOOKING_COMPLETED", ip)
}

func (s *service) MarkNoShow(ctx context.Context, actorID uint, id uint, ip string) (*Booking, error) {
	return s.closeOut(ctx, actorID, id, StatusNoShow, "BOOKING_NO_SHOW", ip)
}

// closeOut moves a CONFIRMED booking to a terminal outcome after the
// visit. The seat stays consumed: booked_count only moves on creation and
// cancellation.
func (s *service) closeOut(ctx context.Context, actorID uint, id uint, to, action, ip string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.UpdateStatus(tx, b.ID, StatusConfirmed, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.Status = to
	s.auditSvc.LogAction(ctx, &actorID, &b.CenterID, action, map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
	}, ip, "success")

	return b, nil
}
