package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
	"github.com/ocheikhi/vehinspect-backend/internal/booking"
	"github.com/ocheikhi/vehinspect-backend/utils"
)

var (
	ErrNotOwner             = errors.New("booking does not belong to this account")
	ErrBookingNotPayable    = errors.New("booking is not awaiting payment")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrUnknownOrder         = errors.New("unknown order id")
	ErrInvalidSignature     = errors.New("callback signature verification failed")
)

// Ledger outcome values.
const (
	outcomeApproved = "APPROVED"
	outcomeDeclined = "DECLINED"
)

const callbackLockTTL = 10 * time.Minute

type Service interface {
	InitiatePayment(ctx context.Context, userID uint, email string, bookingID uint, ip string) (*CheckoutForm, error)
	ProcessCallback(ctx context.Context, params map[string]string, ip string) (*CallbackResult, error)
	GetPaymentForBooking(ctx context.Context, userID uint, isAdmin bool, bookingID uint) (*Payment, error)
}

type service struct {
	repo        Repository
	bookingRepo booking.Repository
	auditSvc    auditlog.Service
	cmi         *CMIClient
}

func NewService(repo Repository, bookingRepo booking.Repository, auditSvc auditlog.Service, cmi *CMIClient) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		auditSvc:    auditSvc,
		cmi:         cmi,
	}
}

func (s *service) InitiatePayment(ctx context.Context, userID uint, email string, bookingID uint, ip string) (*CheckoutForm, error) {
	if !s.cmi.IsConfigured() {
		return nil, ErrGatewayNotConfigured
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrNotOwner
	}
	if b.Status != booking.StatusPending && b.Status != booking.StatusConfirmed {
		return nil, ErrBookingNotPayable
	}

	// One payment row per booking. A fresh attempt after a failure rotates
	// the order id and resets the row instead of inserting another one.
	p, err := s.repo.GetByBooking(ctx, b.ID)
	switch {
	case err == nil:
		if p.Status == StatusCompleted || p.Status == StatusRefunded {
			return nil, ErrBookingNotPayable
		}
		p.OrderID = uuid.NewString()
		p.Status = StatusPending
		p.GatewayResponseCode = ""
		p.GatewayResponseMsg = ""
		p.GatewayTransactionID = ""
		p.CompletedAt = nil
		if err := s.repo.Save(ctx, p); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		p = &Payment{
			BookingID: b.ID,
			OrderID:   uuid.NewString(),
			Amount:    b.Amount,
			Currency:  "MAD",
			Status:    StatusPending,
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &userID, &b.CenterID, "PAYMENT_INITIATED", map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
		"order_id":       p.OrderID,
		"amount":         p.Amount,
	}, ip, "success")

	// 504 is the ISO numeric code for MAD, the form's currency field.
	return &CheckoutForm{
		GatewayURL: s.cmi.GatewayURL,
		Fields:     s.cmi.BuildRequest(p.OrderID, b.BookingNumber, email, p.Amount, "504"),
	}, nil
}

// ProcessCallback handles one gateway callback end to end: signature
// first, then the idempotency ledger, then the outcome, and only then any
// state change. Booking confirmation and the payment outcome commit in one
// transaction.
func (s *service) ProcessCallback(ctx context.Context, params map[string]string, ip string) (*CallbackResult, error) {
	orderID := params["oid"]
	if orderID == "" {
		return nil, ErrUnknownOrder
	}

	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.auditSvc.LogAction(ctx, nil, nil, "PAYMENT_CALLBACK_UNKNOWN_ORDER", map[string]interface{}{
				"order_id": orderID,
			}, ip, "failure")
			return nil, ErrUnknownOrder
		}
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}

	if !s.cmi.VerifyCallback(params) {
		s.markFailed(ctx, p, "HASH")
		s.auditSvc.LogAction(ctx, &b.UserID, &b.CenterID, "PAYMENT_CALLBACK_BAD_SIGNATURE", map[string]interface{}{
			"order_id":       orderID,
			"booking_number": b.BookingNumber,
		}, ip, "failure")
		return &CallbackResult{Approved: false, BookingNumber: b.BookingNumber, ResponseCode: "HASH"}, nil
	}

	// A payment that already reached a terminal state means this callback
	// is a retry; answer from what we stored, change nothing.
	if p.Status == StatusCompleted || p.Status == StatusRefunded {
		return &CallbackResult{Approved: true, BookingNumber: b.BookingNumber, ResponseCode: p.GatewayResponseCode, Replayed: true}, nil
	}

	approved, code, msg := s.cmi.InterpretOutcome(params)
	outcome := outcomeDeclined
	if approved {
		outcome = outcomeApproved
	}

	// Fast path replay guard. Redis being down only means we fall through
	// to the ledger's unique index.
	if !utils.AcquireCallbackLock(ctx, orderID+":"+outcome, callbackLockTTL) {
		return &CallbackResult{Approved: p.Status == StatusCompleted, BookingNumber: b.BookingNumber, ResponseCode: p.GatewayResponseCode, Replayed: true}, nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte("{}")
	}
	replayed := false

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertCallback(tx, &GatewayCallback{
			OrderID:      orderID,
			Outcome:      outcome,
			ResponseCode: code,
			RawParams:    datatypes.JSON(raw),
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				replayed = true
				return nil
			}
			return err
		}

		now := time.Now()
		p.GatewayResponseCode = code
		p.GatewayResponseMsg = msg
		p.GatewayTransactionID = params["TransId"]

		if !approved {
			p.Status = StatusFailed
			return s.repo.RecordOutcome(tx, p)
		}

		p.Status = StatusCompleted
		p.CompletedAt = &now
		if err := s.repo.RecordOutcome(tx, p); err != nil {
			return err
		}

		ok, err := s.bookingRepo.UpdateStatus(tx, b.ID, booking.StatusPending, booking.StatusConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			// The booking left PENDING while the payment was in flight,
			// most likely a cancellation. Keep the money trail, flag it.
			log.Printf("⚠️ Approved payment %s but booking %s is %s", orderID, b.BookingNumber, b.Status)
		}
		return nil
	})
	if err != nil {
		utils.ReleaseCallbackLock(ctx, orderID+":"+outcome)
		return nil, err
	}

	if replayed {
		return &CallbackResult{Approved: p.Status == StatusCompleted, BookingNumber: b.BookingNumber, ResponseCode: p.GatewayResponseCode, Replayed: true}, nil
	}

	status := "failure"
	action := "PAYMENT_FAILED"
	if approved {
		status = "success"
		action = "PAYMENT_COMPLETED"
	}
	s.auditSvc.LogAction(ctx, &b.UserID, &b.CenterID, action, map[string]interface{}{
		"order_id":       orderID,
		"booking_number": b.BookingNumber,
		"response_code":  code,
		"amount":         p.Amount,
	}, ip, status)

	if approved {
		for _, eventType := range []string{"payment.confirmed", "booking.confirmed"} {
			utils.PublishBookingEvent(utils.BookingEvent{
				Type:          eventType,
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				UserID:        b.UserID,
				CenterID:      b.CenterID,
				Amount:        p.Amount,
				OccurredAt:    time.Now(),
			})
		}
	}

	return &CallbackResult{Approved: approved, BookingNumber: b.BookingNumber, ResponseCode: code}, nil
}

// markFailed records a failed outcome outside the normal flow, used when
// the signature does not check out.
func (s *service) markFailed(ctx context.Context, p *Payment, code string) {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return
	}
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		p.Status = StatusFailed
		p.GatewayResponseCode = code
		return s.repo.RecordOutcome(tx, p)
	})
	if err != nil {
		log.Printf("❌ Failed to mark payment %s as failed: %v", p.OrderID, err)
	}
}

func (s *service) GetPaymentForBooking(ctx context.Context, userID uint, isAdmin bool, bookingID uint) (*Payment, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, ErrNotOwner
	}
	return s.repo.GetByBooking(ctx, bookingID)
}
