package payment

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
	"github.com/ocheikhi/vehinspect-backend/internal/booking"
)

type nopAudit struct{}

func (nopAudit) LogAction(context.Context, *uint, *uint, string, map[string]interface{}, string, string) error {
	return nil
}
func (nopAudit) GetAuditLogs(context.Context, auditlog.AuditLogFilter) (*auditlog.PaginatedAuditLogs, error) {
	return nil, nil
}
func (nopAudit) GetAuditLogByID(context.Context, uint) (*auditlog.AuditLog, error) {
	return nil, nil
}

type fakePaymentRepo struct {
	payments  map[string]*Payment
	callbacks map[string]bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments:  make(map[string]*Payment),
		callbacks: make(map[string]bool),
	}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *Payment) error {
	p.ID = uint(len(r.payments) + 1)
	r.payments[p.OrderID] = p
	return nil
}

func (r *fakePaymentRepo) GetByOrderID(_ context.Context, orderID string) (*Payment, error) {
	p, ok := r.payments[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, p *Payment) error {
	// One row per booking: an order id rotation replaces the old entry.
	for oid, existing := range r.payments {
		if existing.ID == p.ID {
			delete(r.payments, oid)
		}
	}
	r.payments[p.OrderID] = p
	return nil
}

func (r *fakePaymentRepo) GetByBooking(_ context.Context, bookingID uint) (*Payment, error) {
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) UpdateStatus(_ *gorm.DB, id uint, from, to string) (bool, error) {
	for _, p := range r.payments {
		if p.ID == id && p.Status == from {
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) RecordOutcome(_ *gorm.DB, p *Payment) error {
	stored, ok := r.payments[p.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = p.Status
	stored.GatewayResponseCode = p.GatewayResponseCode
	stored.GatewayResponseMsg = p.GatewayResponseMsg
	stored.GatewayTransactionID = p.GatewayTransactionID
	stored.CompletedAt = p.CompletedAt
	return nil
}

func (r *fakePaymentRepo) InsertCallback(_ *gorm.DB, cb *GatewayCallback) error {
	key := cb.OrderID + "|" + cb.Outcome
	if r.callbacks[key] {
		return gorm.ErrDuplicatedKey
	}
	r.callbacks[key] = true
	return nil
}

func (r *fakePaymentRepo) MarkRefundedByBooking(_ *gorm.DB, bookingID uint) error {
	for _, p := range r.payments {
		if p.BookingID == bookingID && p.Status == StatusCompleted {
			p.Status = StatusRefunded
		}
	}
	return nil
}

func (r *fakePaymentRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeBookingRepo struct {
	bookings map[uint]*booking.Booking
}

func (r *fakeBookingRepo) Create(_ *gorm.DB, b *booking.Booking) error {
	r.bookings[b.ID] = b
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id uint) (*booking.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) GetByNumber(_ context.Context, number string) (*booking.Booking, error) {
	for _, b := range r.bookings {
		if b.BookingNumber == number {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookingRepo) ListByUser(context.Context, uint) ([]booking.Booking, error) {
	return nil, nil
}

func (r *fakeBookingRepo) ListByFilter(context.Context, booking.BookingFilter) (*booking.PaginatedBookings, error) {
	return nil, nil
}

func (r *fakeBookingRepo) ListExpiredPending(context.Context, string) ([]booking.Booking, error) {
	return nil, nil
}

func (r *fakeBookingRepo) HasActiveForSlot(context.Context, uint, uint) (bool, error) {
	return false, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ *gorm.DB, id uint, from, to string) (bool, error) {
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r *fakeBookingRepo) MarkCancelled(_ *gorm.DB, id uint) (bool, error) {
	b, ok := r.bookings[id]
	if !ok || booking.IsTerminal(b.Status) {
		return false, nil
	}
	b.Status = booking.StatusCancelled
	return true, nil
}

func (r *fakeBookingRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newCallbackFixture(t *testing.T) (Service, *fakePaymentRepo, *fakeBookingRepo, *CMIClient) {
	t.Helper()

	paymentRepo := newFakePaymentRepo()
	bookingRepo := &fakeBookingRepo{bookings: map[uint]*booking.Booking{
		7: {
			ID:            7,
			BookingNumber: "VIS-20260315-A3F09C",
			UserID:        3,
			CenterID:      1,
			Status:        booking.StatusPending,
			Amount:        350,
		},
	}}
	paymentRepo.payments["order-1"] = &Payment{
		ID:        1,
		BookingID: 7,
		OrderID:   "order-1",
		Amount:    350,
		Currency:  "MAD",
		Status:    StatusPending,
	}

	cmi := testClient()
	svc := NewService(paymentRepo, bookingRepo, nopAudit{}, cmi)
	return svc, paymentRepo, bookingRepo, cmi
}

func signedParams(cmi *CMIClient, orderID, procCode string) map[string]string {
	params := map[string]string{
		"oid":            orderID,
		"ProcReturnCode": procCode,
		"TransId":        "TXN-001",
		"amount":         "350.00",
	}
	params["HASH"] = ComputeHash(params, cmi.StoreKey)
	return params
}

func TestInitiatePaymentRotatesOrderID(t *testing.T) {
	svc, paymentRepo, _, _ := newCallbackFixture(t)

	// The first attempt failed; a retry must reuse the one payment row with
	// a fresh order id and a clean slate.
	paymentRepo.payments["order-1"].Status = StatusFailed
	paymentRepo.payments["order-1"].GatewayResponseCode = "05"

	form, err := svc.InitiatePayment(context.Background(), 3, "sara@example.com", 7, "1.2.3.4")
	if err != nil {
		t.Fatalf("InitiatePayment returned error: %v", err)
	}
	if form.Fields["oid"] == "order-1" {
		t.Error("order id was not rotated on retry")
	}

	p, err := paymentRepo.GetByBooking(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByBooking returned error: %v", err)
	}
	if p.Status != StatusPending || p.GatewayResponseCode != "" {
		t.Errorf("payment after retry = status %q code %q, want PENDING and empty", p.Status, p.GatewayResponseCode)
	}
	if p.Currency != "MAD" {
		t.Errorf("payment currency = %q, want MAD", p.Currency)
	}
}

func TestInitiatePaymentRejectsSettledBooking(t *testing.T) {
	svc, paymentRepo, _, _ := newCallbackFixture(t)
	paymentRepo.payments["order-1"].Status = StatusCompleted

	if _, err := svc.InitiatePayment(context.Background(), 3, "sara@example.com", 7, "1.2.3.4"); !errors.Is(err, ErrBookingNotPayable) {
		t.Errorf("InitiatePayment error = %v, want ErrBookingNotPayable", err)
	}
}

func TestInitiatePaymentRejectsForeignUser(t *testing.T) {
	svc, _, _, _ := newCallbackFixture(t)

	if _, err := svc.InitiatePayment(context.Background(), 42, "other@example.com", 7, "1.2.3.4"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("InitiatePayment error = %v, want ErrNotOwner", err)
	}
}

func TestInitiatePaymentUnconfiguredGateway(t *testing.T) {
	_, paymentRepo, bookingRepo, _ := newCallbackFixture(t)
	svc := NewService(paymentRepo, bookingRepo, nopAudit{}, &CMIClient{})

	if _, err := svc.InitiatePayment(context.Background(), 3, "sara@example.com", 7, "1.2.3.4"); !errors.Is(err, ErrGatewayNotConfigured) {
		t.Errorf("InitiatePayment error = %v, want ErrGatewayNotConfigured", err)
	}
}

func TestProcessCallbackUnknownOrder(t *testing.T) {
	svc, _, _, cmi := newCallbackFixture(t)

	_, err := svc.ProcessCallback(context.Background(), signedParams(cmi, "no-such-order", "00"), "1.2.3.4")
	if !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("ProcessCallback error = %v, want ErrUnknownOrder", err)
	}
}

func TestProcessCallbackBadSignature(t *testing.T) {
	svc, paymentRepo, bookingRepo, cmi := newCallbackFixture(t)

	params := signedParams(cmi, "order-1", "00")
	params["amount"] = "1.00" // tampered after signing

	result, err := svc.ProcessCallback(context.Background(), params, "1.2.3.4")
	if err != nil {
		t.Fatalf("ProcessCallback returned error: %v", err)
	}
	if result.Approved {
		t.Error("result.Approved = true for a tampered callback")
	}
	if got := paymentRepo.payments["order-1"].Status; got != StatusFailed {
		t.Errorf("payment status = %q, want %q", got, StatusFailed)
	}
	// A forged callback must never touch the booking.
	if got := bookingRepo.bookings[7].Status; got != booking.StatusPending {
		t.Errorf("booking status = %q, want %q", got, booking.StatusPending)
	}
}

func TestProcessCallbackDeclined(t *testing.T) {
	svc, paymentRepo, bookingRepo, cmi := newCallbackFixture(t)

	result, err := svc.ProcessCallback(context.Background(), signedParams(cmi, "order-1", "05"), "1.2.3.4")
	if err != nil {
		t.Fatalf("ProcessCallback returned error: %v", err)
	}
	if result.Approved {
		t.Error("result.Approved = true for a declined payment")
	}
	if result.ResponseCode != "05" {
		t.Errorf("result.ResponseCode = %q, want %q", result.ResponseCode, "05")
	}
	if got := paymentRepo.payments["order-1"].Status; got != StatusFailed {
		t.Errorf("payment status = %q, want %q", got, StatusFailed)
	}
	if got := bookingRepo.bookings[7].Status; got != booking.StatusPending {
		t.Errorf("booking status = %q, want %q", got, booking.StatusPending)
	}
}

func TestProcessCallbackApproved(t *testing.T) {
	svc, paymentRepo, bookingRepo, cmi := newCallbackFixture(t)

	result, err := svc.ProcessCallback(context.Background(), signedParams(cmi, "order-1", "00"), "1.2.3.4")
	if err != nil {
		t.Fatalf("ProcessCallback returned error: %v", err)
	}
	if !result.Approved {
		t.Error("result.Approved = false for an approved payment")
	}
	if result.BookingNumber != "VIS-20260315-A3F09C" {
		t.Errorf("result.BookingNumber = %q, want %q", result.BookingNumber, "VIS-20260315-A3F09C")
	}

	p := paymentRepo.payments["order-1"]
	if p.Status != StatusCompleted {
		t.Errorf("payment status = %q, want %q", p.Status, StatusCompleted)
	}
	if p.GatewayTransactionID != "TXN-001" {
		t.Errorf("gateway transaction id = %q, want %q", p.GatewayTransactionID, "TXN-001")
	}
	if p.CompletedAt == nil {
		t.Error("CompletedAt not set on an approved payment")
	}
	if got := bookingRepo.bookings[7].Status; got != booking.StatusConfirmed {
		t.Errorf("booking status = %q, want %q", got, booking.StatusConfirmed)
	}
}

func TestProcessCallbackReplayAfterCompletion(t *testing.T) {
	svc, paymentRepo, bookingRepo, cmi := newCallbackFixture(t)

	params := signedParams(cmi, "order-1", "00")
	if _, err := svc.ProcessCallback(context.Background(), params, "1.2.3.4"); err != nil {
		t.Fatalf("first ProcessCallback returned error: %v", err)
	}

	result, err := svc.ProcessCallback(context.Background(), params, "1.2.3.4")
	if err != nil {
		t.Fatalf("replayed ProcessCallback returned error: %v", err)
	}
	if !result.Replayed {
		t.Error("result.Replayed = false for a replayed callback")
	}
	if !result.Approved {
		t.Error("replay of an approved callback should still report approval")
	}
	if got := paymentRepo.payments["order-1"].Status; got != StatusCompleted {
		t.Errorf("payment status after replay = %q, want %q", got, StatusCompleted)
	}
	if got := bookingRepo.bookings[7].Status; got != booking.StatusConfirmed {
		t.Errorf("booking status after replay = %q, want %q", got, booking.StatusConfirmed)
	}
	if len(paymentRepo.callbacks) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(paymentRepo.callbacks))
	}
}

func TestProcessCallbackLedgerStopsHalfProcessedReplay(t *testing.T) {
	svc, paymentRepo, _, cmi := newCallbackFixture(t)

	// Simulate a crash after the ledger insert committed but before the
	// caller saw a response: the entry exists, the payment is still
	// PENDING. The replay must stop at the ledger.
	paymentRepo.callbacks["order-1|APPROVED"] = true

	result, err := svc.ProcessCallback(context.Background(), signedParams(cmi, "order-1", "00"), "1.2.3.4")
	if err != nil {
		t.Fatalf("ProcessCallback returned error: %v", err)
	}
	if !result.Replayed {
		t.Error("result.Replayed = false when the ledger already has the outcome")
	}
}
