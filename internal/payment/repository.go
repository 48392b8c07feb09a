package payment

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Save(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	GetByBooking(ctx context.Context, bookingID uint) (*Payment, error)
	UpdateStatus(tx *gorm.DB, id uint, from, to string) (bool, error)
	RecordOutcome(tx *gorm.DB, p *Payment) error
	InsertCallback(tx *gorm.DB, cb *GatewayCallback) error
	MarkRefundedByBooking(tx *gorm.DB, bookingID uint) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Save(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) GetByBooking(ctx context.Context, bookingID uint) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdateStatus(tx *gorm.DB, id uint, from, to string) (bool, error) {
	res := tx.Model(&Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecordOutcome persists the terminal fields set by callback processing.
func (r *repository) RecordOutcome(tx *gorm.DB, p *Payment) error {
	return tx.Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":                 p.Status,
			"gateway_response_code":  p.GatewayResponseCode,
			"gateway_response_msg":   p.GatewayResponseMsg,
			"gateway_transaction_id": p.GatewayTransactionID,
			"completed_at":           p.CompletedAt,
		}).Error
}

func (r *repository) InsertCallback(tx *gorm.DB, cb *GatewayCallback) error {
	return tx.Create(cb).Error
}

// MarkRefundedByBooking flags the completed payment of a cancelled booking.
// No-op when the booking has no completed payment.
func (r *repository) MarkRefundedByBooking(tx *gorm.DB, bookingID uint) error {
	return tx.Model(&Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, StatusCompleted).
		Update("status", StatusRefunded).Error
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
