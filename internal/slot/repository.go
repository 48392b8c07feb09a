package slot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSlotFull means the guarded reservation update matched no row:
	// the slot is at capacity, closed, or gone.
	ErrSlotFull = errors.New("slot is full or unavailable")
)

type Repository interface {
	CreateBatch(ctx context.Context, slots []TimeSlot) (created int, err error)
	GetByID(ctx context.Context, id uint) (*TimeSlot, error)
	ListByCenterAndRange(ctx context.Context, centerID uint, from, to time.Time) ([]TimeSlot, error)
	Update(ctx context.Context, s *TimeSlot) error
	Delete(ctx context.Context, id uint) error
	ActiveBookingCount(ctx context.Context, slotID uint) (int64, error)

	// Reserve and Release take the handle to run on so callers can pass a
	// transaction and keep the seat change atomic with their own writes.
	Reserve(tx *gorm.DB, slotID uint) error
	Release(tx *gorm.DB, slotID uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatch(ctx context.Context, slots []TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slots)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*TimeSlot, error) {
	var s TimeSlot
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListByCenterAndRange(ctx context.Context, centerID uint, from, to time.Time) ([]TimeSlot, error) {
	var slots []TimeSlot
	err := r.db.WithContext(ctx).
		Where("center_id = ? AND date >= ? AND date <= ?", centerID, from, to).
		Order("date ASC, start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *repository) Update(ctx context.Context, s *TimeSlot) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&TimeSlot{}, id).Error
}

// ActiveBookingCount counts bookings on the slot that still hold a seat.
func (r *repository) ActiveBookingCount(ctx context.Context, slotID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("bookings").
		Where("slot_id = ? AND status IN ?", slotID, []string{"PENDING", "CONFIRMED"}).
		Count(&count).Error
	return count, err
}

// Reserve takes one seat with a single conditional update. The WHERE clause
// is the capacity check; if no row matches the slot cannot be booked.
func (r *repository) Reserve(tx *gorm.DB, slotID uint) error {
	res := tx.Model(&TimeSlot{}).
		Where("id = ? AND is_available = ? AND booked_count < capacity", slotID, true).
		UpdateColumn("booked_count", gorm.Expr("booked_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSlotFull
	}
	return nil
}

// Release gives a seat back. The booked_count > 0 guard keeps a double
// release from driving the counter negative.
func (r *repository) Release(tx *gorm.DB, slotID uint) error {
	return tx.Model(&TimeSlot{}).
		Where("id = ? AND booked_count > 0", slotID).
		UpdateColumn("booked_count", gorm.Expr("booked_count - 1")).Error
}
