package booking

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(tx *gorm.DB, b *Booking) error
	GetByID(ctx context.Context, id uint) (*Booking, error)
	GetByNumber(ctx context.Context, number string) (*Booking, error)
	ListByUser(ctx context.Context, userID uint) ([]Booking, error)
	ListByFilter(ctx context.Context, filter BookingFilter) (*PaginatedBookings, error)
	ListExpiredPending(ctx context.Context, before string) ([]Booking, error)

	// HasActiveForSlot reports whether the user already holds a
	// non-cancelled booking on the slot.
	HasActiveForSlot(ctx context.Context, userID, slotID uint) (bool, error)

	// UpdateStatus moves a booking from one status to another in a single
	// guarded update; it returns false when the booking was not in the
	// expected status.
	UpdateStatus(tx *gorm.DB, id uint, from, to string) (bool, error)

	// MarkCancelled cancels a seat-holding booking and stamps cancelled_at.
	// Returns false when the booking was already terminal.
	MarkCancelled(tx *gorm.DB, id uint) (bool, error)

	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(tx *gorm.DB, b *Booking) error {
	return tx.Create(b).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Booking, error) {
	var b Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Booking, error) {
	var b Booking
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) ListByFilter(ctx context.Context, filter BookingFilter) (*PaginatedBookings, error) {
	query := r.db.WithContext(ctx).Model(&Booking{})

	if filter.CenterID != 0 {
		query = query.Where("center_id = ?", filter.CenterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var bookings []Booking
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	return &PaginatedBookings{
		Bookings: bookings,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ListExpiredPending returns PENDING bookings whose slot date is before the
// given day. Joined against time_slots because the slot holds the date.
func (r *repository) ListExpiredPending(ctx context.Context, before string) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Joins("JOIN time_slots ON time_slots.id = bookings.slot_id").
		Where("bookings.status = ? AND time_slots.date < ?", StatusPending, before).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) HasActiveForSlot(ctx context.Context, userID, slotID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Booking{}).
		Where("user_id = ? AND slot_id = ? AND status <> ?", userID, slotID, StatusCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateStatus(tx *gorm.DB, id uint, from, to string) (bool, error) {
	res := tx.Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkCancelled(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&Booking{}).
		Where("id = ? AND status IN ?", id, []string{StatusPending, StatusConfirmed}).
		Updates(map[string]interface{}{
			"status":       StatusCancelled,
			"cancelled_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
