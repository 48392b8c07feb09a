package center

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, center *InspectionCenter) error
	Update(ctx context.Context, center *InspectionCenter) error
	GetByID(ctx context.Context, id uint) (*InspectionCenter, error)
	List(ctx context.Context, city string, activeOnly bool) ([]InspectionCenter, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, center *InspectionCenter) error {
	return r.db.WithContext(ctx).Create(center).Error
}

func (r *repository) Update(ctx context.Context, center *InspectionCenter) error {
	return r.db.WithContext(ctx).Save(center).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*InspectionCenter, error) {
	var center InspectionCenter
	if err := r.db.WithContext(ctx).First(&center, id).Error; err != nil {
		return nil, err
	}
	return &center, nil
}

func (r *repository) List(ctx context.Context, city string, activeOnly bool) ([]InspectionCenter, error) {
	var centers []InspectionCenter
	query := r.db.WithContext(ctx).Model(&InspectionCenter{})
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&centers).Error
	return centers, err
}
