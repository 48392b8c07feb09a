package vehicle

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
)

var (
	ErrPlateAlreadyRegistered = errors.New("plate number already registered for this account")
	ErrNotOwner               = errors.New("vehicle does not belong to this account")
)

type Service interface {
	RegisterVehicle(ctx context.Context, userID uint, req CreateVehicleRequest, ip string) (*Vehicle, error)
	GetVehicle(ctx context.Context, userID, vehicleID uint) (*Vehicle, error)
	ListVehicles(ctx context.Context, userID uint) ([]Vehicle, error)
	RemoveVehicle(ctx context.Context, userID, vehicleID uint, ip string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

func (s *service) RegisterVehicle(ctx context.Context, userID uint, req CreateVehicleRequest, ip string) (*Vehicle, error) {
	category := req.CategoryCode
	if category == "" {
		category = "M1"
	}

	v := &Vehicle{
		UserID:       userID,
		PlateNumber:  strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		FuelType:     req.FuelType,
		CategoryCode: category,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlateAlreadyRegistered
		}
		s.auditSvc.LogAction(ctx, &userID, nil, "VEHICLE_REGISTER_FAILED", map[string]interface{}{
			"plate_number": v.PlateNumber,
			"error":        err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &userID, nil, "VEHICLE_REGISTERED", map[string]interface{}{
		"vehicle_id":   v.ID,
		"plate_number": v.PlateNumber,
	}, ip, "success")

	return v, nil
}

func (s *service) GetVehicle(ctx context.Context, userID, vehicleID uint) (*Vehicle, error) {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrNotOwner
	}
	return v, nil
}

func (s *service) ListVehicles(ctx context.Context, userID uint) ([]Vehicle, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) RemoveVehicle(ctx context.Context, userID, vehicleID uint, ip string) error {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if v.UserID != userID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, vehicleID); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &userID, nil, "VEHICLE_REMOVED", map[string]interface{}{
		"vehicle_id":   vehicleID,
		"plate_number": v.PlateNumber,
	}, ip, "success")

	return nil
}
