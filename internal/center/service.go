package center

import (
	"context"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
)

type Service interface {
	CreateCenter(ctx context.Context, req CreateCenterRequest, actorID uint, ip string) (*InspectionCenter, error)
	GetCenterByID(ctx context.Context, id uint) (*InspectionCenter, error)
	ListCenters(ctx context.Context, city string) ([]InspectionCenter, error)
	SetActive(ctx context.Context, id uint, active bool, actorID uint, ip string) (*InspectionCenter, error)
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

func (s *service) CreateCenter(ctx context.Context, req CreateCenterRequest, actorID uint, ip string) (*InspectionCenter, error) {
	lanes := req.Lanes
	if lanes <= 0 {
		lanes = 1
	}

	c := &InspectionCenter{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		Lanes:    lanes,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.auditSvc.LogAction(ctx, &actorID, nil, "CENTER_CREATE_FAILED", map[string]interface{}{
			"name":  req.Name,
			"city":  req.City,
			"error": err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &actorID, &c.ID, "CENTER_CREATED", map[string]interface{}{
		"center_id": c.ID,
		"name":      c.Name,
		"city":      c.City,
	}, ip, "success")

	return c, nil
}

func (s *service) GetCenterByID(ctx context.Context, id uint) (*InspectionCenter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListCenters(ctx context.Context, city string) ([]InspectionCenter, error) {
	return s.repo.List(ctx, city, true)
}

func (s *service) SetActive(ctx context.Context, id uint, active bool, actorID uint, ip string) (*InspectionCenter, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.IsActive = active
	if err := s.repo.Update(ctx, c); err != nil {
		s.auditSvc.LogAction(ctx, &actorID, &id, "CENTER_STATUS_UPDATE_FAILED", map[string]interface{}{
			"center_id": id,
			"active":    active,
			"error":     err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &actorID, &id, "CENTER_STATUS_UPDATED", map[string]interface{}{
		"center_id": id,
		"active":    active,
	}, ip, "success")

	return c, nil
}
