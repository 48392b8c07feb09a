package slot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
)

var (
	ErrInvalidDateRange     = errors.New("start date must not be after end date")
	ErrRangeTooWide         = errors.New("date range exceeds the 92 day generation limit")
	ErrInvalidTemplate      = errors.New("template start time must be before end time")
	ErrOverlappingTemplates = errors.New("slot templates overlap")
	ErrSlotHasBookings      = errors.New("slot has active bookings")
)

const maxGenerationDays = 92

type Service interface {
	GenerateSlots(ctx context.Context, req BulkCreateRequest, actorID uint, ip string) (*BulkCreateResult, error)
	ListSlots(ctx context.Context, centerID uint, from, to time.Time) ([]TimeSlot, error)
	GetSlot(ctx context.Context, id uint) (*TimeSlot, error)
	UpdateSlot(ctx context.Context, id uint, req UpdateSlotRequest, actorID uint, ip string) (*TimeSlot, error)
	DeleteSlot(ctx context.Context, id uint, actorID uint, ip string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

func (s *service) GenerateSlots(ctx context.Context, req BulkCreateRequest, actorID uint, ip string) (*BulkCreateResult, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	if end.Sub(start) > maxGenerationDays*24*time.Hour {
		return nil, ErrRangeTooWide
	}
	if err := validateTemplates(req.Templates); err != nil {
		return nil, err
	}

	var slots []TimeSlot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if req.SkipWeekends && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		for _, tpl := range req.Templates {
			slots = append(slots, TimeSlot{
				CenterID:    req.CenterID,
				Date:        d,
				StartTime:   tpl.StartTime,
				EndTime:     tpl.EndTime,
				Capacity:    tpl.Capacity,
				Price:       tpl.Price,
				IsAvailable: true,
			})
		}
	}

	created, err := s.repo.CreateBatch(ctx, slots)
	if err != nil {
		s.auditSvc.LogAction(ctx, &actorID, &req.CenterID, "SLOTS_GENERATE_FAILED", map[string]interface{}{
			"center_id": req.CenterID,
			"error":     err.Error(),
		}, ip, "failure")
		return nil, err
	}

	result := &BulkCreateResult{Created: created, Skipped: len(slots) - created}
	s.auditSvc.LogAction(ctx, &actorID, &req.CenterID, "SLOTS_GENERATED", map[string]interface{}{
		"center_id":  req.CenterID,
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
		"created":    result.Created,
		"skipped":    result.Skipped,
	}, ip, "success")

	return result, nil
}

// validateTemplates rejects inverted windows and any pair of windows that
// overlap within the same day.
func validateTemplates(templates []SlotTemplate) error {
	type window struct{ start, end time.Time }
	windows := make([]window, 0, len(templates))

	for _, tpl := range templates {
		start, err := time.Parse("15:04", tpl.StartTime)
		if err != nil {
			return fmt.Errorf("invalid start time %q: %w", tpl.StartTime, err)
		}
		end, err := time.Parse("15:04", tpl.EndTime)
		if err != nil {
			return fmt.Errorf("invalid end time %q: %w", tpl.EndTime, err)
		}
		if !start.Before(end) {
			return ErrInvalidTemplate
		}
		windows = append(windows, window{start: start, end: end})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].start.Before(windows[j].start) })
	for i := 1; i < len(windows); i++ {
		if windows[i].start.Before(windows[i-1].end) {
			return ErrOverlappingTemplates
		}
	}
	return nil
}

func (s *service) ListSlots(ctx context.Context, centerID uint, from, to time.Time) ([]TimeSlot, error) {
	return s.repo.ListByCenterAndRange(ctx, centerID, from, to)
}

func (s *service) GetSlot(ctx context.Context, id uint) (*TimeSlot, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateSlot refuses to touch a slot while bookings hold seats on it, the
// same rule as deletion, so seat accounting never detaches from reality.
func (s *service) UpdateSlot(ctx context.Context, id uint, req UpdateSlotRequest, actorID uint, ip string) (*TimeSlot, error) {
	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.ActiveBookingCount(ctx, id)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrSlotHasBookings
	}

	if req.Capacity != nil {
		sl.Capacity = *req.Capacity
	}
	if req.IsAvailable != nil {
		sl.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Update(ctx, sl); err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &actorID, &sl.CenterID, "SLOT_UPDATED", map[string]interface{}{
		"slot_id":      sl.ID,
		"capacity":     sl.Capacity,
		"is_available": sl.IsAvailable,
	}, ip, "success")

	return sl, nil
}

func (s *service) DeleteSlot(ctx context.Context, id uint, actorID uint, ip string) error {
	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.repo.ActiveBookingCount(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 || sl.BookedCount > 0 {
		s.auditSvc.LogAction(ctx, &actorID, &sl.CenterID, "SLOT_DELETE_REFUSED", map[string]interface{}{
			"slot_id":         id,
			"active_bookings": active,
			"booked_count":    sl.BookedCount,
		}, ip, "failure")
		return ErrSlotHasBookings
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &actorID, &sl.CenterID, "SLOT_DELETED", map[string]interface{}{
		"slot_id": id,
		"slot":    sl.Label(),
	}, ip, "success")

	return nil
}
