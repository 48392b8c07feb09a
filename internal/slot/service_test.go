package slot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/internal/auditlog"
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

type fakeSlotRepo struct {
	mu             sync.Mutex
	slots          map[uint]*TimeSlot
	nextID         uint
	activeBookings map[uint]int64
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{
		slots:          make(map[uint]*TimeSlot),
		nextID:         1,
		activeBookings: make(map[uint]int64),
	}
}

func (r *fakeSlotRepo) key(s TimeSlot) string {
	return fmt.Sprintf("%d|%s|%s", s.CenterID, s.Date.Format("2006-01-02"), s.StartTime)
}

func (r *fakeSlotRepo) CreateBatch(_ context.Context, slots []TimeSlot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[string]bool)
	for _, s := range r.slots {
		existing[r.key(*s)] = true
	}

	created := 0
	for i := range slots {
		s := slots[i]
		if existing[r.key(s)] {
			continue
		}
		s.ID = r.nextID
		r.nextID++
		r.slots[s.ID] = &s
		existing[r.key(s)] = true
		created++
	}
	return created, nil
}

func (r *fakeSlotRepo) GetByID(_ context.Context, id uint) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSlotRepo) ListByCenterAndRange(_ context.Context, centerID uint, from, to time.Time) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TimeSlot
	for _, s := range r.slots {
		if s.CenterID == centerID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) Update(_ context.Context, s *TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.slots[s.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, id)
	return nil
}

func (r *fakeSlotRepo) ActiveBookingCount(_ context.Context, slotID uint) (int64, error) {
	return r.activeBookings[slotID], nil
}

func (r *fakeSlotRepo) Reserve(_ *gorm.DB, slotID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || !s.IsAvailable || s.BookedCount >= s.Capacity {
		return ErrSlotFull
	}
	s.BookedCount++
	return nil
}

func (r *fakeSlotRepo) Release(_ *gorm.DB, slotID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[slotID]; ok && s.BookedCount > 0 {
		s.BookedCount--
	}
	return nil
}

func defaultTemplates() []SlotTemplate {
	return []SlotTemplate{
		{StartTime: "08:00", EndTime: "08:30", Capacity: 2, Price: 350},
		{StartTime: "08:30", EndTime: "09:00", Capacity: 2, Price: 350},
		{StartTime: "09:00", EndTime: "09:30", Capacity: 2, Price: 350},
	}
}

func TestGenerateSlotsWeekdayRange(t *testing.T) {
	repo := newFakeSlotRepo()
	svc := NewService(repo, nopAudit{})

	// Monday through Friday, 3 windows a day.
	result, err := svc.GenerateSlots(context.Background(), BulkCreateRequest{
		CenterID:  1,
		StartDate: "2026-03-02",
		EndDate:   "2026-03-06",
		Templates: defaultTemplates(),
	}, 1, "127.0.0.1")
	if err != nil {
		t.Fatalf("GenerateSlots returned error: %v", err)
	}

	if result.Created != 15 {
		t.Errorf("Created = %d, want 15", result.Created)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
}

func TestGenerateSlotsSkipsWeekends(t *testing.T) {
	repo := newFakeSlotRepo()
	svc := NewService(repo, nopAudit{})

	// Friday 2026-03-06 through Monday 2026-03-09.
	result, err := svc.GenerateSlots(context.Background(), BulkCreateRequest{
		CenterID:     1,
		StartDate:    "2026-03-06",
		EndDate:      "2026-03-09",
		Templates:    defaultTemplates(),
		SkipWeekends: true,
	}, 1, "127.0.0.1")
	if err != nil {
		t.Fatalf("GenerateSlots returned error: %v", err)
	}

	if result.Created != 6 {
		t.Errorf("Created = %d, want 6 (Friday and Monday only)", result.Created)
	}
}

func TestGenerateSlotsSkipsExistingDuplicates(t *testing.T) {
	repo := newFakeSlotRepo()
	svc := NewService(repo, nopAudit{})

	req := BulkCreateRequest{
		CenterID:  1,
		StartDate: "2026-03-02",
		EndDate:   "2026-03-02",
		Templates: defaultTemplates(),
	}

	if _, err := svc.GenerateSlots(context.Background(), req, 1, "127.0.0.1"); err != nil {
		t.Fatalf("first GenerateSlots returned error: %v", err)
	}

	result, err := svc.GenerateSlots(context.Background(), req, 1, "127.0.0.1")
	if err != nil {
		t.Fatalf("second GenerateSlots returned error: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("Created = %d on rerun, want 0", result.Created)
	}
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d on rerun, want 3", result.Skipped)
	}
}

func TestGenerateSlotsValidation(t *testing.T) {
	svc := NewService(newFakeSlotRepo(), nopAudit{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  BulkCreateRequest
		want error
	}{
		{
			name: "inverted date range",
			req: BulkCreateRequest{
				CenterID: 1, StartDate: "2026-03-10", EndDate: "2026-03-02",
				Templates: defaultTemplates(),
			},
			want: ErrInvalidDateRange,
		},
		{
			name: "range too wide",
			req: BulkCreateRequest{
				CenterID: 1, StartDate: "2026-01-01", EndDate: "2026-12-31",
				Templates: defaultTemplates(),
			},
			want: ErrRangeTooWide,
		},
		{
			name: "inverted template",
			req: BulkCreateRequest{
				CenterID: 1, StartDate: "2026-03-02", EndDate: "2026-03-02",
				Templates: []SlotTemplate{{StartTime: "10:00", EndTime: "09:00", Capacity: 2}},
			},
			want: ErrInvalidTemplate,
		},
		{
			name: "zero length template",
			req: BulkCreateRequest{
				CenterID: 1, StartDate: "2026-03-02", EndDate: "2026-03-02",
				Templates: []SlotTemplate{{StartTime: "10:00", EndTime: "10:00", Capacity: 2}},
			},
			want: ErrInvalidTemplate,
		},
		{
			name: "overlapping templates",
			req: BulkCreateRequest{
				CenterID: 1, StartDate: "2026-03-02", EndDate: "2026-03-02",
				Templates: []SlotTemplate{
					{StartTime: "08:00", EndTime: "09:00", Capacity: 2},
					{StartTime: "08:30", EndTime: "09:30", Capacity: 2},
				},
			},
			want: ErrOverlappingTemplates,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.GenerateSlots(ctx, tc.req, 1, "127.0.0.1"); !errors.Is(err, tc.want) {
				t.Errorf("GenerateSlots error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReserveNeverOversells(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, IsAvailable: true}

	const attempts = 40
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Reserve(nil, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrSlotFull) {
			t.Errorf("Reserve returned unexpected error: %v", err)
		}
	}

	if succeeded != 5 {
		t.Errorf("successful reservations = %d, want 5", succeeded)
	}
	if got := repo.slots[1].BookedCount; got != 5 {
		t.Errorf("BookedCount = %d, want 5", got)
	}
}

func TestReserveRespectsAvailabilityFlag(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, IsAvailable: false}

	if err := repo.Reserve(nil, 1); !errors.Is(err, ErrSlotFull) {
		t.Errorf("Reserve on a closed slot = %v, want ErrSlotFull", err)
	}
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, BookedCount: 1, IsAvailable: true}

	if err := repo.Release(nil, 1); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := repo.Release(nil, 1); err != nil {
		t.Fatalf("second Release returned error: %v", err)
	}
	if got := repo.slots[1].BookedCount; got != 0 {
		t.Errorf("BookedCount = %d, want 0", got)
	}
}

func TestUpdateSlotRefusedWithActiveBookings(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, BookedCount: 3, IsAvailable: true}
	repo.activeBookings[1] = 3
	svc := NewService(repo, nopAudit{})

	capacity := 2
	_, err := svc.UpdateSlot(context.Background(), 1, UpdateSlotRequest{Capacity: &capacity}, 1, "127.0.0.1")
	if !errors.Is(err, ErrSlotHasBookings) {
		t.Errorf("UpdateSlot error = %v, want ErrSlotHasBookings", err)
	}
	if got := repo.slots[1].Capacity; got != 5 {
		t.Errorf("Capacity = %d after refused update, want 5", got)
	}
}

func TestUpdateSlotOnIdleSlot(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, IsAvailable: true}
	svc := NewService(repo, nopAudit{})

	capacity := 8
	closed := false
	sl, err := svc.UpdateSlot(context.Background(), 1, UpdateSlotRequest{Capacity: &capacity, IsAvailable: &closed}, 1, "127.0.0.1")
	if err != nil {
		t.Fatalf("UpdateSlot returned error: %v", err)
	}
	if sl.Capacity != 8 || sl.IsAvailable {
		t.Errorf("slot after update = capacity %d available %v, want 8 and false", sl.Capacity, sl.IsAvailable)
	}
}

func TestDeleteSlotRefusedWithConsumedSeats(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, BookedCount: 1, IsAvailable: true}
	svc := NewService(repo, nopAudit{})

	if err := svc.DeleteSlot(context.Background(), 1, 1, "127.0.0.1"); !errors.Is(err, ErrSlotHasBookings) {
		t.Errorf("DeleteSlot error = %v, want ErrSlotHasBookings", err)
	}
}

func TestDeleteSlotRefusedWithActiveBookings(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots[1] = &TimeSlot{ID: 1, CenterID: 1, Capacity: 5, BookedCount: 2, IsAvailable: true}
	repo.activeBookings[1] = 2
	svc := NewService(repo, nopAudit{})

	if err := svc.DeleteSlot(context.Background(), 1, 1, "127.0.0.1"); !errors.Is(err, ErrSlotHasBookings) {
		t.Errorf("DeleteSlot error = %v, want ErrSlotHasBookings", err)
	}

	if _, err := repo.GetByID(context.Background(), 1); err != nil {
		t.Error("slot was deleted despite active bookings")
	}
}
