package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/ocheikhi/vehinspect-backend/internal/auth"
	"github.com/ocheikhi/vehinspect-backend/utils"
)

// Channel delivers one rendered message to one user.
type Channel interface {
	Name() string
	Send(ctx context.Context, user *auth.User, eventType, title, message string) error
}

type Service interface {
	Dispatch(ctx context.Context, event utils.BookingEvent)
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uint) (bool, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type service struct {
	repo     Repository
	userRepo auth.Repository
	channels []Channel
}

func NewService(repo Repository, userRepo auth.Repository, channels ...Channel) Service {
	return &service{repo: repo, userRepo: userRepo, channels: channels}
}

// Dispatch fans a booking event out to every channel. Delivery is best
// effort; a channel failure is logged and never bubbles up to the caller.
func (s *service) Dispatch(ctx context.Context, event utils.BookingEvent) {
	user, err := s.userRepo.GetByID(ctx, event.UserID)
	if err != nil {
		log.Printf("❌ Notification dispatch: user %d not found: %v", event.UserID, err)
		return
	}

	title, message, ok := renderEvent(event)
	if !ok {
		log.Printf("⚠️ Notification dispatch: unknown event type %q", event.Type)
		return
	}

	for _, ch := range s.channels {
		if err := ch.Send(ctx, user, event.Type, title, message); err != nil {
			log.Printf("❌ Notification via %s failed for %s: %v", ch.Name(), event.BookingNumber, err)
		}
	}
}

func renderEvent(event utils.BookingEvent) (title, message string, ok bool) {
	switch event.Type {
	case "booking.created":
		return "Booking received",
			fmt.Sprintf("Your booking %s has been created. Complete the payment of %.2f MAD to confirm your appointment.", event.BookingNumber, event.Amount),
			true
	case "booking.confirmed":
		return "Booking confirmed",
			fmt.Sprintf("Your booking %s is confirmed. See you at the center.", event.BookingNumber),
			true
	case "payment.confirmed":
		return "Payment received",
			fmt.Sprintf("We received your payment of %.2f MAD for booking %s.", event.Amount, event.BookingNumber),
			true
	case "booking.cancelled":
		return "Booking cancelled",
			fmt.Sprintf("Your booking %s has been cancelled.", event.BookingNumber),
			true
	}
	return "", "", false
}

func (s *service) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

func (s *service) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
