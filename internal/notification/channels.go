package notification

import (
	"context"

	"github.com/ocheikhi/vehinspect-backend/internal/auth"
	"github.com/ocheikhi/vehinspect-backend/utils"
)

// EmailChannel sends over SMTP.
type EmailChannel struct{}

func (EmailChannel) Name() string { return "email" }

func (EmailChannel) Send(_ context.Context, user *auth.User, _, title, message string) error {
	return utils.SendEmail(user.Email, title, message)
}

// InAppChannel stores the message for the notifications endpoint.
type InAppChannel struct {
	Repo Repository
}

func (InAppChannel) Name() string { return "in-app" }

func (ch InAppChannel) Send(ctx context.Context, user *auth.User, eventType, title, message string) error {
	return ch.Repo.Create(ctx, &Notification{
		UserID:  user.ID,
		Type:    eventType,
		Title:   title,
		Message: message,
	})
}
