package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/storynest/storynest/internal/domain"
)

type ContactUsecase struct {
	store  RecordStore
	logger *slog.Logger
}

func NewContactUsecase(store RecordStore, logger *slog.Logger) *ContactUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactUsecase{store: store, logger: logger.With(slog.String("module", "contact"))}
}

// Send stores a contact form message for the support inbox and returns its id.
func (u *ContactUsecase) Send(ctx context.Context, msg domain.ContactMessage) (string, error) {
	ctx, span := tracer.Start(ctx, "Contact.Send")
	defer span.End()

	if strings.TrimSpace(msg.Message) == "" {
		return "", domain.ValidationError{Field: "message", Reason: "message is required"}
	}
	rec, err := u.store.Create(ctx, domain.CollectionContacts, map[string]any{
		"name":    strings.TrimSpace(msg.Name),
		"email":   strings.TrimSpace(msg.Email),
		"subject": strings.TrimSpace(msg.Subject),
		"message": msg.Message,
		"status":  domain.ContactStatusNew,
	})
	if err != nil {
		return "", err
	}
	u.logger.InfoContext(ctx, "contact message stored", slog.String("id", rec.ID))
	return rec.ID, nil
}
