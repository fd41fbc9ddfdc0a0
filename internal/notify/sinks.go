package notify

import (
	"context"
	"time"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/repository"
)

// LogSink writes every event to the process log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Send(ctx context.Context, ev domain.Event) error {
	title, message := Describe(ev)
	logger.InfoContext(ctx, title, "kind", ev.Kind, "centerID", ev.CenterID, "equipmentID", ev.EquipmentID, "message", message)
	return nil
}

// StoreSink records events as dashboard notifications.
type StoreSink struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Send(ctx context.Context, ev domain.Event) error {
	title, message := Describe(ev)
	return s.repo.Create(ctx, &domain.Notification{
		CenterID:    ev.CenterID,
		EquipmentID: ev.EquipmentID,
		Kind:        ev.Kind,
		Title:       title,
		Message:     message,
		Attributes:  Attributes(ev),
		CreatedOn:   s.now(),
	})
}
