package service

import (
	"context"

	"equiprent-backend/internal/domain"
)

// LifecycleService is the manual path into the transaction lifecycle. Manual
// transitions never emit notifications.
type LifecycleService interface {
	RequestTransition(ctx context.Context, actor domain.Actor, kind domain.Kind, id string, requested domain.Status, notes string) (*domain.Transaction, error)
	GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.BookingView, error)
	GetSale(ctx context.Context, actor domain.Actor, id string) (*domain.SaleView, error)
	ListNotifications(ctx context.Context, actor domain.Actor, transactionID string) ([]domain.Notification, error)
}

// NotificationService accepts intents from the sweeper. Emit returns once the
// intent is recorded and queued; delivery happens on background workers.
type NotificationService interface {
	Emit(ctx context.Context, intent domain.Intent) error
}

// Deliverer hands a single intent to a transport (SMTP, SendGrid, Kafka, log).
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, intent domain.Intent) error
}
