package repository

import (
	"context"
	"time"

	"equiprent-backend/internal/domain"
)

// BookingRepository reads bookings and applies conditional status writes.
// The List* queries mirror the Booking.DueFor* predicates.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListDueForStartReminder(ctx context.Context, now time.Time) ([]domain.Booking, error)
	ListDueForPendingReminder(ctx context.Context, now time.Time) ([]domain.Booking, error)
	ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Booking, error)
	ListDueForCompletion(ctx context.Context, now time.Time) ([]domain.Booking, error)
	// UpdateStatus applies change only while the stored status equals change.From.
	// It returns domain.ErrConflict when the status has moved on and
	// domain.ErrNotFound when the booking does not exist.
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error
}

type SaleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
	ListDueForReminder(ctx context.Context, now time.Time) ([]domain.Sale, error)
	ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Sale, error)
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.Notification, error)
}
