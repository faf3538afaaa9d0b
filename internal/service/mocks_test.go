package service

import (
	"context"
	"time"

	"equiprent-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListDueForStartReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListDueForPendingReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListDueForCompletion(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

type MockSaleRepo struct {
	mock.Mock
}

func (m *MockSaleRepo) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *MockSaleRepo) ListDueForReminder(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Sale), args.Error(1)
}

func (m *MockSaleRepo) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Sale), args.Error(1)
}

func (m *MockSaleRepo) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepo) ListByTransaction(ctx context.Context, transactionID string) ([]domain.Notification, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Name() string {
	return "mock"
}

func (m *MockDeliverer) Deliver(ctx context.Context, intent domain.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}
