package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"equiprent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

var (
	admin    = domain.Actor{UserID: "a1", Role: domain.UserRoleAdmin}
	renter   = domain.Actor{UserID: "r1", Role: domain.UserRoleRenter}
	stranger = domain.Actor{UserID: "r2", Role: domain.UserRoleRenter}
	supplier = domain.Actor{UserID: "s1", Role: domain.UserRoleSupplier}
	outsider = domain.Actor{UserID: "s9", Role: domain.UserRoleSupplier}
)

func newTestLifecycleService(bookings *MockBookingRepo, sales *MockSaleRepo, notes *MockNotificationRepo) LifecycleService {
	svc := NewLifecycleService(bookings, sales, notes)
	svc.(*lifecycleService).now = func() time.Time { return fixedNow }
	return svc
}

func testBooking(status domain.Status) *domain.Booking {
	return &domain.Booking{
		Transaction: domain.Transaction{ID: "b1", Kind: domain.KindBooking, Reference: "BK-1", Status: status},
		RenterID:    "r1",
		Items: []domain.BookingItem{
			{EquipmentID: "e1", SupplierID: "s1", RateCents: 10000, Usage: 10, SubtotalCents: 100000},
			{EquipmentID: "e2", SupplierID: domain.AdminSupplierID, RateCents: 5000, Usage: 2, SubtotalCents: 10000},
		},
	}
}

func testSale(status domain.Status, supplierID string) *domain.Sale {
	return &domain.Sale{
		Transaction:    domain.Transaction{ID: "s1", Kind: domain.KindSale, Reference: "SL-1", Status: status},
		BuyerID:        "r1",
		SupplierID:     supplierID,
		SalePriceCents: 1234567,
	}
}

func changeTo(from, to domain.Status) interface{} {
	return mock.MatchedBy(func(c domain.StatusChange) bool {
		return c.From == from && c.To == to && c.At.Equal(fixedNow)
	})
}

func TestLifecycleService_RequestTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("Admin marks booking paid", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusPending), nil).Once()
		bookings.On("UpdateStatus", ctx, "b1", mock.MatchedBy(func(c domain.StatusChange) bool {
			return c.From == domain.StatusPending && c.To == domain.StatusPaid && c.Note == "wire received"
		})).Return(nil).Once()

		txn, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "b1", domain.StatusPaid, "wire received")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, txn.Status)
		assert.Equal(t, "wire received", txn.StatusNote)
		require.NotNil(t, txn.UpdatedAt)
		assert.True(t, txn.UpdatedAt.Equal(fixedNow))
		assert.Nil(t, txn.CompletedAt)
		bookings.AssertExpectations(t)
	})

	t.Run("Completion stamps completedAt", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusPaid), nil).Once()
		bookings.On("UpdateStatus", ctx, "b1", mock.MatchedBy(func(c domain.StatusChange) bool {
			done := c.CompletedAt()
			return c.To == domain.StatusCompleted && done != nil && done.Equal(fixedNow)
		})).Return(nil).Once()

		txn, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "b1", domain.StatusCompleted, "")
		require.NoError(t, err)
		require.NotNil(t, txn.CompletedAt)
		assert.True(t, txn.CompletedAt.Equal(fixedNow))
	})

	t.Run("Invalid transition writes nothing", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusCompleted), nil).Once()

		_, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "b1", domain.StatusPaid, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Skipping a stage is invalid", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusPending), nil).Once()

		_, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "b1", domain.StatusCompleted, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Not found", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "missing").Return(nil, fmt.Errorf("booking missing: %w", domain.ErrNotFound)).Once()

		_, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "missing", domain.StatusPaid, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Conflict surfaces", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)

		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusPending), nil).Once()
		bookings.On("UpdateStatus", ctx, "b1", changeTo(domain.StatusPending, domain.StatusCancelled)).
			Return(fmt.Errorf("%w: booking b1 is cancelled", domain.ErrConflict)).Once()

		_, err := svc.RequestTransition(ctx, admin, domain.KindBooking, "b1", domain.StatusCancelled, "")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		svc := newTestLifecycleService(new(MockBookingRepo), new(MockSaleRepo), nil)
		_, err := svc.RequestTransition(ctx, admin, domain.Kind("lease"), "x", domain.StatusPaid, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLifecycleService_Authorization(t *testing.T) {
	ctx := context.Background()

	bookingCases := []struct {
		name      string
		actor     domain.Actor
		current   domain.Status
		requested domain.Status
		allowed   bool
	}{
		{"renter cancels own pending booking", renter, domain.StatusPending, domain.StatusCancelled, true},
		{"renter cannot cancel a paid booking", renter, domain.StatusPaid, domain.StatusCancelled, false},
		{"renter cannot mark paid", renter, domain.StatusPending, domain.StatusPaid, false},
		{"other renter cannot cancel", stranger, domain.StatusPending, domain.StatusCancelled, false},
		{"supplier marks paid", supplier, domain.StatusPending, domain.StatusPaid, true},
		{"supplier completes", supplier, domain.StatusPaid, domain.StatusCompleted, true},
		{"supplier cannot cancel", supplier, domain.StatusPending, domain.StatusCancelled, false},
		{"unrelated supplier is refused", outsider, domain.StatusPending, domain.StatusPaid, false},
	}

	for _, tc := range bookingCases {
		t.Run(tc.name, func(t *testing.T) {
			bookings := new(MockBookingRepo)
			svc := newTestLifecycleService(bookings, nil, nil)
			bookings.On("GetByID", ctx, "b1").Return(testBooking(tc.current), nil).Once()
			if tc.allowed {
				bookings.On("UpdateStatus", ctx, "b1", changeTo(tc.current, tc.requested)).Return(nil).Once()
			}

			_, err := svc.RequestTransition(ctx, tc.actor, domain.KindBooking, "b1", tc.requested, "")
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrForbidden)
				bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("Buyer cancels own pending sale", func(t *testing.T) {
		sales := new(MockSaleRepo)
		svc := newTestLifecycleService(nil, sales, nil)
		sales.On("GetByID", ctx, "s1").Return(testSale(domain.StatusPending, "s1"), nil).Once()
		sales.On("UpdateStatus", ctx, "s1", changeTo(domain.StatusPending, domain.StatusCancelled)).Return(nil).Once()

		txn, err := svc.RequestTransition(ctx, renter, domain.KindSale, "s1", domain.StatusCancelled, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, txn.Status)
	})

	t.Run("Supplier cannot act on admin-owned sale", func(t *testing.T) {
		sales := new(MockSaleRepo)
		svc := newTestLifecycleService(nil, sales, nil)
		sales.On("GetByID", ctx, "s1").Return(testSale(domain.StatusPending, domain.AdminSupplierID), nil).Once()

		_, err := svc.RequestTransition(ctx, supplier, domain.KindSale, "s1", domain.StatusPaid, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Supplier completes own sale", func(t *testing.T) {
		sales := new(MockSaleRepo)
		svc := newTestLifecycleService(nil, sales, nil)
		sales.On("GetByID", ctx, "s1").Return(testSale(domain.StatusPaid, "s1"), nil).Once()
		sales.On("UpdateStatus", ctx, "s1", changeTo(domain.StatusPaid, domain.StatusCompleted)).Return(nil).Once()

		_, err := svc.RequestTransition(ctx, supplier, domain.KindSale, "s1", domain.StatusCompleted, "")
		assert.NoError(t, err)
	})
}

func TestLifecycleService_Reads(t *testing.T) {
	ctx := context.Background()

	t.Run("Booking view carries commission", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := newTestLifecycleService(bookings, nil, nil)
		bookings.On("GetByID", ctx, "b1").Return(testBooking(domain.StatusPending), nil)

		view, err := svc.GetBooking(ctx, supplier, "b1")
		require.NoError(t, err)
		// 10% of the supplier item; the admin-owned item pays nothing.
		assert.Equal(t, int64(10000), view.CommissionCents)

		_, err = svc.GetBooking(ctx, stranger, "b1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Sale view carries commission", func(t *testing.T) {
		sales := new(MockSaleRepo)
		svc := newTestLifecycleService(nil, sales, nil)
		sales.On("GetByID", ctx, "s1").Return(testSale(domain.StatusPending, "s1"), nil).Once()

		view, err := svc.GetSale(ctx, renter, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(61728), view.CommissionCents)
	})

	t.Run("Notifications are admin only", func(t *testing.T) {
		notes := new(MockNotificationRepo)
		svc := newTestLifecycleService(nil, nil, notes)
		notes.On("ListByTransaction", ctx, "b1").Return([]domain.Notification{{ID: 1}}, nil).Once()

		list, err := svc.ListNotifications(ctx, admin, "b1")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		_, err = svc.ListNotifications(ctx, supplier, "b1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
