package service

import (
	"context"
	"fmt"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/repository"
	"equiprent-backend/internal/utils"
)

type lifecycleService struct {
	bookingRepo repository.BookingRepository
	saleRepo    repository.SaleRepository
	noteRepo    repository.NotificationRepository
	now         func() time.Time
}

func NewLifecycleService(
	bookingRepo repository.BookingRepository,
	saleRepo repository.SaleRepository,
	noteRepo repository.NotificationRepository,
) LifecycleService {
	return &lifecycleService{
		bookingRepo: bookingRepo,
		saleRepo:    saleRepo,
		noteRepo:    noteRepo,
		now:         time.Now,
	}
}

func (s *lifecycleService) RequestTransition(ctx context.Context, actor domain.Actor, kind domain.Kind, id string, requested domain.Status, notes string) (*domain.Transaction, error) {
	logger.EnterMethod("lifecycleService.RequestTransition", "actor", actor.UserID, "kind", kind, "id", id, "requested", requested)

	var (
		txn   *domain.Transaction
		write func(context.Context, string, domain.StatusChange) error
		err   error
	)
	switch kind {
	case domain.KindBooking:
		var b *domain.Booking
		b, err = s.bookingRepo.GetByID(ctx, id)
		if err == nil {
			err = authorizeBooking(actor, b, requested)
			txn = &b.Transaction
		}
		write = s.bookingRepo.UpdateStatus
	case domain.KindSale:
		var sale *domain.Sale
		sale, err = s.saleRepo.GetByID(ctx, id)
		if err == nil {
			err = authorizeSale(actor, sale, requested)
			txn = &sale.Transaction
		}
		write = s.saleRepo.UpdateStatus
	default:
		err = fmt.Errorf("%w: unknown transaction kind %q", domain.ErrInvalidInput, kind)
	}
	if err != nil {
		logger.ExitMethodWithError("lifecycleService.RequestTransition", err, "id", id)
		return nil, err
	}

	if err := domain.ValidateTransition(txn.Status, requested); err != nil {
		logger.ExitMethodWithError("lifecycleService.RequestTransition", err, "id", id, "current", txn.Status)
		return nil, err
	}

	change := domain.NewStatusChange(txn.Status, requested, s.now(), notes)
	if err := write(ctx, id, change); err != nil {
		logger.ExitMethodWithError("lifecycleService.RequestTransition", err, "id", id)
		return nil, err
	}
	txn.Apply(change)

	logger.Info("Manual status transition applied",
		"kind", kind, "id", id, "from", change.From, "to", change.To, "actor", actor.UserID, "role", actor.Role)
	logger.ExitMethod("lifecycleService.RequestTransition", "id", id, "status", txn.Status)
	return txn, nil
}

func (s *lifecycleService) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.BookingView, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && b.RenterID != actor.UserID && !b.HasSupplier(actor.UserID) {
		return nil, fmt.Errorf("%w: booking %s is not visible to %s", domain.ErrForbidden, id, actor.UserID)
	}
	return &domain.BookingView{Booking: b, CommissionCents: utils.BookingCommission(b)}, nil
}

func (s *lifecycleService) GetSale(ctx context.Context, actor domain.Actor, id string) (*domain.SaleView, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && sale.BuyerID != actor.UserID && sale.SupplierID != actor.UserID {
		return nil, fmt.Errorf("%w: sale %s is not visible to %s", domain.ErrForbidden, id, actor.UserID)
	}
	return &domain.SaleView{Sale: sale, CommissionCents: utils.SaleCommission(sale)}, nil
}

func (s *lifecycleService) ListNotifications(ctx context.Context, actor domain.Actor, transactionID string) ([]domain.Notification, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: notifications are admin only", domain.ErrForbidden)
	}
	return s.noteRepo.ListByTransaction(ctx, transactionID)
}

// authorizeBooking decides who may request which status on a booking. Admins may
// request any transition; the renter may only cancel while the booking is
// pending; a supplier on the booking may mark it paid or completed.
func authorizeBooking(actor domain.Actor, b *domain.Booking, requested domain.Status) error {
	if actor.IsAdmin() {
		return nil
	}
	switch actor.Role {
	case domain.UserRoleRenter:
		if b.RenterID == actor.UserID && requested == domain.StatusCancelled && b.Status == domain.StatusPending {
			return nil
		}
	case domain.UserRoleSupplier:
		if b.HasSupplier(actor.UserID) && (requested == domain.StatusPaid || requested == domain.StatusCompleted) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s may not set booking %s to %s", domain.ErrForbidden, actor.Role, actor.UserID, b.ID, requested)
}

func authorizeSale(actor domain.Actor, sale *domain.Sale, requested domain.Status) error {
	if actor.IsAdmin() {
		return nil
	}
	switch actor.Role {
	case domain.UserRoleRenter:
		if sale.BuyerID == actor.UserID && requested == domain.StatusCancelled && sale.Status == domain.StatusPending {
			return nil
		}
	case domain.UserRoleSupplier:
		if !sale.AdminOwned() && sale.SupplierID == actor.UserID && (requested == domain.StatusPaid || requested == domain.StatusCompleted) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s may not set sale %s to %s", domain.ErrForbidden, actor.Role, actor.UserID, sale.ID, requested)
}
