// Package memory holds a mutex-guarded store used for local development and tests.
// Its conditional writes follow the same contract as the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/repository"
)

var (
	_ repository.BookingRepository      = (*BookingRepository)(nil)
	_ repository.SaleRepository         = (*SaleRepository)(nil)
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
)

type Store struct {
	mu            sync.RWMutex
	bookings      map[string]*domain.Booking
	sales         map[string]*domain.Sale
	users         map[string]*domain.User
	notifications []domain.Notification
	nextNoteID    int64

	Bookings      *BookingRepository
	Sales         *SaleRepository
	Users         *UserRepository
	Notifications *NotificationRepository
}

func NewStore() *Store {
	s := &Store{
		bookings: make(map[string]*domain.Booking),
		sales:    make(map[string]*domain.Sale),
		users:    make(map[string]*domain.User),
	}
	s.Bookings = &BookingRepository{s: s}
	s.Sales = &SaleRepository{s: s}
	s.Users = &UserRepository{s: s}
	s.Notifications = &NotificationRepository{s: s}
	return s
}

// PutBooking inserts or replaces a booking.
func (s *Store) PutBooking(b domain.Booking) {
	b.Kind = domain.KindBooking
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(&b)
}

func (s *Store) PutSale(sale domain.Sale) {
	sale.Kind = domain.KindSale
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sale
	s.sales[sale.ID] = &cp
}

func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	cp := *b
	cp.Items = append([]domain.BookingItem(nil), b.Items...)
	return &cp
}

// checkChange is the compare-and-swap step shared by bookings and sales.
// Callers hold the write lock.
func checkChange(kind string, id string, t *domain.Transaction, change domain.StatusChange) error {
	if t == nil {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	if t.Status != change.From {
		return fmt.Errorf("%w: %s %s is %s, expected %s", domain.ErrConflict, kind, id, t.Status, change.From)
	}
	t.Apply(change)
	return nil
}

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ListDueForStartReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, func(b *domain.Booking) bool { return b.DueForStartReminder(now) })
}

func (r *BookingRepository) ListDueForPendingReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, func(b *domain.Booking) bool { return b.DueForPendingReminder(now) })
}

func (r *BookingRepository) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, func(b *domain.Booking) bool { return b.DueForCancellation(now) })
}

func (r *BookingRepository) ListDueForCompletion(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, func(b *domain.Booking) bool { return b.DueForCompletion(now) })
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var t *domain.Transaction
	if b, ok := r.s.bookings[id]; ok {
		t = &b.Transaction
	}
	return checkChange("booking", id, t, change)
}

func (r *BookingRepository) list(ctx context.Context, match func(*domain.Booking) bool) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type SaleRepository struct {
	s *Store
}

func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}
	cp := *sale
	return &cp, nil
}

func (r *SaleRepository) ListDueForReminder(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	return r.list(ctx, func(s *domain.Sale) bool { return s.DueForReminder(now) })
}

func (r *SaleRepository) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	return r.list(ctx, func(s *domain.Sale) bool { return s.DueForCancellation(now) })
}

func (r *SaleRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var t *domain.Transaction
	if sale, ok := r.s.sales[id]; ok {
		t = &sale.Transaction
	}
	return checkChange("sale", id, t, change)
}

func (r *SaleRepository) list(ctx context.Context, match func(*domain.Sale) bool) ([]domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Sale
	for _, sale := range r.s.sales {
		if match(sale) {
			out = append(out, *sale)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextNoteID++
	n.ID = r.s.nextNoteID
	if n.CreatedOn.IsZero() {
		n.CreatedOn = time.Now().UTC()
	}
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *NotificationRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Notification
	for _, n := range r.s.notifications {
		if n.TransactionID == transactionID {
			out = append(out, n)
		}
	}
	return out, nil
}
