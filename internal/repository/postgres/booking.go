package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/repository"

	"github.com/lib/pq"
)

const bookingColumns = `id, reference, renter_id, status, COALESCE(status_note, ''), start_date, end_date,
	total_price_cents, COALESCE(renter_message, ''), COALESCE(admin_message, ''), created_at, updated_at, completed_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	bookings := []domain.Booking{*b}
	if err := r.loadItems(ctx, bookings); err != nil {
		return nil, err
	}
	return &bookings[0], nil
}

func (r *bookingRepository) ListDueForStartReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, "ListDueForStartReminder",
		`status IN ($1, $2) AND start_date > $3 AND start_date <= $4`,
		domain.StatusPending, domain.StatusPaid, now, now.Add(domain.ReminderLead))
}

func (r *bookingRepository) ListDueForPendingReminder(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, "ListDueForPendingReminder",
		`status = $1 AND end_date > $2 AND end_date <= $3`,
		domain.StatusPending, now, now.Add(domain.ReminderLead))
}

func (r *bookingRepository) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, "ListDueForCancellation", `status = $1 AND end_date <= $2`, domain.StatusPending, now)
}

func (r *bookingRepository) ListDueForCompletion(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.list(ctx, "ListDueForCompletion", `status = $1 AND end_date <= $2`, domain.StatusPaid, now)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	return updateStatus(ctx, r.db, "bookings", id, change)
}

func (r *bookingRepository) list(ctx context.Context, operation, where string, args ...interface{}) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where + ` ORDER BY end_date, id`
	logger.DatabaseCall("SELECT", "bookings", "operation", operation)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "operation", operation)
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", operation, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	logger.DatabaseResult("SELECT", int64(len(bookings)), nil, "operation", operation)

	if err := r.loadItems(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadItems fetches the items of every booking in one round trip.
func (r *bookingRepository) loadItems(ctx context.Context, bookings []domain.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]string, len(bookings))
	index := make(map[string]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		index[b.ID] = i
	}

	query := `SELECT booking_id, equipment_id, equipment_name, COALESCE(supplier_id, $2), rate_cents, usage_amount, usage_unit, subtotal_cents
	          FROM booking_items WHERE booking_id = ANY($1) ORDER BY booking_id, position`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), domain.AdminSupplierID)
	if err != nil {
		return fmt.Errorf("load booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID, unit string
		var item domain.BookingItem
		if err := rows.Scan(&bookingID, &item.EquipmentID, &item.EquipmentName, &item.SupplierID, &item.RateCents, &item.Usage, &unit, &item.SubtotalCents); err != nil {
			return fmt.Errorf("scan booking item: %w", err)
		}
		if item.Unit, err = domain.ParseUsageUnit(unit); err != nil {
			return fmt.Errorf("booking %s item %s: %w", bookingID, item.EquipmentID, err)
		}
		if i, ok := index[bookingID]; ok {
			bookings[i].Items = append(bookings[i].Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var updatedAt, completedAt sql.NullTime
	err := row.Scan(&b.ID, &b.Reference, &b.RenterID, &b.Status, &b.StatusNote, &b.StartDate, &b.EndDate,
		&b.TotalPriceCents, &b.RenterMessage, &b.AdminMessage, &b.CreatedAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	b.Kind = domain.KindBooking
	b.UpdatedAt = nullTimePtr(updatedAt)
	b.CompletedAt = nullTimePtr(completedAt)
	return b, nil
}
