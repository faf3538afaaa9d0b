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

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.SaleRepository
	repository.UserRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		BookingRepository:      NewBookingRepository(db),
		SaleRepository:         NewSaleRepository(db),
		UserRepository:         NewUserRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// Ping checks connectivity with a bounded wait.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// updateStatus is the compare-and-swap write shared by bookings and sales. The
// WHERE clause on the expected prior status is the only serialization point between
// manual transitions and the sweeper.
func updateStatus(ctx context.Context, db *sql.DB, table, id string, change domain.StatusChange) error {
	query := fmt.Sprintf(`UPDATE %s
		SET status = $1,
		    updated_at = $2,
		    completed_at = COALESCE($3, completed_at),
		    status_note = COALESCE(NULLIF($4, ''), status_note)
		WHERE id = $5 AND status = $6`, table)

	logger.DatabaseCall("UPDATE", table, "id", id, "from", change.From, "to", change.To)
	result, err := db.ExecContext(ctx, query, change.To, change.At, change.CompletedAt(), change.Note, id, change.From)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "table", table, "id", id)
		return fmt.Errorf("update %s status: %w", table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s status: %w", table, err)
	}
	logger.DatabaseResult("UPDATE", rows, nil, "table", table, "id", id)
	if rows == 1 {
		return nil
	}

	var current domain.Status
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, table), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s status: %w", table, err)
	}
	return fmt.Errorf("%w: %s %s is %s, expected %s", domain.ErrConflict, table, id, current, change.From)
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
