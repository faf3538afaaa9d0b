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
	"equiprent-backend/internal/utils"

	"github.com/lib/pq"
)

// A NULL supplier_id marks a sale of admin-owned equipment.
var saleColumns = `id, reference, equipment_id, equipment_name, sale_price_cents, buyer_id,
	COALESCE(supplier_id, ` + pq.QuoteLiteral(domain.AdminSupplierID) + `), COALESCE(buyer_message, ''), status, COALESCE(status_note, ''), created_at, updated_at, completed_at`

type saleRepository struct {
	db *sql.DB
}

func NewSaleRepository(db *sql.DB) repository.SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	s, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (r *saleRepository) ListDueForReminder(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	after, notAfter := utils.DayWindow(now, domain.SaleReminderAge)
	return r.list(ctx, "ListDueForReminder", `status = $1 AND created_at > $2 AND created_at <= $3`,
		domain.StatusPending, after, notAfter)
}

func (r *saleRepository) ListDueForCancellation(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	return r.list(ctx, "ListDueForCancellation", `status = $1 AND created_at <= $2`,
		domain.StatusPending, now.Add(-domain.SaleExpiryAge))
}

func (r *saleRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	return updateStatus(ctx, r.db, "sales", id, change)
}

func (r *saleRepository) list(ctx context.Context, operation, where string, args ...interface{}) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE ` + where + ` ORDER BY created_at, id`
	logger.DatabaseCall("SELECT", "sales", "operation", operation)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "operation", operation)
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", operation, err)
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	logger.DatabaseResult("SELECT", int64(len(sales)), nil, "operation", operation)
	return sales, nil
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	s := &domain.Sale{}
	var updatedAt, completedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Reference, &s.EquipmentID, &s.EquipmentName, &s.SalePriceCents, &s.BuyerID,
		&s.SupplierID, &s.BuyerMessage, &s.Status, &s.StatusNote, &s.CreatedAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	s.Kind = domain.KindSale
	s.UpdatedAt = nullTimePtr(updatedAt)
	s.CompletedAt = nullTimePtr(completedAt)
	return s, nil
}
