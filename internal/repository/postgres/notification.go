package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "intentID", n.IntentID, "kind", n.Kind)

	attrs, err := json.Marshal(n.Attributes)
	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to marshal attributes")
		return err
	}

	if n.CreatedOn.IsZero() {
		n.CreatedOn = time.Now().UTC()
	}
	query := `INSERT INTO notifications (intent_id, kind, recipient, transaction_id, title, message, attributes, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "intentID", n.IntentID)

	err = r.db.QueryRowContext(ctx, query, n.IntentID, n.Kind, n.Recipient, n.TransactionID, n.Title, n.Message, attrs, n.CreatedOn).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "intentID", n.IntentID)
	} else {
		logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	}
	return err
}

func (r *notificationRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.Notification, error) {
	query := `SELECT id, intent_id, kind, recipient, transaction_id, title, message, attributes, created_on
	          FROM notifications WHERE transaction_id = $1 ORDER BY created_on, id`
	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var attrs []byte
		if err := rows.Scan(&n.ID, &n.IntentID, &n.Kind, &n.Recipient, &n.TransactionID, &n.Title, &n.Message, &attrs, &n.CreatedOn); err != nil {
			return nil, err
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				return nil, err
			}
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
