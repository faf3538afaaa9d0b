package domain

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindBooking Kind = "booking"
	KindSale    Kind = "sale"
)

// ParseKind accepts both the singular kind and the plural collection name used in URLs.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "booking", "bookings":
		return KindBooking, nil
	case "sale", "sales":
		return KindSale, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidInput, s)
	}
}

// AdminSupplierID marks equipment owned by the marketplace itself rather than a supplier.
const AdminSupplierID = "admin"

// Transaction is the header shared by bookings and sales.
type Transaction struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Reference   string     `json:"reference"`
	Status      Status     `json:"status"`
	StatusNote  string     `json:"status_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusChange is a conditional status write: it only applies while the stored
// status still equals From.
type StatusChange struct {
	From Status
	To   Status
	At   time.Time
	Note string
}

func NewStatusChange(from, to Status, at time.Time, note string) StatusChange {
	return StatusChange{From: from, To: to, At: at.UTC(), Note: note}
}

// CompletedAt is the completion stamp the change carries, nil unless it completes.
func (c StatusChange) CompletedAt() *time.Time {
	if c.To != StatusCompleted {
		return nil
	}
	at := c.At
	return &at
}

// Apply mirrors a successful StatusChange onto an in-memory header.
func (t *Transaction) Apply(c StatusChange) {
	at := c.At
	t.Status = c.To
	t.UpdatedAt = &at
	if done := c.CompletedAt(); done != nil {
		t.CompletedAt = done
	}
	if c.Note != "" {
		t.StatusNote = c.Note
	}
}

// Lifecycle timing.
const (
	ReminderLead    = 24 * time.Hour
	SaleReminderAge = 6 * 24 * time.Hour
	SaleExpiryAge   = 7 * 24 * time.Hour
)
