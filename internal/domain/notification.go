package domain

import "time"

type EventKind string

const (
	EventBookingStartReminder   EventKind = "booking-start-reminder"
	EventBookingPendingReminder EventKind = "booking-pending-reminder"
	EventBookingCancelled       EventKind = "booking-cancelled"
	EventBookingCompleted       EventKind = "booking-completed"
	EventSalePendingReminder    EventKind = "sale-pending-reminder"
	EventSaleCancelled          EventKind = "sale-cancelled"
)

// Payload is implemented by exactly one struct per event kind. The JSON shape of
// each struct is what mail templates and queue consumers bind to.
type Payload interface {
	EventKind() EventKind
}

type ItemLine struct {
	EquipmentName string    `json:"equipment_name"`
	SupplierName  string    `json:"supplier_name"`
	Usage         float64   `json:"usage"`
	Unit          UsageUnit `json:"unit"`
	RateCents     int64     `json:"rate_cents"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

type BookingDetails struct {
	Reference       string     `json:"reference"`
	Renter          Party      `json:"renter"`
	Suppliers       []Party    `json:"suppliers"`
	Items           []ItemLine `json:"items"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	TotalPriceCents int64      `json:"total_price_cents"`
	CommissionCents int64      `json:"commission_cents"`
	RenterMessage   string     `json:"renter_message,omitempty"`
}

type BookingStartReminder struct {
	BookingDetails
	Status Status `json:"status"`
}

type BookingPendingReminder struct {
	BookingDetails
}

type BookingCancelled struct {
	BookingDetails
	CancelledAt time.Time `json:"cancelled_at"`
}

type BookingCompleted struct {
	BookingDetails
	CompletedAt time.Time `json:"completed_at"`
}

type SaleDetails struct {
	Reference       string    `json:"reference"`
	Buyer           Party     `json:"buyer"`
	Supplier        *Party    `json:"supplier,omitempty"`
	EquipmentName   string    `json:"equipment_name"`
	SalePriceCents  int64     `json:"sale_price_cents"`
	CommissionCents int64     `json:"commission_cents"`
	CreatedAt       time.Time `json:"created_at"`
	BuyerMessage    string    `json:"buyer_message,omitempty"`
}

type SalePendingReminder struct {
	SaleDetails
	CancelsAt time.Time `json:"cancels_at"`
}

type SaleCancelled struct {
	SaleDetails
	CancelledAt time.Time `json:"cancelled_at"`
}

func (BookingStartReminder) EventKind() EventKind   { return EventBookingStartReminder }
func (BookingPendingReminder) EventKind() EventKind { return EventBookingPendingReminder }
func (BookingCancelled) EventKind() EventKind       { return EventBookingCancelled }
func (BookingCompleted) EventKind() EventKind       { return EventBookingCompleted }
func (SalePendingReminder) EventKind() EventKind    { return EventSalePendingReminder }
func (SaleCancelled) EventKind() EventKind          { return EventSaleCancelled }

// Intent is one notification handed to the mailer.
type Intent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	Recipient     string    `json:"recipient"`
	TransactionID string    `json:"transaction_id"`
	Payload       Payload   `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewIntent(recipient, transactionID string, payload Payload, at time.Time) Intent {
	return Intent{
		Kind:          payload.EventKind(),
		Recipient:     recipient,
		TransactionID: transactionID,
		Payload:       payload,
		CreatedAt:     at.UTC(),
	}
}

// Notification is the outbox row kept for every emitted intent.
type Notification struct {
	ID            int64             `json:"id"`
	IntentID      string            `json:"intent_id"`
	Kind          EventKind         `json:"kind"`
	Recipient     string            `json:"recipient"`
	TransactionID string            `json:"transaction_id"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	Attributes    map[string]string `json:"attributes"`
	CreatedOn     time.Time         `json:"created_on"`
}
