package domain

// BookingView is a booking as returned to API callers.
type BookingView struct {
	*Booking
	CommissionCents int64 `json:"commission_cents"`
}

type SaleView struct {
	*Sale
	CommissionCents int64 `json:"commission_cents"`
}
