package domain

import (
	"fmt"
	"time"
)

type UsageUnit string

const (
	UsageUnitHours UsageUnit = "hours"
	UsageUnitDays  UsageUnit = "days"
	UsageUnitKm    UsageUnit = "km"
	UsageUnitTons  UsageUnit = "tons"
)

func ParseUsageUnit(s string) (UsageUnit, error) {
	switch u := UsageUnit(s); u {
	case UsageUnitHours, UsageUnitDays, UsageUnitKm, UsageUnitTons:
		return u, nil
	default:
		return "", fmt.Errorf("%w: unknown usage unit %q", ErrInvalidInput, s)
	}
}

type BookingItem struct {
	EquipmentID   string    `json:"equipment_id"`
	EquipmentName string    `json:"equipment_name"`
	SupplierID    string    `json:"supplier_id"`
	RateCents     int64     `json:"rate_cents"`
	Usage         float64   `json:"usage"`
	Unit          UsageUnit `json:"unit"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

func (i BookingItem) AdminOwned() bool {
	return i.SupplierID == "" || i.SupplierID == AdminSupplierID
}

type Booking struct {
	Transaction
	RenterID        string        `json:"renter_id"`
	Items           []BookingItem `json:"items"`
	TotalPriceCents int64         `json:"total_price_cents"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"`
	RenterMessage   string        `json:"renter_message,omitempty"`
	AdminMessage    string        `json:"admin_message,omitempty"`
}

// SupplierIDs returns the distinct third-party suppliers across the items,
// in first-seen order. Admin-owned items contribute nothing.
func (b *Booking) SupplierIDs() []string {
	seen := make(map[string]struct{}, len(b.Items))
	var ids []string
	for _, item := range b.Items {
		if item.AdminOwned() {
			continue
		}
		if _, ok := seen[item.SupplierID]; ok {
			continue
		}
		seen[item.SupplierID] = struct{}{}
		ids = append(ids, item.SupplierID)
	}
	return ids
}

// HasSupplier reports whether any item of the booking belongs to supplierID.
func (b *Booking) HasSupplier(supplierID string) bool {
	for _, id := range b.SupplierIDs() {
		if id == supplierID {
			return true
		}
	}
	return false
}

func (b *Booking) DueForStartReminder(now time.Time) bool {
	if b.Status != StatusPending && b.Status != StatusPaid {
		return false
	}
	return b.StartDate.After(now) && !b.StartDate.After(now.Add(ReminderLead))
}

func (b *Booking) DueForPendingReminder(now time.Time) bool {
	return b.Status == StatusPending && b.EndDate.After(now) && !b.EndDate.After(now.Add(ReminderLead))
}

func (b *Booking) DueForCancellation(now time.Time) bool {
	return b.Status == StatusPending && !b.EndDate.After(now)
}

func (b *Booking) DueForCompletion(now time.Time) bool {
	return b.Status == StatusPaid && !b.EndDate.After(now)
}
