package domain

import "time"

type Sale struct {
	Transaction
	EquipmentID    string `json:"equipment_id"`
	EquipmentName  string `json:"equipment_name"`
	SalePriceCents int64  `json:"sale_price_cents"`
	BuyerID        string `json:"buyer_id"`
	SupplierID     string `json:"supplier_id"`
	BuyerMessage   string `json:"buyer_message,omitempty"`
}

func (s *Sale) AdminOwned() bool {
	return s.SupplierID == "" || s.SupplierID == AdminSupplierID
}

// DueForReminder is true for a pending sale whose age falls in the single day
// window (6d, 7d] counted back from now, i.e. created in (now-7d, now-6d].
func (s *Sale) DueForReminder(now time.Time) bool {
	if s.Status != StatusPending {
		return false
	}
	return s.CreatedAt.After(now.Add(-SaleExpiryAge)) && !s.CreatedAt.After(now.Add(-SaleReminderAge))
}

func (s *Sale) DueForCancellation(now time.Time) bool {
	return s.Status == StatusPending && !s.CreatedAt.After(now.Add(-SaleExpiryAge))
}
