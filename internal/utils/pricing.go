package utils

import "equiprent-backend/internal/domain"

// Commission rates in basis points (1/100 of a percent).
const (
	StandardCommissionBps = 1000
	Tier500CommissionBps  = 900
	Tier1000CommissionBps = 800
	SaleCommissionBps     = 500

	bpsDenominator = 10000
)

// Usage breakpoints for the booking commission tiers.
const (
	Tier500Usage  = 500
	Tier1000Usage = 1000
)

// CommissionRate returns the booking item commission rate for a usage amount.
// The rate only steps down as usage grows: 10% below 500 units, 9% from 500, 8% from 1000.
func CommissionRate(usage float64) int64 {
	switch {
	case usage >= Tier1000Usage:
		return Tier1000CommissionBps
	case usage >= Tier500Usage:
		return Tier500CommissionBps
	default:
		return StandardCommissionBps
	}
}

// applyBps multiplies cents by a basis-point rate and rounds half up to the cent.
// Integer arithmetic keeps the result exact for every amount we can store.
func applyBps(cents, bps int64) int64 {
	if cents <= 0 {
		return 0
	}
	return (cents*bps + bpsDenominator/2) / bpsDenominator
}

// BookingItemCommission is subtotal × CommissionRate(usage), in cents.
func BookingItemCommission(subtotalCents int64, usage float64) int64 {
	return applyBps(subtotalCents, CommissionRate(usage))
}

// BookingCommission sums the commission of every supplier-owned item.
// Admin-owned items pay nothing.
func BookingCommission(b *domain.Booking) int64 {
	var total int64
	for _, item := range b.Items {
		if item.AdminOwned() {
			continue
		}
		total += BookingItemCommission(item.SubtotalCents, item.Usage)
	}
	return total
}

// SaleCommission is a flat 5% of the sale price, zero for admin-owned equipment.
func SaleCommission(s *domain.Sale) int64 {
	if s.AdminOwned() {
		return 0
	}
	return SalePriceCommission(s.SalePriceCents)
}

func SalePriceCommission(priceCents int64) int64 {
	return applyBps(priceCents, SaleCommissionBps)
}
