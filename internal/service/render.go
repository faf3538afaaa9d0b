package service

import (
	"fmt"
	"strings"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/utils"
)

// RenderIntent produces the plain-text subject and body for an intent.
func RenderIntent(intent domain.Intent) (string, string) {
	var b strings.Builder
	var subject string

	switch p := intent.Payload.(type) {
	case domain.BookingStartReminder:
		subject = fmt.Sprintf("Booking %s starts on %s", p.Reference, utils.FormatDate(p.StartDate))
		fmt.Fprintf(&b, "Booking %s (%s) is due to start within 24 hours.\n\n", p.Reference, p.Status)
		writeBookingDetails(&b, p.BookingDetails)
	case domain.BookingPendingReminder:
		subject = fmt.Sprintf("Booking %s is still pending", p.Reference)
		fmt.Fprintf(&b, "Booking %s is still pending and ends on %s. It will be cancelled automatically if it is not paid by then.\n\n",
			p.Reference, utils.FormatDate(p.EndDate))
		writeBookingDetails(&b, p.BookingDetails)
	case domain.BookingCancelled:
		subject = fmt.Sprintf("Booking %s was cancelled", p.Reference)
		fmt.Fprintf(&b, "Booking %s was cancelled automatically on %s because it was not paid before its end date.\n\n",
			p.Reference, utils.FormatDate(p.CancelledAt))
		writeBookingDetails(&b, p.BookingDetails)
	case domain.BookingCompleted:
		subject = fmt.Sprintf("Booking %s was completed", p.Reference)
		fmt.Fprintf(&b, "Booking %s was completed on %s.\n\n", p.Reference, utils.FormatDate(p.CompletedAt))
		writeBookingDetails(&b, p.BookingDetails)
	case domain.SalePendingReminder:
		subject = fmt.Sprintf("Sale %s is still pending", p.Reference)
		fmt.Fprintf(&b, "Sale %s is still pending. It will be cancelled automatically on %s.\n\n",
			p.Reference, utils.FormatDate(p.CancelsAt))
		writeSaleDetails(&b, p.SaleDetails)
	case domain.SaleCancelled:
		subject = fmt.Sprintf("Sale %s was cancelled", p.Reference)
		fmt.Fprintf(&b, "Sale %s was cancelled automatically on %s after 7 days without payment.\n\n",
			p.Reference, utils.FormatDate(p.CancelledAt))
		writeSaleDetails(&b, p.SaleDetails)
	default:
		subject = fmt.Sprintf("Transaction %s: %s", intent.TransactionID, intent.Kind)
		fmt.Fprintf(&b, "Event %s for transaction %s.\n", intent.Kind, intent.TransactionID)
	}
	return subject, b.String()
}

func writeBookingDetails(b *strings.Builder, d domain.BookingDetails) {
	fmt.Fprintf(b, "Renter: %s\n", formatParty(d.Renter))
	if len(d.Suppliers) == 0 {
		b.WriteString("Suppliers: admin-owned equipment only\n")
	}
	for _, s := range d.Suppliers {
		fmt.Fprintf(b, "Supplier: %s\n", formatParty(s))
	}
	fmt.Fprintf(b, "Period: %s to %s\n", utils.FormatDate(d.StartDate), utils.FormatDate(d.EndDate))
	b.WriteString("Items:\n")
	for _, item := range d.Items {
		fmt.Fprintf(b, "  - %s (%s): %g %s x %s = %s\n", item.EquipmentName, item.SupplierName,
			item.Usage, item.Unit, utils.FormatCents(item.RateCents), utils.FormatCents(item.SubtotalCents))
	}
	fmt.Fprintf(b, "Total: %s\n", utils.FormatCents(d.TotalPriceCents))
	fmt.Fprintf(b, "Commission: %s\n", utils.FormatCents(d.CommissionCents))
	if d.RenterMessage != "" {
		fmt.Fprintf(b, "Renter message: %s\n", d.RenterMessage)
	}
}

func writeSaleDetails(b *strings.Builder, d domain.SaleDetails) {
	fmt.Fprintf(b, "Buyer: %s\n", formatParty(d.Buyer))
	if d.Supplier != nil {
		fmt.Fprintf(b, "Supplier: %s\n", formatParty(*d.Supplier))
	} else {
		b.WriteString("Supplier: admin-owned equipment\n")
	}
	fmt.Fprintf(b, "Equipment: %s\n", d.EquipmentName)
	fmt.Fprintf(b, "Price: %s\n", utils.FormatCents(d.SalePriceCents))
	fmt.Fprintf(b, "Commission: %s\n", utils.FormatCents(d.CommissionCents))
	fmt.Fprintf(b, "Created: %s\n", utils.FormatDate(d.CreatedAt))
	if d.BuyerMessage != "" {
		fmt.Fprintf(b, "Buyer message: %s\n", d.BuyerMessage)
	}
}

func formatParty(p domain.Party) string {
	out := p.Name
	if out == "" {
		out = p.ID
	}
	if p.Email != "" {
		out += " <" + p.Email + ">"
	}
	if p.Phone != "" {
		out += ", " + p.Phone
	}
	return out
}

// intentAttributes are the outbox attributes that let admins find an intent again.
func intentAttributes(intent domain.Intent) map[string]string {
	attrs := map[string]string{
		"type":           string(intent.Kind),
		"transaction_id": intent.TransactionID,
	}
	switch p := intent.Payload.(type) {
	case domain.BookingStartReminder:
		attrs["reference"] = p.Reference
	case domain.BookingPendingReminder:
		attrs["reference"] = p.Reference
	case domain.BookingCancelled:
		attrs["reference"] = p.Reference
	case domain.BookingCompleted:
		attrs["reference"] = p.Reference
	case domain.SalePendingReminder:
		attrs["reference"] = p.Reference
	case domain.SaleCancelled:
		attrs["reference"] = p.Reference
	}
	return attrs
}
