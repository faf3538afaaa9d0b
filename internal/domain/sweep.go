package domain

import "time"

type PassName string

const (
	PassBookingStartReminders   PassName = "booking-start-reminders"
	PassBookingPendingReminders PassName = "booking-pending-reminders"
	PassBookingCancellation     PassName = "booking-cancellation"
	PassBookingCompletion       PassName = "booking-completion"
	PassSaleReminders           PassName = "sale-reminders"
	PassSaleCancellation        PassName = "sale-cancellation"
)

// PassResult counts what one pass did. Affected is the number of records the pass
// acted on (mutated or notified); Skipped records lost a race or were no longer
// eligible; Failed records hit a persistence error and stay for the next sweep.
type PassResult struct {
	Pass     PassName `json:"pass"`
	Scanned  int      `json:"scanned"`
	Affected int      `json:"affected"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Error    string   `json:"error,omitempty"`
}

type BookingSweepSummary struct {
	Completed      int `json:"completed"`
	Cancelled      int `json:"cancelled"`
	Reminders      int `json:"reminders"`
	StartReminders int `json:"start_reminders"`
}

type SaleSweepSummary struct {
	Cancelled int `json:"cancelled"`
	Reminders int `json:"reminders"`
}

type SweepSummary struct {
	Now        time.Time           `json:"now"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Bookings   BookingSweepSummary `json:"bookings"`
	Sales      SaleSweepSummary    `json:"sales"`
	Passes     []PassResult        `json:"passes"`
}

// Failed reports whether any pass could not run or left failed records behind.
func (s *SweepSummary) Failed() bool {
	for _, p := range s.Passes {
		if p.Error != "" || p.Failed > 0 {
			return true
		}
	}
	return false
}

// Add folds a pass result into the summary counters.
func (s *SweepSummary) Add(p PassResult) {
	s.Passes = append(s.Passes, p)
	switch p.Pass {
	case PassBookingStartReminders:
		s.Bookings.StartReminders += p.Affected
	case PassBookingPendingReminders:
		s.Bookings.Reminders += p.Affected
	case PassBookingCancellation:
		s.Bookings.Cancelled += p.Affected
	case PassBookingCompletion:
		s.Bookings.Completed += p.Affected
	case PassSaleReminders:
		s.Sales.Reminders += p.Affected
	case PassSaleCancellation:
		s.Sales.Cancelled += p.Affected
	}
}
