package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/utils"

	"golang.org/x/sync/errgroup"
)

const (
	noteAutoCancelBooking = "cancelled automatically: not paid by the end date"
	noteAutoCancelSale    = "cancelled automatically: not paid within 7 days"
	noteAutoComplete      = "completed automatically: end date reached"
)

type outcome int

const (
	outcomeApplied outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RunLifecycleSweep is the cron entry point for the lifecycle sweep
func (jr *JobRunner) RunLifecycleSweep() {
	jr.runWithRecovery("LifecycleSweep", func() {
		summary, err := jr.Sweep(context.Background(), jr.now())
		if errors.Is(err, domain.ErrSweepInProgress) {
			logger.Warn("Lifecycle sweep skipped, another sweep is running")
			return
		}
		if err != nil {
			logger.Error("Lifecycle sweep failed", "error", err)
			return
		}
		logSweep(summary)
	})
}

func logSweep(summary *domain.SweepSummary) {
	logger.Info("Lifecycle sweep finished",
		"bookingsCompleted", summary.Bookings.Completed,
		"bookingsCancelled", summary.Bookings.Cancelled,
		"bookingReminders", summary.Bookings.Reminders,
		"bookingStartReminders", summary.Bookings.StartReminders,
		"salesCancelled", summary.Sales.Cancelled,
		"saleReminders", summary.Sales.Reminders,
		"failed", summary.Failed(),
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
}

// Sweep runs the six lifecycle passes in order against the given instant.
// Record-level problems are counted in the summary; the returned error is only
// set when the sweep could not run at all.
func (jr *JobRunner) Sweep(ctx context.Context, now time.Time) (*domain.SweepSummary, error) {
	if !jr.sweepMu.TryLock() {
		return nil, domain.ErrSweepInProgress
	}
	defer jr.sweepMu.Unlock()

	if jr.lock != nil {
		lockCtx, cancel := jr.callCtx(ctx)
		token, ok, err := jr.lock.Acquire(lockCtx, jr.opts.LockTTL)
		cancel()
		if err != nil {
			jr.record(nil, err)
			return nil, err
		}
		if !ok {
			return nil, domain.ErrSweepInProgress
		}
		defer func() {
			releaseCtx, cancel := jr.callCtx(context.Background())
			defer cancel()
			if err := jr.lock.Release(releaseCtx, token); err != nil {
				logger.Error("Failed to release sweep lock", "error", err)
			}
		}()
	}

	now = now.UTC()
	summary := &domain.SweepSummary{Now: now, StartedAt: jr.now().UTC()}

	summary.Add(runPass(ctx, jr, domain.PassBookingStartReminders, jr.repos.Bookings.ListDueForStartReminder, now, jr.remindBookingStart))
	summary.Add(runPass(ctx, jr, domain.PassBookingPendingReminders, jr.repos.Bookings.ListDueForPendingReminder, now, jr.remindBookingPending))
	summary.Add(runPass(ctx, jr, domain.PassBookingCancellation, jr.repos.Bookings.ListDueForCancellation, now, jr.cancelBooking))
	summary.Add(runPass(ctx, jr, domain.PassBookingCompletion, jr.repos.Bookings.ListDueForCompletion, now, jr.completeBooking))
	summary.Add(runPass(ctx, jr, domain.PassSaleReminders, jr.repos.Sales.ListDueForReminder, now, jr.remindSale))
	summary.Add(runPass(ctx, jr, domain.PassSaleCancellation, jr.repos.Sales.ListDueForCancellation, now, jr.cancelSale))

	summary.FinishedAt = jr.now().UTC()
	jr.record(summary, nil)
	return summary, nil
}

// runPass lists the due records and processes each one on the worker pool. A
// listing failure fails only this pass.
func runPass[T any](
	ctx context.Context,
	jr *JobRunner,
	pass domain.PassName,
	list func(context.Context, time.Time) ([]T, error),
	now time.Time,
	process func(context.Context, time.Time, *T) outcome,
) domain.PassResult {
	result := domain.PassResult{Pass: pass}
	log := logger.WithJob("LifecycleSweep").With("pass", pass)

	listCtx, cancel := jr.callCtx(ctx)
	records, err := list(listCtx, now)
	cancel()
	if err != nil {
		log.Error("Pass query failed", "error", err)
		result.Error = err.Error()
		return result
	}
	result.Scanned = len(records)

	outcomes := make([]outcome, len(records))
	var g errgroup.Group
	g.SetLimit(jr.opts.Workers)
	for i := range records {
		g.Go(func() error {
			outcomes[i] = protect(pass, func() outcome { return process(ctx, now, &records[i]) })
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch o {
		case outcomeApplied:
			result.Affected++
		case outcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}
	log.Debug("Pass finished", "scanned", result.Scanned, "affected", result.Affected,
		"skipped", result.Skipped, "failed", result.Failed)
	return result
}

// protect turns a panic while processing one record into a failed outcome.
func protect(pass domain.PassName, fn func() outcome) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Record processing panicked", "pass", pass, "panic", r)
			o = outcomeFailed
		}
	}()
	return fn()
}

func (jr *JobRunner) remindBookingStart(ctx context.Context, now time.Time, b *domain.Booking) outcome {
	payload := domain.BookingStartReminder{BookingDetails: jr.bookingDetails(ctx, b), Status: b.Status}
	if err := jr.emit(ctx, b.ID, payload, now); err != nil {
		return outcomeFailed
	}
	return outcomeApplied
}

func (jr *JobRunner) remindBookingPending(ctx context.Context, now time.Time, b *domain.Booking) outcome {
	payload := domain.BookingPendingReminder{BookingDetails: jr.bookingDetails(ctx, b)}
	if err := jr.emit(ctx, b.ID, payload, now); err != nil {
		return outcomeFailed
	}
	return outcomeApplied
}

func (jr *JobRunner) cancelBooking(ctx context.Context, now time.Time, b *domain.Booking) outcome {
	if !b.DueForCancellation(now) {
		return outcomeSkipped
	}
	o := jr.transition(ctx, domain.KindBooking, &b.Transaction, domain.StatusCancelled, now, noteAutoCancelBooking, jr.repos.Bookings.UpdateStatus)
	if o != outcomeApplied {
		return o
	}

	payload := domain.BookingCancelled{BookingDetails: jr.bookingDetails(ctx, b), CancelledAt: now}
	_ = jr.emit(ctx, b.ID, payload, now)
	return outcomeApplied
}

// completeBooking finishes a paid booking whose end date has passed. No
// notification is sent for completion.
func (jr *JobRunner) completeBooking(ctx context.Context, now time.Time, b *domain.Booking) outcome {
	if !b.DueForCompletion(now) {
		return outcomeSkipped
	}
	return jr.transition(ctx, domain.KindBooking, &b.Transaction, domain.StatusCompleted, now, noteAutoComplete, jr.repos.Bookings.UpdateStatus)
}

func (jr *JobRunner) remindSale(ctx context.Context, now time.Time, s *domain.Sale) outcome {
	payload := domain.SalePendingReminder{SaleDetails: jr.saleDetails(ctx, s), CancelsAt: s.CreatedAt.Add(domain.SaleExpiryAge).UTC()}
	if err := jr.emit(ctx, s.ID, payload, now); err != nil {
		return outcomeFailed
	}
	return outcomeApplied
}

func (jr *JobRunner) cancelSale(ctx context.Context, now time.Time, s *domain.Sale) outcome {
	if !s.DueForCancellation(now) {
		return outcomeSkipped
	}
	o := jr.transition(ctx, domain.KindSale, &s.Transaction, domain.StatusCancelled, now, noteAutoCancelSale, jr.repos.Sales.UpdateStatus)
	if o != outcomeApplied {
		return o
	}

	payload := domain.SaleCancelled{SaleDetails: jr.saleDetails(ctx, s), CancelledAt: now}
	_ = jr.emit(ctx, s.ID, payload, now)
	return outcomeApplied
}

// transition validates and writes one automatic status change. A denial or a
// lost race is a silent skip; any other write error leaves the record for the
// next sweep.
func (jr *JobRunner) transition(
	ctx context.Context,
	kind domain.Kind,
	t *domain.Transaction,
	to domain.Status,
	now time.Time,
	note string,
	write func(context.Context, string, domain.StatusChange) error,
) outcome {
	log := logger.WithTransaction(string(kind), t.ID)
	if !domain.IsValidTransition(t.Status, to) {
		log.Debug("Automatic transition not allowed, skipping", "from", t.Status, "to", to)
		return outcomeSkipped
	}

	change := domain.NewStatusChange(t.Status, to, now, note)
	writeCtx, cancel := jr.callCtx(ctx)
	err := write(writeCtx, t.ID, change)
	cancel()
	switch {
	case err == nil:
		t.Apply(change)
		log.Info("Automatic status transition applied", "from", change.From, "to", change.To)
		return outcomeApplied
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound):
		log.Debug("Status moved before automatic transition, skipping", "from", change.From, "to", change.To, "reason", err)
		return outcomeSkipped
	default:
		log.Error("Failed to write automatic status transition", "from", change.From, "to", change.To, "error", err)
		return outcomeFailed
	}
}

// emit hands one intent to the notifier. Failures are logged and returned; they
// never undo a status change that has already been written.
func (jr *JobRunner) emit(ctx context.Context, transactionID string, payload domain.Payload, now time.Time) error {
	intent := domain.NewIntent(jr.opts.AdminEmail, transactionID, payload, now)
	emitCtx, cancel := jr.callCtx(ctx)
	defer cancel()
	if err := jr.notifier.Emit(emitCtx, intent); err != nil {
		logger.Error("Failed to emit notification",
			"kind", intent.Kind, "transactionID", transactionID, "error", err)
		return fmt.Errorf("emit %s for %s: %w", intent.Kind, transactionID, err)
	}
	return nil
}

// party resolves a user for a payload. A failed lookup degrades to the bare id.
func (jr *JobRunner) party(ctx context.Context, id string, cache map[string]domain.Party) domain.Party {
	if p, ok := cache[id]; ok {
		return p
	}
	lookupCtx, cancel := jr.callCtx(ctx)
	defer cancel()

	p := domain.Party{ID: id}
	u, err := jr.repos.Users.GetByID(lookupCtx, id)
	if err != nil {
		logger.Warn("User lookup failed, sending id only", "userID", id, "error", err)
	} else {
		p = u.Party()
	}
	cache[id] = p
	return p
}

func (jr *JobRunner) bookingDetails(ctx context.Context, b *domain.Booking) domain.BookingDetails {
	cache := make(map[string]domain.Party)
	d := domain.BookingDetails{
		Reference:       b.Reference,
		Renter:          jr.party(ctx, b.RenterID, cache),
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		TotalPriceCents: b.TotalPriceCents,
		CommissionCents: utils.BookingCommission(b),
		RenterMessage:   b.RenterMessage,
	}
	for _, id := range b.SupplierIDs() {
		d.Suppliers = append(d.Suppliers, jr.party(ctx, id, cache))
	}
	for _, item := range b.Items {
		supplierName := "Admin"
		if !item.AdminOwned() {
			supplierName = jr.party(ctx, item.SupplierID, cache).Name
		}
		d.Items = append(d.Items, domain.ItemLine{
			EquipmentName: item.EquipmentName,
			SupplierName:  supplierName,
			Usage:         item.Usage,
			Unit:          item.Unit,
			RateCents:     item.RateCents,
			SubtotalCents: item.SubtotalCents,
		})
	}
	return d
}

func (jr *JobRunner) saleDetails(ctx context.Context, s *domain.Sale) domain.SaleDetails {
	cache := make(map[string]domain.Party)
	d := domain.SaleDetails{
		Reference:       s.Reference,
		Buyer:           jr.party(ctx, s.BuyerID, cache),
		EquipmentName:   s.EquipmentName,
		SalePriceCents:  s.SalePriceCents,
		CommissionCents: utils.SaleCommission(s),
		CreatedAt:       s.CreatedAt,
		BuyerMessage:    s.BuyerMessage,
	}
	if !s.AdminOwned() {
		supplier := jr.party(ctx, s.SupplierID, cache)
		d.Supplier = &supplier
	}
	return d
}
