package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/jobs"
	"equiprent-backend/internal/repository/memory"
	"equiprent-backend/internal/security"
	"equiprent-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *memory.Store
	router http.Handler
	tokens security.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	store.PutBooking(domain.Booking{
		Transaction: domain.Transaction{ID: "b1", Reference: "BK-1", Status: domain.StatusPending, CreatedAt: testNow.Add(-48 * time.Hour)},
		RenterID:    "r1",
		StartDate:   testNow.Add(24 * time.Hour),
		EndDate:     testNow.Add(72 * time.Hour),
		Items:       []domain.BookingItem{{EquipmentID: "e1", SupplierID: "s1", RateCents: 10000, Usage: 600, SubtotalCents: 6000000}},
	})
	store.PutSale(domain.Sale{
		Transaction:    domain.Transaction{ID: "s1", Reference: "SL-1", Status: domain.StatusPending, CreatedAt: testNow.Add(-8 * 24 * time.Hour)},
		BuyerID:        "r1",
		SupplierID:     "s1",
		SalePriceCents: 1234567,
	})

	queue := service.NewNotificationQueue(store.Notifications, service.NewLogDeliverer(), 1, 100, 0)
	runner := jobs.NewJobRunner(jobs.Repositories{Bookings: store.Bookings, Sales: store.Sales, Users: store.Users},
		queue, nil, jobs.Options{AdminEmail: "ops@example.com", Workers: 2, CallTimeout: time.Second})
	lifecycle := service.NewLifecycleService(store.Bookings, store.Sales, store.Notifications)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", "equiprent", time.Hour)

	return &testEnv{store: store, router: NewHandler(lifecycle, runner, tokens).Router(), tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, actor *domain.Actor, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		token, err := e.tokens.GenerateAccessToken(actor.UserID, actor.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

var (
	adminActor    = &domain.Actor{UserID: "a1", Role: domain.UserRoleAdmin}
	renterActor   = &domain.Actor{UserID: "r1", Role: domain.UserRoleRenter}
	supplierActor = &domain.Actor{UserID: "s1", Role: domain.UserRoleSupplier}
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRequestTransition(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/b1/status", supplierActor, transitionRequest{Status: "paid", Notes: "cash"})
		require.Equal(t, http.StatusOK, rec.Code)

		var txn domain.Transaction
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&txn))
		assert.Equal(t, domain.StatusPaid, txn.Status)
		assert.Equal(t, "cash", txn.StatusNote)

		stored, _ := env.store.Bookings.GetByID(context.Background(), "b1")
		assert.Equal(t, domain.StatusPaid, stored.Status)
		// Manual transitions are silent.
		notes, _ := env.store.Notifications.ListByTransaction(context.Background(), "b1")
		assert.Empty(t, notes)
	})

	t.Run("Invalid transition", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/b1/status", adminActor, transitionRequest{Status: "completed"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_transition", decodeError(t, rec).Error)
	})

	t.Run("Unknown status", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/sales/s1/status", adminActor, transitionRequest{Status: "shipped"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/b1/status", renterActor, transitionRequest{Status: "paid"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/sales/nope/status", adminActor, transitionRequest{Status: "paid"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Missing token", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/bookings/b1/status", nil, transitionRequest{Status: "paid"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		token, _ := env.tokens.GenerateAccessToken("a1", domain.UserRoleAdmin)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/b1/status", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClassify(t *testing.T) {
	status, code, message := classify(domain.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", code)
	assert.Contains(t, message, "please retry")

	status, _, message = classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", message)
}

func TestGetViews(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/bookings/b1", renterActor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var booking map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&booking))
	assert.Equal(t, "BK-1", booking["reference"])
	// 600 units falls in the 9% tier.
	assert.Equal(t, float64(540000), booking["commission_cents"])

	rec = env.do(t, http.MethodGet, "/api/v1/sales/s1", supplierActor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sale map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sale))
	assert.Equal(t, float64(61728), sale["commission_cents"])
}

func TestRunSweep(t *testing.T) {
	t.Run("Admin only", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/admin/sweep", supplierActor, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Runs against the given instant", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/admin/sweep?now="+testNow.Format(time.RFC3339), adminActor, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var summary domain.SweepSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
		assert.Equal(t, 1, summary.Sales.Cancelled)
		assert.Equal(t, 1, summary.Bookings.StartReminders)

		notes := env.do(t, http.MethodGet, "/api/v1/sales/s1/notifications", adminActor, nil)
		require.Equal(t, http.StatusOK, notes.Code)
		var listed struct {
			Notifications []domain.Notification `json:"notifications"`
		}
		require.NoError(t, json.NewDecoder(notes.Body).Decode(&listed))
		require.Len(t, listed.Notifications, 1)
		assert.Equal(t, domain.EventSaleCancelled, listed.Notifications[0].Kind)

		health := env.do(t, http.MethodGet, "/healthz", nil, nil)
		require.Equal(t, http.StatusOK, health.Code)
		assert.Contains(t, health.Body.String(), `"last_sweep"`)
	})

	t.Run("Bad instant", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/admin/sweep?now=yesterday", adminActor, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
