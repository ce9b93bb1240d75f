package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/app"
	"tutorbook/internal/app/auth"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
	"tutorbook/internal/infra/config"
	"tutorbook/internal/infra/obs"
	"tutorbook/internal/infra/storage/memory"
)

type meetings struct{}

func (meetings) Reference(_ context.Context, b *domainbooking.Booking) (string, error) {
	return "https://meet.test/" + string(b.ID), nil
}

type testServer struct {
	router  *gin.Engine
	payouts *memory.PayoutDirectory
	rates   *memory.RateCard
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	payouts := memory.NewPayoutDirectory()
	rates := memory.NewRateCard(money.Must(2000, "EUR"))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	application := app.New(app.Deps{
		UoWFactory:  memory.Factory{SlotsRepo: memory.NewSlotRepository(), BookingsRepo: memory.NewBookingRepository()},
		Locker:      memory.NewKeyedLocker(),
		Idempotency: memory.NewIdempotencyStore(),
		Pricing:     rates,
		Payouts:     payouts,
		Meetings:    meetings{},
		Now:         func() time.Time { return now },
		Currency:    "EUR",
	})
	h := Handlers{
		Availability: AvailabilityHandler{Commands: application.Commands, Queries: application.Queries},
		Booking:      BookingHandler{Commands: application.Commands, Queries: application.Queries},
		Stats:        StatsHandler{Queries: application.Queries},
		RateLimiter:  limiter,
	}
	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, h)
	return &testServer{router: router, payouts: payouts, rates: rates}
}

func (s *testServer) do(t *testing.T, method, path, principal string, role auth.Role, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set(HeaderPrincipalID, principal)
		req.Header.Set(HeaderPrincipalRole, string(role))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRouter_OverlapReportsConflict(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/provider/slots", "p1", auth.RoleProvider, addSlotRequest{Date: "2025-03-10", Start: "09:00", End: "10:00"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[struct {
		ID string `json:"id"`
	}](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/provider/slots", "p1", auth.RoleProvider, addSlotRequest{Date: "2025-03-10", Start: "09:30", End: "10:30"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	body := decode[errorBody](t, w)
	if body.Code != "overlap" || body.Conflict == nil || body.Conflict.SlotID != first.ID {
		t.Fatalf("conflict must name %s, got %+v", first.ID, body)
	}
}

func TestRouter_BookingFlow(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/provider/slots", "p1", auth.RoleProvider, addSlotRequest{Date: "2025-03-10", Start: "09:00", End: "10:00"})
	slot := decode[struct {
		ID string `json:"id"`
	}](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "s1", auth.RoleConsumer, requestBookingRequest{SlotID: slot.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	booking := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, w)
	if booking.Status != "pending" {
		t.Fatalf("expected pending, got %s", booking.Status)
	}

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "s2", auth.RoleConsumer, requestBookingRequest{SlotID: slot.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("second request must conflict, got %d", w.Code)
	}

	confirm := "/api/v1/provider/bookings/" + booking.ID + "/confirm"
	w = s.do(t, http.MethodPost, confirm, "p1", auth.RoleProvider, nil)
	if w.Code != http.StatusUnprocessableEntity || decode[errorBody](t, w).Code != "payout_not_ready" {
		t.Fatalf("expected 422 payout_not_ready, got %d: %s", w.Code, w.Body.String())
	}

	s.payouts.SetReady("p1", true)
	w = s.do(t, http.MethodPost, confirm, "p2", auth.RoleProvider, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("another provider must be forbidden, got %d", w.Code)
	}
	w = s.do(t, http.MethodPost, confirm, "p1", auth.RoleProvider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/bookings/"+booking.ID, "s1", auth.RoleConsumer, nil)
	got := decode[struct {
		Status  string `json:"status"`
		Meeting string `json:"meeting_reference"`
	}](t, w)
	if got.Status != "confirmed" || got.Meeting == "" {
		t.Fatalf("expected confirmed booking with a meeting link, got %+v", got)
	}
}

func TestRouter_BookingPriceComesFromRateCard(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/provider/slots", "p1", auth.RoleProvider, addSlotRequest{Date: "2025-03-10", Start: "09:00", End: "10:00"})
	slot := decode[struct {
		ID string `json:"id"`
	}](t, w)

	body := map[string]any{
		"slot_id": slot.ID,
		"price":   map[string]any{"amount": 0, "currency": "EUR"},
	}
	w = s.do(t, http.MethodPost, "/api/v1/bookings", "s1", auth.RoleConsumer, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	booking := decode[struct {
		ID    string `json:"id"`
		Price struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"price"`
	}](t, w)
	if booking.Price.Amount != 2000 || booking.Price.Currency != "EUR" {
		t.Fatalf("a price in the body must be ignored, got %+v", booking.Price)
	}

	w = s.do(t, http.MethodPost, "/api/v1/provider/bookings/"+booking.ID+"/confirm", "p1", auth.RoleProvider, nil)
	if w.Code != http.StatusUnprocessableEntity || decode[errorBody](t, w).Code != "payout_not_ready" {
		t.Fatalf("payout gate must still apply, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_ForeignCurrencyRejected(t *testing.T) {
	s := newTestServer(t, nil)
	s.rates.SetRate("p9", money.Must(2000, "USD"))
	w := s.do(t, http.MethodPost, "/api/v1/provider/slots", "p9", auth.RoleProvider, addSlotRequest{Date: "2025-03-10", Start: "09:00", End: "10:00"})
	slot := decode[struct {
		ID string `json:"id"`
	}](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "s1", auth.RoleConsumer, requestBookingRequest{SlotID: slot.ID})
	if w.Code != http.StatusUnprocessableEntity || decode[errorBody](t, w).Code != "foreign_currency" {
		t.Fatalf("expected 422 foreign_currency, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/provider/stats?window=all", "p9", auth.RoleProvider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats must stay readable, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_AuthErrors(t *testing.T) {
	s := newTestServer(t, nil)
	cases := []struct {
		name      string
		method    string
		path      string
		principal string
		role      auth.Role
		want      int
	}{
		{"anonymous write", http.MethodPost, "/api/v1/provider/slots", "", "", http.StatusUnauthorized},
		{"consumer on provider route", http.MethodPost, "/api/v1/provider/slots", "s1", auth.RoleConsumer, http.StatusForbidden},
		{"system role from header", http.MethodGet, "/api/v1/me/bookings", "cron", auth.RoleSystem, http.StatusForbidden},
		{"unknown role", http.MethodGet, "/api/v1/me/bookings", "s1", auth.Role("admin"), http.StatusForbidden},
		{"missing booking", http.MethodGet, "/api/v1/bookings/nope", "s1", auth.RoleConsumer, http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/v1/providers/p1/slots?from=tomorrow", "", "", http.StatusBadRequest},
		{"public calendar", http.MethodGet, "/api/v1/providers/p1/slots?from=2025-03-10", "", "", http.StatusOK},
	}
	for _, tc := range cases {
		w := s.do(t, tc.method, tc.path, tc.principal, tc.role, addSlotRequest{Date: "2025-03-10", Start: "09:00", End: "10:00"})
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestRouter_RateLimited(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(0.001, 2))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodGet, "/api/v1/providers/p1/slots?from=2025-03-10", "", "", nil)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected burst of two then 429, got %v", codes)
	}
}

func TestClassify_UnknownIsInternal(t *testing.T) {
	status, body := classify(context.DeadlineExceeded)
	if status != http.StatusInternalServerError || body.Error != "internal error" {
		t.Fatalf("unknown errors must not leak, got %d %+v", status, body)
	}
}
