package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewLogger_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Info("hello", "booking_id", "b1")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q", buf.String())
	}
	if line["booking_id"] != "b1" || line["service"] != "tutorbook" {
		t.Fatalf("unexpected attributes %v", line)
	}

	buf.Reset()
	newLogger(&buf, "dev").Info("hello")
	if !strings.Contains(buf.String(), "hello") || json.Valid(buf.Bytes()) {
		t.Fatalf("expected text output in dev, got %q", buf.String())
	}
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := HealthHandlers{Checks: map[string]Check{"mongo": func(context.Context) error { return nil }}}
	bad := HealthHandlers{Checks: map[string]Check{"redis": func(context.Context) error { return errors.New("down") }}}
	r.GET("/ok", ok.Readyz)
	r.GET("/bad", bad.Readyz)
	r.GET("/livez", bad.Livez)

	for path, want := range map[string]int{"/ok": http.StatusOK, "/bad": http.StatusServiceUnavailable, "/livez": http.StatusOK} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestRequestID_EchoesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware{}.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c.Request.Context()))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "req-1" || w.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("expected request id to be propagated, got %q", w.Body.String())
	}
}
