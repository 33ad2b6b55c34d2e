package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestReadyz_AllPassing(t *testing.T) {
	t.Parallel()

	h := New([]Checker{
		{Name: "store", Check: func(context.Context) error { return nil }},
		{Name: "source", Check: func(context.Context) error { return nil }},
	})
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"store":"ok"`) {
		t.Errorf("body missing passing store check: %s", rec.Body.String())
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	t.Parallel()

	h := New([]Checker{
		{Name: "store", Check: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "source", Check: func(context.Context) error { return nil }},
	})
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"fail"`) {
		t.Errorf("body missing fail status: %s", body)
	}
	if !strings.Contains(body, "connection refused") {
		t.Errorf("body missing failure detail: %s", body)
	}
	if !strings.Contains(body, `"source":"ok"`) {
		t.Errorf("remaining checks must still be reported: %s", body)
	}
}

func TestRegister_Routes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(nil).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
