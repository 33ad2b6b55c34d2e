package gateway

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

func TestListUnits(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t,
		practice.Unit{ID: "u1", Title: "First", Sentences: []string{"a"}},
		practice.Unit{ID: "u2", Title: "Second", Sentences: []string{"b"}},
	)

	resp, err := http.Get(srv.URL + "/units")
	if err != nil {
		t.Fatalf("GET /units: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var units []practice.Unit
	if err := json.NewDecoder(resp.Body).Decode(&units); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(units) != 2 {
		t.Errorf("units = %d, want 2", len(units))
	}
}

func TestGetUnit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, practice.Unit{ID: "u1", Title: "First", Sentences: []string{"a"}})

	resp, err := http.Get(srv.URL + "/units/u1")
	if err != nil {
		t.Fatalf("GET /units/u1: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var unit practice.Unit
	if err := json.NewDecoder(resp.Body).Decode(&unit); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if unit.Title != "First" {
		t.Errorf("title = %q, want First", unit.Title)
	}

	missing, err := http.Get(srv.URL + "/units/nope")
	if err != nil {
		t.Fatalf("GET /units/nope: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing unit status = %d, want 404", missing.StatusCode)
	}
}
