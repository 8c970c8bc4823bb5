package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/printwatch/printwatch/internal/config"
)

const exposition = `# HELP printer_up Whether the printer responds.
# TYPE printer_up gauge
printer_up 1
# HELP toner_level_pct Remaining toner per cartridge.
# TYPE toner_level_pct gauge
toner_level_pct{cartridge="black"} 8
toner_level_pct{cartridge="cyan"} 55
# TYPE printer_pages_total counter
printer_pages_total 123456
`

func TestSample_ParsesExposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exposition))
	}))
	defer srv.Close()

	s := newScraper(config.Printer{ID: "p1", Endpoint: srv.URL})
	sample, err := s.sample(context.Background())
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	if got := sample["printer_up"]; got != 1 {
		t.Errorf("printer_up: got %v, want 1", got)
	}
	// Label sets are summed into one value per family.
	if got := sample["toner_level_pct"]; got != 63 {
		t.Errorf("toner_level_pct: got %v, want 63", got)
	}
	if got := sample["printer_pages_total"]; got != 123456 {
		t.Errorf("printer_pages_total: got %v, want 123456", got)
	}
}

func TestSample_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newScraper(config.Printer{ID: "p1", Endpoint: srv.URL})
	if _, err := s.sample(context.Background()); err == nil {
		t.Fatal("sample: expected error on HTTP 503, got nil")
	}
}

func TestSample_AuthHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Authorization")
		w.Write([]byte("printer_up 1\n"))
	}))
	defer srv.Close()

	t.Setenv("TEST_PRINTER_TOKEN", "tok123")
	s := newScraper(config.Printer{
		ID:       "p1",
		Endpoint: srv.URL,
		Auth:     config.ScrapeAuth{Mode: "bearer", TokenEnv: "TEST_PRINTER_TOKEN"},
	})

	if _, err := s.sample(context.Background()); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if gotHeader != "Bearer tok123" {
		t.Errorf("Authorization: got %q, want Bearer tok123", gotHeader)
	}
}
