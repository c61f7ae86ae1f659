package scanner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newClient(srvURL string) Client {
	return New(Config{BaseURL: srvURL, APIKey: "test-key", Model: "test-vision"})
}

func TestScanParsesLabel(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, `{"name":" Ibuprofen ","dosageValue":"200","dosageUnit":"MG","type":"tablet","category":"pain relief","frequency":3}`))
	defer srv.Close()

	prefill, err := newClient(srv.URL).Scan(context.Background(), []byte("fake-image"), "image/png")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if prefill.Name != "Ibuprofen" {
		t.Fatalf("name = %q", prefill.Name)
	}
	if prefill.DosageUnit != "mg" {
		t.Fatalf("dosageUnit = %q, want mg", prefill.DosageUnit)
	}
	if prefill.Form != "Tablet" {
		t.Fatalf("form = %q, want Tablet", prefill.Form)
	}
	if prefill.Category != "PAIN RELIEF" {
		t.Fatalf("category = %q", prefill.Category)
	}
	if prefill.Frequency != 3 {
		t.Fatalf("frequency = %d", prefill.Frequency)
	}
}

func TestScanLiquidForcesMl(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, `{"name":"Cough Syrup","dosageUnit":"mg","type":"Liquid","frequency":2}`))
	defer srv.Close()

	prefill, err := newClient(srv.URL).Scan(context.Background(), []byte("img"), "")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if prefill.DosageUnit != "ml" {
		t.Fatalf("dosageUnit = %q, want ml for liquids", prefill.DosageUnit)
	}
}

func TestScanUnwrapsCodeFence(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, "```json\n{\"name\":\"Aspirin\",\"frequency\":1}\n```"))
	defer srv.Close()

	prefill, err := newClient(srv.URL).Scan(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if prefill.Name != "Aspirin" {
		t.Fatalf("name = %q", prefill.Name)
	}
}

func TestScanUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Scan(context.Background(), []byte("img"), "image/jpeg")
	if err == nil {
		t.Fatal("expected error from non-200 upstream")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry upstream status: %v", err)
	}
}

func TestScanUnparsableContent(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, "I could not read this label, sorry."))
	defer srv.Close()

	_, err := newClient(srv.URL).Scan(context.Background(), []byte("img"), "image/jpeg")
	if err == nil || !strings.Contains(err.Error(), "unparsable") {
		t.Fatalf("err = %v, want unparsable label data", err)
	}
}

func TestScanEmptyImage(t *testing.T) {
	_, err := newClient("http://unused.invalid").Scan(context.Background(), nil, "")
	if err == nil {
		t.Fatal("expected error for empty image")
	}
}
