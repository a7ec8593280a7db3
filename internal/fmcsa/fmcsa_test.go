package fmcsa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123456", "123456"},
		{"MC-123456", "123456"},
		{"mc 123456", "123456"},
		{"  MC123456  ", "123456"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeMC(tt.in); got != tt.want {
			t.Errorf("NormalizeMC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name    string
		carrier *Carrier
		want    bool
		reason  string
	}{
		{"nil carrier", nil, false, "not found"},
		{"authorized", &Carrier{AllowedToOp: "Y", OutOfService: "N"}, true, ""},
		{"not authorized", &Carrier{AllowedToOp: "N"}, false, "not authorized"},
		{"out of service", &Carrier{AllowedToOp: "Y", OutOfService: "Y"}, false, "out of service"},
		{"unsatisfactory rating", &Carrier{AllowedToOp: "Y", OutOfService: "N", SafetyRating: "Unsatisfactory"}, false, "unsatisfactory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Eligible(tt.carrier)
			if got != tt.want {
				t.Errorf("Eligible = %v, want %v", got, tt.want)
			}
			if tt.reason != "" && !strings.Contains(reason, tt.reason) {
				t.Errorf("reason = %q, want to contain %q", reason, tt.reason)
			}
		})
	}
}

func TestLookup_MockMode(t *testing.T) {
	c := NewClient("https://example.invalid", "", time.Second)
	res, err := c.Lookup(context.Background(), "MC-123456")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !res.Mock {
		t.Error("expected mock mode without a webkey")
	}
	if !res.Eligible {
		t.Error("mock carrier should be eligible")
	}
	if res.Carrier == nil || res.Carrier.MCNumber != "123456" {
		t.Errorf("carrier = %+v, want normalized MC 123456", res.Carrier)
	}

	// Mock lookups are deterministic.
	again, _ := c.Lookup(context.Background(), "MC-123456")
	if again.Carrier.Name != res.Carrier.Name {
		t.Error("mock result should be deterministic")
	}
}

func TestLookup_EligibleCarrier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("webKey") != "test-key" {
			t.Errorf("missing webKey param in %s", r.URL)
		}
		fmt.Fprint(w, `{"content":[{"carrier":{
			"legalName":"SWIFT TRANSPORT LLC","dotNumber":987654,
			"allowedToOperate":"Y","outOfService":"N",
			"safetyRating":"SATISFACTORY","phyCity":"Phoenix","phyState":"AZ"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	res, err := c.Lookup(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !res.Eligible {
		t.Errorf("Eligible = false, reason %q", res.Reason)
	}
	if res.Carrier.Name != "SWIFT TRANSPORT LLC" {
		t.Errorf("Name = %q", res.Carrier.Name)
	}
	if res.Carrier.DOTNumber != "987654" {
		t.Errorf("DOTNumber = %q, want 987654", res.Carrier.DOTNumber)
	}
	if res.Carrier.PhysicalState != "AZ" {
		t.Errorf("PhysicalState = %q, want AZ", res.Carrier.PhysicalState)
	}
}

func TestLookup_NotAllowedToOperate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[{"carrier":{"legalName":"BAD CO","allowedToOperate":"N","outOfService":"N"}}]}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", time.Second).Lookup(context.Background(), "111")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Eligible {
		t.Error("unauthorized carrier should be ineligible")
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", time.Second).Lookup(context.Background(), "222")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Eligible || res.Reason != "MC not found" {
		t.Errorf("res = %+v, want ineligible / MC not found", res)
	}
}

func TestLookup_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[]}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", time.Second).Lookup(context.Background(), "333")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Eligible || res.Reason != "MC not found" {
		t.Errorf("res = %+v, want MC not found", res)
	}
}

func TestLookup_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "k", time.Second).Lookup(context.Background(), "444")
	if err != nil {
		t.Fatalf("Lookup should not error on HTTP 500: %v", err)
	}
	if res.Eligible {
		t.Error("eligible on server error")
	}
	if !strings.Contains(res.Reason, "500") {
		t.Errorf("reason = %q, want to mention status 500", res.Reason)
	}
}

func TestLookup_TransportFailure(t *testing.T) {
	// Closed server: transport error should surface but still return a
	// usable ineligible Result so the call flow can continue.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	res, err := NewClient(srv.URL, "k", 100*time.Millisecond).Lookup(context.Background(), "555")
	if err == nil {
		t.Error("expected transport error")
	}
	if res.Eligible {
		t.Error("transport failure must not be eligible")
	}
	if res.Reason == "" {
		t.Error("transport failure should carry a reason")
	}
}

func TestLookup_EmptyMC(t *testing.T) {
	res, err := NewClient("https://example.invalid", "k", time.Second).Lookup(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Eligible || res.Reason == "" {
		t.Errorf("res = %+v, want ineligible with a reason", res)
	}
}
