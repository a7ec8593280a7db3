// Package fmcsa wraps the FMCSA QCMobile carrier lookup used to gate the
// negotiation flow. The registry is treated as slow and flaky: every failure
// mode maps to an ineligible Result with a reason, never an abort, and an
// unconfigured webkey switches the client into mock mode so the rest of the
// call flow works offline.
package fmcsa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Carrier holds the registry fields we care about.
type Carrier struct {
	Name          string `json:"name"`
	MCNumber      string `json:"mc_number"`
	DOTNumber     string `json:"dot_number"`
	AllowedToOp   string `json:"allowed_to_operate"`
	OutOfService  string `json:"out_of_service"`
	SafetyRating  string `json:"safety_rating"`
	PhysicalCity  string `json:"physical_city"`
	PhysicalState string `json:"physical_state"`
}

// Result is the outcome of one eligibility lookup.
type Result struct {
	Eligible bool     `json:"eligible"`
	Reason   string   `json:"reason,omitempty"`
	Carrier  *Carrier `json:"carrier,omitempty"`
	Mock     bool     `json:"mock,omitempty"`
}

// Client looks up carriers by MC number.
type Client struct {
	baseURL    string
	webKey     string
	httpClient *http.Client
}

// NewClient returns a lookup client. An empty webKey enables mock mode.
func NewClient(baseURL, webKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		webKey:     webKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NormalizeMC strips the MC prefix, dashes, and whitespace from a spoken or
// typed MC number.
func NormalizeMC(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "MC", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.TrimSpace(s)
}

// qcResponse mirrors the QCMobile docket-number payload shape.
type qcResponse struct {
	Content []struct {
		Carrier struct {
			LegalName        string      `json:"legalName"`
			DBAName          string      `json:"dbaName"`
			DOTNumber        json.Number `json:"dotNumber"`
			AllowedToOperate string      `json:"allowedToOperate"`
			OutOfService     string      `json:"outOfService"`
			SafetyRating     string      `json:"safetyRating"`
			PhyCity          string      `json:"phyCity"`
			PhyState         string      `json:"phyState"`
		} `json:"carrier"`
	} `json:"content"`
}

// Lookup checks a carrier's operating authority. The returned Result is
// always usable; err is non-nil only for transport-level failures, and even
// then the caller is expected to log it and continue with Result.
func (c *Client) Lookup(ctx context.Context, mcNumber string) (Result, error) {
	mc := NormalizeMC(mcNumber)
	if mc == "" {
		return Result{Eligible: false, Reason: "MC number is required"}, nil
	}

	if c.webKey == "" {
		return mockResult(mc), nil
	}

	u := fmt.Sprintf("%s/carriers/docket-number/%s?%s", c.baseURL, url.PathEscape(mc),
		url.Values{"webKey": {c.webKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{Eligible: false, Reason: "lookup failed"}, fmt.Errorf("fmcsa: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Eligible: false, Reason: "FMCSA lookup unavailable"}, fmt.Errorf("fmcsa: lookup %s: %w", mc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{Eligible: false, Reason: "MC not found"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Eligible: false, Reason: fmt.Sprintf("FMCSA API error: %d", resp.StatusCode)}, nil
	}

	var body qcResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Eligible: false, Reason: "FMCSA response unreadable"}, fmt.Errorf("fmcsa: decode: %w", err)
	}
	if len(body.Content) == 0 {
		return Result{Eligible: false, Reason: "MC not found"}, nil
	}

	raw := body.Content[0].Carrier
	name := raw.LegalName
	if name == "" {
		name = raw.DBAName
	}
	carrier := &Carrier{
		Name:          name,
		MCNumber:      mc,
		DOTNumber:     raw.DOTNumber.String(),
		AllowedToOp:   raw.AllowedToOperate,
		OutOfService:  raw.OutOfService,
		SafetyRating:  raw.SafetyRating,
		PhysicalCity:  raw.PhyCity,
		PhysicalState: raw.PhyState,
	}

	eligible, reason := Eligible(carrier)
	return Result{Eligible: eligible, Reason: reason, Carrier: carrier}, nil
}

// Eligible applies the authority rules: the carrier must be allowed to
// operate, not out of service, and not rated unsatisfactory.
func Eligible(c *Carrier) (bool, string) {
	if c == nil {
		return false, "carrier not found in FMCSA database"
	}
	if c.AllowedToOp != "Y" {
		return false, "carrier is not authorized to operate"
	}
	if c.OutOfService == "Y" {
		return false, "carrier is currently out of service"
	}
	if strings.EqualFold(c.SafetyRating, "UNSATISFACTORY") {
		return false, "carrier has an unsatisfactory safety rating"
	}
	return true, ""
}

// mockResult fabricates a deterministic eligible carrier for offline use.
func mockResult(mc string) Result {
	return Result{
		Eligible: true,
		Mock:     true,
		Carrier: &Carrier{
			Name:          "MOCK CARRIER " + mc,
			MCNumber:      mc,
			DOTNumber:     "000" + mc,
			AllowedToOp:   "Y",
			OutOfService:  "N",
			SafetyRating:  "SATISFACTORY",
			PhysicalCity:  "Springfield",
			PhysicalState: "IL",
		},
	}
}
