package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loadline/loadline/internal/coerce"
	"github.com/loadline/loadline/internal/fmcsa"
	"github.com/loadline/loadline/internal/loads"
	"github.com/loadline/loadline/internal/mailer"
	"github.com/loadline/loadline/internal/models"
	"github.com/loadline/loadline/internal/negotiation"
	"github.com/loadline/loadline/internal/store"
	"github.com/loadline/loadline/internal/summary"
)

// effectiveCallID maps empty or whitespace identifiers to "unknown" so the
// event still lands in the log and shows on the live dashboard.
func effectiveCallID(callID string) string {
	if s := strings.TrimSpace(callID); s != "" {
		return s
	}
	return "unknown"
}

// logEvent appends and logs a warning on failure. Webhook handlers treat the
// event log as best-effort: a failed append must not fail the call flow.
func (s *Server) logEvent(callID, eventType string, payload map[string]interface{}) {
	if err := s.events.Append(callID, eventType, payload); err != nil {
		log.Printf("server: log %s for %q: %v", eventType, callID, err)
	}
}

type verifyMCRequest struct {
	CallID   string `json:"call_id"`
	MCNumber string `json:"mc_number" binding:"required"`
}

func (s *Server) handleVerifyMC(c *gin.Context) {
	var req verifyMCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mc_number is required"})
		return
	}
	cid := effectiveCallID(req.CallID)
	mc := fmcsa.NormalizeMC(req.MCNumber)
	s.logEvent(cid, models.EventVerifyRequested, map[string]interface{}{
		"mc_number": mc, "original_input": req.MCNumber,
	})

	res, err := s.verifier.Lookup(c.Request.Context(), req.MCNumber)
	if err != nil {
		log.Printf("server: fmcsa lookup %q: %v", mc, err)
	}

	var carrierPayload map[string]interface{}
	if res.Carrier != nil {
		carrierPayload = map[string]interface{}{
			"name":               res.Carrier.Name,
			"mc_number":          res.Carrier.MCNumber,
			"dot_number":         res.Carrier.DOTNumber,
			"allowed_to_operate": res.Carrier.AllowedToOp,
			"out_of_service":     res.Carrier.OutOfService,
			"safety_rating":      res.Carrier.SafetyRating,
			"physical_city":      res.Carrier.PhysicalCity,
			"physical_state":     res.Carrier.PhysicalState,
		}
		if res.Eligible {
			if _, err := s.profiles.Upsert(res.Carrier.MCNumber, store.ProfileUpdate{
				DOTNumber:     &res.Carrier.DOTNumber,
				LegalName:     &res.Carrier.Name,
				PhysicalCity:  &res.Carrier.PhysicalCity,
				PhysicalState: &res.Carrier.PhysicalState,
			}); err != nil {
				log.Printf("server: upsert profile %q: %v", res.Carrier.MCNumber, err)
			}
		}
	}
	s.logEvent(cid, models.EventCarrierVerified, map[string]interface{}{
		"mc_number": mc, "eligible": res.Eligible, "reason": res.Reason, "carrier": carrierPayload,
	})

	c.JSON(http.StatusOK, gin.H{
		"ok": true, "eligible": res.Eligible, "reason": res.Reason,
		"carrier": carrierPayload, "mock": res.Mock,
	})
}

type negotiateRequest struct {
	CallID         string           `json:"call_id"`
	LoadID         string           `json:"load_id"`
	LoadboardRate  coerce.FlexFloat `json:"loadboard_rate"`
	CarrierCounter coerce.FlexFloat `json:"carrier_counter"`
	Round          coerce.FlexInt   `json:"round"`
}

func (s *Server) handleNegotiate(c *gin.Context) {
	var req negotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome, err := negotiation.Decide(float64(req.LoadboardRate), float64(req.CarrierCounter), int(req.Round), s.policy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.logEvent(effectiveCallID(req.CallID), models.EventNegotiationRound, map[string]interface{}{
		"round":           int(req.Round),
		"carrier_counter": float64(req.CarrierCounter),
		"loadboard_rate":  float64(req.LoadboardRate),
		"load_id":         req.LoadID,
		"decision":        string(outcome.Decision),
		"next_offer":      outcome.NextOffer,
	})

	c.JSON(http.StatusOK, gin.H{
		"ok": true, "decision": outcome.Decision, "next_offer": outcome.NextOffer,
		"message": outcome.Message, "rounds_left": outcome.RoundsLeft,
	})
}

type logEventRequest struct {
	CallID    string                 `json:"call_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
}

func (s *Server) handleLogEvent(c *gin.Context) {
	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	// A nil payload is a workflow builder probing for the expected shape.
	if req.Payload == nil {
		c.JSON(http.StatusOK, gin.H{
			"ok": true, "schema_probe": true,
			"expected_body": gin.H{"call_id": "string", "event_type": "string", "payload": gin.H{}},
		})
		return
	}

	callID := effectiveCallID(req.CallID)
	eventType := strings.TrimSpace(req.EventType)
	out := gin.H{"ok": true}
	if eventType == "" {
		eventType = "log_event"
		out["warning"] = "event_type was empty; payload logged under event_type 'log_event'"
	} else if callID == "unknown" {
		out["warning"] = "call_id was empty; event logged with call_id 'unknown'. Set call_id in your workflow so this call appears in the call log."
	}
	s.logEvent(callID, eventType, req.Payload)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCallOutput(c *gin.Context) {
	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		eventType = "call_output"
	}
	s.logEvent(effectiveCallID(req.CallID), eventType, req.Payload)
	c.JSON(http.StatusOK, gin.H{
		"ok": true, "call_id": req.CallID, "event_type": req.EventType, "payload": req.Payload,
	})
}

func (s *Server) handleClassifyCall(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rawID, _ := coerce.String(body["call_id"])
	cid := effectiveCallID(rawID)
	s.logEvent(cid, models.EventCallClassified, body)

	// Booked calls ping the sales channel. Best effort off the request path.
	if outcome, _ := coerce.String(body["outcome"]); outcome == "booked" && s.notifier.Enabled() {
		if sum, ok := s.buildSummary(cid); ok {
			go func() {
				if err := s.notifier.NotifyBooked(context.Background(), sum); err != nil {
					log.Printf("server: %v", err)
				}
			}()
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "call_id": rawID})
}

type handoffContextRequest struct {
	CallID         string           `json:"call_id"`
	CarrierName    string           `json:"carrier_name"`
	MCNumber       string           `json:"mc_number"`
	LoadID         string           `json:"load_id"`
	Origin         string           `json:"origin"`
	Destination    string           `json:"destination"`
	AgreedRate     coerce.FlexFloat `json:"agreed_rate"`
	PickupDatetime string           `json:"pickup_datetime"`
	Notes          string           `json:"notes"`
}

func (s *Server) handleHandoffContext(c *gin.Context) {
	var req handoffContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := map[string]interface{}{
		"call_id": req.CallID, "carrier_name": req.CarrierName, "mc_number": req.MCNumber,
		"load_id": req.LoadID, "origin": req.Origin, "destination": req.Destination,
		"agreed_rate": float64(req.AgreedRate), "pickup_datetime": req.PickupDatetime, "notes": req.Notes,
	}
	s.logEvent(effectiveCallID(req.CallID), models.EventHandoffInitiated, ctx)

	parts := []string{
		fmt.Sprintf("Carrier: %s", req.CarrierName),
		fmt.Sprintf("MC#: %s", req.MCNumber),
		fmt.Sprintf("Load: %s", req.LoadID),
		fmt.Sprintf("Route: %s → %s", req.Origin, req.Destination),
		fmt.Sprintf("Agreed Rate: $%.0f", float64(req.AgreedRate)),
		fmt.Sprintf("Pickup: %s", req.PickupDatetime),
		fmt.Sprintf("Notes: %s", req.Notes),
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": strings.Join(parts, " | "), "context": ctx})
}

type setPrefsRequest struct {
	CallID              string            `json:"call_id"`
	MCNumber            *string           `json:"mc_number"`
	OriginCity          *string           `json:"origin_city"`
	OriginState         *string           `json:"origin_state"`
	DestinationCity     *string           `json:"destination_city"`
	DestinationState    *string           `json:"destination_state"`
	PickupDate          *string           `json:"pickup_date"`
	DepartureDate       *string           `json:"departure_date"`
	LatestDepartureDate *string           `json:"latest_departure_date"`
	EquipmentType       *string           `json:"equipment_type"`
	WeightCapacity      *coerce.FlexInt   `json:"weight_capacity"`
	MinTemp             *coerce.FlexFloat `json:"min_temp"`
	MaxTemp             *coerce.FlexFloat `json:"max_temp"`
	Notes               *string           `json:"notes"`
}

func (s *Server) handleSetPrefs(c *gin.Context) {
	var req setPrefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cid := effectiveCallID(req.CallID)

	u := store.PrefsUpdate{
		MCNumber:            req.MCNumber,
		OriginCity:          req.OriginCity,
		OriginState:         req.OriginState,
		DestinationCity:     req.DestinationCity,
		DestinationState:    req.DestinationState,
		PickupDate:          req.PickupDate,
		DepartureDate:       req.DepartureDate,
		LatestDepartureDate: req.LatestDepartureDate,
		EquipmentType:       req.EquipmentType,
		Notes:               req.Notes,
	}
	if req.WeightCapacity != nil {
		w := int(*req.WeightCapacity)
		u.WeightCapacity = &w
	}
	if req.MinTemp != nil {
		t := float64(*req.MinTemp)
		u.MinTemp = &t
	}
	if req.MaxTemp != nil {
		t := float64(*req.MaxTemp)
		u.MaxTemp = &t
	}

	prefs, err := s.prefs.Upsert(cid, u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logEvent(cid, models.EventPrefsUpdated, prefsPayload(u))
	c.JSON(http.StatusOK, gin.H{"ok": true, "prefs": prefs})
}

// prefsPayload records only the fields the caller actually set.
func prefsPayload(u store.PrefsUpdate) map[string]interface{} {
	out := map[string]interface{}{}
	set := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	set("mc_number", u.MCNumber)
	set("origin_city", u.OriginCity)
	set("origin_state", u.OriginState)
	set("destination_city", u.DestinationCity)
	set("destination_state", u.DestinationState)
	set("pickup_date", u.PickupDate)
	set("departure_date", u.DepartureDate)
	set("latest_departure_date", u.LatestDepartureDate)
	set("equipment_type", u.EquipmentType)
	set("notes", u.Notes)
	if u.WeightCapacity != nil {
		out["weight_capacity"] = *u.WeightCapacity
	}
	if u.MinTemp != nil {
		out["min_temp"] = *u.MinTemp
	}
	if u.MaxTemp != nil {
		out["max_temp"] = *u.MaxTemp
	}
	return out
}

func (s *Server) handleGetPrefs(c *gin.Context) {
	prefs, err := s.prefs.Get(c.Query("call_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call search preferences not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "prefs": prefs})
}

func (s *Server) handleFindLoads(c *gin.Context) {
	callID := c.Query("call_id")
	prefs, err := s.prefs.Get(callID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call search preferences not found"})
		return
	}

	candidates := s.generateLoads(prefs)
	s.logEvent(effectiveCallID(callID), models.EventLoadsFound, map[string]interface{}{
		"count":            len(candidates),
		"origin_city":      prefs.OriginCity,
		"destination_city": prefs.DestinationCity,
		"equipment_type":   prefs.EquipmentType,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "call_id": callID, "loads": candidates})
}

func (s *Server) handleBestLoad(c *gin.Context) {
	callID := c.Query("call_id")
	prefs, err := s.prefs.Get(callID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	best := loads.Best(s.generateLoads(prefs))
	if best == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no loads found"})
		return
	}
	s.logEvent(effectiveCallID(callID), models.EventLoadOffered, loadPayload(*best))
	c.JSON(http.StatusOK, gin.H{"ok": true, "call_id": callID, "load": best})
}

func (s *Server) handleSubmitLoad(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rawID, _ := coerce.String(body["call_id"])
	delete(body, "call_id")

	load, err := loads.FromPayload(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide at least load_id or origin"})
		return
	}
	s.logEvent(effectiveCallID(rawID), models.EventLoadOffered, loadPayload(*load))
	c.JSON(http.StatusOK, gin.H{"ok": true, "call_id": rawID, "load": load})
}

// loadPayload flattens a load for the event log, keeping both rate keys so
// downstream consumers that expect either spelling keep working.
func loadPayload(l summary.Load) map[string]interface{} {
	return map[string]interface{}{
		"load_id":           l.LoadID,
		"origin":            l.Origin,
		"destination":       l.Destination,
		"pickup_datetime":   l.PickupDatetime,
		"delivery_datetime": l.DeliveryDatetime,
		"equipment_type":    l.EquipmentType,
		"loadboard_rate":    l.LoadboardRate,
		"rate":              l.LoadboardRate,
		"weight":            l.Weight,
		"commodity_type":    l.CommodityType,
		"miles":             l.Miles,
		"num_of_pieces":     l.NumOfPieces,
		"dimensions":        l.Dimensions,
		"notes":             l.Notes,
	}
}

// generateLoads serializes access to the shared rng.
func (s *Server) generateLoads(prefs *models.CallSearchPrefs) []summary.Load {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loads.Generate(prefs, time.Now().UTC(), s.rng)
}

func (s *Server) handleHandoffSummary(c *gin.Context) {
	callID := strings.TrimSpace(c.Param("call_id"))
	lower := strings.ToLower(callID)
	// Schema probes get a fully-populated example so workflow builders can
	// infer the output shape without a real call in the log.
	if callID == "" || lower == "schema" || lower == "example" || lower == "_" {
		subject, body := mailer.FormatHandoff(exampleSummary())
		c.JSON(http.StatusOK, gin.H{"call_id": "call_example", "subject": subject, "body": body})
		return
	}

	sum, ok := s.buildSummary(callID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"call_id": callID,
			"subject": fmt.Sprintf("Call handoff: (call not found) — %s", callID),
			"body": fmt.Sprintf("Call handoff summary — %s\n\nNo call record found for this call_id yet "+
				"(events may not be logged). View full details in the Call Log once data is available.", callID),
		})
		return
	}
	subject, body := mailer.FormatHandoff(sum)
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "subject": subject, "body": body})
}

type sendHandoffEmailRequest struct {
	CallID  string `json:"call_id" binding:"required"`
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
}

func (s *Server) handleSendHandoffEmail(c *gin.Context) {
	var req sendHandoffEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "call_id is required"})
		return
	}

	sum, ok := s.buildSummary(req.CallID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	subject, body := mailer.FormatHandoff(sum)
	if t := strings.TrimSpace(req.Subject); t != "" {
		subject = t
	}

	out := gin.H{
		"ok": true, "call_id": req.CallID, "to_email": req.ToEmail,
		"subject": subject, "body": body, "sent": false,
	}
	if !s.sender.Enabled() {
		out["message"] = "SMTP not configured. Summary returned for use in workflow."
		c.JSON(http.StatusOK, out)
		return
	}
	if req.ToEmail == "" {
		out["message"] = "no recipient; summary returned without sending"
		c.JSON(http.StatusOK, out)
		return
	}
	if err := s.sender.Send([]string{req.ToEmail}, subject, body); err != nil {
		out["error"] = err.Error()
	} else {
		out["sent"] = true
	}
	c.JSON(http.StatusOK, out)
}

// exampleSummary is the canned record behind handoff schema probes.
func exampleSummary() summary.CallSummary {
	yes := true
	return summary.CallSummary{
		CallID:             "call_example",
		CarrierName:        "Example Carrier",
		MCNumber:           "123456",
		Verified:           &yes,
		VerificationStatus: "verified",
		Load: &summary.Load{
			LoadID: "LOAD-123", Origin: "Los Angeles, CA", Destination: "New York, NY",
			EquipmentType: "Van", LoadboardRate: 1500,
		},
		Rounds:             []summary.Round{{Round: 1}, {Round: 2}},
		Accepted:           true,
		ListedRate:         1500,
		FinalRate:          1500,
		Sentiment:          summary.SentimentPositive,
		SentimentReasoning: "Example reasoning.",
		Outcome:            summary.OutcomeBooked,
		DurationSeconds:    150,
	}
}
