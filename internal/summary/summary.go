// Package summary projects the raw event log for one call into a structured
// view. Projections are pure and recomputed on every read; nothing here is
// ever persisted, so adding a derived field never needs a storage migration.
package summary

import (
	"time"

	"github.com/loadline/loadline/internal/coerce"
	"github.com/loadline/loadline/internal/models"
)

// SentimentFallbackWindow bounds how far a system-wide sentiment event may be
// from this call's own activity before we refuse to borrow it.
const SentimentFallbackWindow = 30 * time.Minute

// Load is the load under discussion, from the most recent load_offered event.
type Load struct {
	LoadID           string  `json:"load_id"`
	Origin           string  `json:"origin"`
	Destination      string  `json:"destination"`
	PickupDatetime   string  `json:"pickup_datetime"`
	DeliveryDatetime string  `json:"delivery_datetime"`
	EquipmentType    string  `json:"equipment_type"`
	LoadboardRate    float64 `json:"loadboard_rate"`
	Weight           float64 `json:"weight,omitempty"`
	CommodityType    string  `json:"commodity_type,omitempty"`
	NumOfPieces      int     `json:"num_of_pieces,omitempty"`
	Miles            float64 `json:"miles,omitempty"`
	Dimensions       string  `json:"dimensions,omitempty"`
	Notes            string  `json:"notes,omitempty"`
}

// Round is one negotiation exchange, kept in full to preserve the offer
// trajectory (negotiation rounds are never collapsed to most-recent-wins).
type Round struct {
	Round          int       `json:"round"`
	CarrierCounter float64   `json:"carrier_counter"`
	Decision       string    `json:"decision"`
	NextOffer      float64   `json:"next_offer"`
	Timestamp      time.Time `json:"timestamp"`
}

// CallSummary is the derived view of one call. Lifecycle: recomputed on every
// read, never stored.
type CallSummary struct {
	CallID    string    `json:"call_id"`
	Timestamp time.Time `json:"timestamp"`

	MCNumber           string `json:"mc_number"`
	CarrierName        string `json:"carrier_name"`
	Verified           *bool  `json:"verified"`
	VerificationStatus string `json:"verification_status"`
	VerifyReason       string `json:"verify_reason,omitempty"`

	Load       *Load   `json:"load_matched"`
	Rounds     []Round `json:"negotiation_rounds"`
	Accepted   bool    `json:"accepted"`
	ListedRate float64 `json:"listed_rate,omitempty"`
	FinalRate  float64 `json:"final_rate,omitempty"`

	Sentiment          string `json:"sentiment"`
	SentimentTone      string `json:"sentiment_tone,omitempty"`
	SentimentReasoning string `json:"sentiment_reasoning,omitempty"`
	// SentimentSource is "exact" when the sentiment event carried this
	// call's identifier, "fallback" when borrowed from a nearby event under
	// a mismatched identifier, and empty when no sentiment was captured.
	SentimentSource string `json:"sentiment_source,omitempty"`

	Outcome         Outcome `json:"outcome"`
	DurationSeconds int     `json:"call_duration_seconds"`
}

// Build projects a call's events into a CallSummary. events must belong to
// one call and be ordered by timestamp ascending (as the event log returns
// them). fallbackSentiments are recent system-wide sentiment events used only
// when the call has none of its own; pass nil to disable the heuristic.
func Build(callID string, events []models.Event, fallbackSentiments []models.Event) CallSummary {
	s := CallSummary{CallID: callID, Sentiment: SentimentNeutral}
	if len(events) == 0 {
		s.Outcome = OutcomeDropped
		return s
	}
	s.Timestamp = events[0].Timestamp
	s.DurationSeconds = int(events[len(events)-1].Timestamp.Sub(events[0].Timestamp).Seconds())
	if s.DurationSeconds < 0 {
		s.DurationSeconds = 0
	}

	// Most-recent-wins per tracked field: later events overwrite earlier
	// ones as we scan forward. Rounds are accumulated instead.
	var sentimentPayload map[string]interface{}
	var classifiedPayload map[string]interface{}
	for _, ev := range events {
		payload := coerce.PayloadMap(ev.Payload)
		switch ev.EventType {
		case models.EventCarrierVerified:
			s.applyVerification(payload)
		case models.EventLoadOffered:
			s.Load = loadFromPayload(payload)
		case models.EventNegotiationRound:
			s.Rounds = append(s.Rounds, roundFromPayload(payload, ev.Timestamp))
		case models.EventSentiment:
			sentimentPayload = payload
		case models.EventCallClassified:
			classifiedPayload = payload
		}
	}

	s.applyNegotiation()
	s.applyClassification(classifiedPayload)
	s.applySentiment(sentimentPayload, classifiedPayload, fallbackSentiments, anchorTime(events))

	s.Outcome = classify(s.Verified, len(s.Rounds), s.Accepted)
	return s
}

// applyVerification folds in a carrier_verified payload.
func (s *CallSummary) applyVerification(payload map[string]interface{}) {
	eligible, ok := coerce.Bool(payload["eligible"])
	if ok {
		v := eligible
		s.Verified = &v
	}
	if reason, ok := coerce.String(payload["reason"]); ok {
		s.VerifyReason = reason
	}
	carrier := coerce.PayloadMap(payload["carrier"])
	if mc, ok := coerce.String(carrier["mc_number"]); ok {
		s.MCNumber = mc
	} else if mc, ok := coerce.String(payload["mc_number"]); ok {
		s.MCNumber = mc
	}
	if name, ok := coerce.String(carrier["name"]); ok {
		s.CarrierName = name
	} else if name, ok := coerce.String(carrier["legal_name"]); ok {
		s.CarrierName = name
	}
	switch {
	case s.Verified == nil:
		s.VerificationStatus = "pending"
	case *s.Verified:
		s.VerificationStatus = "verified"
	default:
		s.VerificationStatus = "failed"
	}
}

// applyNegotiation derives acceptance and rates from the round trace.
func (s *CallSummary) applyNegotiation() {
	for _, r := range s.Rounds {
		if r.Decision == "accept" {
			s.Accepted = true
			s.FinalRate = r.NextOffer
		}
	}
	if s.Load != nil && s.Load.LoadboardRate > 0 {
		s.ListedRate = s.Load.LoadboardRate
	}
}

// applyClassification folds in the workflow's call_classified payload, which
// may carry an authoritative duration, final rate, and booked outcome.
func (s *CallSummary) applyClassification(payload map[string]interface{}) {
	if payload == nil {
		return
	}
	if d, ok := coerce.Int(payload["call_duration_seconds"]); ok && d >= 0 {
		s.DurationSeconds = d
	}
	if fr, ok := coerce.Float(payload["final_rate"]); ok && fr > 0 {
		s.FinalRate = fr
	}
	if accepted, ok := coerce.Bool(payload["accepted"]); ok && accepted {
		s.Accepted = true
	}
	if outcome, ok := coerce.String(payload["outcome"]); ok && outcome == "booked" {
		s.Accepted = true
	}
	if mc, ok := coerce.String(payload["carrier_mc"]); ok && s.MCNumber == "" {
		s.MCNumber = mc
	}
}

// applySentiment resolves sentiment with the documented fallback: an exact
// event under this call id wins; otherwise the nearest system-wide sentiment
// event within the window of this call's own activity is borrowed and
// flagged, so downstream consumers can tell heuristic matches from exact
// ones.
func (s *CallSummary) applySentiment(exact, classified map[string]interface{}, fallbacks []models.Event, anchor time.Time) {
	if raw, tone, reasoning, ok := sentimentFields(exact); ok {
		s.Sentiment = NormalizeSentiment(raw)
		s.SentimentTone = tone
		s.SentimentReasoning = reasoning
		s.SentimentSource = "exact"
		return
	}
	if raw, tone, reasoning, ok := sentimentFields(classified); ok {
		s.Sentiment = NormalizeSentiment(raw)
		s.SentimentTone = tone
		s.SentimentReasoning = reasoning
		s.SentimentSource = "exact"
		return
	}

	var best *models.Event
	var bestDelta time.Duration
	for i := range fallbacks {
		delta := fallbacks[i].Timestamp.Sub(anchor)
		if delta < 0 {
			delta = -delta
		}
		if delta > SentimentFallbackWindow {
			continue
		}
		if best == nil || delta < bestDelta {
			best = &fallbacks[i]
			bestDelta = delta
		}
	}
	if best == nil {
		return
	}
	if raw, tone, reasoning, ok := sentimentFields(coerce.PayloadMap(best.Payload)); ok {
		s.Sentiment = NormalizeSentiment(raw)
		s.SentimentTone = tone
		s.SentimentReasoning = reasoning
		s.SentimentSource = "fallback"
	}
}

// anchorTime returns the timestamp the sentiment fallback window is measured
// against: the call's most recent verification or negotiation event, or the
// last event when the call never got that far.
func anchorTime(events []models.Event) time.Time {
	anchor := events[len(events)-1].Timestamp
	for i := len(events) - 1; i >= 0; i-- {
		t := events[i].EventType
		if t == models.EventCarrierVerified || t == models.EventNegotiationRound {
			return events[i].Timestamp
		}
	}
	return anchor
}

// sentimentFields pulls (sentiment, tone, reasoning) out of a payload,
// tolerating the key spellings different workflow builders send.
func sentimentFields(payload map[string]interface{}) (raw, tone, reasoning string, ok bool) {
	if payload == nil {
		return "", "", "", false
	}
	raw, _ = coerce.String(payload["sentiment_classification"])
	if raw == "" {
		raw, _ = coerce.String(payload["sentiment"])
	}
	if raw == "" {
		return "", "", "", false
	}
	tone, _ = coerce.String(payload["tone"])
	reasoning = reasoningFrom(payload, 0)
	return raw, tone, reasoning, true
}

// reasoningKeys are the spellings seen in the wild for the free-text
// explanation attached to a sentiment classification.
var reasoningKeys = []string{
	"sentiment_reasoning", "reasoning", "response_reasoning",
	"sentimentReasoning", "reason", "why", "explanation",
}

// reasoningFrom searches a payload, including one level of nested or
// string-encoded sub-payloads, for a reasoning field.
func reasoningFrom(payload map[string]interface{}, depth int) string {
	if payload == nil || depth > 2 {
		return ""
	}
	for _, k := range reasoningKeys {
		if v, ok := coerce.String(payload[k]); ok {
			return v
		}
	}
	for _, nested := range []string{"payload", "data", "body"} {
		sub := coerce.PayloadMap(payload[nested])
		if len(sub) == 0 {
			continue
		}
		if found := reasoningFrom(sub, depth+1); found != "" {
			return found
		}
	}
	return ""
}

// loadFromPayload maps a load_offered payload onto a Load, coercing the
// loosely-typed numerics at this boundary so everything downstream is strict.
func loadFromPayload(payload map[string]interface{}) *Load {
	l := &Load{}
	l.LoadID, _ = coerce.String(payload["load_id"])
	l.Origin, _ = coerce.String(payload["origin"])
	l.Destination, _ = coerce.String(payload["destination"])
	l.PickupDatetime, _ = coerce.String(payload["pickup_datetime"])
	l.DeliveryDatetime, _ = coerce.String(payload["delivery_datetime"])
	l.EquipmentType, _ = coerce.String(payload["equipment_type"])
	l.CommodityType, _ = coerce.String(payload["commodity_type"])
	l.Dimensions, _ = coerce.String(payload["dimensions"])
	l.Notes, _ = coerce.String(payload["notes"])
	if rate, ok := coerce.Float(payload["loadboard_rate"]); ok {
		l.LoadboardRate = rate
	} else if rate, ok := coerce.Float(payload["rate"]); ok {
		l.LoadboardRate = rate
	}
	l.Weight, _ = coerce.Float(payload["weight"])
	l.NumOfPieces, _ = coerce.Int(payload["num_of_pieces"])
	l.Miles, _ = coerce.Float(payload["miles"])
	if l.LoadID == "" && l.Origin == "" {
		return nil
	}
	return l
}

// roundFromPayload maps a negotiation_round payload onto a Round.
func roundFromPayload(payload map[string]interface{}, ts time.Time) Round {
	r := Round{Timestamp: ts}
	r.Round, _ = coerce.Int(payload["round"])
	r.CarrierCounter, _ = coerce.Float(payload["carrier_counter"])
	r.Decision, _ = coerce.String(payload["decision"])
	r.NextOffer, _ = coerce.Float(payload["next_offer"])
	return r
}
