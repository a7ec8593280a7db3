package metrics

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/loadline/loadline/internal/summary"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func booked(callID, mc string, listed, final float64, ts time.Time) summary.CallSummary {
	yes := true
	return summary.CallSummary{
		CallID:    callID,
		Timestamp: ts,
		MCNumber:  mc,
		Verified:  &yes,
		Load: &summary.Load{
			LoadID: "LD-" + callID, Origin: "Los Angeles, CA", Destination: "Phoenix, AZ",
			LoadboardRate: listed,
		},
		Rounds:     []summary.Round{{Round: 1, Decision: "accept", NextOffer: final}},
		Accepted:   true,
		ListedRate: listed,
		FinalRate:  final,
		Sentiment:  summary.SentimentPositive,
		Outcome:    summary.OutcomeBooked,
	}
}

func TestBuildOverview_Empty(t *testing.T) {
	o := BuildOverview(nil, now)
	if o.TotalCalls != 0 || o.ConversionRate != 0 || o.AvgNegotiationSpread != 0 || o.CallsToday != 0 {
		t.Errorf("empty overview = %+v, want zeros", o)
	}
	if o.SentimentDistribution["neutral"] != 0 {
		t.Errorf("sentiment distribution should exist with zero counts: %+v", o.SentimentDistribution)
	}
}

func TestBuildOverview(t *testing.T) {
	calls := []summary.CallSummary{
		booked("a", "111", 2100, 2300, now.Add(-time.Hour)),
		booked("b", "111", 2000, 2150, now.Add(-2*time.Hour)),
		{CallID: "c", Timestamp: now.Add(-48 * time.Hour), Outcome: summary.OutcomeNoDeal, Sentiment: summary.SentimentFrustrated},
		{CallID: "d", Timestamp: now.Add(-3 * time.Hour), Outcome: summary.OutcomeFailedVerification, Sentiment: summary.SentimentNeutral},
		{CallID: "e", Timestamp: now.Add(-4 * time.Hour), Outcome: summary.OutcomeDropped, Sentiment: summary.SentimentNeutral},
	}

	o := BuildOverview(calls, now)
	if o.TotalCalls != 5 {
		t.Errorf("TotalCalls = %d", o.TotalCalls)
	}
	if o.ConversionRate != 40.0 {
		t.Errorf("ConversionRate = %v, want 40.0 (2 of 5)", o.ConversionRate)
	}
	// Premiums: 200 and 150 -> mean 175.
	if o.AvgNegotiationSpread != 175 {
		t.Errorf("AvgNegotiationSpread = %v, want 175", o.AvgNegotiationSpread)
	}
	if o.CallsToday != 4 {
		t.Errorf("CallsToday = %d, want 4 (the 48h-old call is excluded)", o.CallsToday)
	}
	want := OutcomeCounts{VerifiedBooked: 2, VerifiedNoDeal: 1, FailedVerification: 1, DroppedIncomplete: 1}
	if o.CallOutcomes != want {
		t.Errorf("CallOutcomes = %+v, want %+v", o.CallOutcomes, want)
	}
	if o.SentimentDistribution["positive"] != 2 || o.SentimentDistribution["frustrated"] != 1 {
		t.Errorf("SentimentDistribution = %+v", o.SentimentDistribution)
	}
}

func TestBuildOverview_PremiumClampedAtZero(t *testing.T) {
	below := booked("a", "111", 2100, 1900, now)
	o := BuildOverview([]summary.CallSummary{below}, now)
	if o.AvgNegotiationSpread != 0 {
		t.Errorf("AvgNegotiationSpread = %v, below-list deals must clamp to 0", o.AvgNegotiationSpread)
	}
}

func TestBuildOverview_OrderIndependent(t *testing.T) {
	calls := []summary.CallSummary{
		booked("a", "111", 2100, 2300, now.Add(-time.Hour)),
		{CallID: "c", Outcome: summary.OutcomeNoDeal, Sentiment: summary.SentimentNegative, Timestamp: now.Add(-2 * time.Hour)},
		{CallID: "d", Outcome: summary.OutcomeDropped, Sentiment: summary.SentimentNeutral, Timestamp: now.Add(-3 * time.Hour)},
	}
	want := BuildOverview(calls, now)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]summary.CallSummary(nil), calls...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := BuildOverview(shuffled, now); !reflect.DeepEqual(got, want) {
			t.Fatalf("overview depends on input order:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestBuildNegotiations(t *testing.T) {
	noDeal := booked("c", "333", 2200, 0, now.Add(-30*time.Minute))
	noDeal.Accepted = false
	noDeal.FinalRate = 0
	noDeal.Outcome = summary.OutcomeNoDeal

	calls := []summary.CallSummary{
		booked("a", "111", 2100, 2300, now.Add(-2*time.Hour)),
		booked("b", "222", 2000, 2100, now.Add(-time.Hour)),
		noDeal,
		// No rounds: excluded from negotiation metrics entirely.
		{CallID: "d", Load: &summary.Load{LoadID: "LD-d", LoadboardRate: 900}, Outcome: summary.OutcomeDeclined},
	}

	n := BuildNegotiations(calls)
	if n.TotalNegotiations != 3 {
		t.Errorf("TotalNegotiations = %d, want 3", n.TotalNegotiations)
	}
	if n.SuccessRate != 66.7 {
		t.Errorf("SuccessRate = %v, want 66.7", n.SuccessRate)
	}
	// Discounts: +200 and +100 -> mean 150. The no-deal call has no final rate.
	if n.AvgDiscount != 150 {
		t.Errorf("AvgDiscount = %v, want 150", n.AvgDiscount)
	}
	if len(n.ChartPoints) != 2 {
		t.Fatalf("ChartPoints = %+v, want 2", n.ChartPoints)
	}
	if n.ChartPoints[0].FinalRate != 2300 || n.ChartPoints[1].FinalRate != 2100 {
		t.Errorf("chart points out of chronological order: %+v", n.ChartPoints)
	}
	if len(n.Recent) != 3 {
		t.Fatalf("Recent = %+v, want 3 rows", n.Recent)
	}
	if n.Recent[0].Outcome != "declined" {
		t.Errorf("newest row outcome = %q, want declined (the no-deal call is newest)", n.Recent[0].Outcome)
	}
	if n.Recent[1].Spread != 100 {
		t.Errorf("Recent[1].Spread = %v, want 100", n.Recent[1].Spread)
	}
	if n.Recent[1].Lane != "Los Angeles, CA → Phoenix, AZ" {
		t.Errorf("Lane = %q", n.Recent[1].Lane)
	}
}

func TestBuildNegotiations_Empty(t *testing.T) {
	n := BuildNegotiations(nil)
	if n.TotalNegotiations != 0 || n.SuccessRate != 0 || n.AvgDiscount != 0 {
		t.Errorf("empty negotiations = %+v, want zeros", n)
	}
}

func TestBuildCarrierInsights(t *testing.T) {
	calls := []summary.CallSummary{
		booked("a", "111", 2100, 2300, now),
		booked("b", "111", 2000, 2100, now),
		booked("c", "222", 1900, 1950, now),
	}
	calls[0].CarrierName = "SWIFT TRANSPORT LLC"

	ci := BuildCarrierInsights(calls)
	if len(ci.RepeatCallers) != 1 {
		t.Fatalf("RepeatCallers = %+v, want only MC 111", ci.RepeatCallers)
	}
	rc := ci.RepeatCallers[0]
	if rc.MCNumber != "111" || rc.CallCount != 2 || rc.CarrierName != "SWIFT TRANSPORT LLC" {
		t.Errorf("repeat caller = %+v", rc)
	}
	if len(rc.TypicalLanes) != 1 {
		t.Errorf("TypicalLanes = %v, duplicate lanes must collapse", rc.TypicalLanes)
	}
	if len(ci.FrequentLanes) != 1 || ci.FrequentLanes[0].CallCount != 3 {
		t.Errorf("FrequentLanes = %+v", ci.FrequentLanes)
	}
}

func TestBuildTrends(t *testing.T) {
	calls := []summary.CallSummary{
		booked("a", "111", 2100, 2300, time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)),
		booked("b", "222", 2000, 2100, time.Date(2026, 7, 30, 17, 0, 0, 0, time.UTC)),
		{CallID: "c", Timestamp: time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC), Outcome: summary.OutcomeNoDeal},
		{CallID: "d", Outcome: summary.OutcomeDropped}, // no timestamp
	}
	got := BuildTrends(calls)
	if len(got) != 2 {
		t.Fatalf("trends = %+v, want 2 days", got)
	}
	if got[0].Date != "2026-07-30" || got[0].Calls != 2 || got[0].Booked != 2 {
		t.Errorf("day 1 = %+v", got[0])
	}
	if got[1].Date != "2026-07-31" || got[1].Calls != 1 || got[1].Booked != 0 {
		t.Errorf("day 2 = %+v", got[1])
	}
}

func TestBuildCarrierInsights_Empty(t *testing.T) {
	ci := BuildCarrierInsights(nil)
	if len(ci.RepeatCallers) != 0 || len(ci.FrequentLanes) != 0 {
		t.Errorf("empty insights = %+v", ci)
	}
}
