// Package metrics computes dashboard rollups over projected call summaries.
// Everything here is a pure fold: callers pass the full slice of summaries
// and a clock reading, and get value types back. Results do not depend on
// the order of the input slice beyond explicit timestamp sorts.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/loadline/loadline/internal/summary"
)

// OutcomeCounts breaks total calls down by how they ended. Declined calls
// count toward the total but are not itemized, matching the dashboard cards.
type OutcomeCounts struct {
	VerifiedBooked     int `json:"verified_booked"`
	VerifiedNoDeal     int `json:"verified_no_deal"`
	FailedVerification int `json:"failed_verification"`
	DroppedIncomplete  int `json:"dropped_incomplete"`
}

// Overview is the top-level dashboard rollup.
type Overview struct {
	TotalCalls int `json:"total_calls"`
	// ConversionRate is booked calls over all calls, in percent, one decimal.
	ConversionRate float64 `json:"conversion_rate"`
	// AvgNegotiationSpread is the mean premium paid above the listed rate,
	// clamped at zero per call so rare below-list deals do not mask real
	// overspend.
	AvgNegotiationSpread  float64        `json:"avg_negotiation_spread"`
	CallsToday            int            `json:"calls_today"`
	CallOutcomes          OutcomeCounts  `json:"call_outcomes"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
}

// BuildOverview folds summaries into an Overview. An empty input yields all
// zeros, never NaN.
func BuildOverview(calls []summary.CallSummary, now time.Time) Overview {
	o := Overview{
		SentimentDistribution: map[string]int{
			summary.SentimentPositive:   0,
			summary.SentimentNeutral:    0,
			summary.SentimentNegative:   0,
			summary.SentimentFrustrated: 0,
		},
	}
	o.TotalCalls = len(calls)

	var spreads []float64
	cutoff := now.Add(-24 * time.Hour)
	for _, c := range calls {
		switch c.Outcome {
		case summary.OutcomeBooked:
			o.CallOutcomes.VerifiedBooked++
		case summary.OutcomeNoDeal:
			o.CallOutcomes.VerifiedNoDeal++
		case summary.OutcomeFailedVerification:
			o.CallOutcomes.FailedVerification++
		case summary.OutcomeDropped:
			o.CallOutcomes.DroppedIncomplete++
		}
		if c.ListedRate > 0 && c.FinalRate > 0 {
			spreads = append(spreads, math.Max(0, c.FinalRate-c.ListedRate))
		}
		if !c.Timestamp.IsZero() && c.Timestamp.After(cutoff) {
			o.CallsToday++
		}
		if _, ok := o.SentimentDistribution[c.Sentiment]; ok {
			o.SentimentDistribution[c.Sentiment]++
		} else {
			o.SentimentDistribution[summary.SentimentNeutral]++
		}
	}

	if o.TotalCalls > 0 {
		o.ConversionRate = round1(float64(o.CallOutcomes.VerifiedBooked) / float64(o.TotalCalls) * 100)
	}
	o.AvgNegotiationSpread = mean0(spreads)
	return o
}

// ChartPoint is one listed-vs-final pair for the rate chart.
type ChartPoint struct {
	Date          string  `json:"date"`
	LoadboardRate float64 `json:"loadboard_rate"`
	FinalRate     float64 `json:"final_rate"`
}

// RecentNegotiation is one row of the recent-negotiations table.
type RecentNegotiation struct {
	Date          string  `json:"date"`
	LoadID        string  `json:"load_id"`
	Lane          string  `json:"lane"`
	LoadboardRate float64 `json:"loadboard_rate"`
	FinalRate     float64 `json:"final_rate"`
	Spread        float64 `json:"spread"`
	Rounds        int     `json:"rounds"`
	Outcome       string  `json:"outcome"`
}

// Negotiations is the negotiation-performance rollup. Only calls that both
// matched a load and exchanged at least one round participate.
type Negotiations struct {
	TotalNegotiations int                 `json:"total_negotiations"`
	SuccessRate       float64             `json:"success_rate"`
	AvgDiscount       float64             `json:"avg_discount"`
	ChartPoints       []ChartPoint        `json:"chart_points"`
	Recent            []RecentNegotiation `json:"recent_negotiations"`
}

const (
	maxChartPoints = 24
	maxRecentRows  = 12
)

// BuildNegotiations folds summaries into a Negotiations rollup.
func BuildNegotiations(calls []summary.CallSummary) Negotiations {
	var negotiated []summary.CallSummary
	for _, c := range calls {
		if len(c.Rounds) > 0 && c.Load != nil {
			negotiated = append(negotiated, c)
		}
	}
	n := Negotiations{TotalNegotiations: len(negotiated)}

	var successes int
	var spreads []float64
	for _, c := range negotiated {
		if c.Accepted {
			successes++
		}
		if lb := effectiveListed(c); lb > 0 && c.FinalRate > 0 {
			spreads = append(spreads, c.FinalRate-lb)
		}
	}
	if n.TotalNegotiations > 0 {
		n.SuccessRate = round1(float64(successes) / float64(n.TotalNegotiations) * 100)
	}
	n.AvgDiscount = mean0(spreads)

	byTime := append([]summary.CallSummary(nil), negotiated...)
	sort.SliceStable(byTime, func(i, j int) bool { return byTime[i].Timestamp.Before(byTime[j].Timestamp) })

	for _, c := range byTime {
		lb := effectiveListed(c)
		if lb > 0 && c.FinalRate > 0 {
			n.ChartPoints = append(n.ChartPoints, ChartPoint{
				Date:          c.Timestamp.UTC().Format("2006-01-02"),
				LoadboardRate: lb,
				FinalRate:     c.FinalRate,
			})
		}
	}
	if len(n.ChartPoints) > maxChartPoints {
		n.ChartPoints = n.ChartPoints[len(n.ChartPoints)-maxChartPoints:]
	}

	for i := len(byTime) - 1; i >= 0 && len(n.Recent) < maxRecentRows; i-- {
		c := byTime[i]
		lb := effectiveListed(c)
		outcome := "declined"
		if c.Accepted {
			outcome = "agreed"
		}
		n.Recent = append(n.Recent, RecentNegotiation{
			Date:          c.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			LoadID:        orDash(c.Load.LoadID),
			Lane:          lane(c.Load.Origin, c.Load.Destination),
			LoadboardRate: lb,
			FinalRate:     c.FinalRate,
			Spread:        math.Max(0, c.FinalRate-lb),
			Rounds:        len(c.Rounds),
			Outcome:       outcome,
		})
	}
	return n
}

// RepeatCaller is a carrier seen on more than one call.
type RepeatCaller struct {
	MCNumber     string   `json:"mc_number"`
	CarrierName  string   `json:"carrier_name"`
	CallCount    int      `json:"call_count"`
	TypicalLanes []string `json:"typical_lanes"`
}

// FrequentLane is a lane and how often it came up.
type FrequentLane struct {
	Lane      string `json:"lane"`
	CallCount int    `json:"call_count"`
}

// CarrierInsights aggregates per-carrier and per-lane call frequency.
type CarrierInsights struct {
	RepeatCallers []RepeatCaller `json:"repeat_callers"`
	FrequentLanes []FrequentLane `json:"frequent_lanes"`
}

const maxInsightRows = 8

// BuildCarrierInsights folds summaries into repeat-caller and frequent-lane
// leaderboards. Ties break on the key so the result is order-independent.
func BuildCarrierInsights(calls []summary.CallSummary) CarrierInsights {
	counts := map[string]int{}
	names := map[string]string{}
	lanesByMC := map[string][]string{}
	laneCounts := map[string]int{}

	for _, c := range calls {
		mc := orDash(c.MCNumber)
		counts[mc]++
		if c.CarrierName != "" {
			names[mc] = c.CarrierName
		}
		if c.Load != nil && c.Load.Origin != "" && c.Load.Destination != "" {
			l := lane(c.Load.Origin, c.Load.Destination)
			lanesByMC[mc] = append(lanesByMC[mc], l)
			laneCounts[l]++
		}
	}

	var insights CarrierInsights
	for mc, n := range counts {
		if n < 2 {
			continue
		}
		name := names[mc]
		if name == "" {
			name = "Unknown"
		}
		insights.RepeatCallers = append(insights.RepeatCallers, RepeatCaller{
			MCNumber:     mc,
			CarrierName:  name,
			CallCount:    n,
			TypicalLanes: dedupe(lanesByMC[mc], 3),
		})
	}
	sort.Slice(insights.RepeatCallers, func(i, j int) bool {
		a, b := insights.RepeatCallers[i], insights.RepeatCallers[j]
		if a.CallCount != b.CallCount {
			return a.CallCount > b.CallCount
		}
		return a.MCNumber < b.MCNumber
	})
	if len(insights.RepeatCallers) > maxInsightRows {
		insights.RepeatCallers = insights.RepeatCallers[:maxInsightRows]
	}

	for l, n := range laneCounts {
		insights.FrequentLanes = append(insights.FrequentLanes, FrequentLane{Lane: l, CallCount: n})
	}
	sort.Slice(insights.FrequentLanes, func(i, j int) bool {
		a, b := insights.FrequentLanes[i], insights.FrequentLanes[j]
		if a.CallCount != b.CallCount {
			return a.CallCount > b.CallCount
		}
		return a.Lane < b.Lane
	})
	if len(insights.FrequentLanes) > maxInsightRows {
		insights.FrequentLanes = insights.FrequentLanes[:maxInsightRows]
	}
	return insights
}

// TrendPoint is one day of call volume.
type TrendPoint struct {
	Date   string `json:"date"`
	Calls  int    `json:"calls"`
	Booked int    `json:"booked"`
}

const maxTrendDays = 14

// BuildTrends buckets calls by UTC day, oldest first, capped to the most
// recent days. Calls with no timestamp are skipped.
func BuildTrends(calls []summary.CallSummary) []TrendPoint {
	byDay := map[string]*TrendPoint{}
	for _, c := range calls {
		if c.Timestamp.IsZero() {
			continue
		}
		day := c.Timestamp.UTC().Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &TrendPoint{Date: day}
			byDay[day] = p
		}
		p.Calls++
		if c.Outcome == summary.OutcomeBooked {
			p.Booked++
		}
	}
	out := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > maxTrendDays {
		out = out[len(out)-maxTrendDays:]
	}
	return out
}

// effectiveListed prefers the loadboard rate and falls back to the final rate
// when the load event never carried one, so spread math has a baseline.
func effectiveListed(c summary.CallSummary) float64 {
	if c.ListedRate > 0 {
		return c.ListedRate
	}
	return c.FinalRate
}

func lane(origin, destination string) string {
	if origin == "" && destination == "" {
		return "—"
	}
	return fmt.Sprintf("%s → %s", origin, destination)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// mean0 is the arithmetic mean rounded to whole dollars, zero for no samples.
func mean0(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return math.Round(sum / float64(len(vs)))
}

func dedupe(in []string, max int) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
