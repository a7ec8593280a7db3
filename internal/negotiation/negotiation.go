// Package negotiation implements the rate negotiation decision engine: a
// pure, deterministic function from (listed rate, carrier counter, round,
// policy) to an accept/counter/reject decision. It performs no I/O; the
// caller decides what to persist.
package negotiation

import (
	"fmt"
	"math"
)

// Decision is the engine's verdict on a carrier counteroffer.
type Decision string

const (
	Accept  Decision = "accept"
	Counter Decision = "counter"
	Reject  Decision = "reject"
)

// Policy holds the negotiation guardrails. Always passed in explicitly so the
// engine can be exercised with arbitrary values.
type Policy struct {
	// CeilingPct is the maximum premium over the listed rate we will pay,
	// e.g. 0.25 allows up to 125% of the listed rate.
	CeilingPct float64
	// MaxRounds is the round at which the negotiation must resolve.
	MaxRounds int
}

// DefaultPolicy returns the standard guardrails: 25% ceiling, 3 rounds.
func DefaultPolicy() Policy {
	return Policy{CeilingPct: 0.25, MaxRounds: 3}
}

// Ceiling returns the absolute maximum rate for a listed rate under this policy.
func (p Policy) Ceiling(listedRate float64) float64 {
	return listedRate * (1 + p.CeilingPct)
}

// Outcome is the engine's full answer for one round.
type Outcome struct {
	Decision   Decision `json:"decision"`
	NextOffer  float64  `json:"next_offer"`
	Message    string   `json:"message"`
	RoundsLeft int      `json:"rounds_left"`
}

// Decide evaluates one negotiation round. Rules, in order:
//
//  1. Counter above the ceiling is rejected at any round; the returned offer
//     is the ceiling as a best-and-final figure.
//  2. Counter at or below the listed rate is accepted as-is.
//  3. At or past the terminal round the counter is accepted (it is within the
//     ceiling by rule 1). A round past MaxRounds is treated as terminal, not
//     an error, since the workflow may skip or repeat round numbers.
//  4. Otherwise counter with an offer blended between the listed rate and the
//     carrier's number, weighted further toward the carrier as rounds
//     progress. If the blend already meets the carrier's number, accept.
//
// All returned amounts are whole dollars and never exceed the ceiling.
func Decide(listedRate, carrierCounter float64, round int, p Policy) (Outcome, error) {
	if listedRate <= 0 {
		return Outcome{}, fmt.Errorf("negotiation: listed rate must be positive, got %v", listedRate)
	}
	if carrierCounter <= 0 {
		return Outcome{}, fmt.Errorf("negotiation: carrier counter must be positive, got %v", carrierCounter)
	}
	if round < 1 {
		return Outcome{}, fmt.Errorf("negotiation: round must be at least 1, got %d", round)
	}
	if p.MaxRounds < 1 || p.CeilingPct < 0 {
		return Outcome{}, fmt.Errorf("negotiation: invalid policy %+v", p)
	}

	ceiling := p.Ceiling(listedRate)

	if carrierCounter > ceiling {
		offer := roundBelow(ceiling, ceiling)
		return Outcome{
			Decision:  Reject,
			NextOffer: offer,
			Message:   fmt.Sprintf("We can't go that high. Our best and final for this load is $%.0f.", offer),
		}, nil
	}

	if carrierCounter <= listedRate {
		offer := roundBelow(carrierCounter, ceiling)
		return Outcome{
			Decision:  Accept,
			NextOffer: offer,
			Message:   fmt.Sprintf("Deal at $%.0f. I'll send over the rate confirmation now.", offer),
		}, nil
	}

	if round >= p.MaxRounds {
		offer := roundBelow(math.Min(carrierCounter, ceiling), ceiling)
		return Outcome{
			Decision:  Accept,
			NextOffer: offer,
			Message:   fmt.Sprintf("Okay, we'll make it work at $%.0f. Sending the rate confirmation.", offer),
		}, nil
	}

	// Blend toward the carrier's number, leaning harder as rounds burn down.
	// round < MaxRounds here, so blend < 1 and the offer stays below the
	// counter (and therefore below the ceiling) until the gap is tiny.
	blend := 0.5 + 0.5*float64(round)/float64(p.MaxRounds+1)
	offer := roundBelow(listedRate+(carrierCounter-listedRate)*blend, ceiling)

	if offer >= carrierCounter {
		offer = roundBelow(carrierCounter, ceiling)
		return Outcome{
			Decision:  Accept,
			NextOffer: offer,
			Message:   fmt.Sprintf("Deal at $%.0f. I'll send over the rate confirmation now.", offer),
		}, nil
	}

	roundsLeft := p.MaxRounds - round
	return Outcome{
		Decision:   Counter,
		NextOffer:  offer,
		Message:    fmt.Sprintf("We can do $%.0f on this load. You have %d round(s) left — can you make that work?", offer, roundsLeft),
		RoundsLeft: roundsLeft,
	}, nil
}

// roundBelow rounds v to the nearest whole dollar without letting the result
// cross ceiling. Fractional cents must never surface in a message or payload.
func roundBelow(v, ceiling float64) float64 {
	r := math.Round(v)
	if r > ceiling {
		r = math.Floor(ceiling)
	}
	return r
}
