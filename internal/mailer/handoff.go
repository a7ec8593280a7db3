// Package mailer delivers call handoffs to humans: a plain-text email to the
// sales rep and an optional Slack ping on booked loads. Both senders are
// no-ops when unconfigured so a dev setup never needs SMTP or Slack tokens.
package mailer

import (
	"fmt"
	"strings"

	"github.com/loadline/loadline/internal/summary"
)

// FormatHandoff renders the sales-rep handoff email for a call. The body is
// plain text on purpose: it gets pasted into TMS notes and ticket systems
// that mangle HTML.
func FormatHandoff(s summary.CallSummary) (subject, body string) {
	carrier := orPlaceholder(s.CarrierName, "Unknown")
	mc := orPlaceholder(s.MCNumber, "—")
	outcome := orPlaceholder(string(s.Outcome), "—")
	sentiment := capitalize(orPlaceholder(s.Sentiment, "—"))
	reasoning := orPlaceholder(s.SentimentReasoning, "No reasoning provided.")

	lane := "—"
	loadID, equipment, pickup, delivery := "—", "—", "—", "—"
	var rate float64
	if s.Load != nil {
		lane = fmt.Sprintf("%s → %s", orPlaceholder(s.Load.Origin, "—"), orPlaceholder(s.Load.Destination, "—"))
		loadID = orPlaceholder(s.Load.LoadID, "—")
		equipment = orPlaceholder(s.Load.EquipmentType, "—")
		pickup = orPlaceholder(s.Load.PickupDatetime, "—")
		delivery = orPlaceholder(s.Load.DeliveryDatetime, "—")
		rate = s.Load.LoadboardRate
	}
	if rate == 0 {
		rate = s.FinalRate
	}
	rateStr := "—"
	if rate > 0 {
		rateStr = fmt.Sprintf("$%s", comma(rate))
	}
	finalStr := "Final rate: —"
	if s.FinalRate > 0 {
		finalStr = fmt.Sprintf("Final rate: $%s", comma(s.FinalRate))
	}
	durationStr := "—"
	if s.DurationSeconds >= 0 {
		durationStr = fmt.Sprintf("%dm %ds", s.DurationSeconds/60, s.DurationSeconds%60)
	}

	subject = fmt.Sprintf("Call handoff: %s (%s) — %s", carrier, outcome, s.CallID)
	lines := []string{
		fmt.Sprintf("Call handoff summary — %s", s.CallID),
		"",
		"— Carrier —",
		fmt.Sprintf("Carrier: %s", carrier),
		fmt.Sprintf("MC#: %s", mc),
		fmt.Sprintf("Verification: %s", orPlaceholder(s.VerificationStatus, "—")),
		"",
		"— Outcome —",
		fmt.Sprintf("Outcome: %s", outcome),
		fmt.Sprintf("Sentiment: %s", sentiment),
		fmt.Sprintf("Duration: %s", durationStr),
		fmt.Sprintf("Reasoning: %s", reasoning),
		"",
		"— Load —",
		fmt.Sprintf("Lane: %s", lane),
		fmt.Sprintf("Load ID: %s", loadID),
		fmt.Sprintf("Rate: %s", rateStr),
		fmt.Sprintf("Equipment: %s", equipment),
		fmt.Sprintf("Pickup: %s", pickup),
		fmt.Sprintf("Delivery: %s", delivery),
		"",
		"— Negotiation —",
		fmt.Sprintf("Rounds: %d", len(s.Rounds)),
		finalStr,
		fmt.Sprintf("Agreed: %v", s.Accepted),
		"",
		"View full details in the Call Log.",
	}
	return subject, strings.Join(lines, "\n")
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// comma formats a whole-dollar amount with thousands separators.
func comma(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
