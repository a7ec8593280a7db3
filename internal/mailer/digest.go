package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/loadline/loadline/internal/metrics"
)

// FormatDigest renders the daily operations digest email from the overview
// rollup.
func FormatDigest(o metrics.Overview, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("Loadline daily digest — %s", now.Format("Jan 2, 2006"))
	lines := []string{
		fmt.Sprintf("Carrier call digest for %s", now.Format("January 2, 2006")),
		"",
		fmt.Sprintf("Total calls: %d (%d in the last 24h)", o.TotalCalls, o.CallsToday),
		fmt.Sprintf("Conversion rate: %.1f%%", o.ConversionRate),
		fmt.Sprintf("Avg premium over listed: $%s", comma(o.AvgNegotiationSpread)),
		"",
		"Outcomes:",
		fmt.Sprintf("  Booked: %d", o.CallOutcomes.VerifiedBooked),
		fmt.Sprintf("  No deal: %d", o.CallOutcomes.VerifiedNoDeal),
		fmt.Sprintf("  Failed verification: %d", o.CallOutcomes.FailedVerification),
		fmt.Sprintf("  Dropped: %d", o.CallOutcomes.DroppedIncomplete),
		"",
		"Sentiment:",
		fmt.Sprintf("  Positive: %d  Neutral: %d  Negative: %d  Frustrated: %d",
			o.SentimentDistribution["positive"], o.SentimentDistribution["neutral"],
			o.SentimentDistribution["negative"], o.SentimentDistribution["frustrated"]),
		"",
		"Full details on the dashboard.",
	}
	return subject, strings.Join(lines, "\n")
}
