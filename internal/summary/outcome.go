package summary

import "strings"

// Outcome classifies how a call ended. The five values are exhaustive: every
// combination of events maps to exactly one of them.
type Outcome string

const (
	OutcomeBooked             Outcome = "booked"
	OutcomeNoDeal             Outcome = "no_deal"
	OutcomeDeclined           Outcome = "declined"
	OutcomeFailedVerification Outcome = "failed_verification"
	OutcomeDropped            Outcome = "dropped"
)

// Sentiment buckets. Raw classifier labels are normalized into these four.
const (
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
	SentimentNegative   = "negative"
	SentimentFrustrated = "frustrated"
)

// classify applies the outcome rules in priority order. verified is nil when
// the call never produced a verification event.
func classify(verified *bool, rounds int, accepted bool) Outcome {
	if verified != nil && !*verified {
		return OutcomeFailedVerification
	}
	if accepted {
		return OutcomeBooked
	}
	if verified == nil && rounds == 0 {
		return OutcomeDropped
	}
	if rounds == 0 {
		return OutcomeDeclined
	}
	return OutcomeNoDeal
}

// NormalizeSentiment folds a free-form classifier label into one of the four
// buckets. Unrecognized labels land on neutral.
func NormalizeSentiment(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return SentimentNeutral
	case strings.Contains(s, "frustrat") || strings.Contains(s, "angry") || strings.Contains(s, "anger") || strings.Contains(s, "annoyed"):
		return SentimentFrustrated
	case strings.Contains(s, "positive") || strings.Contains(s, "happy") || strings.Contains(s, "satisfied") || strings.Contains(s, "pleased") || strings.Contains(s, "friendly"):
		return SentimentPositive
	case strings.Contains(s, "negative") || strings.Contains(s, "upset") || strings.Contains(s, "unhappy") || strings.Contains(s, "dissatisfied") || strings.Contains(s, "hostile"):
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
