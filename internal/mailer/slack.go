package mailer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/loadline/loadline/internal/summary"
)

// maxSlackRetries caps retries on rate-limited posts.
const maxSlackRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts booked-call notifications to a channel. Nil or
// unconfigured notifiers are safe to call and do nothing.
type SlackNotifier struct {
	client  slackClient
	channel string
}

// NewSlackNotifier builds a notifier. An empty token or channel disables it.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	if botToken == "" || channel == "" {
		return &SlackNotifier{}
	}
	return &SlackNotifier{client: slackapi.New(botToken), channel: channel}
}

// newSlackNotifierWithClient is the test seam.
func newSlackNotifierWithClient(client slackClient, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, channel: channel}
}

// Enabled reports whether the notifier will actually post.
func (n *SlackNotifier) Enabled() bool {
	return n != nil && n.client != nil && n.channel != ""
}

// NotifyBooked posts a one-line booking notice with a detail attachment.
func (n *SlackNotifier) NotifyBooked(ctx context.Context, s summary.CallSummary) error {
	if !n.Enabled() {
		return nil
	}

	lane := "unknown lane"
	if s.Load != nil && s.Load.Origin != "" {
		lane = fmt.Sprintf("%s → %s", s.Load.Origin, s.Load.Destination)
	}
	text := fmt.Sprintf("Load booked: %s at $%s (%s)", lane, comma(s.FinalRate), orPlaceholder(s.CarrierName, "Unknown carrier"))

	att := slackapi.Attachment{
		Color:    "#36a64f",
		Fallback: text,
		Fields: []slackapi.AttachmentField{
			{Title: "Call", Value: s.CallID, Short: true},
			{Title: "MC#", Value: orPlaceholder(s.MCNumber, "—"), Short: true},
			{Title: "Rounds", Value: fmt.Sprintf("%d", len(s.Rounds)), Short: true},
			{Title: "Sentiment", Value: capitalize(s.Sentiment), Short: true},
		},
	}

	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := n.client.PostMessageContext(ctx, n.channel,
			slackapi.MsgOptionText(text, false),
			slackapi.MsgOptionAttachments(att))
		return postErr
	})
	if err != nil {
		return fmt.Errorf("mailer: slack notify: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit
// errors, respecting the RetryAfter hint and context cancellation.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxSlackRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxSlackRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
