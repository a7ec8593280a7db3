package models

import "time"

// Well-known event types. The set is open: the event log stores any type the
// workflow sends, these are just the ones the aggregator knows how to project.
const (
	EventVerifyRequested  = "verify_mc_requested"
	EventCarrierVerified  = "carrier_verified"
	EventLoadOffered      = "load_offered"
	EventLoadsFound       = "loads_found"
	EventNegotiationRound = "negotiation_round"
	EventSentiment        = "sentiment_classified"
	EventCallClassified   = "call_classified"
	EventPrefsUpdated     = "call_search_prefs_updated"
	EventHandoffInitiated = "handoff_initiated"
)

// Event is one immutable, timestamped fact about a call. Rows are only ever
// inserted; every higher-level view is recomputed from them on read.
type Event struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CallID    string    `gorm:"size:64;not null;index" json:"call_id"`
	EventType string    `gorm:"size:64;not null;index" json:"event_type"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}
