// Package store persists events, carrier profiles, and call search
// preferences in SQLite. The event log is append-only and is the single
// source of truth; everything else the API serves is recomputed from it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loadline/loadline/internal/models"
	"gorm.io/gorm"
)

// EventLog appends and queries immutable call events.
type EventLog struct {
	db *gorm.DB
}

// NewEventLog returns an EventLog backed by the given database.
func NewEventLog(gdb *gorm.DB) *EventLog {
	return &EventLog{db: gdb}
}

// Append records an event timestamped now. The call identifier is stored
// verbatim; empty or placeholder values degrade grouping but must never drop
// an event. Normalization is the HTTP boundary's job.
func (l *EventLog) Append(callID, eventType string, payload map[string]interface{}) error {
	return l.AppendAt(callID, eventType, payload, time.Now().UTC())
}

// AppendAt records an event with an explicit timestamp. The timestamp, not
// insertion order, defines logical order for a call.
func (l *EventLog) AppendAt(callID, eventType string, payload map[string]interface{}, ts time.Time) error {
	body := "{}"
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: marshal payload for %q: %w", eventType, err)
		}
		body = string(data)
	}
	ev := models.Event{
		CallID:    callID,
		EventType: eventType,
		Payload:   body,
		Timestamp: ts.UTC(),
	}
	if err := l.db.Create(&ev).Error; err != nil {
		return fmt.Errorf("store: append event %q: %w", eventType, err)
	}
	return nil
}

// ByCall returns all events for a call ordered by timestamp then id
// ascending. Each query is independent; there is no cursor state.
func (l *EventLog) ByCall(callID string) ([]models.Event, error) {
	var events []models.Event
	if err := l.db.Where("call_id = ?", callID).
		Order("timestamp ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("store: events for call %q: %w", callID, err)
	}
	return events, nil
}

// RecentByType returns events of one type since a cutoff, newest first.
// Used for the cross-call sentiment fallback.
func (l *EventLog) RecentByType(eventType string, since time.Time) ([]models.Event, error) {
	var events []models.Event
	if err := l.db.Where("event_type = ? AND timestamp >= ?", eventType, since.UTC()).
		Order("timestamp DESC, id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("store: recent %q events: %w", eventType, err)
	}
	return events, nil
}

// Recent returns the newest events across all calls, for the live dashboard.
func (l *EventLog) Recent(limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []models.Event
	if err := l.db.Order("id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	return events, nil
}

// DistinctCallIDs returns all call identifiers with events, most recent
// first, excluding empty and placeholder identifiers.
func (l *EventLog) DistinctCallIDs() ([]string, error) {
	var ids []string
	err := l.db.Model(&models.Event{}).
		Select("call_id").
		Where("call_id <> '' AND call_id <> ?", "unknown").
		Group("call_id").
		Order("MAX(id) DESC").
		Pluck("call_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: distinct call ids: %w", err)
	}
	return ids, nil
}

// LatestCallWithType returns the call id of the newest event having one of
// the given types (or of any type when none are given), or "" when the log
// has no matching events.
func (l *EventLog) LatestCallWithType(types ...string) (string, error) {
	var ev models.Event
	q := l.db.Order("id DESC")
	if len(types) > 0 {
		q = q.Where("event_type IN ?", types)
	}
	err := q.First(&ev).Error
	if notFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: latest call: %w", err)
	}
	return ev.CallID, nil
}

// Count returns the total number of logged events.
func (l *EventLog) Count() (int64, error) {
	var n int64
	if err := l.db.Model(&models.Event{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count events: %w", err)
	}
	return n, nil
}

// notFound reports whether err is gorm's record-not-found.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
