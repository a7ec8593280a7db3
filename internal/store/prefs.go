package store

import (
	"fmt"
	"time"

	"github.com/loadline/loadline/internal/models"
	"gorm.io/gorm"
)

// PrefsStore upserts and reads per-call load search preferences.
type PrefsStore struct {
	db *gorm.DB
}

// NewPrefsStore returns a PrefsStore backed by the given database.
func NewPrefsStore(gdb *gorm.DB) *PrefsStore {
	return &PrefsStore{db: gdb}
}

// PrefsUpdate carries the fields to overwrite on upsert; nil pointers leave
// existing values untouched.
type PrefsUpdate struct {
	MCNumber            *string
	OriginCity          *string
	OriginState         *string
	DestinationCity     *string
	DestinationState    *string
	PickupDate          *string
	DepartureDate       *string
	LatestDepartureDate *string
	EquipmentType       *string
	WeightCapacity      *int
	MinTemp             *float64
	MaxTemp             *float64
	Notes               *string
}

// Upsert creates the prefs row if absent, otherwise overwrites only the
// provided fields. Returns the full row after the write.
func (s *PrefsStore) Upsert(callID string, u PrefsUpdate) (*models.CallSearchPrefs, error) {
	if callID == "" {
		return nil, fmt.Errorf("store: call id is required")
	}

	var p models.CallSearchPrefs
	err := s.db.Where("call_id = ?", callID).First(&p).Error
	switch {
	case notFound(err):
		p = models.CallSearchPrefs{CallID: callID}
	case err != nil:
		return nil, fmt.Errorf("store: prefs for %q: %w", callID, err)
	}

	if u.MCNumber != nil {
		p.MCNumber = *u.MCNumber
	}
	if u.OriginCity != nil {
		p.OriginCity = *u.OriginCity
	}
	if u.OriginState != nil {
		p.OriginState = *u.OriginState
	}
	if u.DestinationCity != nil {
		p.DestinationCity = *u.DestinationCity
	}
	if u.DestinationState != nil {
		p.DestinationState = *u.DestinationState
	}
	if u.PickupDate != nil {
		p.PickupDate = *u.PickupDate
	}
	if u.DepartureDate != nil {
		p.DepartureDate = *u.DepartureDate
	}
	if u.LatestDepartureDate != nil {
		p.LatestDepartureDate = *u.LatestDepartureDate
	}
	if u.EquipmentType != nil {
		p.EquipmentType = *u.EquipmentType
	}
	if u.WeightCapacity != nil {
		p.WeightCapacity = u.WeightCapacity
	}
	if u.MinTemp != nil {
		p.MinTemp = u.MinTemp
	}
	if u.MaxTemp != nil {
		p.MaxTemp = u.MaxTemp
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.db.Save(&p).Error; err != nil {
		return nil, fmt.Errorf("store: upsert prefs for %q: %w", callID, err)
	}
	return &p, nil
}

// Get returns the prefs for a call, or nil when none exist.
func (s *PrefsStore) Get(callID string) (*models.CallSearchPrefs, error) {
	var p models.CallSearchPrefs
	err := s.db.Where("call_id = ?", callID).First(&p).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: prefs for %q: %w", callID, err)
	}
	return &p, nil
}

// Count returns the number of calls with recorded preferences.
func (s *PrefsStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&models.CallSearchPrefs{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count prefs: %w", err)
	}
	return n, nil
}

// RecentPrefs returns the most recently updated call preferences, for the
// live dashboard.
func (s *PrefsStore) RecentPrefs(limit int) ([]models.CallSearchPrefs, error) {
	if limit <= 0 {
		limit = 10
	}
	var prefs []models.CallSearchPrefs
	if err := s.db.Order("id DESC").Limit(limit).Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("store: recent prefs: %w", err)
	}
	return prefs, nil
}
