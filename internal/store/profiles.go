package store

import (
	"fmt"
	"time"

	"github.com/loadline/loadline/internal/models"
	"gorm.io/gorm"
)

// ProfileStore upserts and reads carrier profiles keyed by MC number. A
// profile outlives any single call: it is what we know about the carrier.
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore returns a ProfileStore backed by the given database.
func NewProfileStore(gdb *gorm.DB) *ProfileStore {
	return &ProfileStore{db: gdb}
}

// ProfileUpdate carries the fields to overwrite on upsert. Nil pointers leave
// existing values untouched so a verification result never clobbers
// user-entered preferences.
type ProfileUpdate struct {
	DOTNumber         *string
	LegalName         *string
	PhysicalCity      *string
	PhysicalState     *string
	EquipmentType     *string
	MinTemp           *float64
	MaxTemp           *float64
	OriginRadiusMiles *int
	DestRadiusMiles   *int
}

// Upsert creates the profile if absent, otherwise overwrites only the
// provided fields. Returns the full row after the write.
func (s *ProfileStore) Upsert(mcNumber string, u ProfileUpdate) (*models.CarrierProfile, error) {
	if mcNumber == "" {
		return nil, fmt.Errorf("store: mc number is required")
	}

	var p models.CarrierProfile
	err := s.db.Where("mc_number = ?", mcNumber).First(&p).Error
	switch {
	case notFound(err):
		p = models.CarrierProfile{MCNumber: mcNumber}
	case err != nil:
		return nil, fmt.Errorf("store: profile %q: %w", mcNumber, err)
	}

	if u.DOTNumber != nil {
		p.DOTNumber = *u.DOTNumber
	}
	if u.LegalName != nil {
		p.LegalName = *u.LegalName
	}
	if u.PhysicalCity != nil {
		p.PhysicalCity = *u.PhysicalCity
	}
	if u.PhysicalState != nil {
		p.PhysicalState = *u.PhysicalState
	}
	if u.EquipmentType != nil {
		p.EquipmentType = *u.EquipmentType
	}
	if u.MinTemp != nil {
		p.MinTemp = u.MinTemp
	}
	if u.MaxTemp != nil {
		p.MaxTemp = u.MaxTemp
	}
	if u.OriginRadiusMiles != nil {
		p.OriginRadiusMiles = *u.OriginRadiusMiles
	}
	if u.DestRadiusMiles != nil {
		p.DestRadiusMiles = *u.DestRadiusMiles
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.db.Save(&p).Error; err != nil {
		return nil, fmt.Errorf("store: upsert profile %q: %w", mcNumber, err)
	}
	return &p, nil
}

// Recent returns the most recently updated profiles, for the live dashboard.
func (s *ProfileStore) Recent(limit int) ([]models.CarrierProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	var profiles []models.CarrierProfile
	if err := s.db.Order("id DESC").Limit(limit).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("store: recent profiles: %w", err)
	}
	return profiles, nil
}

// Get returns the profile for an MC number, or nil when none exists.
func (s *ProfileStore) Get(mcNumber string) (*models.CarrierProfile, error) {
	var p models.CarrierProfile
	err := s.db.Where("mc_number = ?", mcNumber).First(&p).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: profile %q: %w", mcNumber, err)
	}
	return &p, nil
}
