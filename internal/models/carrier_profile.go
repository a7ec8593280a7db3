package models

import "time"

// CarrierProfile is what we know about a carrier across calls, keyed by MC
// number. Upserted on successful verification or preference-setting; its
// lifecycle is independent of any single call.
type CarrierProfile struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MCNumber          string    `gorm:"size:16;uniqueIndex;not null" json:"mc_number"`
	DOTNumber         string    `gorm:"size:16" json:"dot_number"`
	LegalName         string    `gorm:"size:256" json:"legal_name"`
	PhysicalCity      string    `gorm:"size:128" json:"physical_city"`
	PhysicalState     string    `gorm:"size:8" json:"physical_state"`
	EquipmentType     string    `gorm:"size:32" json:"equipment_type"`
	MinTemp           *float64  `json:"min_temp"`
	MaxTemp           *float64  `json:"max_temp"`
	OriginRadiusMiles int       `gorm:"default:50" json:"origin_radius_miles"`
	DestRadiusMiles   int       `gorm:"default:50" json:"dest_radius_miles"`
	UpdatedAt         time.Time `json:"updated_at"`
}
