package models

import "time"

// CallSearchPrefs holds the load-search preferences captured during one call,
// keyed by call identifier. Partial upserts: only fields the workflow sends
// are overwritten.
type CallSearchPrefs struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CallID              string    `gorm:"size:64;uniqueIndex;not null" json:"call_id"`
	MCNumber            string    `gorm:"size:16" json:"mc_number"`
	OriginCity          string    `gorm:"size:128" json:"origin_city"`
	OriginState         string    `gorm:"size:8" json:"origin_state"`
	DestinationCity     string    `gorm:"size:128" json:"destination_city"`
	DestinationState    string    `gorm:"size:8" json:"destination_state"`
	PickupDate          string    `gorm:"size:64" json:"pickup_date"`
	DepartureDate       string    `gorm:"size:64" json:"departure_date"`
	LatestDepartureDate string    `gorm:"size:64" json:"latest_departure_date"`
	EquipmentType       string    `gorm:"size:32" json:"equipment_type"`
	WeightCapacity      *int      `json:"weight_capacity"`
	MinTemp             *float64  `json:"min_temp"`
	MaxTemp             *float64  `json:"max_temp"`
	Notes               string    `gorm:"type:text" json:"notes"`
	UpdatedAt           time.Time `json:"updated_at"`
}
