// Package loads generates candidate loads for a call and normalizes loads
// submitted from outside systems. The generator is a stand-in loadboard:
// rates derive from mileage so the numbers are plausible, and callers inject
// the clock and randomness so results are reproducible in tests.
package loads

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/loadline/loadline/internal/coerce"
	"github.com/loadline/loadline/internal/models"
	"github.com/loadline/loadline/internal/summary"
)

const candidateCount = 3

// Generate returns candidate loads matching the call's search preferences,
// best-paying first. Missing preference fields fall back to a default lane so
// the agent always has something to offer.
func Generate(prefs *models.CallSearchPrefs, now time.Time, rng *rand.Rand) []summary.Load {
	originCity, originState := "Los Angeles", "CA"
	destCity, destState := "Phoenix", "AZ"
	equipment := "Van"
	weight := 45000
	if prefs != nil {
		if prefs.OriginCity != "" {
			originCity = prefs.OriginCity
		}
		if prefs.OriginState != "" {
			originState = prefs.OriginState
		}
		if prefs.DestinationCity != "" {
			destCity = prefs.DestinationCity
		}
		if prefs.DestinationState != "" {
			destState = prefs.DestinationState
		}
		if prefs.EquipmentType != "" {
			equipment = prefs.EquipmentType
		}
		if prefs.WeightCapacity != nil && *prefs.WeightCapacity > 0 {
			weight = *prefs.WeightCapacity
		}
	}

	miles := 400 + rng.Intn(801)
	out := make([]summary.Load, 0, candidateCount)
	for i := 0; i < candidateCount; i++ {
		// $2.00 to $2.50 per mile, whole dollars.
		rate := float64(miles) * (2.0 + rng.Float64()*0.5)
		pickup := now.AddDate(0, 0, 1+rng.Intn(5))
		delivery := pickup.AddDate(0, 0, 1+rng.Intn(3))
		out = append(out, summary.Load{
			LoadID:           fmt.Sprintf("LOAD-%06d", 100000+rng.Intn(900000)),
			Origin:           fmt.Sprintf("%s, %s", originCity, originState),
			Destination:      fmt.Sprintf("%s, %s", destCity, destState),
			PickupDatetime:   pickup.UTC().Format(time.RFC3339),
			DeliveryDatetime: delivery.UTC().Format(time.RFC3339),
			EquipmentType:    equipment,
			LoadboardRate:    float64(int(rate)),
			Weight:           float64(weight),
			CommodityType:    "General",
			Miles:            float64(miles),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoadboardRate > out[j].LoadboardRate })
	return out
}

// Best returns the highest-paying candidate, or nil when there are none.
func Best(candidates []summary.Load) *summary.Load {
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[0]
}

// FromPayload normalizes an externally submitted load. The rate may arrive
// under either the rate or loadboard_rate key and numerics may be strings; a
// load with neither an id nor an origin is rejected.
func FromPayload(payload map[string]interface{}) (*summary.Load, error) {
	l := &summary.Load{}
	l.LoadID, _ = coerce.String(payload["load_id"])
	l.Origin, _ = coerce.String(payload["origin"])
	if l.LoadID == "" && l.Origin == "" {
		return nil, fmt.Errorf("loads: provide at least load_id or origin")
	}
	l.Destination, _ = coerce.String(payload["destination"])
	l.PickupDatetime, _ = coerce.String(payload["pickup_datetime"])
	l.DeliveryDatetime, _ = coerce.String(payload["delivery_datetime"])
	l.EquipmentType, _ = coerce.String(payload["equipment_type"])
	l.CommodityType, _ = coerce.String(payload["commodity_type"])
	l.Dimensions, _ = coerce.String(payload["dimensions"])
	l.Notes, _ = coerce.String(payload["notes"])
	if rate, ok := coerce.Float(payload["loadboard_rate"]); ok {
		l.LoadboardRate = rate
	} else if rate, ok := coerce.Float(payload["rate"]); ok {
		l.LoadboardRate = rate
	}
	l.Weight, _ = coerce.Float(payload["weight"])
	l.Miles, _ = coerce.Float(payload["miles"])
	l.NumOfPieces, _ = coerce.Int(payload["num_of_pieces"])
	return l, nil
}
