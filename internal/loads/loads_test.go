package loads

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/loadline/loadline/internal/models"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate_Defaults(t *testing.T) {
	got := Generate(nil, now, rand.New(rand.NewSource(1)))
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, l := range got {
		if l.Origin != "Los Angeles, CA" || l.Destination != "Phoenix, AZ" {
			t.Errorf("lane = %s to %s, want default lane", l.Origin, l.Destination)
		}
		if l.EquipmentType != "Van" || l.Weight != 45000 {
			t.Errorf("defaults = %+v", l)
		}
		if !strings.HasPrefix(l.LoadID, "LOAD-") {
			t.Errorf("LoadID = %q", l.LoadID)
		}
		perMile := l.LoadboardRate / l.Miles
		if perMile < 2.0 || perMile > 2.5 {
			t.Errorf("rate %v for %v miles is outside $2.00-2.50/mi", l.LoadboardRate, l.Miles)
		}
		if l.PickupDatetime >= l.DeliveryDatetime {
			t.Errorf("pickup %s not before delivery %s", l.PickupDatetime, l.DeliveryDatetime)
		}
	}
}

func TestGenerate_UsesPrefs(t *testing.T) {
	w := 38000
	prefs := &models.CallSearchPrefs{
		OriginCity: "Dallas", OriginState: "TX",
		DestinationCity: "Atlanta", DestinationState: "GA",
		EquipmentType:  "Reefer",
		WeightCapacity: &w,
	}
	got := Generate(prefs, now, rand.New(rand.NewSource(2)))
	if got[0].Origin != "Dallas, TX" || got[0].Destination != "Atlanta, GA" {
		t.Errorf("lane = %s to %s", got[0].Origin, got[0].Destination)
	}
	if got[0].EquipmentType != "Reefer" || got[0].Weight != 38000 {
		t.Errorf("load = %+v", got[0])
	}
}

func TestGenerate_SortedByRateDesc(t *testing.T) {
	got := Generate(nil, now, rand.New(rand.NewSource(3)))
	for i := 1; i < len(got); i++ {
		if got[i].LoadboardRate > got[i-1].LoadboardRate {
			t.Errorf("loads not sorted by rate desc: %v then %v", got[i-1].LoadboardRate, got[i].LoadboardRate)
		}
	}
}

func TestGenerate_DeterministicWithSeed(t *testing.T) {
	a := Generate(nil, now, rand.New(rand.NewSource(7)))
	b := Generate(nil, now, rand.New(rand.NewSource(7)))
	if a[0].LoadID != b[0].LoadID || a[0].LoadboardRate != b[0].LoadboardRate {
		t.Error("same seed should generate the same loads")
	}
}

func TestBest(t *testing.T) {
	if Best(nil) != nil {
		t.Error("Best(nil) should be nil")
	}
	got := Generate(nil, now, rand.New(rand.NewSource(4)))
	if best := Best(got); best == nil || best.LoadboardRate != got[0].LoadboardRate {
		t.Errorf("Best = %+v, want the top-rate load", best)
	}
}

func TestFromPayload(t *testing.T) {
	l, err := FromPayload(map[string]interface{}{
		"load_id": "LD-9", "origin": "Dallas, TX", "destination": "Atlanta, GA",
		"rate": "2450", "weight": 42000.0, "num_of_pieces": "12",
	})
	if err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if l.LoadboardRate != 2450 {
		t.Errorf("LoadboardRate = %v, want rate alias honored", l.LoadboardRate)
	}
	if l.Weight != 42000 || l.NumOfPieces != 12 {
		t.Errorf("load = %+v", l)
	}
}

func TestFromPayload_LoadboardRateWins(t *testing.T) {
	l, err := FromPayload(map[string]interface{}{"load_id": "LD-1", "loadboard_rate": 2000.0, "rate": 1500.0})
	if err != nil {
		t.Fatal(err)
	}
	if l.LoadboardRate != 2000 {
		t.Errorf("LoadboardRate = %v, loadboard_rate should win over rate", l.LoadboardRate)
	}
}

func TestFromPayload_RequiresIDOrOrigin(t *testing.T) {
	if _, err := FromPayload(map[string]interface{}{"rate": 100.0}); err == nil {
		t.Error("expected error without load_id or origin")
	}
	if _, err := FromPayload(map[string]interface{}{"origin": "Dallas, TX"}); err != nil {
		t.Errorf("origin alone should suffice: %v", err)
	}
}
