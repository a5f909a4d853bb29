// Package fitness derives scores, chart series and leaderboards from synced
// Garmin records.
package fitness

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
)

// DefaultZoneWeights are the points-per-minute weights used for any heart
// rate zone that has no configured row.
var DefaultZoneWeights = map[int]float64{
	0: 1,
	1: 2,
	2: 3,
	3: 5,
	4: 8,
	5: 12,
}

// LoadZoneWeights reads configured zone weights, falling back to the defaults
// for any zone without a row. The table is not assumed complete.
func LoadZoneWeights(db *gorm.DB) map[int]float64 {
	weights := make(map[int]float64, len(DefaultZoneWeights))
	for zone, w := range DefaultZoneWeights {
		weights[zone] = w
	}
	var rows []models.SweatScoreWeight
	if err := db.Find(&rows).Error; err != nil {
		return weights
	}
	for _, row := range rows {
		weights[row.Zone] = row.Weight
	}
	return weights
}

// SweatScore computes the intensity score for one activity. Seconds per heart
// rate zone come from the retained raw payload; time below zone 1 is the
// remaining duration, floored at zero to absorb provider inconsistencies.
// Activities without zone data score calories / 2, or 0 without calories.
// Pure given the same inputs.
func SweatScore(activity *models.GarminActivity, weights map[int]float64) float64 {
	zones, ok := zoneTimes(activity.RawData)
	if !ok {
		if activity.Calories != nil {
			return *activity.Calories / 2
		}
		return 0
	}

	var minutes [6]float64
	for zone := 1; zone <= 5; zone++ {
		minutes[zone] = zones[zone] / 60
	}
	var duration float64
	if activity.DurationSeconds != nil {
		duration = *activity.DurationSeconds / 60
	}
	above := minutes[1] + minutes[2] + minutes[3] + minutes[4] + minutes[5]
	minutes[0] = duration - above
	if minutes[0] < 0 {
		minutes[0] = 0
	}

	score := 0.0
	for zone := 0; zone <= 5; zone++ {
		w, ok := weights[zone]
		if !ok {
			w = DefaultZoneWeights[zone]
		}
		score += minutes[zone] * w
	}
	return score
}

// zoneTimes extracts seconds spent in zones 1..5 from the raw activity
// payload. Returns false when the payload carries no zone block.
func zoneTimes(raw []byte) (map[int]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var payload struct {
		HRTimeInZone map[string]float64 `json:"hrTimeInZone"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.HRTimeInZone == nil {
		return nil, false
	}
	zones := make(map[int]float64, 5)
	for zone := 1; zone <= 5; zone++ {
		zones[zone] = payload.HRTimeInZone[fmt.Sprintf("hrTimeInZone_%d", zone)]
	}
	return zones, true
}
