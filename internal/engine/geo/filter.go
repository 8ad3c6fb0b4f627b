package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"mapharvest/internal/model"
)

// FilterByRadius drops records farther than radiusKm from center. Records
// without coordinates are kept: the coordinate parse is best-effort and a
// missing position is not evidence the business is out of area.
func FilterByRadius(records []model.Record, center Point, radiusKm float64) []model.Record {
	if radiusKm <= 0 {
		return records
	}

	centerPt := orb.Point{center.Lng, center.Lat} // orb.Point is [lng, lat]
	var kept []model.Record
	for _, r := range records {
		if r.Lat == nil || r.Lng == nil {
			kept = append(kept, r)
			continue
		}
		dist := orbgeo.Distance(centerPt, orb.Point{*r.Lng, *r.Lat})
		if dist <= radiusKm*1000 {
			kept = append(kept, r)
		}
	}
	return kept
}
