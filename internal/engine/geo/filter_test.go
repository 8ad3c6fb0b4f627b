package geo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mapharvest/internal/model"
)

func placedRecord(name string, lat, lng float64) model.Record {
	r := model.NewRecord()
	r.Name = name
	r.Lat = &lat
	r.Lng = &lng
	return *r
}

func TestFilterByRadius(t *testing.T) {
	telAviv := Point{Lat: 32.0853, Lng: 34.7818}

	inside := placedRecord("Dizengoff Cafe", 32.0809, 34.7806) // ~500 m away
	outside := placedRecord("Haifa Port Bar", 32.8191, 34.9983) // ~80 km away
	unplaced := *model.NewRecord()
	unplaced.Name = "Coordinates unknown"

	kept := FilterByRadius([]model.Record{inside, outside, unplaced}, telAviv, 10)
	require.Len(t, kept, 2)
	require.Equal(t, "Dizengoff Cafe", kept[0].Name)
	require.Equal(t, "Coordinates unknown", kept[1].Name)
}

func TestFilterByRadiusDisabled(t *testing.T) {
	telAviv := Point{Lat: 32.0853, Lng: 34.7818}
	records := []model.Record{placedRecord("Anywhere", -33.8688, 151.2093)}

	kept := FilterByRadius(records, telAviv, 0)
	require.Len(t, kept, 1)
}
