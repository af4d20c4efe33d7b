package geo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/logger"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/timeline"
)

func strPtr(s string) *string { return &s }

func sfVisit() timeline.Record {
	return timeline.NewPlaceVisitRecord(&timeline.PlaceVisit{
		Location: &timeline.Location{
			LatitudeE7:  377749000,
			LongitudeE7: -1224194000,
			Name:        strPtr("SF"),
			PlaceID:     strPtr("ChIJIQBpAG2ahYAR_6128GcTUEo"),
			Address:     strPtr("San Francisco, CA"),
		},
		Duration: timeline.DurationSpan{StartTimestampMs: "1000", EndTimestampMs: "2000"},
	})
}

func walk(waypoints ...timeline.LatLng) timeline.Record {
	seg := &timeline.ActivitySegment{
		StartLocation: &timeline.LatLng{LatE7: 100000000, LngE7: 200000000},
		EndLocation:   &timeline.LatLng{LatE7: 110000000, LngE7: 210000000},
		ActivityType:  strPtr("WALKING"),
		Duration: timeline.DurationSpan{
			StartTimestamp: "2022-05-01T10:00:00+02:00",
			EndTimestamp:   "2022-05-01T10:45:00+02:00",
		},
	}
	if waypoints != nil {
		seg.WaypointPath = &timeline.WaypointPath{Waypoints: waypoints}
	}
	return timeline.NewActivitySegmentRecord(seg)
}

func TestTransform_PlaceVisitScenario(t *testing.T) {
	fc, stats := Transform([]timeline.Record{sfVisit()}, Options{})

	require.Equal(t, Stats{PlaceCount: 1, ActivitySegmentCount: 0}, stats)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	require.Equal(t, orb.Point{-122.4194, 37.7749}, f.Geometry)
	require.Equal(t, "SF", f.Properties["name"])

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-122.4194,37.7749]},"properties":{"name":"SF"}}]}`, string(data))
}

func TestTransform_PlaceWithoutName(t *testing.T) {
	rec := timeline.NewPlaceVisitRecord(&timeline.PlaceVisit{
		Location: &timeline.Location{LatitudeE7: 1, LongitudeE7: 2},
	})
	fc, _ := Transform([]timeline.Record{rec}, Options{})

	name, present := fc.Features[0].Properties["name"]
	require.True(t, present)
	require.Nil(t, name)
}

func TestTransform_WaypointToggle(t *testing.T) {
	wps := []timeline.LatLng{{LatE7: 101000000, LngE7: 201000000}, {LatE7: 102000000, LngE7: 202000000}, {LatE7: 103000000, LngE7: 203000000}}
	rec := walk(wps...)

	fc, stats := Transform([]timeline.Record{rec}, Options{})
	require.Equal(t, uint(1), stats.ActivitySegmentCount)
	line := fc.Features[0].Geometry.(orb.LineString)
	require.Len(t, line, 2)
	require.Equal(t, "line", fc.Features[0].Properties["name"])

	fc, stats = Transform([]timeline.Record{rec}, Options{IncludeAllWaypoints: true})
	require.Len(t, fc.Features, 1)
	require.Equal(t, uint(1), stats.Total())
	line = fc.Features[0].Geometry.(orb.LineString)
	require.Equal(t, orb.LineString{
		{20, 10},
		{20.1, 10.1},
		{20.2, 10.2},
		{20.3, 10.3},
		{21, 11},
	}, line)
}

func TestTransform_WaypointsRequestedButAbsent(t *testing.T) {
	fc, _ := Transform([]timeline.Record{walk()}, Options{IncludeAllWaypoints: true})
	require.Len(t, fc.Features[0].Geometry.(orb.LineString), 2)
}

func TestTransform_SegmentMissingEndpointSkipped(t *testing.T) {
	rec := timeline.NewActivitySegmentRecord(&timeline.ActivitySegment{
		StartLocation: &timeline.LatLng{LatE7: 1, LngE7: 1},
	})
	diag := logger.NewDiagnostics(nil)

	fc, stats := Transform([]timeline.Record{rec, sfVisit()}, Options{Diagnostics: diag})
	require.Len(t, fc.Features, 1)
	require.Equal(t, Stats{PlaceCount: 1}, stats)
	require.Equal(t, 1, diag.Count(logger.KindSegmentMissingEndpoint))
}

func TestTransform_BothVariantsProcessedAsPlace(t *testing.T) {
	var rec timeline.Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"placeVisit":{"location":{"latitudeE7":10000000,"longitudeE7":20000000,"name":"cafe"}},
		"activitySegment":{"startLocation":{"latE7":1,"lngE7":1},"endLocation":{"latE7":2,"lngE7":2}}}`), &rec))
	diag := logger.NewDiagnostics(nil)

	fc, stats := Transform([]timeline.Record{rec}, Options{Diagnostics: diag})
	require.Equal(t, Stats{PlaceCount: 1}, stats)
	require.Equal(t, orb.Point{2, 1}, fc.Features[0].Geometry)
	require.Equal(t, 1, diag.Count(logger.KindBothVariants))
}

func TestTransform_UnknownAndMissingLocationSkipped(t *testing.T) {
	var unknown timeline.Record
	noLocation := timeline.NewPlaceVisitRecord(&timeline.PlaceVisit{})
	diag := logger.NewDiagnostics(nil)

	fc, stats := Transform([]timeline.Record{unknown, noLocation}, Options{Diagnostics: diag})
	require.Empty(t, fc.Features)
	require.Equal(t, Stats{}, stats)
	require.Equal(t, 1, diag.Count(logger.KindUnknownRecord))
	require.Equal(t, 1, diag.Count(logger.KindVisitMissingLocation))
}

func TestTransform_StatsMatchFeatureCount(t *testing.T) {
	broken := timeline.NewActivitySegmentRecord(&timeline.ActivitySegment{})
	records := []timeline.Record{sfVisit(), walk(), broken, sfVisit(), walk(), walk()}

	fc, stats := Transform(records, Options{})
	require.Equal(t, uint(len(fc.Features)), stats.Total())
	require.Equal(t, Stats{PlaceCount: 2, ActivitySegmentCount: 3}, stats)
}

func TestTransform_Metadata(t *testing.T) {
	keys, err := ParseMetadataKeys([]string{"placeId", "activityType", "durationInMS", "address"})
	require.NoError(t, err)

	fc, _ := Transform([]timeline.Record{sfVisit(), walk()}, Options{Metadata: keys})
	require.Len(t, fc.Features, 2)

	place := fc.Features[0].Properties
	require.Equal(t, "ChIJIQBpAG2ahYAR_6128GcTUEo", place["placeId"])
	require.Equal(t, "San Francisco, CA", place["address"])
	require.Equal(t, int64(1000), place["durationInMS"])
	require.Contains(t, place, "activityType")
	require.Nil(t, place["activityType"])

	seg := fc.Features[1].Properties
	require.Equal(t, "WALKING", seg["activityType"])
	require.Equal(t, int64(45*time.Minute/time.Millisecond), seg["durationInMS"])
	require.Contains(t, seg, "placeId")
	require.Nil(t, seg["placeId"])
	require.Contains(t, seg, "address")
	require.Nil(t, seg["address"])

	data, err := json.Marshal(fc.Features[1])
	require.NoError(t, err)
	require.Contains(t, string(data), `"placeId":null`)
}

func TestTransform_Timestamps(t *testing.T) {
	fc, _ := Transform([]timeline.Record{sfVisit(), walk()}, Options{IncludeTimestamps: true})

	require.Equal(t, "1970-01-01T00:00:01.000Z", fc.Features[0].Properties["timestamp"])
	require.Equal(t, "2022-05-01T10:00:00.000+02:00", fc.Features[1].Properties["timestamp"])

	fc, _ = Transform([]timeline.Record{sfVisit()}, Options{})
	require.NotContains(t, fc.Features[0].Properties, "timestamp")
}

func TestParseMetadataKeys(t *testing.T) {
	keys, err := ParseMetadataKeys([]string{" address ", "placeId", "address", ""})
	require.NoError(t, err)
	require.Equal(t, []MetadataKey{MetaAddress, MetaPlaceID}, keys)

	_, err = ParseMetadataKeys([]string{"placeId", "color"})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidMetadataKey))
}

func TestValidMetadataKeys(t *testing.T) {
	require.Equal(t, []string{"activityType", "address", "durationInMS", "placeId"}, ValidMetadataKeys())
}
