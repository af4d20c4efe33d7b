// Package geo turns timeline records into GeoJSON features.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/logger"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/timeline"
)

// TimestampLayout is RFC 3339 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SegmentName is the name given to every activity segment line.
const SegmentName = "line"

// Options configures Transform.
type Options struct {
	IncludeAllWaypoints bool
	IncludeTimestamps   bool
	Metadata            []MetadataKey
	Diagnostics         *logger.Diagnostics
}

// Stats counts the features Transform emitted.
type Stats struct {
	PlaceCount           uint `json:"placeCount"`
	ActivitySegmentCount uint `json:"activitySegmentCount"`
}

// Total is the number of emitted features.
func (s Stats) Total() uint {
	return s.PlaceCount + s.ActivitySegmentCount
}

func (s Stats) String() string {
	return fmt.Sprintf("%d places and %d activity segments", s.PlaceCount, s.ActivitySegmentCount)
}

// Transform converts records to a feature collection in input order. It
// never fails: unusable records are reported to opts.Diagnostics and skipped.
func Transform(records []timeline.Record, opts Options) (*geojson.FeatureCollection, Stats) {
	fc := geojson.NewFeatureCollection()
	var stats Stats

	for i, rec := range records {
		if rec.HadBothVariants() {
			opts.Diagnostics.Report(logger.KindBothVariants,
				"object has both a placeVisit and an activitySegment; using placeVisit",
				logrus.Fields{"index": i})
		}

		var f *geojson.Feature
		switch rec.Kind() {
		case timeline.KindPlaceVisit:
			pv, _ := rec.PlaceVisit()
			if pv.Location == nil {
				opts.Diagnostics.Report(logger.KindVisitMissingLocation,
					"placeVisit has no location; skipping", logrus.Fields{"index": i})
				continue
			}
			f = placeFeature(pv)
			stats.PlaceCount++

		case timeline.KindActivitySegment:
			seg, _ := rec.ActivitySegment()
			if seg.StartLocation == nil || seg.EndLocation == nil {
				opts.Diagnostics.Report(logger.KindSegmentMissingEndpoint,
					"activitySegment does not have both a startLocation and an endLocation; skipping",
					logrus.Fields{"index": i})
				continue
			}
			f = segmentFeature(seg, opts.IncludeAllWaypoints)
			stats.ActivitySegmentCount++

		default:
			opts.Diagnostics.Report(logger.KindUnknownRecord,
				"unknown object, expected placeVisit or activitySegment; ignoring",
				logrus.Fields{"index": i})
			continue
		}

		for _, key := range opts.Metadata {
			f.Properties[string(key)] = extractors[key](rec)
		}
		if opts.IncludeTimestamps {
			f.Properties["timestamp"] = startTimestamp(rec)
		}

		fc.Append(f)
	}

	return fc, stats
}

func placeFeature(pv *timeline.PlaceVisit) *geojson.Feature {
	f := geojson.NewFeature(toPoint(pv.Location.Point()))

	var name any
	if pv.Location.Name != nil {
		name = *pv.Location.Name
	}
	f.Properties["name"] = name
	return f
}

func segmentFeature(seg *timeline.ActivitySegment, includeWaypoints bool) *geojson.Feature {
	line := orb.LineString{toPoint(*seg.StartLocation)}
	if includeWaypoints && seg.WaypointPath != nil {
		for _, wp := range seg.WaypointPath.Waypoints {
			line = append(line, toPoint(wp))
		}
	}
	line = append(line, toPoint(*seg.EndLocation))

	f := geojson.NewFeature(line)
	f.Properties["name"] = SegmentName
	return f
}

// toPoint builds a GeoJSON-ordered [lng, lat] point.
func toPoint(p timeline.LatLng) orb.Point {
	lat, lng := p.Degrees()
	return orb.Point{lng, lat}
}

func startTimestamp(r timeline.Record) any {
	start, err := r.Duration().Start()
	if err != nil {
		return nil
	}
	return start.Format(TimestampLayout)
}
