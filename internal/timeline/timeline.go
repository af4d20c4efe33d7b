// Package timeline models the semantic location history records found in a
// Google Takeout archive.
package timeline

import (
	"encoding/json"
	"math"
)

// Document is one month file: {"timelineObjects": [...]}.
type Document struct {
	TimelineObjects []Record `json:"timelineObjects"`
}

// Kind tags which variant a Record holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlaceVisit
	KindActivitySegment
)

func (k Kind) String() string {
	switch k {
	case KindPlaceVisit:
		return "placeVisit"
	case KindActivitySegment:
		return "activitySegment"
	default:
		return "unknown"
	}
}

// Record is a timeline object holding exactly one of PlaceVisit or
// ActivitySegment. When the source carried both, the place visit wins and
// HadBothVariants reports true.
type Record struct {
	place   *PlaceVisit
	segment *ActivitySegment
	both    bool
}

// NewPlaceVisitRecord wraps a place visit.
func NewPlaceVisitRecord(p *PlaceVisit) Record {
	return Record{place: p}
}

// NewActivitySegmentRecord wraps an activity segment.
func NewActivitySegmentRecord(s *ActivitySegment) Record {
	return Record{segment: s}
}

// Kind returns the populated variant.
func (r Record) Kind() Kind {
	switch {
	case r.place != nil:
		return KindPlaceVisit
	case r.segment != nil:
		return KindActivitySegment
	default:
		return KindUnknown
	}
}

// PlaceVisit returns the place visit variant.
func (r Record) PlaceVisit() (*PlaceVisit, bool) {
	return r.place, r.place != nil
}

// ActivitySegment returns the activity segment variant.
func (r Record) ActivitySegment() (*ActivitySegment, bool) {
	return r.segment, r.segment != nil
}

// HadBothVariants reports whether the source object carried both a
// placeVisit and an activitySegment.
func (r Record) HadBothVariants() bool {
	return r.both
}

// Duration returns the time span of the populated variant.
func (r Record) Duration() DurationSpan {
	switch r.Kind() {
	case KindPlaceVisit:
		return r.place.Duration
	case KindActivitySegment:
		return r.segment.Duration
	default:
		return DurationSpan{}
	}
}

type rawRecord struct {
	PlaceVisit      *PlaceVisit      `json:"placeVisit"`
	ActivitySegment *ActivitySegment `json:"activitySegment"`
}

// UnmarshalJSON decodes a timeline object into its tagged form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{}
	switch {
	case raw.PlaceVisit != nil:
		r.place = raw.PlaceVisit
		r.both = raw.ActivitySegment != nil
	case raw.ActivitySegment != nil:
		r.segment = raw.ActivitySegment
	}
	return nil
}

// MarshalJSON encodes the record back to the Takeout shape.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawRecord{PlaceVisit: r.place, ActivitySegment: r.segment})
}

// PlaceVisit is a stay at a single location.
type PlaceVisit struct {
	Location *Location    `json:"location,omitempty"`
	Duration DurationSpan `json:"duration"`
}

// Location is a visited place.
type Location struct {
	LatitudeE7  int32   `json:"latitudeE7"`
	LongitudeE7 int32   `json:"longitudeE7"`
	Name        *string `json:"name,omitempty"`
	PlaceID     *string `json:"placeId,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// Point returns the location's coordinate.
func (l *Location) Point() LatLng {
	return LatLng{LatE7: l.LatitudeE7, LngE7: l.LongitudeE7}
}

// ActivitySegment is movement between two locations.
type ActivitySegment struct {
	StartLocation *LatLng       `json:"startLocation,omitempty"`
	EndLocation   *LatLng       `json:"endLocation,omitempty"`
	WaypointPath  *WaypointPath `json:"waypointPath,omitempty"`
	ActivityType  *string       `json:"activityType,omitempty"`
	Duration      DurationSpan  `json:"duration"`
}

// WaypointPath holds the interior points of a segment.
type WaypointPath struct {
	Waypoints []LatLng `json:"waypoints"`
}

// LatLng is an E7 fixed-point coordinate. Both the long
// (latitudeE7/longitudeE7) and short (latE7/lngE7) field names decode.
type LatLng struct {
	LatE7 int32
	LngE7 int32
}

type latLngJSON struct {
	LatitudeE7  *int32 `json:"latitudeE7,omitempty"`
	LongitudeE7 *int32 `json:"longitudeE7,omitempty"`
	LatE7       *int32 `json:"latE7,omitempty"`
	LngE7       *int32 `json:"lngE7,omitempty"`
}

// UnmarshalJSON accepts either naming convention; the long form wins.
func (p *LatLng) UnmarshalJSON(data []byte) error {
	var raw latLngJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = LatLng{}
	if raw.LatitudeE7 != nil {
		p.LatE7 = *raw.LatitudeE7
	} else if raw.LatE7 != nil {
		p.LatE7 = *raw.LatE7
	}
	if raw.LongitudeE7 != nil {
		p.LngE7 = *raw.LongitudeE7
	} else if raw.LngE7 != nil {
		p.LngE7 = *raw.LngE7
	}
	return nil
}

// MarshalJSON writes the long field names.
func (p LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal(latLngJSON{LatitudeE7: &p.LatE7, LongitudeE7: &p.LngE7})
}

// Degrees converts to decimal latitude and longitude.
func (p LatLng) Degrees() (lat, lng float64) {
	return E7ToDegrees(p.LatE7), E7ToDegrees(p.LngE7)
}

// E7ToDegrees converts a fixed-point E7 value to decimal degrees.
func E7ToDegrees(v int32) float64 {
	return float64(v) / 1e7
}

// DegreesToE7 converts decimal degrees to the nearest E7 value.
func DegreesToE7(deg float64) int32 {
	return int32(math.Round(deg * 1e7))
}
