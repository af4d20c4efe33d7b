package geo

import (
	"sort"
	"strings"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/timeline"
)

// MetadataKey names an optional feature property derived from a record.
type MetadataKey string

const (
	MetaPlaceID      MetadataKey = "placeId"
	MetaActivityType MetadataKey = "activityType"
	MetaDurationInMS MetadataKey = "durationInMS"
	MetaAddress      MetadataKey = "address"
)

// extractors maps each key to its derivation. A nil result is emitted as
// JSON null so "not applicable" stays distinguishable from "not requested".
var extractors = map[MetadataKey]func(timeline.Record) any{
	MetaPlaceID:      placeID,
	MetaActivityType: activityType,
	MetaDurationInMS: durationInMS,
	MetaAddress:      address,
}

// ValidMetadataKeys returns the accepted key names, sorted.
func ValidMetadataKeys() []string {
	keys := make([]string, 0, len(extractors))
	for k := range extractors {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// ParseMetadataKeys validates raw key names. Duplicates collapse, order is
// kept. An unknown key is an INVALID_METADATA_KEY error.
func ParseMetadataKeys(raw []string) ([]MetadataKey, error) {
	seen := make(map[MetadataKey]bool, len(raw))
	keys := make([]MetadataKey, 0, len(raw))
	for _, r := range raw {
		k := MetadataKey(strings.TrimSpace(r))
		if k == "" {
			continue
		}
		if _, ok := extractors[k]; !ok {
			return nil, errors.NewInvalidMetadataKey(string(k), ValidMetadataKeys())
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func placeID(r timeline.Record) any {
	pv, ok := r.PlaceVisit()
	if !ok || pv.Location == nil || pv.Location.PlaceID == nil {
		return nil
	}
	return *pv.Location.PlaceID
}

func activityType(r timeline.Record) any {
	seg, ok := r.ActivitySegment()
	if !ok || seg.ActivityType == nil {
		return nil
	}
	return *seg.ActivityType
}

func durationInMS(r timeline.Record) any {
	ms, err := r.Duration().Milliseconds()
	if err != nil {
		return nil
	}
	return ms
}

func address(r timeline.Record) any {
	pv, ok := r.PlaceVisit()
	if !ok || pv.Location == nil || pv.Location.Address == nil {
		return nil
	}
	return *pv.Location.Address
}
