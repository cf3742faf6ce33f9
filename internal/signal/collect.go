package signal

import (
	"iter"
	"slices"
	"strings"
)

// CollectIntersections drains a single-pass sequence of validated records
// into one store per intersection, ordered by intersection id. meta may be
// nil. The first record that cannot be appended aborts collection.
func CollectIntersections(records iter.Seq[ApproachVolume], meta map[string]Metadata) ([]*IntersectionData, error) {
	return CollectIntersectionsFunc(records, meta, func(_ ApproachVolume, err error) error { return err })
}

// CollectIntersectionsFunc is CollectIntersections with a hook for records
// that cannot be appended. When onReject returns nil the record is skipped
// and collection continues; a non-nil return aborts with that error.
func CollectIntersectionsFunc(records iter.Seq[ApproachVolume], meta map[string]Metadata, onReject func(ApproachVolume, error) error) ([]*IntersectionData, error) {
	byID := make(map[string]*IntersectionData)
	for v := range records {
		d, ok := byID[v.IntersectionID]
		if !ok {
			d = NewIntersectionData(v.IntersectionID, meta[v.IntersectionID])
			byID[v.IntersectionID] = d
		}
		if err := d.Append(v); err != nil {
			if err := onReject(v, err); err != nil {
				return nil, err
			}
		}
	}

	out := make([]*IntersectionData, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *IntersectionData) int { return strings.Compare(a.id, b.id) })
	return out, nil
}

// NormalizeApproach maps the common spellings of a compass approach
// ("north", "Northbound", "NB", ...) to its short form ("N"). Anything else
// is returned trimmed but otherwise unchanged.
func NormalizeApproach(approach string) string {
	trimmed := strings.TrimSpace(approach)
	switch strings.ToLower(trimmed) {
	case "n", "north", "northbound", "nb":
		return "N"
	case "ne", "northeast", "northeastbound", "neb":
		return "NE"
	case "e", "east", "eastbound", "eb":
		return "E"
	case "se", "southeast", "southeastbound", "seb":
		return "SE"
	case "s", "south", "southbound", "sb":
		return "S"
	case "sw", "southwest", "southwestbound", "swb":
		return "SW"
	case "w", "west", "westbound", "wb":
		return "W"
	case "nw", "northwest", "northwestbound", "nwb":
		return "NW"
	}
	return trimmed
}
