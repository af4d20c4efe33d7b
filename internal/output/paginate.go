// Package output splits a feature collection into pages, encodes them as
// GeoJSON and KML, and writes the result set to disk.
package output

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// Page is one chunk of a feature collection.
type Page struct {
	Number     int // 1-based
	Name       string
	Collection *geojson.FeatureCollection
}

// PageCount returns how many pages total features split into. A pageSize
// of 0 (or less) means everything goes on one page; an empty collection
// still yields one page.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// PageName returns base for a single page, otherwise base-N with N
// left-padded with zeros to the digit width of count.
func PageName(base string, page, count int) string {
	if count <= 1 {
		return base
	}
	width := len(strconv.Itoa(count))
	return fmt.Sprintf("%s-%0*d", base, width, page)
}

// Paginate splits fc into consecutive pages of at most pageSize features,
// in order. Pages share feature values with fc.
func Paginate(fc *geojson.FeatureCollection, base string, pageSize int) []Page {
	total := len(fc.Features)
	count := PageCount(total, pageSize)
	if pageSize <= 0 {
		pageSize = total
	}

	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		lo := i * pageSize
		hi := lo + pageSize
		if hi > total {
			hi = total
		}

		page := geojson.NewFeatureCollection()
		if hi > lo {
			page.Features = fc.Features[lo:hi:hi]
		}

		pages = append(pages, Page{
			Number:     i + 1,
			Name:       PageName(base, i+1, count),
			Collection: page,
		})
	}
	return pages
}
