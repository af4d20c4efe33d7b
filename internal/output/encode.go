package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kml "github.com/twpayne/go-kml"
)

// Encoding is an output file format.
type Encoding string

const (
	EncodingGeoJSON Encoding = "geojson"
	EncodingKML     Encoding = "kml"
)

// Ext returns the file extension, including the dot.
func (e Encoding) Ext() string {
	if e == EncodingKML {
		return ".kml"
	}
	return ".json"
}

// Options controls which payloads are produced for each page.
type Options struct {
	BaseName       string
	PageSize       int
	GenerateKML    bool
	ExcludeGeoJSON bool
	Pretty         bool
}

// File is one rendered output file, not yet written.
type File struct {
	Name     string // file name including extension
	Page     int
	Encoding Encoding
	Features int
	Payload  []byte
}

// Build paginates fc and renders every page. It does no I/O.
func Build(fc *geojson.FeatureCollection, opts Options) ([]File, error) {
	return Render(Paginate(fc, opts.BaseName, opts.PageSize), opts)
}

// Render encodes each page as GeoJSON (unless excluded) and KML (if
// requested), in page order.
func Render(pages []Page, opts Options) ([]File, error) {
	var files []File
	for _, p := range pages {
		if !opts.ExcludeGeoJSON {
			payload, err := EncodeGeoJSON(p.Collection, opts.Pretty)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", p.Name, err)
			}
			files = append(files, File{
				Name:     p.Name + EncodingGeoJSON.Ext(),
				Page:     p.Number,
				Encoding: EncodingGeoJSON,
				Features: len(p.Collection.Features),
				Payload:  payload,
			})
		}
		if opts.GenerateKML {
			payload, err := EncodeKML(p.Collection, opts.Pretty)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", p.Name, err)
			}
			files = append(files, File{
				Name:     p.Name + EncodingKML.Ext(),
				Page:     p.Number,
				Encoding: EncodingKML,
				Features: len(p.Collection.Features),
				Payload:  payload,
			})
		}
	}
	return files, nil
}

// EncodeGeoJSON marshals fc, indented with two spaces when pretty.
func EncodeGeoJSON(fc *geojson.FeatureCollection, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(fc, "", "  ")
	}
	return json.Marshal(fc)
}

// EncodeKML renders fc as a KML document with one Placemark per feature.
// The "name" property becomes the placemark name; every other property
// goes into ExtendedData.
func EncodeKML(fc *geojson.FeatureCollection, pretty bool) ([]byte, error) {
	placemarks := make([]kml.Element, 0, len(fc.Features))
	for i, f := range fc.Features {
		pm, err := placemark(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		placemarks = append(placemarks, pm)
	}

	doc := kml.KML(kml.Document(placemarks...))

	var buf bytes.Buffer
	var err error
	if pretty {
		err = doc.WriteIndent(&buf, "", "  ")
	} else {
		err = doc.Write(&buf)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func placemark(f *geojson.Feature) (kml.Element, error) {
	var children []kml.Element

	if name, ok := f.Properties["name"].(string); ok {
		children = append(children, kml.Name(name))
	}

	switch g := f.Geometry.(type) {
	case orb.Point:
		children = append(children, kml.Point(kml.Coordinates(coordinate(g))))
	case orb.LineString:
		coords := make([]kml.Coordinate, len(g))
		for i, p := range g {
			coords[i] = coordinate(p)
		}
		children = append(children, kml.LineString(kml.Coordinates(coords...)))
	default:
		return nil, fmt.Errorf("unsupported geometry %T", f.Geometry)
	}

	if data := extendedData(f.Properties); data != nil {
		children = append(children, data)
	}

	return kml.Placemark(children...), nil
}

func coordinate(p orb.Point) kml.Coordinate {
	return kml.Coordinate{Lon: p.Lon(), Lat: p.Lat()}
}

// extendedData emits properties other than name, sorted by key. Null
// values become empty <value/> elements so the key is still present.
func extendedData(props geojson.Properties) kml.Element {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	data := make([]kml.Element, 0, len(keys))
	for _, k := range keys {
		value := ""
		if v := props[k]; v != nil {
			value = fmt.Sprint(v)
		}
		d := kml.Data(kml.Value(value))
		d.Attr = append(d.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: k})
		data = append(data, d)
	}
	return kml.ExtendedData(data...)
}
