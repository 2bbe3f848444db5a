// Package exifgps extracts GPS coordinates from embedded camera metadata.
package exifgps

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	stderrors "grievance-intake/internal/common/errors"
)

// Coordinate is a pair of signed decimal degrees. Both axes are always
// populated; a partial coordinate is treated as an extraction failure.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Extractor reads GPS metadata from raw image bytes.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract decodes the EXIF block of image and converts its GPS tags to
// decimal degrees. A missing metadata block, missing GPS sub-block, or
// missing axis yields NO_GPS_DATA; unconvertible numeric payloads or
// unrecognized hemisphere references yield MALFORMED_COORDINATE.
func (e *Extractor) Extract(image []byte) (Coordinate, error) {
	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		return Coordinate{}, stderrors.NewNoGpsDataError()
	}

	lat, err := axis(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return Coordinate{}, err
	}

	lon, err := axis(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return Coordinate{}, err
	}

	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

func axis(x *exif.Exif, field, refField exif.FieldName) (float64, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, stderrors.NewNoGpsDataError()
	}

	refTag, err := x.Get(refField)
	if err != nil {
		return 0, stderrors.NewNoGpsDataError()
	}

	ref, err := refTag.StringVal()
	if err != nil {
		return 0, stderrors.NewMalformedCoordinateError(fmt.Sprintf("%s: unreadable reference", refField))
	}

	deg, err := component(tag, 0)
	if err != nil {
		return 0, stderrors.NewMalformedCoordinateError(fmt.Sprintf("%s degrees: %v", field, err))
	}
	min, err := component(tag, 1)
	if err != nil {
		return 0, stderrors.NewMalformedCoordinateError(fmt.Sprintf("%s minutes: %v", field, err))
	}
	sec, err := component(tag, 2)
	if err != nil {
		return 0, stderrors.NewMalformedCoordinateError(fmt.Sprintf("%s seconds: %v", field, err))
	}

	decimal, err := FromDMS(deg, min, sec, ref)
	if err != nil {
		return 0, stderrors.NewMalformedCoordinateError(err.Error())
	}
	return decimal, nil
}

// component reads one element of a DMS triple. The tag may store it as a
// rational (numerator/denominator) or as a plain float.
func component(tag *tiff.Tag, i int) (float64, error) {
	if tag.Count < 3 {
		return 0, fmt.Errorf("expected 3 components, got %d", tag.Count)
	}

	if num, den, err := tag.Rat2(i); err == nil {
		if den == 0 {
			return 0, fmt.Errorf("zero denominator at index %d", i)
		}
		return float64(num) / float64(den), nil
	}

	if f, err := tag.Float(i); err == nil {
		return f, nil
	}

	return 0, fmt.Errorf("component %d is neither rational nor float", i)
}

// FromDMS converts a degrees/minutes/seconds triple plus a hemisphere
// reference to signed decimal degrees. S and W negate; references outside
// {N, S, E, W} are a conversion failure.
func FromDMS(degrees, minutes, seconds float64, ref string) (float64, error) {
	decimal := degrees + minutes/60.0 + seconds/3600.0

	switch ref {
	case "N", "E":
		return decimal, nil
	case "S", "W":
		return -decimal, nil
	default:
		return 0, fmt.Errorf("unrecognized hemisphere reference %q", ref)
	}
}
