package exifgps

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "grievance-intake/internal/common/errors"
)

func TestFromDMS(t *testing.T) {
	tests := []struct {
		name     string
		deg      float64
		min      float64
		sec      float64
		ref      string
		expected float64
	}{
		{"northern latitude", 28, 36, 50.4, "N", 28.0 + 36.0/60.0 + 50.4/3600.0},
		{"eastern longitude", 77, 13, 48.0, "E", 77.0 + 13.0/60.0 + 48.0/3600.0},
		{"southern latitude is negated", 33, 51, 54.0, "S", -(33.0 + 51.0/60.0 + 54.0/3600.0)},
		{"western longitude is negated", 122, 25, 9.0, "W", -(122.0 + 25.0/60.0 + 9.0/3600.0)},
		{"zero triple", 0, 0, 0, "N", 0},
		{"whole degrees only", 45, 0, 0, "W", -45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDMS(tt.deg, tt.min, tt.sec, tt.ref)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestFromDMS_InverseConsistency(t *testing.T) {
	// The magnitude with S/W must equal the magnitude with N/E.
	north, err := FromDMS(12, 34, 56.78, "N")
	require.NoError(t, err)
	south, err := FromDMS(12, 34, 56.78, "S")
	require.NoError(t, err)
	assert.Equal(t, north, -south)
}

func TestFromDMS_UnrecognizedReference(t *testing.T) {
	for _, ref := range []string{"", "X", "n", "NE", "north"} {
		_, err := FromDMS(10, 20, 30, ref)
		assert.Error(t, err, "reference %q should fail", ref)
	}
}

func TestExtract_NoMetadataBlock(t *testing.T) {
	extractor := NewExtractor()

	var jpegBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpegBuf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil))

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	tests := []struct {
		name  string
		bytes []byte
	}{
		{"jpeg without exif", jpegBuf.Bytes()},
		{"png without exif", pngBuf.Bytes()},
		{"arbitrary bytes", []byte("definitely not an image")},
		{"empty payload", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := extractor.Extract(tt.bytes)
				require.Error(t, err)
				assert.Equal(t, stderrors.ErrCodeNoGpsData, stderrors.CodeOf(err))
			})
		})
	}
}
