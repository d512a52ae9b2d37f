package metadata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// exifTimeLayout is the EXIF DateTime format
const exifTimeLayout = "2006:01:02 15:04:05"

// RawCapture is the capture payload as emitted by the client device
type RawCapture struct {
	GPS            *RawGPS        `json:"gps,omitempty"`
	CapturedAtUnix *int64         `json:"capturedAtUnix,omitempty"` // Milliseconds since epoch
	EXIF           map[string]any `json:"exif,omitempty"`
}

// RawGPS is the device location fix attached to a capture
type RawGPS struct {
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Normalize converts a raw capture into canonical metadata.
// Device GPS wins over EXIF GPS; device timestamp wins over EXIF DateTimeOriginal.
func Normalize(raw RawCapture) model.PhotoMetadata {
	meta := model.PhotoMetadata{
		EXIF: flattenEXIF(raw.EXIF),
	}

	if raw.GPS != nil && finite(raw.GPS.Lat) && finite(raw.GPS.Lng) {
		meta.GPS = &model.GPSFix{
			Latitude:  raw.GPS.Lat,
			Longitude: raw.GPS.Lng,
			Accuracy:  raw.GPS.Accuracy,
		}
	} else if fix := gpsFromEXIF(raw.EXIF); fix != nil {
		meta.GPS = fix
	}

	if raw.CapturedAtUnix != nil {
		t := time.UnixMilli(*raw.CapturedAtUnix).UTC()
		meta.CapturedAt = &t
	} else if t, ok := timeFromEXIF(raw.EXIF); ok {
		meta.CapturedAt = &t
	}

	for _, key := range []string{"Software", "ProcessingSoftware", "CreatorTool"} {
		if v := meta.EXIF[key]; v != "" {
			meta.Software = v
			break
		}
	}

	return meta
}

// gpsFromEXIF reads signed decimal coordinates from EXIF GPS tags
func gpsFromEXIF(exif map[string]any) *model.GPSFix {
	lat, okLat := number(exif["GPSLatitude"])
	lng, okLng := number(exif["GPSLongitude"])
	if !okLat || !okLng {
		return nil
	}

	if ref, _ := exif["GPSLatitudeRef"].(string); strings.EqualFold(ref, "S") {
		lat = -math.Abs(lat)
	}
	if ref, _ := exif["GPSLongitudeRef"].(string); strings.EqualFold(ref, "W") {
		lng = -math.Abs(lng)
	}

	fix := &model.GPSFix{Latitude: &lat, Longitude: &lng}
	if acc, ok := number(exif["GPSHPositioningError"]); ok {
		fix.Accuracy = &acc
	}
	return fix
}

// timeFromEXIF parses DateTimeOriginal, honoring OffsetTimeOriginal when present
func timeFromEXIF(exif map[string]any) (time.Time, bool) {
	raw, _ := exif["DateTimeOriginal"].(string)
	if raw == "" {
		return time.Time{}, false
	}

	if offset, _ := exif["OffsetTimeOriginal"].(string); offset != "" {
		if t, err := time.Parse(exifTimeLayout+"-07:00", raw+offset); err == nil {
			return t.UTC(), true
		}
	}

	t, err := time.Parse(exifTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// flattenEXIF renders EXIF values as strings for storage and signature matching
func flattenEXIF(exif map[string]any) map[string]string {
	if len(exif) == 0 {
		return nil
	}

	keys := make([]string, 0, len(exif))
	for k := range exif {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(exif))
	for _, k := range keys {
		switch v := exif[k].(type) {
		case nil:
			continue
		case string:
			out[k] = strings.TrimSpace(v)
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func finite(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0)
}
