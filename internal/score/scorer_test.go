package score

import (
	"math"
	"testing"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

var evalTime = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedScorer() *Scorer {
	return NewScorerWithClock(func() time.Time { return evalTime })
}

func metadata(lat, lng, accuracy float64, capturedAgo time.Duration, exif map[string]string) model.PhotoMetadata {
	captured := evalTime.Add(-capturedAgo)
	return model.PhotoMetadata{
		GPS:        &model.GPSFix{Latitude: &lat, Longitude: &lng, Accuracy: &accuracy},
		CapturedAt: &captured,
		EXIF:       exif,
	}
}

func TestScorer_AllChecksPass(t *testing.T) {
	scorer := fixedScorer()

	// 60 s old capture, 15 m accuracy, reported location ~33 m north
	meta := metadata(10.0, 20.0, 15, 60*time.Second, map[string]string{})
	result := scorer.Score(meta, 10.0003, 20.0)

	if result.Score != 100 {
		t.Errorf("expected score 100, got %d", result.Score)
	}
	for _, c := range result.Checks {
		if !c.Pass {
			t.Errorf("expected %s to pass: %s", c.ID, c.Detail)
		}
	}
}

func TestScorer_NoMetadata(t *testing.T) {
	scorer := fixedScorer()

	result := scorer.Score(model.PhotoMetadata{}, 10, 20)

	// Only NO_EDITING can pass without metadata
	if result.Score != PointsNoEditing {
		t.Errorf("expected score %d, got %d", PointsNoEditing, result.Score)
	}
	if len(result.Checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(result.Checks))
	}
}

func TestScorer_IndividualChecks(t *testing.T) {
	tests := []struct {
		name    string
		meta    model.PhotoMetadata
		lat     float64
		lng     float64
		failing model.CheckID
	}{
		{
			name:    "poor accuracy",
			meta:    metadata(10, 20, 20, time.Minute, nil),
			lat:     10, lng: 20,
			failing: model.CheckGPSAccuracy,
		},
		{
			name:    "stale capture",
			meta:    metadata(10, 20, 5, 5*time.Minute+time.Second, nil),
			lat:     10, lng: 20,
			failing: model.CheckFreshness,
		},
		{
			name:    "capture from the future",
			meta:    metadata(10, 20, 5, -10*time.Minute, nil),
			lat:     10, lng: 20,
			failing: model.CheckFreshness,
		},
		{
			name:    "edited",
			meta:    metadata(10, 20, 5, time.Minute, map[string]string{"Software": "Adobe Photoshop Lightroom 7.0"}),
			lat:     10, lng: 20,
			failing: model.CheckNoEditing,
		},
		{
			name:    "far from reported location",
			meta:    metadata(10, 20, 5, time.Minute, nil),
			lat:     10.001, lng: 20,
			failing: model.CheckLocationMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fixedScorer().Score(tt.meta, tt.lat, tt.lng)

			for _, c := range result.Checks {
				if c.ID == tt.failing && c.Pass {
					t.Errorf("expected %s to fail", c.ID)
				}
				if c.ID != tt.failing && !c.Pass {
					t.Errorf("expected %s to pass: %s", c.ID, c.Detail)
				}
			}

			want := 100 - result.Checks[indexOf(result.Checks, tt.failing)].MaxPoints
			if result.Score != want {
				t.Errorf("expected score %d, got %d", want, result.Score)
			}
		})
	}
}

func TestScorer_FreshnessBoundary(t *testing.T) {
	result := fixedScorer().Score(metadata(10, 20, 5, FreshnessWindow, nil), 10, 20)
	if !result.Checks[indexOf(result.Checks, model.CheckFreshness)].Pass {
		t.Error("expected capture exactly 5 minutes old to pass")
	}
}

func TestScorer_SoftwareTag(t *testing.T) {
	meta := metadata(10, 20, 5, time.Minute, nil)
	meta.Software = "Snapseed 2.0"

	result := fixedScorer().Score(meta, 10, 20)
	if result.Checks[indexOf(result.Checks, model.CheckNoEditing)].Pass {
		t.Error("expected Snapseed software tag to fail NO_EDITING")
	}
}

func TestScorer_NonFiniteGPS(t *testing.T) {
	meta := metadata(math.NaN(), 20, 5, time.Minute, nil)

	result := fixedScorer().Score(meta, 10, 20)
	if result.Checks[indexOf(result.Checks, model.CheckGPSPresent)].Pass {
		t.Error("expected NaN latitude to fail GPS_PRESENT")
	}
	if result.Checks[indexOf(result.Checks, model.CheckLocationMatch)].Pass {
		t.Error("expected LOCATION_MATCH to fail without usable GPS")
	}
}

func TestScorer_ScoreIsSumOfPassingChecks(t *testing.T) {
	scorer := fixedScorer()
	accuracies := []float64{1, 19.9, 20, 100}
	ages := []time.Duration{0, 4 * time.Minute, 6 * time.Minute}
	offsets := []float64{0, 0.0004, 0.01}
	software := []string{"", "GIMP 2.10", "HDR+ 1.0"}

	for _, acc := range accuracies {
		for _, age := range ages {
			for _, off := range offsets {
				for _, sw := range software {
					meta := metadata(10, 20, acc, age, map[string]string{"Software": sw})
					result := scorer.Score(meta, 10+off, 20)

					sum := 0
					for _, c := range result.Checks {
						if c.Pass {
							sum += c.MaxPoints
						}
						if c.Points != 0 && !c.Pass {
							t.Errorf("failed check %s awarded %d points", c.ID, c.Points)
						}
					}
					if result.Score != sum {
						t.Errorf("score %d != sum of passing checks %d", result.Score, sum)
					}
					if result.Score < 0 || result.Score > 100 {
						t.Errorf("score %d out of range", result.Score)
					}
				}
			}
		}
	}
}

func TestScorer_Deterministic(t *testing.T) {
	meta := metadata(10, 20, 15, time.Minute, map[string]string{"Make": "Pixel"})

	first := NewScorer().ScoreAt(meta, 10.0003, 20, evalTime)
	second := NewScorer().ScoreAt(meta, 10.0003, 20, evalTime)

	if first.Score != second.Score {
		t.Fatalf("expected reproducible score, got %d and %d", first.Score, second.Score)
	}
	for i := range first.Checks {
		if first.Checks[i] != second.Checks[i] {
			t.Errorf("check %d differs: %+v vs %+v", i, first.Checks[i], second.Checks[i])
		}
	}
}

func indexOf(checks []model.TrustCheck, id model.CheckID) int {
	for i, c := range checks {
		if c.ID == id {
			return i
		}
	}
	return -1
}
