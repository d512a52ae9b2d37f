package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
)

// Fix is a single location update from the device
type Fix struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy float64   `json:"accuracy"` // Meters
	At       time.Time `json:"at"`
}

// Point returns the fix position
func (f Fix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lng: f.Lng}
}

// LocationSource delivers location fixes until the returned release
// function is called or ctx is done
type LocationSource interface {
	Watch(ctx context.Context, fn func(Fix)) (release func(), err error)
}

// ReplaySource replays recorded fixes, keeping their original spacing
// divided by Speed
type ReplaySource struct {
	Fixes []Fix
	Speed float64 // 0 or 1 replays in real time
}

// LoadFixes reads a JSON array of fixes from path
func LoadFixes(path string) ([]Fix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixes: %w", err)
	}
	var fixes []Fix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, fmt.Errorf("parse fixes: %w", err)
	}
	return fixes, nil
}

// Watch starts replaying in the background
func (r *ReplaySource) Watch(ctx context.Context, fn func(Fix)) (func(), error) {
	if len(r.Fixes) == 0 {
		return nil, fmt.Errorf("no fixes to replay")
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, fix := range r.Fixes {
			if i > 0 {
				select {
				case <-time.After(r.gap(r.Fixes[i-1], fix)):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			fn(fix)
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}, nil
}

// Duration reports the total replay time at the configured speed
func (r *ReplaySource) Duration() time.Duration {
	var total time.Duration
	for i := 1; i < len(r.Fixes); i++ {
		total += r.gap(r.Fixes[i-1], r.Fixes[i])
	}
	return total
}

func (r *ReplaySource) gap(prev, next Fix) time.Duration {
	d := next.At.Sub(prev.At)
	if d < 0 {
		return 0
	}
	if r.Speed > 0 {
		d = time.Duration(float64(d) / r.Speed)
	}
	return d
}
