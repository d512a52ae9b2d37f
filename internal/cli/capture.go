package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/capture"
)

var (
	replaySpeed     float64
	replayNoGeocode bool
	replayDebounce  time.Duration
)

// captureCmd groups capture-session tooling
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture-session tools",
}

var captureReplayCmd = &cobra.Command{
	Use:   "replay <fixes.json>",
	Short: "Replay recorded location fixes through a capture session",
	Long: `Replay feeds a JSON array of location fixes
([{"lat":..,"lng":..,"accuracy":..,"at":"RFC 3339"}]) through a capture
session: fixes closer than one second apart are dropped, the location
must be quiet for the debounce window before it is reverse geocoded.

Example:
  fillahole capture replay walk.json
  fillahole capture replay walk.json --speed 10 --no-geocode`,
	Args: cobra.ExactArgs(1),
	RunE: runCaptureReplay,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureReplayCmd)

	captureReplayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "replay speed multiplier")
	captureReplayCmd.Flags().BoolVar(&replayNoGeocode, "no-geocode", false, "skip reverse geocoding")
	captureReplayCmd.Flags().DurationVar(&replayDebounce, "debounce", 0, "quiet window before geocoding (default from config)")
}

func runCaptureReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	fixes, err := capture.LoadFixes(args[0])
	if err != nil {
		return err
	}

	debounce := cfg.Geocode.Debounce
	if replayDebounce > 0 {
		debounce = replayDebounce
	}

	var geocoder capture.Geocoder
	if !replayNoGeocode {
		geocoder = capture.NewNominatimGeocoder(cfg.Geocode, cfg.HTTP, cache.NewMemoryCache(cfg.Cache.MemoryTTL))
	}

	out := cmd.OutOrStdout()
	replay := &capture.ReplaySource{Fixes: fixes, Speed: replaySpeed}
	settled := make(chan capture.Fix, len(fixes))
	session := capture.NewSession(replay, geocoder,
		capture.SessionConfig{Debounce: debounce, MinFixInterval: capture.DefaultMinFixInterval},
		func(u capture.Update) {
			settled <- u.Fix
			switch {
			case u.Err != nil:
				fmt.Fprintf(out, "%s  %.6f,%.6f  ±%.0fm  geocode failed: %v\n", u.Fix.At.Format(time.RFC3339), u.Fix.Lat, u.Fix.Lng, u.Fix.Accuracy, u.Err)
			case u.Address != nil:
				fmt.Fprintf(out, "%s  %.6f,%.6f  ±%.0fm  %s\n", u.Fix.At.Format(time.RFC3339), u.Fix.Lat, u.Fix.Lng, u.Fix.Accuracy, u.Address.DisplayName)
			default:
				fmt.Fprintf(out, "%s  %.6f,%.6f  ±%.0fm\n", u.Fix.At.Format(time.RFC3339), u.Fix.Lat, u.Fix.Lng, u.Fix.Accuracy)
			}
		}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return err
	}

	// once the replay is over the latest fix is final; wait for it to settle
	select {
	case <-time.After(replay.Duration()):
	case <-ctx.Done():
	}
	timeout := time.After(debounce + 15*time.Second)
	updates := 0
wait:
	for {
		select {
		case f := <-settled:
			updates++
			if latest, _ := session.Latest(); f.At.Equal(latest.At) {
				break wait
			}
		case <-timeout:
			break wait
		case <-ctx.Done():
			break wait
		}
	}
	session.Close()

	latest, _ := session.Latest()
	fmt.Fprintf(out, "\n%d fixes replayed, %d settled, last %.6f,%.6f\n", len(fixes), updates, latest.Lat, latest.Lng)
	return nil
}
