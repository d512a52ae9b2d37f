package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/admission"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/metadata"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/score"
)

var (
	scoreLat      float64
	scoreLng      float64
	scoreAt       string
	scoreImage    string
	scoreTitle    string
	scoreCategory string
	scoreJSON     bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <capture.json>",
	Short: "Score capture metadata against a reported location",
	Long: `Score runs the trust scorer on a capture payload (device GPS fix,
capture timestamp and EXIF tags, as sent by the app) and prints every
check together with the admission decision.

With --image the configured AI advisor cross-checks the photo against
--title and --category; without it the advisor verdict is neutral.

Example:
  fillahole score capture.json --lat 12.9716 --lng 77.5946
  fillahole score capture.json --lat 12.9716 --lng 77.5946 --at 2026-03-14T09:30:00Z --json
  fillahole score capture.json --lat 12.9716 --lng 77.5946 --image pothole.jpg --title "Pothole" --category Road`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().Float64Var(&scoreLat, "lat", 0, "reported latitude")
	scoreCmd.Flags().Float64Var(&scoreLng, "lng", 0, "reported longitude")
	scoreCmd.Flags().StringVar(&scoreAt, "at", "", "evaluation time, RFC 3339 (default: now)")
	scoreCmd.Flags().StringVar(&scoreImage, "image", "", "photo to cross-check with the AI advisor")
	scoreCmd.Flags().StringVar(&scoreTitle, "title", "", "report title for the AI advisor")
	scoreCmd.Flags().StringVar(&scoreCategory, "category", "", "report category for the AI advisor")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the result as JSON")

	_ = scoreCmd.MarkFlagRequired("lat")
	_ = scoreCmd.MarkFlagRequired("lng")
}

func runScore(cmd *cobra.Command, args []string) error {
	reported := geo.Point{Lat: scoreLat, Lng: scoreLng}
	if !reported.Valid() {
		return fmt.Errorf("invalid reported location %.6f,%.6f", scoreLat, scoreLng)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}
	var raw metadata.RawCapture
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse capture: %w", err)
	}

	at := time.Now().UTC()
	if scoreAt != "" {
		at, err = time.Parse(time.RFC3339, scoreAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	meta := metadata.Normalize(raw)
	scored := score.NewScorer().ScoreAt(meta, reported.Lat, reported.Lng, at)

	verdict := llm.NeutralVerdict()
	if scoreImage != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		image, err := os.ReadFile(scoreImage)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		advisor, err := llm.NewAdvisor(llm.ConfigFromModel(cfg.Advisor, cfg.HTTP), cache.New(cfg.Cache), newLogger(cfg.Log))
		if err != nil {
			return fmt.Errorf("create advisor: %w", err)
		}
		verdict = advisor.Check(context.Background(), llm.AssessRequest{
			Image:    image,
			Title:    scoreTitle,
			Category: scoreCategory,
		})
	}

	result := admission.Admit(scored, verdict)
	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result.Trust(at))
	}
	printScore(cmd.OutOrStdout(), result, at)
	return nil
}

func printScore(w io.Writer, result admission.Result, at time.Time) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Trust score: %d/100  (%s)\n", result.FinalScore, result.Decision)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	for _, c := range result.Checks {
		mark := "✗"
		if c.Pass {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-16s %2d/%-2d  %s\n", mark, c.ID, c.Points, c.MaxPoints, c.Detail)
	}
	fmt.Fprintln(w)
	if result.Deduction > 0 || (result.AIReason != "" && result.AIReason != llm.ReasonUnavailable) {
		fmt.Fprintf(w, "  AI deduction: -%d (%s)\n", result.Deduction, result.AIReason)
	}
	fmt.Fprintf(w, "  Evaluated at: %s\n", at.UTC().Format(time.RFC3339))
}
