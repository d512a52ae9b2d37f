package admission

import (
	"testing"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/score"
)

func TestDecide_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Decision
	}{
		{100, model.DecisionVerified},
		{91, model.DecisionVerified},
		{90, model.DecisionPending},
		{50, model.DecisionPending},
		{49, model.DecisionFlagged},
		{0, model.DecisionFlagged},
	}

	for _, tt := range tests {
		if got := Decide(tt.score); got != tt.want {
			t.Errorf("Decide(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAdmit_NeutralVerdictKeepsScore(t *testing.T) {
	scored := score.Result{Score: 100}

	result := Admit(scored, llm.NeutralVerdict())

	if result.FinalScore != 100 {
		t.Errorf("expected 100, got %d", result.FinalScore)
	}
	if result.Decision != model.DecisionVerified {
		t.Errorf("expected VERIFIED, got %s", result.Decision)
	}
	if result.AIReason != llm.ReasonUnavailable {
		t.Errorf("expected reason %q, got %q", llm.ReasonUnavailable, result.AIReason)
	}
}

func TestAdmit_DeductionLowersDecision(t *testing.T) {
	scored := score.Result{Score: 100}
	verdict := llm.Verdict{IsAuthentic: false, Reason: "indoor scene", Deduction: 40}

	result := Admit(scored, verdict)

	if result.FinalScore != 60 {
		t.Errorf("expected 60, got %d", result.FinalScore)
	}
	if result.Decision != model.DecisionPending {
		t.Errorf("expected PENDING, got %s", result.Decision)
	}
}

func TestAdmit_ClampsAtZero(t *testing.T) {
	result := Admit(score.Result{Score: 30}, llm.Verdict{Deduction: 80})
	if result.FinalScore != 0 {
		t.Errorf("expected 0, got %d", result.FinalScore)
	}
	if result.Decision != model.DecisionFlagged {
		t.Errorf("expected FLAGGED, got %s", result.Decision)
	}
}

func TestAdmit_NegativeDeductionNeverRaisesScore(t *testing.T) {
	result := Admit(score.Result{Score: 85}, llm.Verdict{IsAuthentic: true, Deduction: -20})
	if result.FinalScore != 85 {
		t.Errorf("expected 85, got %d", result.FinalScore)
	}
	if result.Deduction != 0 {
		t.Errorf("expected recorded deduction 0, got %d", result.Deduction)
	}
}

func TestResult_Trust(t *testing.T) {
	checks := []model.TrustCheck{
		{ID: model.CheckGPSPresent, Pass: true, Points: 30, MaxPoints: 30},
		{ID: model.CheckGPSAccuracy, Pass: false, Points: 0, MaxPoints: 25},
		{ID: model.CheckFreshness, Pass: true, Points: 20, MaxPoints: 20},
	}
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	trust := Admit(score.Result{Score: 50, Checks: checks}, llm.NeutralVerdict()).Trust(at)

	if trust.Score != 50 || trust.Decision != model.DecisionPending {
		t.Errorf("unexpected trust %+v", trust)
	}
	if len(trust.ChecksPassed) != 2 || trust.ChecksPassed[0] != "GPS_PRESENT" || trust.ChecksPassed[1] != "FRESHNESS" {
		t.Errorf("unexpected checks passed %v", trust.ChecksPassed)
	}
	if trust.EvaluatedAt == nil || !trust.EvaluatedAt.Equal(at) {
		t.Errorf("expected evaluation time %v, got %v", at, trust.EvaluatedAt)
	}
	if !trust.Admitted() {
		t.Error("expected trust to be admitted")
	}
}
