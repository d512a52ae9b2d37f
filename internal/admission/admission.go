package admission

import (
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/score"
)

// Decision thresholds
const (
	VerifiedAbove = 90 // finalScore > 90 is VERIFIED
	PendingFrom   = 50 // 50 <= finalScore <= 90 is PENDING, below is FLAGGED
)

// Result is the final admission outcome
type Result struct {
	FinalScore int                `json:"final_score"`
	Decision   model.Decision     `json:"decision"`
	Checks     []model.TrustCheck `json:"checks"`
	AIReason   string             `json:"ai_reason,omitempty"`
	Deduction  int                `json:"deduction"`
}

// Admit combines the scorer result with the advisor verdict
func Admit(scored score.Result, verdict llm.Verdict) Result {
	deduction := verdict.Deduction
	if deduction < 0 {
		deduction = 0
	}

	final := scored.Score - deduction
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}

	return Result{
		FinalScore: final,
		Decision:   Decide(final),
		Checks:     scored.Checks,
		AIReason:   verdict.Reason,
		Deduction:  deduction,
	}
}

// Decide maps a final score to a decision
func Decide(finalScore int) model.Decision {
	switch {
	case finalScore > VerifiedAbove:
		return model.DecisionVerified
	case finalScore >= PendingFrom:
		return model.DecisionPending
	default:
		return model.DecisionFlagged
	}
}

// Trust renders the result as the immutable trust record stored on a report
func (r Result) Trust(evaluatedAt time.Time) model.Trust {
	at := evaluatedAt.UTC()
	return model.Trust{
		Score:        r.FinalScore,
		Decision:     r.Decision,
		ChecksPassed: model.PassedIDs(r.Checks),
		Checks:       r.Checks,
		AIReason:     r.AIReason,
		AIDeduction:  r.Deduction,
		EvaluatedAt:  &at,
	}
}
