package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ReasonUnavailable is the reason recorded when no assessment could be made
const ReasonUnavailable = "unavailable"

// ErrMalformedVerdict is returned when the model output is not a usable verdict
var ErrMalformedVerdict = errors.New("malformed verdict")

// Verdict is the advisor's cross-check result
type Verdict struct {
	IsAuthentic bool   `json:"is_authentic"`
	Reason      string `json:"reason"`
	Deduction   int    `json:"deduction"`
}

// NeutralVerdict is the result used whenever the advisor cannot decide
func NeutralVerdict() Verdict {
	return Verdict{IsAuthentic: true, Reason: ReasonUnavailable, Deduction: 0}
}

// rawVerdict keeps fields optional so missing keys can be told apart from zero values
type rawVerdict struct {
	IsAuthentic *bool    `json:"is_authentic"`
	Reason      string   `json:"reason"`
	Deduction   *float64 `json:"deduction"`
}

// ParseVerdict extracts the JSON verdict from model output. Code fences and
// surrounding prose are tolerated; a missing is_authentic field is not.
// The returned deduction is -1 when the model omitted it or gave a
// negative one.
func ParseVerdict(content string) (Verdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Verdict{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedVerdict)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if raw.IsAuthentic == nil {
		return Verdict{}, fmt.Errorf("%w: missing is_authentic", ErrMalformedVerdict)
	}

	v := Verdict{
		IsAuthentic: *raw.IsAuthentic,
		Reason:      strings.TrimSpace(raw.Reason),
		Deduction:   -1,
	}
	// a negative deduction counts as omitted
	if raw.Deduction != nil && *raw.Deduction >= 0 {
		v.Deduction = int(math.Min(100, *raw.Deduction))
	}
	return v, nil
}
