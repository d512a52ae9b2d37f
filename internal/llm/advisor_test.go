package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
)

// mockProvider returns canned content and counts calls
type mockProvider struct {
	content string
	err     error
	calls   atomic.Int32
}

func (m *mockProvider) Name() string                         { return "mock" }
func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Assess(ctx context.Context, req AssessRequest) (*AssessResponse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &AssessResponse{Content: m.content, Model: "mock-vision", TokensUsed: 10}, nil
}

func TestAdvisor_Disabled(t *testing.T) {
	advisor, err := NewAdvisor(DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewAdvisor failed: %v", err)
	}
	if advisor.IsEnabled() {
		t.Fatal("expected advisor to be disabled without a provider")
	}

	got := advisor.Check(context.Background(), testAssessRequest())
	if got != NeutralVerdict() {
		t.Errorf("expected neutral verdict, got %+v", got)
	}
	if got.Reason != ReasonUnavailable || got.Deduction != 0 {
		t.Errorf("neutral verdict must be unavailable with no deduction, got %+v", got)
	}
}

func TestAdvisor_NilIsNeutral(t *testing.T) {
	var advisor *Advisor
	if got := advisor.Check(context.Background(), testAssessRequest()); got != NeutralVerdict() {
		t.Errorf("expected neutral verdict from nil advisor, got %+v", got)
	}
}

func TestAdvisor_NoImage(t *testing.T) {
	provider := &mockProvider{content: `{"is_authentic": false, "deduction": 50}`}
	advisor := NewAdvisorWithProvider(provider, DefaultConfig(), nil, nil)

	req := testAssessRequest()
	req.Image = nil
	if got := advisor.Check(context.Background(), req); got != NeutralVerdict() {
		t.Errorf("expected neutral verdict without image, got %+v", got)
	}
	if provider.calls.Load() != 0 {
		t.Error("provider must not be called without an image")
	}
}

func TestAdvisor_ProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("connection refused")}
	advisor := NewAdvisorWithProvider(provider, DefaultConfig(), nil, nil)

	if got := advisor.Check(context.Background(), testAssessRequest()); got != NeutralVerdict() {
		t.Errorf("expected neutral verdict on provider error, got %+v", got)
	}
}

func TestAdvisor_MalformedOutput(t *testing.T) {
	provider := &mockProvider{content: "Sorry, I can't look at images."}
	advisor := NewAdvisorWithProvider(provider, DefaultConfig(), nil, nil)

	if got := advisor.Check(context.Background(), testAssessRequest()); got != NeutralVerdict() {
		t.Errorf("expected neutral verdict on malformed output, got %+v", got)
	}
}

func TestAdvisor_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantAuthentic bool
		wantDeduction int
	}{
		{"authentic", `{"is_authentic": true, "reason": "ok", "deduction": 0}`, true, 0},
		{"rejected with deduction", `{"is_authentic": false, "reason": "indoor", "deduction": 55}`, false, 55},
		{"rejected without deduction uses default", `{"is_authentic": false, "reason": "indoor"}`, false, 40},
		{"authentic without deduction", `{"is_authentic": true}`, true, 0},
		{"deduction capped", `{"is_authentic": false, "deduction": 250}`, false, 100},
		{"negative deduction", `{"is_authentic": false, "deduction": -5}`, false, 40},
		{"authentic with negative deduction", `{"is_authentic": true, "deduction": -5}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := NewAdvisorWithProvider(&mockProvider{content: tt.content}, DefaultConfig(), nil, nil)
			got := advisor.Check(context.Background(), testAssessRequest())
			if got.IsAuthentic != tt.wantAuthentic {
				t.Errorf("IsAuthentic = %v, want %v", got.IsAuthentic, tt.wantAuthentic)
			}
			if got.Deduction != tt.wantDeduction {
				t.Errorf("Deduction = %d, want %d", got.Deduction, tt.wantDeduction)
			}
			if got.Reason == "" {
				t.Error("expected a reason to be filled in")
			}
		})
	}
}

func TestAdvisor_MaxDeductionConfig(t *testing.T) {
	config := DefaultConfig()
	config.MaxDeduction = 30
	advisor := NewAdvisorWithProvider(&mockProvider{content: `{"is_authentic": false, "deduction": 80}`}, config, nil, nil)

	if got := advisor.Check(context.Background(), testAssessRequest()); got.Deduction != 30 {
		t.Errorf("expected deduction capped at 30, got %d", got.Deduction)
	}
}

func TestAdvisor_CachesVerdicts(t *testing.T) {
	provider := &mockProvider{content: `{"is_authentic": false, "reason": "screenshot", "deduction": 70}`}
	advisor := NewAdvisorWithProvider(provider, DefaultConfig(), cache.NewMemoryCache(time.Hour), nil)

	first := advisor.Check(context.Background(), testAssessRequest())
	second := advisor.Check(context.Background(), testAssessRequest())

	if first != second {
		t.Errorf("cached verdict differs: %+v vs %+v", first, second)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls.Load())
	}

	other := testAssessRequest()
	other.Title = "Different report"
	advisor.Check(context.Background(), other)
	if provider.calls.Load() != 2 {
		t.Errorf("expected a new call for different input, got %d", provider.calls.Load())
	}
}

func TestAdvisor_DoesNotCacheFailures(t *testing.T) {
	provider := &mockProvider{err: errors.New("timeout")}
	advisor := NewAdvisorWithProvider(provider, DefaultConfig(), cache.NewMemoryCache(time.Hour), nil)

	advisor.Check(context.Background(), testAssessRequest())
	advisor.Check(context.Background(), testAssessRequest())

	if provider.calls.Load() != 2 {
		t.Errorf("expected failures to be retried on next check, got %d calls", provider.calls.Load())
	}
}
