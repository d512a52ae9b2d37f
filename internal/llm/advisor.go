package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
)

// Advisor runs the optional AI authenticity cross-check. It never fails:
// every error path yields NeutralVerdict so admission always proceeds.
type Advisor struct {
	provider Provider // nil when disabled
	config   Config
	cache    cache.Cache // optional verdict cache
	logger   *slog.Logger
}

// NewAdvisor creates an advisor from configuration. An empty provider
// name disables the advisor without error.
func NewAdvisor(config Config, verdicts cache.Cache, logger *slog.Logger) (*Advisor, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewAdvisorWithProvider(provider, config, verdicts, logger), nil
}

// NewAdvisorWithProvider creates an advisor around an existing provider
func NewAdvisorWithProvider(provider Provider, config Config, verdicts cache.Cache, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxDeduction <= 0 || config.MaxDeduction > 100 {
		config.MaxDeduction = 100
	}
	return &Advisor{
		provider: provider,
		config:   config,
		cache:    verdicts,
		logger:   logger,
	}
}

// IsEnabled reports whether a provider is configured
func (a *Advisor) IsEnabled() bool {
	return a != nil && a.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (a *Advisor) ProviderName() string {
	if !a.IsEnabled() {
		return ""
	}
	return a.provider.Name()
}

// Check cross-checks the image against the report text
func (a *Advisor) Check(ctx context.Context, req AssessRequest) Verdict {
	if !a.IsEnabled() || len(req.Image) == 0 {
		return NeutralVerdict()
	}

	key := verdictKey(req)
	if v, ok := a.cached(key); ok {
		return v
	}

	timeout := time.Duration(a.config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.provider.Assess(ctx, req)
	if err != nil {
		a.logger.Warn("authenticity check unavailable", "provider", a.provider.Name(), "error", err)
		return NeutralVerdict()
	}

	parsed, err := ParseVerdict(resp.Content)
	if err != nil {
		a.logger.Warn("authenticity check returned unusable output", "provider", a.provider.Name(), "error", err)
		return NeutralVerdict()
	}

	verdict := a.normalize(parsed)
	a.store(key, verdict)

	a.logger.Debug("authenticity check complete",
		"provider", a.provider.Name(),
		"model", resp.Model,
		"authentic", verdict.IsAuthentic,
		"deduction", verdict.Deduction,
		"tokens", resp.TokensUsed)

	return verdict
}

// normalize caps the deduction to [0, MaxDeduction] and fills an omitted one
func (a *Advisor) normalize(v Verdict) Verdict {
	if v.Deduction < 0 {
		v.Deduction = 0
		if !v.IsAuthentic {
			v.Deduction = a.config.DefaultDeduction
		}
	}
	if v.Deduction > a.config.MaxDeduction {
		v.Deduction = a.config.MaxDeduction
	}
	if v.Deduction < 0 {
		v.Deduction = 0
	}
	if v.Reason == "" {
		if v.IsAuthentic {
			v.Reason = "photo matches the report"
		} else {
			v.Reason = "photo does not match the report"
		}
	}
	return v
}

func (a *Advisor) cached(key string) (Verdict, bool) {
	if a.cache == nil {
		return Verdict{}, false
	}
	data, ok := a.cache.Get(key)
	if !ok {
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}

func (a *Advisor) store(key string, v Verdict) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Set(key, data, 0); err != nil {
		a.logger.Debug("verdict cache write failed", "error", err)
	}
}

// verdictKey identifies an assessment by its inputs
func verdictKey(req AssessRequest) string {
	h := sha256.New()
	h.Write(req.Image)
	for _, part := range []string{req.Title, req.Category, req.Description, req.Model} {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return cache.CacheKey("verdict", hex.EncodeToString(h.Sum(nil)))
}
