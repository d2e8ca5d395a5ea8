package provider

import (
	"fmt"
	"sync"
	"time"

	"github.com/acoustixpulse/gateway/internal/config"
)

// Llama 4 Scout pricing (per million tokens).
const (
	inputPricePerMTok  = 0.11
	outputPricePerMTok = 0.34
)

// BudgetTracker enforces spending and rate limits on provider calls.
type BudgetTracker struct {
	mu sync.Mutex

	// Configurable limits
	dailyBudgetUSD     float64
	maxCallsPerHour    int
	maxConcurrentCalls int

	// Current state
	dailySpendUSD float64
	dailyDate     string // YYYY-MM-DD for daily reset
	hourlyCalls   int
	hourlyReset   time.Time

	// Concurrency semaphore
	sem chan struct{}
}

// NewBudgetTracker creates a tracker from config, backfilling zero limits
// with defaults.
func NewBudgetTracker(cfg config.BudgetConfig) *BudgetTracker {
	if cfg.DailyBudgetUSD <= 0 {
		cfg.DailyBudgetUSD = 10.00
	}
	if cfg.MaxCallsPerHour <= 0 {
		cfg.MaxCallsPerHour = 60
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = 3
	}

	return &BudgetTracker{
		dailyBudgetUSD:     cfg.DailyBudgetUSD,
		maxCallsPerHour:    cfg.MaxCallsPerHour,
		maxConcurrentCalls: cfg.MaxConcurrentCalls,
		dailyDate:          time.Now().UTC().Format("2006-01-02"),
		hourlyReset:        time.Now().UTC().Add(time.Hour),
		sem:                make(chan struct{}, cfg.MaxConcurrentCalls),
	}
}

// CheckBudget returns nil if a call is within budget, or an error saying why not.
func (b *BudgetTracker) CheckBudget() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	if b.dailySpendUSD >= b.dailyBudgetUSD {
		return fmt.Errorf("daily budget exhausted: $%.4f of $%.2f spent", b.dailySpendUSD, b.dailyBudgetUSD)
	}
	if b.hourlyCalls >= b.maxCallsPerHour {
		return fmt.Errorf("hourly rate limit: %d of %d calls used", b.hourlyCalls, b.maxCallsPerHour)
	}

	return nil
}

// TryAcquire tries to take a concurrency slot without blocking.
// Returns a release function and true if acquired, nil and false otherwise.
func (b *BudgetTracker) TryAcquire() (func(), bool) {
	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, true
	default:
		return nil, false
	}
}

// RecordCost records a completed call's token cost and increments the hourly
// counter. Returns the cost in USD.
func (b *BudgetTracker) RecordCost(promptTokens, completionTokens int) float64 {
	cost := float64(promptTokens)/1_000_000*inputPricePerMTok +
		float64(completionTokens)/1_000_000*outputPricePerMTok

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	b.dailySpendUSD += cost
	b.hourlyCalls++

	return cost
}

// BudgetStats holds budget state for the metrics endpoint.
type BudgetStats struct {
	DailySpendUSD   float64 `json:"daily_spend_usd"`
	DailyBudgetUSD  float64 `json:"daily_budget_usd"`
	HourlyCalls     int     `json:"hourly_calls"`
	MaxCallsPerHour int     `json:"max_calls_per_hour"`
}

// Stats returns the current budget counters.
func (b *BudgetTracker) Stats() BudgetStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	return BudgetStats{
		DailySpendUSD:   b.dailySpendUSD,
		DailyBudgetUSD:  b.dailyBudgetUSD,
		HourlyCalls:     b.hourlyCalls,
		MaxCallsPerHour: b.maxCallsPerHour,
	}
}

// resetIfNeeded resets daily and hourly counters when their windows expire.
// Must be called with mu held.
func (b *BudgetTracker) resetIfNeeded() {
	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	if today != b.dailyDate {
		b.dailySpendUSD = 0
		b.dailyDate = today
	}

	if now.After(b.hourlyReset) {
		b.hourlyCalls = 0
		b.hourlyReset = now.Add(time.Hour)
	}
}
