package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
)

// offlineCondition is the condition type emitted when a printer's exporter
// cannot be scraped at all.
const offlineCondition = "printer_offline"

// Runner polls every configured printer on an interval, evaluates the alert
// rules against each sample, and feeds firing conditions to the Processor.
//
// Rules may be swapped at runtime (config hot reload); polling targets are
// fixed at construction.
type Runner struct {
	interval  time.Duration
	scrapers  []*scraper
	processor *Processor
	now       func() time.Time

	mu    sync.RWMutex
	rules []Rule
}

// NewRunner creates a Runner for the configured printers and rules.
func NewRunner(cfg config.PollConfig, rules []config.Rule, p *Processor) *Runner {
	scrapers := make([]*scraper, 0, len(cfg.Printers))
	for _, src := range cfg.Printers {
		scrapers = append(scrapers, newScraper(src))
	}
	return &Runner{
		interval:  cfg.Interval,
		scrapers:  scrapers,
		processor: p,
		rules:     compileRules(rules),
		now:       time.Now,
	}
}

// SetRules replaces the rule set. Used by config hot reload.
func (r *Runner) SetRules(rules []config.Rule) {
	compiled := compileRules(rules)
	r.mu.Lock()
	r.rules = compiled
	r.mu.Unlock()
	slog.Info("detect: rules reloaded", "count", len(compiled))
}

// Run polls immediately, then on every tick. It blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.sweep(ctx)

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep(ctx)
		}
	}
}

// sweep polls every printer once and processes all firing conditions.
func (r *Runner) sweep(ctx context.Context) {
	r.mu.RLock()
	rules := r.rules
	r.mu.RUnlock()

	for _, s := range r.scrapers {
		sample, err := s.sample(ctx)
		if err != nil {
			slog.Warn("detect: scrape failed", "printer", s.src.ID, "err", err)
			r.process(ctx, alert.Condition{
				PrinterID:  s.src.ID,
				Type:       offlineCondition,
				Condition:  "exporter unreachable",
				Severity:   alert.SeverityCritical,
				Title:      fmt.Sprintf("Printer %s unreachable", s.src.ID),
				ObservedAt: r.now(),
			})
			continue
		}

		for _, rule := range rules {
			fires, value := evalCondition(rule.Condition, sample)
			if !fires {
				continue
			}
			r.process(ctx, alert.Condition{
				PrinterID:  s.src.ID,
				Type:       rule.Name,
				Value:      value,
				Condition:  rule.Condition,
				Severity:   rule.Severity,
				Title:      rule.Title,
				ObservedAt: r.now(),
			})
		}
	}
}

// process forwards one condition and absorbs pipeline errors so a bad rule
// or channel configuration never stops the sweep.
func (r *Runner) process(ctx context.Context, cond alert.Condition) {
	if err := r.processor.Process(ctx, cond); err != nil {
		slog.Error("detect: condition processing failed",
			"printer", cond.PrinterID, "condition", cond.Type, "err", err)
	}
}
