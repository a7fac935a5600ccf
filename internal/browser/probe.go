package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// probeInstallJS installs counters for DOM mutations and layout shifts. It
// runs before any page script, so installation is deferred until the
// document element exists.
const probeInstallJS = `(() => {
	if (window.__veritasProbe) { return; }
	const probe = { mutations: 0, layoutShift: 0, since: Date.now() };
	window.__veritasProbe = probe;
	const attach = () => {
		new MutationObserver((records) => { probe.mutations += records.length; })
			.observe(document.documentElement, {
				childList: true, subtree: true, attributes: true, characterData: true,
			});
		if ('PerformanceObserver' in window) {
			try {
				new PerformanceObserver((list) => {
					for (const entry of list.getEntries()) {
						if (!entry.hadRecentInput) { probe.layoutShift += entry.value; }
					}
				}).observe({ type: 'layout-shift', buffered: true });
			} catch (e) { /* layout-shift unsupported */ }
		}
	};
	if (document.documentElement) { attach(); }
	else { document.addEventListener('DOMContentLoaded', attach, { once: true }); }
})();`

// probeReadJS drains the counters and reports the window they accumulated
// over. A missing probe (page loaded before injection) reads as quiet.
const probeReadJS = `(() => {
	const p = window.__veritasProbe;
	if (!p) { return JSON.stringify({ mutations: 0, layout_shift: 0, window_ms: 0 }); }
	const now = Date.now();
	const out = { mutations: p.mutations, layout_shift: p.layoutShift, window_ms: now - p.since };
	p.mutations = 0;
	p.layoutShift = 0;
	p.since = now;
	return JSON.stringify(out);
})()`

type probeReading struct {
	Mutations   int     `json:"mutations"`
	LayoutShift float64 `json:"layout_shift"`
	WindowMs    int64   `json:"window_ms"`
}

// Sample implements agent.SignalSource. It combines the CDP-side request
// ledger with the in-page probe's counters into one snapshot.
func (s *Session) Sample(ctx context.Context) (schemas.StabilitySample, error) {
	var raw string
	if err := s.run(ctx, chromedp.Evaluate(probeReadJS, &raw)); err != nil {
		return schemas.StabilitySample{}, fmt.Errorf("stability probe read failed: %w", err)
	}

	var reading probeReading
	if err := json.UnmarshalFromString(raw, &reading); err != nil {
		return schemas.StabilitySample{}, fmt.Errorf("stability probe returned malformed data: %w", err)
	}

	window := time.Duration(reading.WindowMs) * time.Millisecond
	if window < s.cfg.SampleWindow {
		window = s.cfg.SampleWindow
	}
	mutationRate := float64(reading.Mutations) / window.Seconds()

	s.mu.Lock()
	pending := len(s.inflight)
	last := s.lastInteraction
	s.mu.Unlock()

	// Before the first interaction, recency cannot be a reason to wait.
	sinceInteraction := 24 * time.Hour
	if !last.IsZero() {
		sinceInteraction = time.Since(last)
	}

	return schemas.StabilitySample{
		PendingNetwork:           pending,
		DOMMutationRate:          mutationRate,
		LayoutShiftScore:         reading.LayoutShift,
		TimeSinceLastInteraction: sinceInteraction,
	}, nil
}
