// Package budget tracks cumulative enrichment spend and gates the most
// expensive pipeline phase behind a daily threshold.
package budget

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Governor maintains running cost totals per calendar day and per
// document. It is the only state shared between concurrent document
// orchestrations, so every access is serialized behind one mutex.
type Governor struct {
	mu       sync.Mutex
	ceiling  float64
	fraction float64
	day      time.Time
	daySpend float64
	docSpend map[uuid.UUID]float64
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Governor with the given daily ceiling and threshold
// fraction. The expensive phase stays enabled while cumulative daily
// spend is below ceiling*fraction.
func New(ceiling, fraction float64, logger *slog.Logger) *Governor {
	return &Governor{
		ceiling:  ceiling,
		fraction: fraction,
		docSpend: make(map[uuid.UUID]float64),
		now:      time.Now,
		logger:   logger.With("system", "budget"),
	}
}

// CanAfford reports whether the named phase may execute. This is a
// threshold gate, not a hard cutoff: once the day's spend crosses the
// configured fraction of the ceiling the gate closes to preserve budget
// for the remaining documents, but nothing already running is stopped.
func (g *Governor) CanAfford(phase string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()
	allowed := g.daySpend < g.ceiling*g.fraction

	if !allowed {
		g.logger.Info(
			"phase gated by budget",
			"phase", phase,
			"day_spend", g.daySpend,
			"ceiling", g.ceiling,
			"fraction", g.fraction,
		)
	}
	return allowed
}

// RecordActual adds cost to the daily total and the document's total.
func (g *Governor) RecordActual(docID uuid.UUID, cost float64) {
	if cost <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()
	g.daySpend += cost
	g.docSpend[docID] += cost
}

// DaySpend returns the cumulative spend for the current calendar day.
func (g *Governor) DaySpend() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()
	return g.daySpend
}

// FinishDocument returns the document's total spend and releases its
// per-document counter.
func (g *Governor) FinishDocument(docID uuid.UUID) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := g.docSpend[docID]
	delete(g.docSpend, docID)
	return total
}

// rolloverLocked resets the daily counter when the calendar day changes.
func (g *Governor) rolloverLocked() {
	today := g.now().Truncate(24 * time.Hour)
	if !today.Equal(g.day) {
		if !g.day.IsZero() {
			g.logger.Info("daily budget reset", "previous_spend", g.daySpend)
		}
		g.day = today
		g.daySpend = 0
	}
}
