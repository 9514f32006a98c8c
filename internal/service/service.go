// Package service implements the financial analytics engine: recurring
// pattern detection, anomaly detection, trend and forecast computation,
// materialized view refresh coordination, and insight generation.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hendripermana/permoney-analytics/internal/cache"
	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/store"
)

// AnalyticsService coordinates the analytics computations over the
// external collaborators. All methods are safe for concurrent use.
type AnalyticsService struct {
	ledger     store.Ledger
	insights   store.InsightStore
	aggregates store.AggregateStore
	cache      cache.Cache
	logger     *zap.Logger

	now func() time.Time
}

// NewAnalyticsService wires the engine to its collaborators. A nil logger
// is replaced with a no-op logger.
func NewAnalyticsService(ledger store.Ledger, insights store.InsightStore, aggregates store.AggregateStore, c cache.Cache, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		ledger:     ledger,
		insights:   insights,
		aggregates: aggregates,
		cache:      c,
		logger:     logger,
		now:        time.Now,
	}
}

// ListPatterns returns the household's current pattern set.
func (s *AnalyticsService) ListPatterns(ctx context.Context, householdID string) ([]model.SpendingPattern, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}
	patterns, err := s.insights.ListPatterns(ctx, householdID)
	return patterns, errs.DataSource("list patterns", householdID, err)
}

// ListInsights returns the household's persisted insights.
func (s *AnalyticsService) ListInsights(ctx context.Context, householdID string, includeDismissed bool) ([]model.Insight, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}
	insights, err := s.insights.ListInsights(ctx, householdID, includeDismissed)
	return insights, errs.DataSource("list insights", householdID, err)
}

// DismissInsight marks one insight dismissed. Regeneration does not touch
// the dismissed flag of other insights; a dismissed insight only
// disappears when its type is replaced by a newer run.
func (s *AnalyticsService) DismissInsight(ctx context.Context, householdID, insightID string) error {
	if householdID == "" {
		return errs.Validationf("householdId", "must not be empty")
	}
	if insightID == "" {
		return errs.Validationf("insightId", "must not be empty")
	}
	return errs.DataSource("dismiss insight", householdID, s.insights.DismissInsight(ctx, householdID, insightID))
}

// centsAmount formats a cent amount for insight copy: 123456 -> "1234.56".
func centsAmount(cents int64) string {
	neg := ""
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}
