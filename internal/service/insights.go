package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/stats"
	"github.com/hendripermana/permoney-analytics/internal/telemetry"
)

const (
	// insightValidity is how long a generated insight stays current.
	insightValidity = 7 * 24 * time.Hour

	// materialityCents is the average amount above which a high-confidence
	// pattern is worth a HIGH priority insight.
	materialityCents = 10_000

	// Overspend recommendation thresholds: relative and absolute month
	// over month increase.
	overspendRatio    = 1.20
	overspendMinCents = 5_000

	// savingsRateFloor is the savings rate below which the engine
	// recommends action.
	savingsRateFloor = 0.10
	savingsWindow    = 90 // days
)

// insightTypes is every type a generation run produces. The run replaces
// all three wholesale, even when a sub-analysis yields nothing, so stale
// insights never outlive the data that justified them.
var insightTypes = []model.InsightType{
	model.InsightSpendingPattern,
	model.InsightAnomaly,
	model.InsightRecommendation,
}

// GenerateInsights runs pattern, anomaly, and recommendation analyses
// concurrently with fail-fast semantics: if any sub-analysis fails, the
// whole call fails and no insight is persisted for the run. On success
// the household's previous insights of the produced types are atomically
// replaced. Dismissal state lives on individual insights and is not
// touched here.
func (s *AnalyticsService) GenerateInsights(ctx context.Context, householdID string) ([]model.Insight, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}

	var (
		patterns        []model.SpendingPattern
		anomalies       []model.FinancialAnomaly
		recommendations []model.Insight
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patterns, err = s.AnalyzePatterns(gctx, householdID, DefaultPatternOptions())
		return err
	})
	g.Go(func() error {
		var err error
		anomalies, err = s.DetectAnomalies(gctx, householdID, AnomalyOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		recommendations, err = s.buildRecommendations(gctx, householdID)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.InsightRunsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("insight generation failed",
			zap.String("household_id", householdID),
			zap.Error(err))
		return nil, err
	}

	now := s.now()
	insights := make([]model.Insight, 0, len(patterns)+len(anomalies)+len(recommendations))
	for _, p := range patterns {
		insights = append(insights, patternInsight(p, now))
	}
	for _, a := range anomalies {
		insights = append(insights, anomalyInsight(a, now))
	}
	for _, rec := range recommendations {
		rec.ID = uuid.New().String()
		rec.HouseholdID = householdID
		rec.CreatedAt = now
		rec.ValidUntil = now.Add(insightValidity)
		insights = append(insights, rec)
	}

	if err := s.insights.ReplaceInsights(ctx, householdID, insightTypes, insights); err != nil {
		telemetry.InsightRunsTotal.WithLabelValues("failed").Inc()
		return nil, errs.DataSource("replace insights", householdID, err)
	}

	telemetry.InsightRunsTotal.WithLabelValues("completed").Inc()
	s.logger.Info("insights generated",
		zap.String("household_id", householdID),
		zap.Int("patterns", len(patterns)),
		zap.Int("anomalies", len(anomalies)),
		zap.Int("recommendations", len(recommendations)))
	return insights, nil
}

func patternInsight(p model.SpendingPattern, now time.Time) model.Insight {
	priority := model.PriorityLow
	switch {
	case p.Confidence > 0.8 && p.AverageAmountCents > materialityCents:
		priority = model.PriorityHigh
	case p.Confidence > 0.6:
		priority = model.PriorityMedium
	}

	var cadence string
	switch p.Type {
	case model.PatternDaily:
		cadence = "day"
	case model.PatternWeekly:
		cadence = time.Weekday(p.DayOfWeek).String()
	case model.PatternMonthly:
		cadence = "month"
	case model.PatternSeasonal:
		cadence = p.Month.String()
	}

	return model.Insight{
		ID:          uuid.New().String(),
		HouseholdID: p.HouseholdID,
		Type:        model.InsightSpendingPattern,
		Title:       fmt.Sprintf("Recurring %s spending", strings.ToLower(string(p.Type))),
		Description: fmt.Sprintf("You spend about %s on %s every %s (%d occurrences, trend %s).",
			centsAmount(p.AverageAmountCents), p.CategoryID, cadence, p.Frequency,
			strings.ToLower(string(p.Trend))),
		Data: map[string]any{
			"categoryId":         p.CategoryID,
			"patternType":        string(p.Type),
			"averageAmountCents": p.AverageAmountCents,
			"frequency":          p.Frequency,
			"confidence":         p.Confidence,
			"trend":              string(p.Trend),
		},
		Priority:     priority,
		IsActionable: false,
		ValidUntil:   now.Add(insightValidity),
		CreatedAt:    now,
	}
}

func anomalyInsight(a model.FinancialAnomaly, now time.Time) model.Insight {
	priority := model.PriorityMedium
	if a.Severity == model.SeverityHigh {
		priority = model.PriorityHigh
	}

	subject := a.CategoryID
	if a.Merchant != "" {
		subject = a.Merchant
	}

	return model.Insight{
		ID:          uuid.New().String(),
		HouseholdID: a.HouseholdID,
		Type:        model.InsightAnomaly,
		Title:       fmt.Sprintf("Unusual expense at %s", subject),
		Description: a.Reason,
		Data: map[string]any{
			"transactionId": a.TransactionID,
			"categoryId":    a.CategoryID,
			"amountCents":   a.AmountCents,
			"deviationPct":  a.DeviationPct,
			"confidence":    a.Confidence,
			"severity":      string(a.Severity),
		},
		Priority:     priority,
		IsActionable: true,
		ValidUntil:   now.Add(insightValidity),
		CreatedAt:    now,
	}
}

// buildRecommendations derives actionable suggestions: category
// overspend month over month, and a low savings rate. Priorities set
// here pass through to the persisted insights unchanged.
func (s *AnalyticsService) buildRecommendations(ctx context.Context, householdID string) ([]model.Insight, error) {
	now := s.now()
	var recommendations []model.Insight

	current, err := s.categorySpending(ctx, householdID, model.DateRange{Start: now.AddDate(0, 0, -30), End: now})
	if err != nil {
		return nil, err
	}
	previous, err := s.categorySpending(ctx, householdID, model.DateRange{Start: now.AddDate(0, 0, -60), End: now.AddDate(0, 0, -30)})
	if err != nil {
		return nil, err
	}

	for category, cents := range current {
		prev, ok := previous[category]
		if !ok || prev == 0 {
			continue
		}
		if float64(cents) < float64(prev)*overspendRatio || cents-prev < overspendMinCents {
			continue
		}

		increase := float64(cents-prev) / float64(prev) * 100
		priority := model.PriorityMedium
		if increase >= 50 {
			priority = model.PriorityHigh
		}
		recommendations = append(recommendations, model.Insight{
			Type:  model.InsightRecommendation,
			Title: fmt.Sprintf("%s spending is up %.0f%%", category, increase),
			Description: fmt.Sprintf("You spent %s on %s in the last 30 days, up from %s the month before. Consider setting a budget for this category.",
				centsAmount(cents), category, centsAmount(prev)),
			Data: map[string]any{
				"categoryId":    category,
				"currentCents":  cents,
				"previousCents": prev,
				"increasePct":   increase,
			},
			Priority:     priority,
			IsActionable: true,
		})
	}

	savings, err := s.savingsRecommendation(ctx, householdID, now)
	if err != nil {
		return nil, err
	}
	if savings != nil {
		recommendations = append(recommendations, *savings)
	}
	return recommendations, nil
}

func (s *AnalyticsService) categorySpending(ctx context.Context, householdID string, r model.DateRange) (map[string]int64, error) {
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketMonthly, true, expenseFilter)
	if err != nil {
		return nil, errs.DataSource("query category spending", householdID, err)
	}

	sums := make(map[string]int64)
	for _, row := range rows {
		sums[row.CategoryID] += row.ExpenseCents
	}
	return sums, nil
}

func (s *AnalyticsService) savingsRecommendation(ctx context.Context, householdID string, now time.Time) (*model.Insight, error) {
	r := model.DateRange{Start: now.AddDate(0, 0, -savingsWindow), End: now}
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketMonthly, false, model.TransactionFilter{ExcludeTransfers: true})
	if err != nil {
		return nil, errs.DataSource("query savings aggregates", householdID, err)
	}

	var income, spending int64
	for _, row := range rows {
		income += row.IncomeCents
		spending += row.ExpenseCents
	}
	if income <= 0 {
		return nil, nil
	}

	rate := float64(income-spending) / float64(income)
	if rate >= savingsRateFloor {
		return nil, nil
	}

	return &model.Insight{
		Type:  model.InsightRecommendation,
		Title: fmt.Sprintf("Savings rate at %.0f%%", stats.Clamp(rate, 0, 1)*100),
		Description: fmt.Sprintf("Over the last %d days you saved %.0f%% of your income of %s. A rate of at least %.0f%% gives a healthier buffer.",
			savingsWindow, rate*100, centsAmount(income), savingsRateFloor*100),
		Data: map[string]any{
			"incomeCents":   income,
			"spendingCents": spending,
			"savingsRate":   rate,
		},
		Priority:     model.PriorityHigh,
		IsActionable: true,
	}, nil
}
