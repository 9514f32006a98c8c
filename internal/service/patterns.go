package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/stats"
)

// Lookback windows per pattern granularity.
const (
	dailyLookbackDays  = 90
	weeklyLookbackDays = 84 // 12 full weeks, grouped by day of week
	monthlyLookback    = 12 // months
	seasonalLookback   = 24 // months, grouped by calendar month
)

// trendLookbackMonths is how much history feeds trend classification.
const trendLookbackMonths = 6

// trendChangeThreshold is the relative change between the two halves of
// the trend window that separates STABLE from INCREASING/DECREASING.
const trendChangeThreshold = 0.10

// PatternOptions tunes pattern detection.
type PatternOptions struct {
	MinFrequency       int     // minimum distinct occurrence buckets
	MinConfidence      float64 // minimum confidence in [0,1]
	IncludeSeasonality bool
	IncludeTrends      bool
}

// DefaultPatternOptions returns the standard analysis options.
func DefaultPatternOptions() PatternOptions {
	return PatternOptions{
		MinFrequency:       3,
		MinConfidence:      0.5,
		IncludeSeasonality: true,
		IncludeTrends:      true,
	}
}

func (o *PatternOptions) validate() error {
	if o.MinFrequency == 0 {
		o.MinFrequency = 3
	}
	if o.MinFrequency < 1 {
		return errs.Validationf("minFrequency", "must be a positive integer, got %d", o.MinFrequency)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return errs.Validationf("minConfidence", "must be within [0,1], got %g", o.MinConfidence)
	}
	return nil
}

// AnalyzePatterns detects the household's recurring spending patterns
// across all granularities and atomically replaces the previously stored
// pattern set with the new batch.
func (s *AnalyticsService) AnalyzePatterns(ctx context.Context, householdID string, opts PatternOptions) ([]model.SpendingPattern, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var patterns []model.SpendingPattern

	daily, err := s.detectDaily(ctx, householdID, now, opts)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, daily...)

	weekly, err := s.detectWeekly(ctx, householdID, now, opts)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, weekly...)

	monthly, err := s.detectMonthly(ctx, householdID, now, opts)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, monthly...)

	if opts.IncludeSeasonality {
		seasonal, err := s.detectSeasonal(ctx, householdID, now, opts)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, seasonal...)
	}

	if opts.IncludeTrends {
		if err := s.classifyTrends(ctx, householdID, now, patterns); err != nil {
			return nil, err
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Type != patterns[j].Type {
			return patterns[i].Type < patterns[j].Type
		}
		if patterns[i].CategoryID != patterns[j].CategoryID {
			return patterns[i].CategoryID < patterns[j].CategoryID
		}
		if patterns[i].DayOfWeek != patterns[j].DayOfWeek {
			return patterns[i].DayOfWeek < patterns[j].DayOfWeek
		}
		return patterns[i].Month < patterns[j].Month
	})

	if err := s.insights.ReplacePatterns(ctx, householdID, patterns); err != nil {
		s.logger.Error("pattern replace failed",
			zap.String("household_id", householdID),
			zap.Error(err))
		return nil, errs.DataSource("replace patterns", householdID, err)
	}

	s.logger.Info("spending patterns analyzed",
		zap.String("household_id", householdID),
		zap.Int("patterns", len(patterns)))
	return patterns, nil
}

// expenseFilter is the filter every pattern query shares: expenses only,
// transfers excluded.
var expenseFilter = model.TransactionFilter{ExpensesOnly: true, ExcludeTransfers: true}

func (s *AnalyticsService) detectDaily(ctx context.Context, householdID string, now time.Time, opts PatternOptions) ([]model.SpendingPattern, error) {
	r := model.DateRange{Start: now.AddDate(0, 0, -dailyLookbackDays), End: now}
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketDaily, true, expenseFilter)
	if err != nil {
		return nil, errs.DataSource("query daily aggregates", householdID, err)
	}

	groups := make(map[patternKey][]float64)
	for _, row := range rows {
		if row.ExpenseCents == 0 {
			continue
		}
		key := patternKey{category: row.CategoryID, currency: row.Currency}
		groups[key] = append(groups[key], float64(row.ExpenseCents))
	}
	return buildPatterns(householdID, model.PatternDaily, groups, opts, now), nil
}

func (s *AnalyticsService) detectWeekly(ctx context.Context, householdID string, now time.Time, opts PatternOptions) ([]model.SpendingPattern, error) {
	r := model.DateRange{Start: now.AddDate(0, 0, -weeklyLookbackDays), End: now}
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketDaily, true, expenseFilter)
	if err != nil {
		return nil, errs.DataSource("query weekly aggregates", householdID, err)
	}

	groups := make(map[patternKey][]float64)
	for _, row := range rows {
		if row.ExpenseCents == 0 {
			continue
		}
		key := patternKey{
			category:  row.CategoryID,
			currency:  row.Currency,
			dayOfWeek: int(row.Bucket.Weekday()),
		}
		groups[key] = append(groups[key], float64(row.ExpenseCents))
	}
	return buildPatterns(householdID, model.PatternWeekly, groups, opts, now), nil
}

func (s *AnalyticsService) detectMonthly(ctx context.Context, householdID string, now time.Time, opts PatternOptions) ([]model.SpendingPattern, error) {
	r := model.DateRange{Start: now.AddDate(0, -monthlyLookback, 0), End: now}
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketMonthly, true, expenseFilter)
	if err != nil {
		return nil, errs.DataSource("query monthly aggregates", householdID, err)
	}

	groups := make(map[patternKey][]float64)
	for _, row := range rows {
		if row.ExpenseCents == 0 {
			continue
		}
		key := patternKey{category: row.CategoryID, currency: row.Currency}
		groups[key] = append(groups[key], float64(row.ExpenseCents))
	}
	return buildPatterns(householdID, model.PatternMonthly, groups, opts, now), nil
}

func (s *AnalyticsService) detectSeasonal(ctx context.Context, householdID string, now time.Time, opts PatternOptions) ([]model.SpendingPattern, error) {
	r := model.DateRange{Start: now.AddDate(0, -seasonalLookback, 0), End: now}
	rows, err := s.ledger.QueryAggregates(ctx, householdID, r, model.BucketMonthly, true, expenseFilter)
	if err != nil {
		return nil, errs.DataSource("query seasonal aggregates", householdID, err)
	}

	groups := make(map[patternKey][]float64)
	for _, row := range rows {
		if row.ExpenseCents == 0 {
			continue
		}
		key := patternKey{
			category: row.CategoryID,
			currency: row.Currency,
			month:    row.Bucket.Month(),
		}
		groups[key] = append(groups[key], float64(row.ExpenseCents))
	}
	return buildPatterns(householdID, model.PatternSeasonal, groups, opts, now), nil
}

// patternKey identifies one candidate pattern group. dayOfWeek and month
// stay at their zero values for granularities that do not use them.
type patternKey struct {
	category  string
	currency  string
	dayOfWeek int
	month     time.Month
}

// buildPatterns turns grouped bucket sums into surfaced patterns,
// enforcing frequency and confidence thresholds.
func buildPatterns(householdID string, patternType model.PatternType, groups map[patternKey][]float64, opts PatternOptions, now time.Time) []model.SpendingPattern {
	var out []model.SpendingPattern
	for key, sums := range groups {
		if len(sums) < opts.MinFrequency {
			continue
		}
		confidence := stats.Confidence(sums)
		if confidence < opts.MinConfidence {
			continue
		}

		p := model.SpendingPattern{
			HouseholdID:        householdID,
			Type:               patternType,
			CategoryID:         key.category,
			Currency:           key.currency,
			DayOfWeek:          -1,
			HourOfDay:          -1,
			AverageAmountCents: int64(stats.Mean(sums)),
			Frequency:          len(sums),
			Confidence:         confidence,
			Trend:              model.TrendStable,
			CreatedAt:          now,
		}
		if patternType == model.PatternWeekly {
			p.DayOfWeek = key.dayOfWeek
		}
		if patternType == model.PatternSeasonal {
			p.Month = key.month
		}
		out = append(out, p)
	}
	return out
}

// classifyTrends fills in the trend direction for each surfaced pattern
// from the last 6 months of its category's expenses. Each category is
// classified once and shared across granularities.
func (s *AnalyticsService) classifyTrends(ctx context.Context, householdID string, now time.Time, patterns []model.SpendingPattern) error {
	r := model.DateRange{Start: now.AddDate(0, -trendLookbackMonths, 0), End: now}

	trends := make(map[string]model.Trend)
	for i := range patterns {
		category := patterns[i].CategoryID
		trend, ok := trends[category]
		if !ok {
			filter := expenseFilter
			filter.CategoryID = category
			txns, err := s.ledger.QueryTransactions(ctx, householdID, r, filter)
			if err != nil {
				return errs.DataSource("query trend transactions", householdID, err)
			}
			amounts := make([]float64, 0, len(txns))
			for _, t := range txns {
				amounts = append(amounts, float64(t.ExpenseCents()))
			}
			trend = classifyTrend(amounts)
			trends[category] = trend
		}
		patterns[i].Trend = trend
	}
	return nil
}

// classifyTrend compares the mean of the second half of a date-ordered
// amount series against the first half. Below 6 samples the direction is
// STABLE, never extrapolated.
func classifyTrend(amounts []float64) model.Trend {
	if len(amounts) < 6 {
		return model.TrendStable
	}
	half := len(amounts) / 2
	first := stats.Mean(amounts[:half])
	second := stats.Mean(amounts[half:])
	if first <= 0 {
		return model.TrendStable
	}

	change := (second - first) / first
	switch {
	case change > trendChangeThreshold:
		return model.TrendIncreasing
	case change < -trendChangeThreshold:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}
