package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/stats"
)

// Seasonality thresholds.
const (
	seasonalityMinMonths = 24
	seasonalityMinCV     = 0.15
	peakFactorFloor      = 1.10
	maxPeakPeriods       = 3
)

// minForecastPoints is the smallest history a forecast projects from.
const minForecastPoints = 3

// TrendOptions tunes trend analysis.
type TrendOptions struct {
	Period             model.BucketPeriod // default monthly
	Type               model.TrendType    // default SPENDING
	ForecastPeriods    int                // 0 = no forecast
	IncludeSeasonality bool
}

func (o *TrendOptions) validate(filter model.TransactionFilter) error {
	if o.Period == "" {
		o.Period = model.BucketMonthly
	}
	if !o.Period.Valid() {
		return errs.Validationf("period", "unknown bucket period %q", o.Period)
	}
	if o.Type == "" {
		o.Type = model.TrendSpending
	}
	if !o.Type.Valid() {
		return errs.Validationf("trendType", "unknown trend type %q", o.Type)
	}
	if o.Type == model.TrendCategory && filter.CategoryID == "" {
		return errs.Validationf("categoryId", "required for category trends")
	}
	if o.ForecastPeriods < 0 {
		return errs.Validationf("forecastPeriods", "must be non-negative, got %d", o.ForecastPeriods)
	}
	return nil
}

// GetTrendAnalysis builds the requested time series over the range, with
// optional seasonality detection and forecast projection. Transfers are
// always excluded so internal account moves never count as flows.
func (s *AnalyticsService) GetTrendAnalysis(ctx context.Context, householdID string, r model.DateRange, filter model.TransactionFilter, opts TrendOptions) (*model.TrendAnalysis, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}
	if err := r.Validate(); err != nil {
		return nil, errs.Validationf("dateRange", "%v", err)
	}
	if err := opts.validate(filter); err != nil {
		return nil, err
	}

	filter.ExcludeTransfers = true
	txns, err := s.ledger.QueryTransactions(ctx, householdID, r, filter)
	if err != nil {
		s.logger.Error("trend transaction query failed",
			zap.String("household_id", householdID),
			zap.Error(err))
		return nil, errs.DataSource("query transactions", householdID, err)
	}

	analysis := &model.TrendAnalysis{
		Points: buildSeries(txns, r, opts.Period, opts.Type),
	}

	if opts.IncludeSeasonality {
		monthly := analysis.Points
		if opts.Period != model.BucketMonthly {
			monthly = buildSeries(txns, r, model.BucketMonthly, opts.Type)
		}
		analysis.Seasonality = computeSeasonality(monthly)
	}

	if opts.ForecastPeriods > 0 {
		analysis.Forecast = forecastSeries(analysis.Points, opts.ForecastPeriods, opts.Period)
	}
	return analysis, nil
}

// buildSeries buckets transactions into a continuous series over the
// range. Empty buckets contribute zero values so regressions see evenly
// spaced observations.
func buildSeries(txns []model.Transaction, r model.DateRange, period model.BucketPeriod, trendType model.TrendType) []model.TrendPoint {
	sums := make(map[time.Time]int64)
	for _, t := range txns {
		bucket := model.BucketStart(t.Date, period)
		switch trendType {
		case model.TrendIncome:
			sums[bucket] += t.IncomeCents()
		case model.TrendNetWorth:
			sums[bucket] += t.AmountCents
		default: // SPENDING and CATEGORY
			sums[bucket] += t.ExpenseCents()
		}
	}

	var points []model.TrendPoint
	var running int64
	end := model.BucketStart(r.End, period)
	for bucket := model.BucketStart(r.Start, period); !bucket.After(end); bucket = nextBucket(bucket, period) {
		value := sums[bucket]
		if trendType == model.TrendNetWorth {
			running += value
			value = running
		}
		points = append(points, model.TrendPoint{
			Date:       bucket,
			Label:      model.BucketLabel(bucket, period),
			ValueCents: value,
		})
	}
	return points
}

func nextBucket(t time.Time, period model.BucketPeriod) time.Time {
	switch period {
	case model.BucketWeekly:
		return t.AddDate(0, 0, 7)
	case model.BucketMonthly:
		return t.AddDate(0, 1, 0)
	case model.BucketYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// computeSeasonality derives per-calendar-month factors from a monthly
// series. Below 24 monthly points the result is empty; the engine never
// reports seasonality it cannot support.
func computeSeasonality(monthly []model.TrendPoint) model.SeasonalityData {
	if len(monthly) < seasonalityMinMonths {
		return model.SeasonalityData{}
	}

	var values []float64
	byMonth := make(map[time.Month][]float64)
	for _, p := range monthly {
		v := float64(p.ValueCents)
		values = append(values, v)
		byMonth[p.Date.Month()] = append(byMonth[p.Date.Month()], v)
	}
	overall := stats.Mean(values)
	if overall <= 0 {
		return model.SeasonalityData{}
	}

	var factors []model.SeasonalFactor
	var factorValues []float64
	for month := time.January; month <= time.December; month++ {
		vals, ok := byMonth[month]
		if !ok {
			continue
		}
		factor := stats.Mean(vals) / overall
		factors = append(factors, model.SeasonalFactor{Period: month.String(), Factor: factor})
		factorValues = append(factorValues, factor)
	}

	data := model.SeasonalityData{Factors: factors}
	meanFactor := stats.Mean(factorValues)
	if meanFactor > 0 && stats.StdDev(factorValues)/meanFactor > seasonalityMinCV {
		data.HasSeasonality = true
	}

	peaks := make([]model.SeasonalFactor, len(factors))
	copy(peaks, factors)
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Factor > peaks[j].Factor })
	for _, peak := range peaks {
		if peak.Factor <= peakFactorFloor || len(data.PeakPeriods) == maxPeakPeriods {
			break
		}
		data.PeakPeriods = append(data.PeakPeriods, model.PeakPeriod{
			Period:      peak.Period,
			Factor:      peak.Factor,
			Description: fmt.Sprintf("%s spending runs %.0f%% above average", peak.Period, (peak.Factor-1)*100),
		})
	}
	return data
}

// forecastSeries projects n future points from an OLS fit over the series
// index. Predictions are clamped to zero or above and carry 95% bounds.
// Below 3 points the forecast is empty.
func forecastSeries(points []model.TrendPoint, n int, period model.BucketPeriod) []model.ForecastPoint {
	if len(points) < minForecastPoints || n <= 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = float64(p.ValueCents)
	}
	reg, ok := stats.LinearRegression(values)
	if !ok {
		return nil
	}
	confidence := stats.Clamp(reg.RSquared, 0.1, 0.9)

	forecast := make([]model.ForecastPoint, 0, n)
	date := points[len(points)-1].Date
	for i := 1; i <= n; i++ {
		x := float64(len(points) + i - 1)
		predicted := reg.PredictAt(x)
		if predicted < 0 {
			predicted = 0
		}
		margin := reg.PredictionInterval(x)
		lower := predicted - margin
		if lower < 0 {
			lower = 0
		}

		date = nextBucket(date, period)
		forecast = append(forecast, model.ForecastPoint{
			Date:           date,
			PredictedCents: int64(predicted),
			LowerCents:     int64(lower),
			UpperCents:     int64(predicted + margin),
			Confidence:     confidence,
		})
	}
	return forecast
}
