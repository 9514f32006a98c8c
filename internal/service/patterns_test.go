package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/store"
)

func TestAnalyzePatternsDaily(t *testing.T) {
	st := store.NewMemoryStore()
	// Ten identical grocery runs on ten distinct days.
	for day := 1; day <= 10; day++ {
		st.SeedTransactions(expense("groceries", 50_000,
			time.Date(2026, time.June, day, 10, 0, 0, 0, time.UTC)))
	}
	svc := newTestService(t, st)

	patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
	require.NoError(t, err)
	require.Len(t, patterns, 1, "ten days spread over two weeks should only clear the daily threshold")

	p := patterns[0]
	assert.Equal(t, model.PatternDaily, p.Type)
	assert.Equal(t, "groceries", p.CategoryID)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, int64(50_000), p.AverageAmountCents)
	assert.Equal(t, 10, p.Frequency)
	assert.Equal(t, 1.0, p.Confidence, "identical amounts are fully consistent")
	assert.Equal(t, model.TrendStable, p.Trend)
	assert.Equal(t, -1, p.DayOfWeek)
	assert.Equal(t, time.Month(0), p.Month)

	stored, err := svc.ListPatterns(context.Background(), testHousehold)
	require.NoError(t, err)
	assert.Equal(t, patterns, stored)
}

func TestAnalyzePatternsWeekly(t *testing.T) {
	st := store.NewMemoryStore()
	// Rent-adjacent takeout every Monday for twelve weeks.
	monday := time.Date(2026, time.June, 8, 19, 0, 0, 0, time.UTC)
	for week := 0; week < 12; week++ {
		st.SeedTransactions(expense("dining", 8_000, monday.AddDate(0, 0, -7*week)))
	}
	svc := newTestService(t, st)

	patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
	require.NoError(t, err)

	var weekly []model.SpendingPattern
	for _, p := range patterns {
		if p.Type == model.PatternWeekly {
			weekly = append(weekly, p)
		}
	}
	require.Len(t, weekly, 1)
	assert.Equal(t, int(time.Monday), weekly[0].DayOfWeek)
	assert.Equal(t, int64(8_000), weekly[0].AverageAmountCents)
	assert.Equal(t, 12, weekly[0].Frequency)
}

func TestAnalyzePatternsThresholds(t *testing.T) {
	t.Run("below min frequency", func(t *testing.T) {
		st := store.NewMemoryStore()
		st.SeedTransactions(
			expense("groceries", 50_000, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
			expense("groceries", 50_000, time.Date(2026, time.June, 2, 0, 0, 0, 0, time.UTC)),
		)
		svc := newTestService(t, st)

		patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("below min confidence", func(t *testing.T) {
		st := store.NewMemoryStore()
		// Erratic amounts: high variance drives consistency to zero.
		st.SeedTransactions(
			expense("shopping", 1_000, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
			expense("shopping", 50_000, time.Date(2026, time.June, 2, 0, 0, 0, 0, time.UTC)),
			expense("shopping", 200_000, time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC)),
		)
		svc := newTestService(t, st)

		patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("no transactions", func(t *testing.T) {
		svc := newTestService(t, store.NewMemoryStore())

		patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})
}

func TestAnalyzePatternsValidation(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore())

	_, err := svc.AnalyzePatterns(context.Background(), "", DefaultPatternOptions())
	assert.True(t, errs.IsValidation(err))

	_, err = svc.AnalyzePatterns(context.Background(), testHousehold, PatternOptions{MinFrequency: -1})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.AnalyzePatterns(context.Background(), testHousehold, PatternOptions{MinConfidence: 1.5})
	assert.True(t, errs.IsValidation(err))
}

func TestAnalyzePatternsReplacesPriorSet(t *testing.T) {
	st := store.NewMemoryStore()
	for day := 1; day <= 10; day++ {
		st.SeedTransactions(expense("groceries", 50_000,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	svc := newTestService(t, st)

	_, err := svc.AnalyzePatterns(context.Background(), testHousehold, DefaultPatternOptions())
	require.NoError(t, err)

	// A stricter rerun that matches nothing must clear the stored set.
	_, err = svc.AnalyzePatterns(context.Background(), testHousehold, PatternOptions{MinFrequency: 50})
	require.NoError(t, err)

	stored, err := svc.ListPatterns(context.Background(), testHousehold)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    model.Trend
	}{
		{"too few samples", []float64{10, 20, 30, 40, 50}, model.TrendStable},
		{"flat", []float64{100, 100, 100, 100, 100, 100}, model.TrendStable},
		{"within threshold", []float64{100, 100, 100, 105, 105, 105}, model.TrendStable},
		{"increasing", []float64{100, 100, 100, 150, 150, 150}, model.TrendIncreasing},
		{"decreasing", []float64{150, 150, 150, 100, 100, 100}, model.TrendDecreasing},
		{"all zero", []float64{0, 0, 0, 0, 0, 0}, model.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTrend(tt.amounts))
		})
	}
}

func TestAnalyzePatternsTrendDirection(t *testing.T) {
	st := store.NewMemoryStore()
	// Spending doubles over the trend window while staying regular enough
	// to surface daily and weekly patterns.
	for day := 1; day <= 10; day++ {
		amount := int64(40_000)
		if day > 5 {
			amount = 80_000
		}
		st.SeedTransactions(expense("groceries", amount,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	svc := newTestService(t, st)

	patterns, err := svc.AnalyzePatterns(context.Background(), testHousehold, PatternOptions{
		MinFrequency:  3,
		MinConfidence: 0, // keep the noisy group
		IncludeTrends: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	for _, p := range patterns {
		assert.Equal(t, model.TrendIncreasing, p.Trend)
	}
}
