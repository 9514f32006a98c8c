package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hendripermana/permoney-analytics/internal/model"
)

const household = "hh-1"

func tx(category string, cents int64, date time.Time) model.Transaction {
	return model.Transaction{
		HouseholdID: household,
		CategoryID:  category,
		Currency:    "USD",
		AmountCents: cents,
		Date:        date,
	}
}

func TestMemoryStoreQueryTransactions(t *testing.T) {
	st := NewMemoryStore()
	st.SeedTransactions(
		tx("groceries", -5_000, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)),
		tx("groceries", -3_000, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)),
		tx("salary", 100_000, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		tx("groceries", -9_000, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)), // outside range
		model.Transaction{
			HouseholdID: "hh-other",
			CategoryID:  "groceries",
			Currency:    "USD",
			AmountCents: -7_000,
			Date:        time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC),
		},
	)

	r := model.DateRange{
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
	}

	t.Run("ordered by date ascending", func(t *testing.T) {
		txns, err := st.QueryTransactions(context.Background(), household, r, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, txns, 3)
		for i := 1; i < len(txns); i++ {
			assert.False(t, txns[i].Date.Before(txns[i-1].Date))
		}
	})

	t.Run("expenses only", func(t *testing.T) {
		txns, err := st.QueryTransactions(context.Background(), household, r,
			model.TransactionFilter{ExpensesOnly: true})
		require.NoError(t, err)
		require.Len(t, txns, 2)
		for _, tr := range txns {
			assert.True(t, tr.IsExpense())
		}
	})

	t.Run("amount bounds compare absolute values", func(t *testing.T) {
		txns, err := st.QueryTransactions(context.Background(), household, r,
			model.TransactionFilter{MinAmountCents: 4_000, MaxAmountCents: 6_000})
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, int64(-5_000), txns[0].AmountCents)
	})
}

func TestMemoryStoreQueryAggregates(t *testing.T) {
	st := NewMemoryStore()
	st.SeedTransactions(
		tx("groceries", -5_000, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)),
		tx("groceries", -7_000, time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)),
		tx("dining", -4_000, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)),
		tx("salary", 100_000, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		tx("groceries", -6_000, time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)),
	)
	r := model.DateRange{
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC),
	}

	t.Run("monthly by category", func(t *testing.T) {
		rows, err := st.QueryAggregates(context.Background(), household, r,
			model.BucketMonthly, true, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, rows, 4)

		// Rows come back bucket-then-category ordered.
		assert.Equal(t, "dining", rows[0].CategoryID)
		assert.Equal(t, "groceries", rows[1].CategoryID)
		assert.Equal(t, "salary", rows[2].CategoryID)
		assert.Equal(t, int64(12_000), rows[1].ExpenseCents)
		assert.Equal(t, int64(2), rows[1].Count)
		assert.Equal(t, int64(6_000), rows[1].AvgCents)
		assert.Equal(t, int64(100_000), rows[2].IncomeCents)

		april := rows[3]
		assert.Equal(t, time.April, april.Bucket.Month())
		assert.Equal(t, int64(6_000), april.ExpenseCents)
	})

	t.Run("monthly collapsed", func(t *testing.T) {
		rows, err := st.QueryAggregates(context.Background(), household, r,
			model.BucketMonthly, false, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Empty(t, rows[0].CategoryID)
		assert.Equal(t, int64(16_000), rows[0].ExpenseCents)
		assert.Equal(t, int64(100_000), rows[0].IncomeCents)
	})
}

func TestMemoryStoreReplaceInsights(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	seed := []model.Insight{
		{ID: "p-1", Type: model.InsightSpendingPattern},
		{ID: "a-1", Type: model.InsightAnomaly},
		{ID: "r-1", Type: model.InsightRecommendation},
	}
	require.NoError(t, st.ReplaceInsights(ctx, household,
		[]model.InsightType{model.InsightSpendingPattern, model.InsightAnomaly, model.InsightRecommendation},
		seed))

	// Replacing one type leaves the others alone.
	require.NoError(t, st.ReplaceInsights(ctx, household,
		[]model.InsightType{model.InsightAnomaly},
		[]model.Insight{{ID: "a-2", Type: model.InsightAnomaly}}))

	insights, err := st.ListInsights(ctx, household, true)
	require.NoError(t, err)
	ids := make([]string, len(insights))
	for i, ins := range insights {
		ids[i] = ins.ID
	}
	assert.ElementsMatch(t, []string{"p-1", "a-2", "r-1"}, ids)

	// Replacing a type with an empty batch clears it.
	require.NoError(t, st.ReplaceInsights(ctx, household,
		[]model.InsightType{model.InsightRecommendation}, nil))
	insights, err = st.ListInsights(ctx, household, true)
	require.NoError(t, err)
	assert.Len(t, insights, 2)
}

func TestMemoryStoreDismissInsight(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.ReplaceInsights(ctx, household,
		[]model.InsightType{model.InsightAnomaly},
		[]model.Insight{{ID: "a-1", Type: model.InsightAnomaly}}))

	require.NoError(t, st.DismissInsight(ctx, household, "a-1"))

	visible, err := st.ListInsights(ctx, household, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := st.ListInsights(ctx, household, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDismissed)

	assert.Error(t, st.DismissInsight(ctx, household, "missing"))
}

func TestMemoryStoreViewStatus(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, found, err := st.GetViewStatus(ctx, "daily_transaction_summary")
	require.NoError(t, err)
	assert.False(t, found)

	status := model.MaterializedViewStatus{
		ViewName:      "daily_transaction_summary",
		Status:        model.ViewCompleted,
		LastRefreshed: time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.UpsertViewStatus(ctx, status))

	got, found, err := st.GetViewStatus(ctx, "daily_transaction_summary")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, status, got)
}

func TestMemoryAggregateStore(t *testing.T) {
	st := NewMemoryStore()
	st.SeedTransactions(
		tx("groceries", -5_000, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)),
		tx("dining", -4_000, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)),
	)
	window := model.DateRange{
		Start: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	agg := NewMemoryAggregateStore(st, []string{household}, window)

	require.NoError(t, agg.RefreshView(context.Background(), "monthly_category_spending"))
	rows := agg.Rows("monthly_category_spending", household)
	require.Len(t, rows, 2)
	assert.Equal(t, "dining", rows[0].CategoryID)
	assert.Equal(t, "groceries", rows[1].CategoryID)

	require.NoError(t, agg.RefreshView(context.Background(), "household_net_worth"))
	collapsed := agg.Rows("household_net_worth", household)
	require.Len(t, collapsed, 1)
	assert.Equal(t, int64(9_000), collapsed[0].ExpenseCents)

	assert.Error(t, agg.RefreshView(context.Background(), "made_up_view"),
		"unknown views fail loudly")
}
