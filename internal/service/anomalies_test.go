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

func TestDetectAnomaliesFlagsOutlier(t *testing.T) {
	st := store.NewMemoryStore()
	// Nine routine expenses and one two-orders-of-magnitude outlier.
	for day := 1; day <= 9; day++ {
		st.SeedTransactions(expense("groceries", 1_000,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	st.SeedTransactions(model.Transaction{
		ID:          "tx-outlier",
		HouseholdID: testHousehold,
		CategoryID:  "electronics",
		Merchant:    "Gadget Hut",
		Currency:    "USD",
		AmountCents: -100_000,
		Date:        time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
	})
	svc := newTestService(t, st)

	anomalies, err := svc.DetectAnomalies(context.Background(), testHousehold, AnomalyOptions{})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)

	a := anomalies[0]
	assert.Equal(t, "tx-outlier", a.TransactionID)
	assert.Equal(t, "electronics", a.CategoryID)
	assert.Equal(t, "Gadget Hut", a.Merchant)
	assert.Equal(t, int64(100_000), a.AmountCents)
	assert.Equal(t, int64(10_900), a.ExpectedCents)
	assert.Greater(t, a.DeviationPct, 100.0)
	assert.Greater(t, a.Confidence, 0.0)
	assert.LessOrEqual(t, a.Confidence, 1.0)
	assert.Equal(t, model.SeverityMedium, a.Severity, "z of exactly 3 stays below the HIGH cutoff")
	assert.NotEmpty(t, a.Reason)
}

func TestDetectAnomaliesFlagsAmountAtThreshold(t *testing.T) {
	// Four 10.00 expenses and one 1000.00 outlier: with the default
	// sensitivity the outlier lands exactly on mean + 2·stddev, and the
	// threshold is inclusive.
	st := store.NewMemoryStore()
	for day := 1; day <= 4; day++ {
		st.SeedTransactions(expense("groceries", 1_000,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	st.SeedTransactions(expense("electronics", 100_000,
		time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)))
	svc := newTestService(t, st)

	anomalies, err := svc.DetectAnomalies(context.Background(), testHousehold, AnomalyOptions{})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)

	a := anomalies[0]
	assert.Equal(t, int64(100_000), a.AmountCents)
	assert.Equal(t, int64(20_800), a.ExpectedCents)
	assert.Equal(t, 0.0, a.Confidence, "no overshoot past the threshold")
	assert.Equal(t, model.SeverityLow, a.Severity)
}

func TestDetectAnomaliesInsufficientHistory(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedTransactions(
		expense("groceries", 1_000, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
		expense("groceries", 500_000, time.Date(2026, time.June, 2, 0, 0, 0, 0, time.UTC)),
	)
	svc := newTestService(t, st)

	anomalies, err := svc.DetectAnomalies(context.Background(), testHousehold, AnomalyOptions{})
	require.NoError(t, err)
	assert.Empty(t, anomalies, "fewer than three expenses is not enough signal")
}

func TestDetectAnomaliesUniformSpendingIsClean(t *testing.T) {
	st := store.NewMemoryStore()
	for day := 1; day <= 10; day++ {
		st.SeedTransactions(expense("groceries", 5_000,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	svc := newTestService(t, st)

	anomalies, err := svc.DetectAnomalies(context.Background(), testHousehold, AnomalyOptions{})
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetectAnomaliesSensitivity(t *testing.T) {
	// A linear spread: the top expense clears the HIGH threshold but not
	// the MEDIUM one.
	st := store.NewMemoryStore()
	for i := 1; i <= 10; i++ {
		st.SeedTransactions(expense("shopping", int64(i)*1_000,
			time.Date(2026, time.June, i, 0, 0, 0, 0, time.UTC)))
	}
	svc := newTestService(t, st)

	high, err := svc.DetectAnomalies(context.Background(), testHousehold,
		AnomalyOptions{Sensitivity: model.SensitivityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, int64(10_000), high[0].AmountCents)

	medium, err := svc.DetectAnomalies(context.Background(), testHousehold,
		AnomalyOptions{Sensitivity: model.SensitivityMedium})
	require.NoError(t, err)
	assert.Empty(t, medium)

	low, err := svc.DetectAnomalies(context.Background(), testHousehold,
		AnomalyOptions{Sensitivity: model.SensitivityLow})
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestDetectAnomaliesIgnoresIncomeAndTransfers(t *testing.T) {
	st := store.NewMemoryStore()
	for day := 1; day <= 5; day++ {
		st.SeedTransactions(expense("groceries", 1_000,
			time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)))
	}
	// Big inflow and a big internal move, neither an expense outlier.
	st.SeedTransactions(
		income(900_000, time.Date(2026, time.June, 6, 0, 0, 0, 0, time.UTC)),
		model.Transaction{
			HouseholdID: testHousehold,
			CategoryID:  "transfer",
			Currency:    "USD",
			AmountCents: -800_000,
			IsTransfer:  true,
			Date:        time.Date(2026, time.June, 7, 0, 0, 0, 0, time.UTC),
		},
	)
	svc := newTestService(t, st)

	anomalies, err := svc.DetectAnomalies(context.Background(), testHousehold, AnomalyOptions{})
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetectAnomaliesValidation(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore())

	_, err := svc.DetectAnomalies(context.Background(), "", AnomalyOptions{})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.DetectAnomalies(context.Background(), testHousehold,
		AnomalyOptions{Sensitivity: "EXTREME"})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.DetectAnomalies(context.Background(), testHousehold,
		AnomalyOptions{LookbackDays: -7})
	assert.True(t, errs.IsValidation(err))
}
