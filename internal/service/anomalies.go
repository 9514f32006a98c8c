package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/stats"
	"github.com/hendripermana/permoney-analytics/internal/telemetry"
)

// defaultAnomalyLookbackDays bounds the history anomaly detection reads.
const defaultAnomalyLookbackDays = 90

// minAnomalySamples is the smallest expense count detection runs on.
// Below it the result is empty, never extrapolated.
const minAnomalySamples = 3

// AnomalyOptions tunes anomaly detection.
type AnomalyOptions struct {
	Sensitivity  model.Sensitivity // default MEDIUM
	LookbackDays int               // default 90
}

func (o *AnomalyOptions) validate() error {
	if o.Sensitivity == "" {
		o.Sensitivity = model.SensitivityMedium
	}
	if !o.Sensitivity.Valid() {
		return errs.Validationf("sensitivity", "must be LOW, MEDIUM, or HIGH, got %q", o.Sensitivity)
	}
	if o.LookbackDays == 0 {
		o.LookbackDays = defaultAnomalyLookbackDays
	}
	if o.LookbackDays < 0 {
		return errs.Validationf("lookbackDays", "must be positive, got %d", o.LookbackDays)
	}
	return nil
}

// DetectAnomalies flags the household's statistically outlying expenses.
// Expenses at or above mean + k·stddev over absolute expense amounts are
// flagged, with k from the sensitivity (see model.Sensitivity.Multiplier).
// Results are ephemeral; they are only persisted when surfaced as
// insights.
func (s *AnalyticsService) DetectAnomalies(ctx context.Context, householdID string, opts AnomalyOptions) ([]model.FinancialAnomaly, error) {
	if householdID == "" {
		return nil, errs.Validationf("householdId", "must not be empty")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	r := model.DateRange{Start: now.AddDate(0, 0, -opts.LookbackDays), End: now}
	txns, err := s.ledger.QueryTransactions(ctx, householdID, r, expenseFilter)
	if err != nil {
		s.logger.Error("anomaly transaction query failed",
			zap.String("household_id", householdID),
			zap.Error(err))
		return nil, errs.DataSource("query transactions", householdID, err)
	}

	anomalies := flagAnomalies(householdID, txns, opts.Sensitivity)
	telemetry.AnomaliesFlagged.Add(float64(len(anomalies)))

	s.logger.Info("anomaly detection finished",
		zap.String("household_id", householdID),
		zap.Int("expenses", len(txns)),
		zap.Int("anomalies", len(anomalies)))
	return anomalies, nil
}

func flagAnomalies(householdID string, txns []model.Transaction, sensitivity model.Sensitivity) []model.FinancialAnomaly {
	if len(txns) < minAnomalySamples {
		return nil
	}

	amounts := make([]float64, len(txns))
	for i, t := range txns {
		amounts[i] = float64(t.ExpenseCents())
	}
	mean := stats.Mean(amounts)
	stddev := stats.StdDev(amounts)
	if mean <= 0 || stddev == 0 {
		// Uniform spending has no dispersion to measure against.
		return nil
	}
	threshold := mean + sensitivity.Multiplier()*stddev

	var anomalies []model.FinancialAnomaly
	for i, t := range txns {
		amount := amounts[i]
		// The threshold is inclusive: an amount sitting exactly at
		// mean + k·stddev is already k deviations out.
		if amount < threshold {
			continue
		}

		// Confidence grows with how far past the threshold the amount
		// lies; severity comes from the classic z-score cutoffs.
		confidence := stats.Clamp((amount-threshold)/threshold, 0, 1)
		z := (amount - mean) / stddev

		anomalies = append(anomalies, model.FinancialAnomaly{
			ID:            uuid.New().String(),
			HouseholdID:   householdID,
			TransactionID: t.ID,
			CategoryID:    t.CategoryID,
			Merchant:      t.Merchant,
			Currency:      t.Currency,
			AmountCents:   t.ExpenseCents(),
			ExpectedCents: int64(mean),
			DeviationPct:  (amount - mean) / mean * 100,
			Confidence:    confidence,
			Severity:      severityFromZ(z),
			Reason: fmt.Sprintf("expense of %s is %.0f%% above the typical %s",
				centsAmount(t.ExpenseCents()), (amount-mean)/mean*100, centsAmount(int64(mean))),
			Date: t.Date,
		})
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return severityRank(anomalies[i].Severity) > severityRank(anomalies[j].Severity)
		}
		return anomalies[i].AmountCents > anomalies[j].AmountCents
	})
	return anomalies
}

func severityFromZ(z float64) model.Severity {
	switch {
	case z > 3.0:
		return model.SeverityHigh
	case z > 2.5:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityHigh:
		return 2
	case model.SeverityMedium:
		return 1
	default:
		return 0
	}
}
