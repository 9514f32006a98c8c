// Package store defines the persistence collaborators consumed by the
// analytics engine: the append-only transaction Ledger it reads from, the
// InsightStore its derived results are written to, and the AggregateStore
// that owns materialized aggregate recomputation.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/hendripermana/permoney-analytics/internal/model"
)

// Ledger reads from the external append-only transaction ledger.
// Implementations must use parameterized queries; callers never pass
// query fragments.
type Ledger interface {
	// QueryAggregates returns (category, bucket, currency) aggregate rows
	// for the household over the range. byCategory=false collapses
	// categories into a single row per bucket.
	QueryAggregates(ctx context.Context, householdID string, r model.DateRange, bucket model.BucketPeriod, byCategory bool, filter model.TransactionFilter) ([]model.TransactionAggregate, error)

	// QueryTransactions returns matching transactions ordered by date
	// ascending.
	QueryTransactions(ctx context.Context, householdID string, r model.DateRange, filter model.TransactionFilter) ([]model.Transaction, error)
}

// InsightStore persists derived analytics results. Replace operations are
// atomic: readers never observe the gap between delete and insert.
type InsightStore interface {
	// ReplacePatterns deletes the household's entire previous pattern set
	// and inserts the new batch in one transaction.
	ReplacePatterns(ctx context.Context, householdID string, patterns []model.SpendingPattern) error
	ListPatterns(ctx context.Context, householdID string) ([]model.SpendingPattern, error)

	// ReplaceInsights deletes all existing insights of the given types and
	// inserts the new batch in one transaction.
	ReplaceInsights(ctx context.Context, householdID string, types []model.InsightType, insights []model.Insight) error
	ListInsights(ctx context.Context, householdID string, includeDismissed bool) ([]model.Insight, error)
	DismissInsight(ctx context.Context, householdID, insightID string) error

	UpsertViewStatus(ctx context.Context, status model.MaterializedViewStatus) error
	// GetViewStatus returns the stored status for a view; found=false for
	// a view that has never been refreshed.
	GetViewStatus(ctx context.Context, viewName string) (status model.MaterializedViewStatus, found bool, err error)
}

// AggregateStore owns the precomputed aggregates behind a materialized
// view and can rebuild them from the ledger.
type AggregateStore interface {
	RefreshView(ctx context.Context, viewName string) error
}

// aggregateKey identifies one aggregate row during client-side grouping.
// Both the memory and Firestore ledgers group this way because neither
// backend does server-side aggregation.
type aggregateKey struct {
	category string
	bucket   time.Time
	currency string
}

func aggregateRows(txns []model.Transaction, bucket model.BucketPeriod, byCategory bool) []model.TransactionAggregate {
	rows := make(map[aggregateKey]*model.TransactionAggregate)
	for _, t := range txns {
		key := aggregateKey{
			bucket:   model.BucketStart(t.Date, bucket),
			currency: t.Currency,
		}
		if byCategory {
			key.category = t.CategoryID
		}

		row, ok := rows[key]
		if !ok {
			row = &model.TransactionAggregate{
				CategoryID: key.category,
				Bucket:     key.bucket,
				Currency:   key.currency,
			}
			rows[key] = row
		}
		row.IncomeCents += t.IncomeCents()
		row.ExpenseCents += t.ExpenseCents()
		row.Count++
	}

	out := make([]model.TransactionAggregate, 0, len(rows))
	for _, row := range rows {
		if row.Count > 0 {
			row.AvgCents = (row.IncomeCents + row.ExpenseCents) / row.Count
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Bucket.Equal(out[j].Bucket) {
			return out[i].Bucket.Before(out[j].Bucket)
		}
		if out[i].CategoryID != out[j].CategoryID {
			return out[i].CategoryID < out[j].CategoryID
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
