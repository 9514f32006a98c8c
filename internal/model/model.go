// Package model defines the domain types shared by the analytics engine.
//
// All monetary values are int64 cents. The sign convention is fixed
// globally: negative amounts are expenses, positive amounts are income.
package model

import (
	"fmt"
	"time"
)

// Transaction is a single ledger entry as returned by the Ledger collaborator.
type Transaction struct {
	ID          string
	HouseholdID string
	AccountID   string
	CategoryID  string
	Merchant    string
	Currency    string
	AmountCents int64 // negative = expense, positive = income
	IsTransfer  bool
	Date        time.Time
	CreatedAt   time.Time
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.AmountCents < 0
}

// ExpenseCents returns the absolute expense amount, or 0 for income rows.
func (t Transaction) ExpenseCents() int64 {
	if t.AmountCents < 0 {
		return -t.AmountCents
	}
	return 0
}

// IncomeCents returns the income amount, or 0 for expense rows.
func (t Transaction) IncomeCents() int64 {
	if t.AmountCents > 0 {
		return t.AmountCents
	}
	return 0
}

// TransactionAggregate is a derived (category, bucket, currency) tuple
// produced per aggregate query. Ephemeral.
type TransactionAggregate struct {
	CategoryID   string
	Bucket       time.Time // start of the date bucket
	Currency     string
	IncomeCents  int64
	ExpenseCents int64 // absolute value
	Count        int64
	AvgCents     int64
}

// BucketPeriod selects the date bucketing used by aggregate queries and
// trend series.
type BucketPeriod string

const (
	BucketDaily   BucketPeriod = "daily"
	BucketWeekly  BucketPeriod = "weekly"
	BucketMonthly BucketPeriod = "monthly"
	BucketYearly  BucketPeriod = "yearly"
)

// Valid reports whether p is one of the supported bucket periods.
func (p BucketPeriod) Valid() bool {
	switch p {
	case BucketDaily, BucketWeekly, BucketMonthly, BucketYearly:
		return true
	}
	return false
}

// DateRange is a half-open-ish inclusive [Start, End] window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects empty or inverted ranges.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("date range requires both start and end")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start date %s must be before end date %s",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return nil
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// TransactionFilter narrows ledger queries. Zero values mean "no filter".
type TransactionFilter struct {
	CategoryID       string
	AccountID        string
	Merchant         string
	Currency         string
	MinAmountCents   int64
	MaxAmountCents   int64
	ExcludeTransfers bool
	ExpensesOnly     bool
}

// Matches applies the filter to a transaction. Amount bounds compare the
// absolute amount so the sign convention stays out of caller code.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.Merchant != "" && t.Merchant != f.Merchant {
		return false
	}
	if f.Currency != "" && t.Currency != f.Currency {
		return false
	}
	if f.ExcludeTransfers && t.IsTransfer {
		return false
	}
	if f.ExpensesOnly && !t.IsExpense() {
		return false
	}
	abs := t.AmountCents
	if abs < 0 {
		abs = -abs
	}
	if f.MinAmountCents > 0 && abs < f.MinAmountCents {
		return false
	}
	if f.MaxAmountCents > 0 && abs > f.MaxAmountCents {
		return false
	}
	return true
}
