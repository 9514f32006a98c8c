package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hendripermana/permoney-analytics/internal/model"
)

// MemoryStore implements Ledger and InsightStore with in-memory storage.
// Used in tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	transactions map[string]model.Transaction
	patterns     map[string][]model.SpendingPattern // householdID -> patterns
	insights     map[string]map[string]model.Insight
	viewStatuses map[string]model.MaterializedViewStatus
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]model.Transaction),
		patterns:     make(map[string][]model.SpendingPattern),
		insights:     make(map[string]map[string]model.Insight),
		viewStatuses: make(map[string]model.MaterializedViewStatus),
	}
}

// SeedTransactions loads ledger fixtures. IDs are assigned when missing.
func (m *MemoryStore) SeedTransactions(txns ...model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = t.Date
		}
		m.transactions[t.ID] = t
	}
}

// Ledger

func (m *MemoryStore) QueryAggregates(ctx context.Context, householdID string, r model.DateRange, bucket model.BucketPeriod, byCategory bool, filter model.TransactionFilter) ([]model.TransactionAggregate, error) {
	txns, err := m.QueryTransactions(ctx, householdID, r, filter)
	if err != nil {
		return nil, err
	}
	return aggregateRows(txns, bucket, byCategory), nil
}

func (m *MemoryStore) QueryTransactions(ctx context.Context, householdID string, r model.DateRange, filter model.TransactionFilter) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Transaction
	for _, t := range m.transactions {
		if t.HouseholdID != householdID {
			continue
		}
		if !r.Contains(t.Date) {
			continue
		}
		if !filter.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// InsightStore

func (m *MemoryStore) ReplacePatterns(ctx context.Context, householdID string, patterns []model.SpendingPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]model.SpendingPattern, len(patterns))
	for i, p := range patterns {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.HouseholdID = householdID
		stored[i] = p
	}
	m.patterns[householdID] = stored
	return nil
}

func (m *MemoryStore) ListPatterns(ctx context.Context, householdID string) ([]model.SpendingPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.SpendingPattern, len(m.patterns[householdID]))
	copy(out, m.patterns[householdID])
	return out, nil
}

func (m *MemoryStore) ReplaceInsights(ctx context.Context, householdID string, types []model.InsightType, insights []model.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.insights[householdID]
	if !ok {
		byID = make(map[string]model.Insight)
		m.insights[householdID] = byID
	}

	replaced := make(map[model.InsightType]bool, len(types))
	for _, t := range types {
		replaced[t] = true
	}
	for id, ins := range byID {
		if replaced[ins.Type] {
			delete(byID, id)
		}
	}
	for _, ins := range insights {
		if ins.ID == "" {
			ins.ID = uuid.New().String()
		}
		ins.HouseholdID = householdID
		byID[ins.ID] = ins
	}
	return nil
}

func (m *MemoryStore) ListInsights(ctx context.Context, householdID string, includeDismissed bool) ([]model.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Insight
	for _, ins := range m.insights[householdID] {
		if !includeDismissed && ins.IsDismissed {
			continue
		}
		out = append(out, ins)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DismissInsight(ctx context.Context, householdID, insightID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.insights[householdID]
	ins, ok := byID[insightID]
	if !ok {
		return fmt.Errorf("insight %s not found for household %s", insightID, householdID)
	}
	ins.IsDismissed = true
	byID[insightID] = ins
	return nil
}

func (m *MemoryStore) UpsertViewStatus(ctx context.Context, status model.MaterializedViewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.viewStatuses[status.ViewName] = status
	return nil
}

func (m *MemoryStore) GetViewStatus(ctx context.Context, viewName string) (model.MaterializedViewStatus, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.viewStatuses[viewName]
	return st, ok, nil
}

// MemoryAggregateStore rebuilds per-view aggregates from a Ledger into
// process memory. It stands in for the external aggregate store in tests
// and local development.
type MemoryAggregateStore struct {
	mu     sync.Mutex
	ledger Ledger

	households []string
	window     model.DateRange

	// viewName -> householdID -> aggregate rows
	views map[string]map[string][]model.TransactionAggregate
}

// NewMemoryAggregateStore creates an aggregate store recomputing from the
// given ledger for the given households over the window.
func NewMemoryAggregateStore(ledger Ledger, households []string, window model.DateRange) *MemoryAggregateStore {
	return &MemoryAggregateStore{
		ledger:     ledger,
		households: households,
		window:     window,
		views:      make(map[string]map[string][]model.TransactionAggregate),
	}
}

// RefreshView recomputes one named view's aggregates.
func (m *MemoryAggregateStore) RefreshView(ctx context.Context, viewName string) error {
	bucket, byCategory, err := viewShape(viewName)
	if err != nil {
		return err
	}

	rebuilt := make(map[string][]model.TransactionAggregate, len(m.households))
	for _, hh := range m.households {
		rows, err := m.ledger.QueryAggregates(ctx, hh, m.window, bucket, byCategory, model.TransactionFilter{ExcludeTransfers: true})
		if err != nil {
			return fmt.Errorf("rebuild %s for household %s: %w", viewName, hh, err)
		}
		rebuilt[hh] = rows
	}

	m.mu.Lock()
	m.views[viewName] = rebuilt
	m.mu.Unlock()
	return nil
}

// Rows returns the current aggregate rows for a view and household.
func (m *MemoryAggregateStore) Rows(viewName, householdID string) []model.TransactionAggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[viewName][householdID]
}

// viewShape maps a view name to its bucketing. Unknown views are an error
// so a typo fails loudly instead of building an empty view.
func viewShape(viewName string) (model.BucketPeriod, bool, error) {
	switch viewName {
	case "daily_transaction_summary":
		return model.BucketDaily, false, nil
	case "monthly_category_spending":
		return model.BucketMonthly, true, nil
	case "household_net_worth":
		return model.BucketMonthly, false, nil
	default:
		return "", false, fmt.Errorf("unknown view %q", viewName)
	}
}
