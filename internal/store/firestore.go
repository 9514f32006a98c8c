package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/hendripermana/permoney-analytics/internal/model"
)

// Firestore collection names.
// NOTE: field names in queries must match Go struct field names
// (PascalCase) as that's how Firestore serializes the model structs.
const (
	colTransactions   = "transactions"
	colPatterns       = "spendingPatterns"
	colInsights       = "insights"
	colViewStatuses   = "viewStatuses"
	colViewAggregates = "viewAggregates"
)

// FirestoreStore implements Ledger, InsightStore, and AggregateStore on
// Firestore. Aggregate grouping happens client-side; Firestore has no
// server-side aggregation over arbitrary groupings.
type FirestoreStore struct {
	client *firestore.Client

	// households and window bound the materialized view rebuilds.
	households []string
	window     model.DateRange
}

// NewFirestoreStore creates a Firestore-backed store. households and
// window configure which data the materialized views cover.
func NewFirestoreStore(client *firestore.Client, households []string, window model.DateRange) *FirestoreStore {
	return &FirestoreStore{client: client, households: households, window: window}
}

// Ledger

func (s *FirestoreStore) QueryTransactions(ctx context.Context, householdID string, r model.DateRange, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := s.client.Collection(colTransactions).
		Where("HouseholdID", "==", householdID).
		Where("Date", ">=", r.Start).
		Where("Date", "<=", r.End).
		OrderBy("Date", firestore.Asc)

	// Equality filters push down; amount/sign filters apply client-side
	// because the sign convention spans two Firestore range conditions.
	if filter.CategoryID != "" {
		query = query.Where("CategoryID", "==", filter.CategoryID)
	}
	if filter.AccountID != "" {
		query = query.Where("AccountID", "==", filter.AccountID)
	}
	if filter.Currency != "" {
		query = query.Where("Currency", "==", filter.Currency)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	var out []model.Transaction
	for _, doc := range docs {
		var t model.Transaction
		if err := doc.DataTo(&t); err != nil {
			continue
		}
		if !filter.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *FirestoreStore) QueryAggregates(ctx context.Context, householdID string, r model.DateRange, bucket model.BucketPeriod, byCategory bool, filter model.TransactionFilter) ([]model.TransactionAggregate, error) {
	txns, err := s.QueryTransactions(ctx, householdID, r, filter)
	if err != nil {
		return nil, err
	}
	return aggregateRows(txns, bucket, byCategory), nil
}

// InsightStore

// ReplacePatterns swaps the household's pattern set inside one Firestore
// transaction so readers never see the empty state between delete and
// insert.
func (s *FirestoreStore) ReplacePatterns(ctx context.Context, householdID string, patterns []model.SpendingPattern) error {
	col := s.client.Collection(colPatterns)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := collectRefs(tx.Documents(col.Where("HouseholdID", "==", householdID)))
		if err != nil {
			return fmt.Errorf("list patterns: %w", err)
		}
		for _, ref := range existing {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		for _, p := range patterns {
			if p.ID == "" {
				p.ID = uuid.New().String()
			}
			p.HouseholdID = householdID
			if err := tx.Set(col.Doc(p.ID), p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FirestoreStore) ListPatterns(ctx context.Context, householdID string) ([]model.SpendingPattern, error) {
	docs, err := s.client.Collection(colPatterns).
		Where("HouseholdID", "==", householdID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}

	var out []model.SpendingPattern
	for _, doc := range docs {
		var p model.SpendingPattern
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ReplaceInsights deletes the household's insights of the given types and
// inserts the new batch in one Firestore transaction.
func (s *FirestoreStore) ReplaceInsights(ctx context.Context, householdID string, types []model.InsightType, insights []model.Insight) error {
	col := s.client.Collection(colInsights)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, insightType := range types {
			refs, err := collectRefs(tx.Documents(col.
				Where("HouseholdID", "==", householdID).
				Where("Type", "==", string(insightType))))
			if err != nil {
				return fmt.Errorf("list %s insights: %w", insightType, err)
			}
			for _, ref := range refs {
				if err := tx.Delete(ref); err != nil {
					return err
				}
			}
		}
		for _, ins := range insights {
			if ins.ID == "" {
				ins.ID = uuid.New().String()
			}
			ins.HouseholdID = householdID
			if err := tx.Set(col.Doc(ins.ID), ins); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FirestoreStore) ListInsights(ctx context.Context, householdID string, includeDismissed bool) ([]model.Insight, error) {
	query := s.client.Collection(colInsights).Where("HouseholdID", "==", householdID)
	if !includeDismissed {
		query = query.Where("IsDismissed", "==", false)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	var out []model.Insight
	for _, doc := range docs {
		var ins model.Insight
		if err := doc.DataTo(&ins); err != nil {
			continue
		}
		out = append(out, ins)
	}
	return out, nil
}

func (s *FirestoreStore) DismissInsight(ctx context.Context, householdID, insightID string) error {
	ref := s.client.Collection(colInsights).Doc(insightID)
	doc, err := ref.Get(ctx)
	if err != nil {
		return fmt.Errorf("get insight %s: %w", insightID, err)
	}

	var ins model.Insight
	if err := doc.DataTo(&ins); err != nil {
		return fmt.Errorf("decode insight %s: %w", insightID, err)
	}
	if ins.HouseholdID != householdID {
		return fmt.Errorf("insight %s does not belong to household %s", insightID, householdID)
	}

	_, err = ref.Update(ctx, []firestore.Update{{Path: "IsDismissed", Value: true}})
	return err
}

func (s *FirestoreStore) UpsertViewStatus(ctx context.Context, status model.MaterializedViewStatus) error {
	_, err := s.client.Collection(colViewStatuses).Doc(status.ViewName).Set(ctx, status)
	return err
}

func (s *FirestoreStore) GetViewStatus(ctx context.Context, viewName string) (model.MaterializedViewStatus, bool, error) {
	doc, err := s.client.Collection(colViewStatuses).Doc(viewName).Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return model.MaterializedViewStatus{}, false, nil
		}
		return model.MaterializedViewStatus{}, false, fmt.Errorf("get view status %s: %w", viewName, err)
	}

	var st model.MaterializedViewStatus
	if err := doc.DataTo(&st); err != nil {
		return model.MaterializedViewStatus{}, false, fmt.Errorf("decode view status %s: %w", viewName, err)
	}
	return st, true, nil
}

// AggregateStore

// viewAggregateDoc is one precomputed row inside a materialized view.
type viewAggregateDoc struct {
	ViewName     string
	HouseholdID  string
	CategoryID   string
	Bucket       time.Time
	Currency     string
	IncomeCents  int64
	ExpenseCents int64
	Count        int64
	AvgCents     int64
	RefreshedAt  time.Time
}

// RefreshView rebuilds one view's aggregate documents from the ledger.
// The per-household swap runs in a transaction so readers never see a
// half-rebuilt view.
func (s *FirestoreStore) RefreshView(ctx context.Context, viewName string) error {
	bucket, byCategory, err := viewShape(viewName)
	if err != nil {
		return err
	}

	col := s.client.Collection(colViewAggregates)
	now := time.Now().UTC()

	for _, hh := range s.households {
		rows, err := s.QueryAggregates(ctx, hh, s.window, bucket, byCategory, model.TransactionFilter{ExcludeTransfers: true})
		if err != nil {
			return fmt.Errorf("rebuild %s for household %s: %w", viewName, hh, err)
		}

		err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			existing, err := collectRefs(tx.Documents(col.
				Where("ViewName", "==", viewName).
				Where("HouseholdID", "==", hh)))
			if err != nil {
				return err
			}
			for _, ref := range existing {
				if err := tx.Delete(ref); err != nil {
					return err
				}
			}
			for _, row := range rows {
				doc := viewAggregateDoc{
					ViewName:     viewName,
					HouseholdID:  hh,
					CategoryID:   row.CategoryID,
					Bucket:       row.Bucket,
					Currency:     row.Currency,
					IncomeCents:  row.IncomeCents,
					ExpenseCents: row.ExpenseCents,
					Count:        row.Count,
					AvgCents:     row.AvgCents,
					RefreshedAt:  now,
				}
				if err := tx.Set(col.NewDoc(), doc); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("swap %s for household %s: %w", viewName, hh, err)
		}
	}
	return nil
}

func collectRefs(iter *firestore.DocumentIterator) ([]*firestore.DocumentRef, error) {
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return refs, nil
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, doc.Ref)
	}
}
