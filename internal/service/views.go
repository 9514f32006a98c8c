package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hendripermana/permoney-analytics/internal/cache"
	"github.com/hendripermana/permoney-analytics/internal/errs"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/telemetry"
)

// ViewNames is the fixed set of materialized views the coordinator
// manages.
var ViewNames = []string{
	"daily_transaction_summary",
	"monthly_category_spending",
	"household_net_worth",
}

const (
	// viewLeaseTTL bounds how long a crashed refresher can block a view.
	viewLeaseTTL = 30 * time.Minute
	// viewStatusTTL keeps cached statuses ahead of the refresh cycle.
	viewStatusTTL = 2 * time.Hour
	// viewRefreshCycle is the advertised cadence between refreshes.
	viewRefreshCycle = time.Hour
)

func viewLeaseKey(viewName string) string  { return "mv:lease:" + viewName }
func viewStatusKey(viewName string) string { return "mv:view-status:" + viewName }

// RefreshView recomputes one materialized view. Without force, a refresh
// requested while another holder owns the view's lease returns the last
// known status instead of re-triggering work — lock contention is a soft
// outcome, not an error. The lease is advisory: if the cache is down the
// refresh proceeds without it, which can duplicate work but never blocks
// it. The returned error is non-nil only for validation failures and
// failed recomputations; the status always reflects the outcome.
func (s *AnalyticsService) RefreshView(ctx context.Context, viewName string, force bool) (model.MaterializedViewStatus, error) {
	if !knownView(viewName) {
		return model.MaterializedViewStatus{}, errs.Validationf("viewName", "unknown view %q", viewName)
	}

	lease, held, err := cache.AcquireLease(ctx, s.cache, viewLeaseKey(viewName), viewLeaseTTL)
	if err != nil {
		s.logger.Warn("lease cache unavailable, refreshing without lease",
			zap.String("view", viewName),
			zap.Error(err))
	} else if !held && !force {
		s.logger.Debug("refresh already in flight",
			zap.String("view", viewName))
		return s.viewStatus(ctx, viewName), nil
	}
	if lease != nil {
		defer func() {
			if err := lease.Release(ctx); err != nil {
				s.logger.Warn("lease release failed",
					zap.String("view", viewName),
					zap.Error(err))
			}
		}()
	}

	start := s.now()
	prior := s.viewStatus(ctx, viewName)
	s.persistStatus(ctx, model.MaterializedViewStatus{
		ViewName:      viewName,
		Status:        model.ViewRefreshing,
		LastRefreshed: prior.LastRefreshed,
		NextRefresh:   start.Add(viewRefreshCycle),
	})

	refreshErr := s.aggregates.RefreshView(ctx, viewName)
	finished := s.now()
	duration := finished.Sub(start)
	telemetry.ViewRefreshDuration.WithLabelValues(viewName).Observe(duration.Seconds())

	status := model.MaterializedViewStatus{
		ViewName:      viewName,
		LastRefreshed: finished,
		NextRefresh:   finished.Add(viewRefreshCycle),
		Duration:      duration,
	}
	if refreshErr != nil {
		status.Status = model.ViewFailed
		status.Error = refreshErr.Error()
		status.LastRefreshed = prior.LastRefreshed
		s.persistStatus(ctx, status)
		telemetry.ViewRefreshTotal.WithLabelValues(viewName, "failed").Inc()
		s.logger.Error("view refresh failed",
			zap.String("view", viewName),
			zap.Duration("duration", duration),
			zap.Error(refreshErr))
		return status, errs.DataSourceView("refresh view", viewName, refreshErr)
	}

	status.Status = model.ViewCompleted
	s.persistStatus(ctx, status)
	telemetry.ViewRefreshTotal.WithLabelValues(viewName, "completed").Inc()
	s.logger.Info("view refreshed",
		zap.String("view", viewName),
		zap.Duration("duration", duration))
	return status, nil
}

// RefreshAllViews fans RefreshView out over the fixed view set with
// all-settled semantics: one view's failure is captured in its own status
// entry and does not abort the others.
func (s *AnalyticsService) RefreshAllViews(ctx context.Context, force bool) []model.MaterializedViewStatus {
	statuses := make([]model.MaterializedViewStatus, len(ViewNames))

	var wg sync.WaitGroup
	for i, viewName := range ViewNames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := s.RefreshView(ctx, viewName, force)
			statuses[i] = status
		}()
	}
	wg.Wait()
	return statuses
}

// GetViewStatuses reads through the status cache for every managed view.
func (s *AnalyticsService) GetViewStatuses(ctx context.Context) []model.MaterializedViewStatus {
	statuses := make([]model.MaterializedViewStatus, len(ViewNames))
	for i, viewName := range ViewNames {
		statuses[i] = s.viewStatus(ctx, viewName)
	}
	return statuses
}

// viewStatus resolves a view's status: cache, then store, then the
// optimistic default — an unrefreshed view reads as COMPLETED at the Unix
// epoch rather than UNKNOWN, so consumers treat it as merely stale.
func (s *AnalyticsService) viewStatus(ctx context.Context, viewName string) model.MaterializedViewStatus {
	if raw, ok, err := s.cache.Get(ctx, viewStatusKey(viewName)); err != nil {
		s.logger.Warn("status cache read failed",
			zap.String("view", viewName),
			zap.Error(err))
	} else if ok {
		var status model.MaterializedViewStatus
		if err := json.Unmarshal([]byte(raw), &status); err == nil {
			return status
		}
	}

	if status, found, err := s.insights.GetViewStatus(ctx, viewName); err != nil {
		s.logger.Warn("status store read failed",
			zap.String("view", viewName),
			zap.Error(err))
	} else if found {
		return status
	}

	return model.MaterializedViewStatus{
		ViewName:      viewName,
		Status:        model.ViewCompleted,
		LastRefreshed: time.Unix(0, 0).UTC(),
	}
}

// persistStatus writes a status to the cache and the store. Both writes
// are best-effort bookkeeping: a failure is logged but never masks the
// refresh outcome itself.
func (s *AnalyticsService) persistStatus(ctx context.Context, status model.MaterializedViewStatus) {
	if raw, err := json.Marshal(status); err == nil {
		if err := s.cache.Set(ctx, viewStatusKey(status.ViewName), string(raw), viewStatusTTL); err != nil {
			s.logger.Warn("status cache write failed",
				zap.String("view", status.ViewName),
				zap.Error(err))
		}
	}
	if err := s.insights.UpsertViewStatus(ctx, status); err != nil {
		s.logger.Warn("status store write failed",
			zap.String("view", status.ViewName),
			zap.Error(err))
	}
}

func knownView(viewName string) bool {
	for _, v := range ViewNames {
		if v == viewName {
			return true
		}
	}
	return false
}
