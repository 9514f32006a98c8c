package model

import "time"

// PatternType is the temporal granularity of a spending pattern.
type PatternType string

const (
	PatternDaily    PatternType = "DAILY"
	PatternWeekly   PatternType = "WEEKLY"
	PatternMonthly  PatternType = "MONTHLY"
	PatternSeasonal PatternType = "SEASONAL"
)

// Trend is the direction of a pattern's recent spending.
type Trend string

const (
	TrendIncreasing Trend = "INCREASING"
	TrendDecreasing Trend = "DECREASING"
	TrendStable     Trend = "STABLE"
)

// SpendingPattern is a recurring-spending pattern detected for a household.
// DayOfWeek and HourOfDay use -1 when unset; Month uses 0.
type SpendingPattern struct {
	ID                 string
	HouseholdID        string
	Type               PatternType
	CategoryID         string
	Merchant           string
	DayOfWeek          int // 0=Sunday .. 6=Saturday, -1 unset
	HourOfDay          int // -1 unset
	Month              time.Month
	Currency           string
	AverageAmountCents int64
	Frequency          int     // distinct occurrence buckets
	Confidence         float64 // in [0,1]
	Trend              Trend
	CreatedAt          time.Time
}

// Severity classifies how far an anomaly sits outside normal spending.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Sensitivity tunes the anomaly detection threshold. Higher sensitivity
// means a lower threshold and more flagged transactions.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "LOW"
	SensitivityMedium Sensitivity = "MEDIUM"
	SensitivityHigh   Sensitivity = "HIGH"
)

// Multiplier returns the stddev multiplier k for threshold = mean + k·stddev.
// Constants are monotonic across sensitivities: LOW→2.5, MEDIUM→2.0,
// HIGH→1.5. MEDIUM matches the z-score cutoff of 2.0 used historically.
func (s Sensitivity) Multiplier() float64 {
	switch s {
	case SensitivityHigh:
		return 1.5
	case SensitivityLow:
		return 2.5
	default:
		return 2.0
	}
}

// Valid reports whether s is a known sensitivity.
func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return true
	}
	return false
}

// FinancialAnomaly is a transaction flagged as a statistical outlier.
// Ephemeral unless surfaced as an Insight.
type FinancialAnomaly struct {
	ID            string
	HouseholdID   string
	TransactionID string
	CategoryID    string
	Merchant      string
	Currency      string
	AmountCents   int64 // absolute expense amount
	ExpectedCents int64 // mean of the household's expenses
	DeviationPct  float64
	Confidence    float64 // in [0,1]
	Severity      Severity
	Reason        string
	Date          time.Time
}

// TrendType selects which series a trend query builds.
type TrendType string

const (
	TrendSpending TrendType = "SPENDING"
	TrendIncome   TrendType = "INCOME"
	TrendNetWorth TrendType = "NET_WORTH"
	TrendCategory TrendType = "CATEGORY"
)

// Valid reports whether t is a known trend type.
func (t TrendType) Valid() bool {
	switch t {
	case TrendSpending, TrendIncome, TrendNetWorth, TrendCategory:
		return true
	}
	return false
}

// TrendPoint is one time-indexed value in a trend series.
type TrendPoint struct {
	Date       time.Time
	Label      string
	ValueCents int64
}

// ForecastPoint is one projected value with 95% confidence bounds.
type ForecastPoint struct {
	Date           time.Time
	PredictedCents int64
	LowerCents     int64
	UpperCents     int64
	Confidence     float64
}

// SeasonalFactor is a period's average value relative to the overall mean.
type SeasonalFactor struct {
	Period string
	Factor float64
}

// PeakPeriod is one of the strongest seasonal peaks.
type PeakPeriod struct {
	Period      string
	Factor      float64
	Description string
}

// SeasonalityData summarises calendar-driven periodicity in a series.
// Empty (HasSeasonality=false, nil slices) below 24 months of history.
type SeasonalityData struct {
	HasSeasonality bool
	Factors        []SeasonalFactor
	PeakPeriods    []PeakPeriod
}

// TrendAnalysis is the combined output of a trend query.
type TrendAnalysis struct {
	Points      []TrendPoint
	Seasonality SeasonalityData
	Forecast    []ForecastPoint
}

// ViewState is the lifecycle state of a materialized view refresh.
type ViewState string

const (
	ViewRefreshing ViewState = "REFRESHING"
	ViewCompleted  ViewState = "COMPLETED"
	ViewFailed     ViewState = "FAILED"
)

// MaterializedViewStatus records the outcome of the most recent refresh of
// a named view.
type MaterializedViewStatus struct {
	ViewName      string
	Status        ViewState
	LastRefreshed time.Time
	NextRefresh   time.Time
	Duration      time.Duration
	Error         string
}

// InsightType partitions insights by the analysis that produced them.
type InsightType string

const (
	InsightSpendingPattern InsightType = "SPENDING_PATTERN"
	InsightAnomaly         InsightType = "ANOMALY"
	InsightRecommendation  InsightType = "RECOMMENDATION"
)

// InsightPriority orders insights for presentation.
type InsightPriority string

const (
	PriorityLow    InsightPriority = "LOW"
	PriorityMedium InsightPriority = "MEDIUM"
	PriorityHigh   InsightPriority = "HIGH"
)

// Insight is a persisted, user-facing analytics finding.
type Insight struct {
	ID           string
	HouseholdID  string
	Type         InsightType
	Title        string
	Description  string
	Data         map[string]any
	Priority     InsightPriority
	IsActionable bool
	IsDismissed  bool
	ValidUntil   time.Time
	CreatedAt    time.Time
}
