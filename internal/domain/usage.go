package domain

import "time"

// UsageRecord is one append-only fact row per processed request. Both
// successful and failed attempts are recorded: the upstream call consumes
// resources regardless of outcome, so both count against quota.
type UsageRecord struct {
	ID           int64     `json:"id"`
	CredentialID int64     `json:"credential_id"`
	TenantID     int64     `json:"tenant_id"`
	SessionKey   string    `json:"session_key"`
	Platform     string    `json:"platform"`
	Model        string    `json:"model"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuotaPeriod selects the accounting window for quota checks.
type QuotaPeriod string

const (
	PeriodDaily   QuotaPeriod = "daily"
	PeriodMonthly QuotaPeriod = "monthly"
)

func ValidQuotaPeriod(s string) bool {
	switch QuotaPeriod(s) {
	case PeriodDaily, PeriodMonthly:
		return true
	}
	return false
}

// Window returns the rolling window length for the period: 24h for daily,
// 30 days for monthly.
func (p QuotaPeriod) Window() time.Duration {
	if p == PeriodMonthly {
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// QuotaStatus is the outcome of a quota check for one period.
type QuotaStatus struct {
	Period    QuotaPeriod `json:"period"`
	Allowed   bool        `json:"allowed"`
	Limit     *int64      `json:"limit"` // nil = unlimited
	Used      int64       `json:"used"`
	Remaining int64       `json:"remaining"` // -1 when unlimited
	ResetAt   time.Time   `json:"reset_at"`  // zero when unlimited or unused
}

// UsageSummary aggregates usage rows for reporting.
type UsageSummary struct {
	Total        int64   `json:"total"`
	Succeeded    int64   `json:"succeeded"`
	Failed       int64   `json:"failed"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}
