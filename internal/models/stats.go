package models

import "time"

// StatsSnapshot summarises queue health at a single point in time.
type StatsSnapshot struct {
	PendingCount       int       `db:"pending_count" json:"pending_count"`
	UrgentPendingCount int       `db:"urgent_pending_count" json:"urgent_pending_count"`
	ResolvedLast24h    int       `db:"resolved_last_24h" json:"resolved_last_24h"`
	ActiveFlagCount    int       `db:"active_flag_count" json:"active_flag_count"`
	SuspendedUserCount int       `db:"suspended_user_count" json:"suspended_user_count"`
	TotalReportCount   int       `db:"total_report_count" json:"total_report_count"`
	GeneratedAt        time.Time `db:"generated_at" json:"generated_at"`
}
