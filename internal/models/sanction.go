package models

import "time"

// WarningSeverity grades a warning issued to a user.
type WarningSeverity string

const (
	WarningMinor    WarningSeverity = "MINOR"
	WarningModerate WarningSeverity = "MODERATE"
	WarningSevere   WarningSeverity = "SEVERE"
)

// Warning is an immutable record of a warning issued to a user.
type Warning struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	ModeratorID string          `db:"moderator_id" json:"moderator_id"`
	Severity    WarningSeverity `db:"severity" json:"severity"`
	Reason      string          `db:"reason" json:"reason"`
	ReportID    *string         `db:"report_id" json:"report_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// SuspensionType distinguishes full account suspensions from partial restrictions.
type SuspensionType string

const (
	SuspensionTemporary            SuspensionType = "TEMPORARY"
	SuspensionPermanent            SuspensionType = "PERMANENT"
	SuspensionPostingRestricted    SuspensionType = "POSTING_RESTRICTED"
	SuspensionCommentingRestricted SuspensionType = "COMMENTING_RESTRICTED"
)

// FullRestriction is true for types that set the user's blanket suspended flag.
func (t SuspensionType) FullRestriction() bool {
	return t == SuspensionTemporary || t == SuspensionPermanent
}

// Suspension restricts a user until lifted or, for TEMPORARY, until EndsAt.
type Suspension struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	ModeratorID string         `db:"moderator_id" json:"moderator_id"`
	Type        SuspensionType `db:"type" json:"type"`
	Reason      string         `db:"reason" json:"reason"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	EndsAt      *time.Time     `db:"ends_at" json:"ends_at,omitempty"`
	ReportID    *string        `db:"report_id" json:"report_id,omitempty"`
	LiftedAt    *time.Time     `db:"lifted_at" json:"lifted_at,omitempty"`
	LiftedBy    *string        `db:"lifted_by" json:"lifted_by,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ExpiredSuspension identifies a suspension deactivated by the sweep.
type ExpiredSuspension struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
}

// SanctionHistory aggregates the sanction records of one user.
type SanctionHistory struct {
	UserID       string       `json:"user_id"`
	IsSuspended  bool         `json:"is_suspended"`
	WarningCount int          `json:"warning_count"`
	Warnings     []Warning    `json:"warnings"`
	Suspensions  []Suspension `json:"suspensions"`
}
