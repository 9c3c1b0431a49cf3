package models

import "time"

// TargetType enumerates the entities a report can reference.
type TargetType string

const (
	TargetPost      TargetType = "POST"
	TargetComment   TargetType = "COMMENT"
	TargetUser      TargetType = "USER"
	TargetMessage   TargetType = "MESSAGE"
	TargetCandidate TargetType = "CANDIDATE"
)

// Valid reports whether t is a known target kind.
func (t TargetType) Valid() bool {
	switch t {
	case TargetPost, TargetComment, TargetUser, TargetMessage, TargetCandidate:
		return true
	default:
		return false
	}
}

// IsContent is true for kinds that carry hideable/deletable content.
func (t TargetType) IsContent() bool {
	return t == TargetPost || t == TargetComment || t == TargetMessage
}

// ReasonCode classifies why a target was reported.
type ReasonCode string

const (
	ReasonSpam           ReasonCode = "SPAM"
	ReasonHarassment     ReasonCode = "HARASSMENT"
	ReasonHateSpeech     ReasonCode = "HATE_SPEECH"
	ReasonThreat         ReasonCode = "THREAT"
	ReasonViolence       ReasonCode = "VIOLENCE"
	ReasonSexualContent  ReasonCode = "SEXUAL_CONTENT"
	ReasonMisinformation ReasonCode = "MISINFORMATION"
	ReasonImpersonation  ReasonCode = "IMPERSONATION"
	ReasonSelfHarm       ReasonCode = "SELF_HARM"
	ReasonIllegalContent ReasonCode = "ILLEGAL_CONTENT"
	ReasonOther          ReasonCode = "OTHER"
)

// Valid reports whether r is a known reason code.
func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonHateSpeech, ReasonThreat, ReasonViolence,
		ReasonSexualContent, ReasonMisinformation, ReasonImpersonation, ReasonSelfHarm,
		ReasonIllegalContent, ReasonOther:
		return true
	default:
		return false
	}
}

// ReportStatus captures the review workflow state.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusInReview ReportStatus = "IN_REVIEW"
	ReportStatusResolved ReportStatus = "RESOLVED"
)

// Open is true while the report still blocks duplicates from the same reporter.
func (s ReportStatus) Open() bool {
	return s == ReportStatusPending || s == ReportStatusInReview
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	return s.Open() || s == ReportStatusResolved
}

// Priority orders reports in the moderation queue.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var priorityRanks = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

var prioritiesByRank = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank returns the ordering weight (higher is more urgent, 0 when unknown).
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// Valid reports whether p is a known tier.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Escalate moves p up by steps tiers, capped at URGENT.
func (p Priority) Escalate(steps int) Priority {
	rank := p.Rank()
	if rank == 0 {
		rank = PriorityMedium.Rank()
	}
	rank += steps
	if rank > len(prioritiesByRank) {
		rank = len(prioritiesByRank)
	}
	if rank < 1 {
		rank = 1
	}
	return prioritiesByRank[rank-1]
}

// AIUrgencyCritical is the label an external scorer attaches to critical reports.
const AIUrgencyCritical = "critical"

// Report is a user-submitted abuse report awaiting or after moderation.
type Report struct {
	ID             string       `db:"id" json:"id"`
	ReporterID     string       `db:"reporter_id" json:"reporter_id"`
	TargetType     TargetType   `db:"target_type" json:"target_type"`
	TargetID       string       `db:"target_id" json:"target_id"`
	ReasonCode     ReasonCode   `db:"reason_code" json:"reason_code"`
	Description    *string      `db:"description" json:"description,omitempty"`
	Status         ReportStatus `db:"status" json:"status"`
	Priority       Priority     `db:"priority" json:"priority"`
	GeoWeight      *float64     `db:"geo_weight" json:"geo_weight,omitempty"`
	AIUrgency      *string      `db:"ai_urgency" json:"ai_urgency,omitempty"`
	ClaimedBy      *string      `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time   `db:"claimed_at" json:"claimed_at,omitempty"`
	ResolvedBy     *string      `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	ModeratorNotes *string      `db:"moderator_notes" json:"moderator_notes,omitempty"`
	ActionTaken    *ActionCode  `db:"action_taken" json:"action_taken,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportFilter constrains moderation queue listings.
type ReportFilter struct {
	Status     []ReportStatus
	Priority   Priority
	TargetType TargetType
	ReporterID string
	Page       int
	PageSize   int
}
