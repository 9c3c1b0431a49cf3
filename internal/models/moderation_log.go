package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionCode is the decision a moderator takes on a report.
type ActionCode string

const (
	ActionNoAction       ActionCode = "NO_ACTION"
	ActionContentHidden  ActionCode = "CONTENT_HIDDEN"
	ActionContentDeleted ActionCode = "CONTENT_DELETED"
	ActionUserWarned     ActionCode = "USER_WARNED"
	ActionUserSuspended  ActionCode = "USER_SUSPENDED"
	ActionUserBanned     ActionCode = "USER_BANNED"
)

// Valid reports whether a is a known action.
func (a ActionCode) Valid() bool {
	switch a {
	case ActionNoAction, ActionContentHidden, ActionContentDeleted,
		ActionUserWarned, ActionUserSuspended, ActionUserBanned:
		return true
	default:
		return false
	}
}

// SanctionsUser is true for actions aimed at the responsible user.
func (a ActionCode) SanctionsUser() bool {
	return a == ActionUserWarned || a == ActionUserSuspended || a == ActionUserBanned
}

// AffectsContent is true for actions aimed at the reported content itself.
func (a ActionCode) AffectsContent() bool {
	return a == ActionContentHidden || a == ActionContentDeleted
}

// EffectStatus describes how one side effect of an action ended.
type EffectStatus string

const (
	EffectApplied EffectStatus = "APPLIED"
	EffectSkipped EffectStatus = "SKIPPED"
	EffectFailed  EffectStatus = "FAILED"
)

// EffectResult is the outcome of a single side effect.
type EffectResult struct {
	Effect string       `json:"effect"`
	Status EffectStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// LogMetadata is the structured payload attached to every log entry.
type LogMetadata struct {
	ReportID          string         `json:"report_id,omitempty"`
	ResponsibleUserID string         `json:"responsible_user_id,omitempty"`
	SanctionID        string         `json:"sanction_id,omitempty"`
	Partial           bool           `json:"partial"`
	Effects           []EffectResult `json:"effects"`
}

// Value marshals metadata to JSON for persistence.
func (m LogMetadata) Value() (driver.Value, error) {
	if m.Effects == nil {
		m.Effects = []EffectResult{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal log metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into the metadata struct.
func (m *LogMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = LogMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for LogMetadata", value)
	}
	if len(data) == 0 {
		*m = LogMetadata{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal log metadata: %w", err)
	}
	return nil
}

// ModerationLog is an append-only audit entry for one executed action.
type ModerationLog struct {
	ID          string      `db:"id" json:"id"`
	ModeratorID string      `db:"moderator_id" json:"moderator_id"`
	TargetType  TargetType  `db:"target_type" json:"target_type"`
	TargetID    string      `db:"target_id" json:"target_id"`
	Action      ActionCode  `db:"action" json:"action"`
	Reason      string      `db:"reason" json:"reason"`
	Metadata    LogMetadata `db:"metadata" json:"metadata"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// ModerationLogFilter constrains audit trail listings.
type ModerationLogFilter struct {
	ModeratorID string
	TargetType  TargetType
	TargetID    string
	Action      ActionCode
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
}
