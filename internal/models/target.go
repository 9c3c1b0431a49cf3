package models

// TargetDescriptor is what the resolver knows about a reported entity.
type TargetDescriptor struct {
	Kind    TargetType `json:"kind"`
	ID      string     `json:"id"`
	Exists  bool       `json:"exists"`
	OwnerID *string    `json:"owner_id,omitempty"`
	Hidden  bool       `json:"hidden"`
}

// HasOwner reports whether a responsible user could be determined.
func (d TargetDescriptor) HasOwner() bool {
	return d.OwnerID != nil && *d.OwnerID != ""
}

// ScoringSignals carries the externally computed inputs of the priority scorer.
type ScoringSignals struct {
	GeoWeight *float64 `json:"geo_weight,omitempty"`
	AIUrgency *string  `json:"ai_urgency,omitempty"`
}

// Notification is the payload sent to a reporter once their report is resolved.
type Notification struct {
	ReportID    string     `json:"report_id"`
	RecipientID string     `json:"recipient_id"`
	TargetType  TargetType `json:"target_type"`
	TargetID    string     `json:"target_id"`
	Action      ActionCode `json:"action"`
	ResolvedAt  string     `json:"resolved_at"`
}
